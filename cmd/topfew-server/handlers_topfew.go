// handlers_topfew.go implements the TOP.* command family.
//
// Each named tracker is a fixed-capacity Top16 keeping the 16 largest values
// seen on its stream. All tracker access goes through the store's View and
// Mutate callbacks so a tracker is never touched outside its shard lock.

package main

import (
	"io"
	"strconv"

	"github.com/NicholasSterling/top-few/internal/topfew"
)

// handleTopNew handles the TOP.NEW command.
// Syntax: TOP.NEW key [cutoff]
//
// Creates an empty tracker under the key. Values must exceed the cutoff
// (default 0) to be admitted or reported. Fails if the key already exists;
// use DEL first to reset a tracker.
func (app *application) handleTopNew(w io.Writer, args []string) {
	if len(args) < 1 || len(args) > 2 {
		app.wrongNumberOfArgsResponse(w, "TOP.NEW")
		return
	}

	key := args[0]

	var cutoff uint64
	if len(args) == 2 {
		var err error
		cutoff, err = strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			app.notAnUnsignedIntegerResponse(w)
			return
		}
	}

	created := false
	app.store.Mutate(key, func(t *topfew.Top16) (*topfew.Top16, bool) {
		if t != nil {
			return t, false
		}
		created = true
		return topfew.New(cutoff), true
	})

	if !created {
		_ = app.writeErrorResponse(w, "ERR key already exists")
		return
	}

	_ = app.writeSimpleStringResponse(w, "OK")
}

// handleTopSee handles the TOP.SEE command.
// Syntax: TOP.SEE key value [value ...]
//
// Feeds values into the tracker, creating it with the server's default
// cutoff if it does not exist. Returns an array with one rank per value,
// counted from the bottom of the tracked set: 16 for a new maximum, 1 for
// a value that barely made the cut, and 0 for a rejected value.
func (app *application) handleTopSee(w io.Writer, args []string) {
	if len(args) < 2 {
		app.wrongNumberOfArgsResponse(w, "TOP.SEE")
		return
	}

	key := args[0]

	// Validate every value before touching the store, so a malformed
	// argument cannot leave a half-applied batch.
	values := make([]uint64, 0, len(args)-1)
	for _, arg := range args[1:] {
		v, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			app.notAnUnsignedIntegerResponse(w)
			return
		}
		values = append(values, v)
	}

	ranks := make([]int, len(values))
	app.store.Mutate(key, func(t *topfew.Top16) (*topfew.Top16, bool) {
		if t == nil {
			t = topfew.New(app.config.defaultCutoff)
		}
		for i, v := range values {
			ranks[i] = t.See(v)
		}
		return t, true
	})

	app.metrics.TotalValuesSeen.Add(uint64(len(values)))

	_ = app.writeIntegerArrayResponse(w, ranks)
}

// handleTopMax handles the TOP.MAX command.
// Syntax: TOP.MAX key
//
// Returns the largest value the tracker has admitted, or nil if the key
// does not exist or nothing has exceeded the cutoff yet.
func (app *application) handleTopMax(w io.Writer, args []string) {
	if len(args) != 1 {
		app.wrongNumberOfArgsResponse(w, "TOP.MAX")
		return
	}

	var (
		max   uint64
		found bool
	)
	_ = app.store.View(args[0], func(t *topfew.Top16) error {
		if t != nil {
			max, found = t.Max()
		}
		return nil
	})

	if !found {
		_ = app.writeNilResponse(w)
		return
	}

	_ = app.writeUnsignedResponse(w, max)
}

// handleTopCutoff handles the TOP.CUTOFF command.
// Syntax: TOP.CUTOFF key
//
// Returns the tracker's current cutoff, or nil if the key does not exist.
func (app *application) handleTopCutoff(w io.Writer, args []string) {
	if len(args) != 1 {
		app.wrongNumberOfArgsResponse(w, "TOP.CUTOFF")
		return
	}

	var (
		cutoff uint64
		found  bool
	)
	_ = app.store.View(args[0], func(t *topfew.Top16) error {
		if t != nil {
			cutoff = t.Cutoff()
			found = true
		}
		return nil
	})

	if !found {
		_ = app.writeNilResponse(w)
		return
	}

	_ = app.writeUnsignedResponse(w, cutoff)
}

// handleTopSetCutoff handles the TOP.SETCUTOFF command.
// Syntax: TOP.SETCUTOFF key cutoff
//
// Updates the tracker's cutoff. Raising it suppresses already-admitted
// values at or below the new cutoff; lowering it never resurrects them.
func (app *application) handleTopSetCutoff(w io.Writer, args []string) {
	if len(args) != 2 {
		app.wrongNumberOfArgsResponse(w, "TOP.SETCUTOFF")
		return
	}

	cutoff, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		app.notAnUnsignedIntegerResponse(w)
		return
	}

	found := false
	app.store.Mutate(args[0], func(t *topfew.Top16) (*topfew.Top16, bool) {
		if t == nil {
			return nil, false
		}
		t.SetCutoff(cutoff)
		found = true
		return t, true
	})

	if !found {
		_ = app.writeErrorResponse(w, "ERR no such key")
		return
	}

	_ = app.writeSimpleStringResponse(w, "OK")
}

// handleTopList handles the TOP.LIST command.
// Syntax: TOP.LIST key [n]
//
// Returns the tracked values in descending order, optionally limited to the
// top n. A missing key returns an empty array, same as a tracker that has
// admitted nothing: either way there is nothing above the cutoff to report.
func (app *application) handleTopList(w io.Writer, args []string) {
	if len(args) < 1 || len(args) > 2 {
		app.wrongNumberOfArgsResponse(w, "TOP.LIST")
		return
	}

	n := topfew.NumTracked
	if len(args) == 2 {
		parsed, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			app.notAnUnsignedIntegerResponse(w)
			return
		}
		if parsed < uint64(n) {
			n = int(parsed)
		}
	}

	values := make([]uint64, 0, n)
	_ = app.store.View(args[0], func(t *topfew.Top16) error {
		if t == nil {
			return nil
		}
		it := t.Take(n)
		for v, ok := it.Next(); ok; v, ok = it.Next() {
			values = append(values, v)
		}
		return nil
	})

	_ = app.writeUnsignedArrayResponse(w, values)
}
