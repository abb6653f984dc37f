// Package topfew implements a fixed-capacity tracker for the top 16 values
// seen so far in a stream of unsigned integers. It is designed to be efficient
// in both time and space: 16 values can be indexed by four bits, and 16 4-bit
// indices fit in a single 64-bit word. So we hold the values in a plain array
// and pack their indices, sorted by value, into one uint64 that we can search
// and splice with shift operations. Because the tracker always holds exactly
// 16 slots, the binary search for an insertion point needs exactly four steps,
// which are unrolled, and each step is written so the comparison becomes a
// flag-set rather than a branch.
//
// Cutoff Semantics
// ================
//
// The tracker does not quite return the top 16 values seen. A cutoff value is
// chosen at construction, and only values strictly larger than the cutoff are
// admitted or reported. With a cutoff of 0, zeros never appear in the result
// even if every value seen was 0. Callers that need the full uint64 domain
// including 0 can offset their values by one or pair them with a counter.
//
// The cutoff buys performance in several ways. Slots are initialized to the
// cutoff, so the tracker always holds 16 comparable values and the search
// needs no special handling for a partially filled list, which is what lets
// the loop unroll. And if the caller was only ever interested in values above
// some floor, the filtering comes for free.
//
// Duplicates
// ==========
//
// A value seen multiple times can be tracked multiple times. A new instance
// of a value already present inserts below the existing instances, so the
// oldest instances are retained under eviction pressure and are reported
// first by the descending iterator.
//
// The tracker is a plain single-owner value: it is not safe for concurrent
// use, and it must not be mutated while an Iter over it is live. Callers that
// shard work across goroutines should keep one tracker per worker and combine
// them afterwards with Merge.
package topfew

import (
	"fmt"
	"strings"
)

const (
	// NumTracked is the fixed capacity of a tracker.
	NumTracked = 16

	ixBits  = 4                // bits to hold one slot index
	ixMask  = 1<<ixBits - 1    // mask for extracting an index
	ixsBits = NumTracked * ixBits // 64 bits for 16 indices

	// identityIxs places slot i at sort position i.
	identityIxs = 0xFEDCBA9876543210
)

// Top16 tracks the 16 largest values above a cutoff seen so far.
type Top16 struct {
	// A value must exceed threshold to enter the top list. It is the
	// smallest tracked value, or the cutoff while slots remain unfilled.
	// Kept redundantly so See can reject most values with one compare.
	threshold uint64
	// Only values strictly larger than cutoff are admitted or reported.
	cutoff uint64
	// The 4-bit slot indices packed in ascending value order; the least
	// significant field names the slot holding the smallest value.
	sortedIxs uint64
	// The tracked values, unordered. Order lives in sortedIxs.
	elements [NumTracked]uint64
}

// New returns a tracker that admits only values larger than cutoff.
func New(cutoff uint64) *Top16 {
	t := &Top16{
		threshold: cutoff,
		cutoff:    cutoff,
		sortedIxs: identityIxs,
	}
	for i := range t.elements {
		t.elements[i] = cutoff
	}
	return t
}

// ix returns the slot index stored at the given bit shift in sortedIxs.
func (t *Top16) ix(shift uint32) int {
	return int((t.sortedIxs >> shift) & ixMask)
}

// elementAt returns the element whose index is stored at the given shift.
func (t *Top16) elementAt(shift uint32) uint64 {
	return t.elements[t.ix(shift)]
}

// le reports whether value <= the element at shift, as 0 or 1. Returning an
// integer instead of branching lets the search steps fold the comparison into
// arithmetic; the compiler lowers this form to a flags-based set instruction.
func (t *Top16) le(value uint64, shift uint32) uint32 {
	if value <= t.elements[(t.sortedIxs>>shift)&ixMask] {
		return 1
	}
	return 0
}

// See offers a value to the tracker. If the value makes the top 16 it is
// inserted and See returns its position, 1 for the smallest tracked value and
// 16 for the largest; otherwise See returns 0. The rank makes tests like
// "is this in the top 5" a single comparison on the caller's side.
//
// The threshold check is kept separate from the insertion work so that the
// common rejection path inlines into the caller's loop.
func (t *Top16) See(value uint64) int {
	if value <= t.threshold {
		return 0
	}
	return int(t.insert(value)>>2) + 1
}

// insert places value into the top list and returns the bit shift of its
// final sort position. Caller has already checked value > threshold.
func (t *Top16) insert(value uint64) uint32 {
	// Binary search for the insertion shift among the sorted indices.
	// The probe pattern over the 16 4-bit fields:
	//
	//  0    4    8    12   16   20   24   28   32   36   40   44   48   52   56   60
	//  xxxx xxxx xxxx xxxx xxxx xxxx xxxx xxxx xxxx xxxx xxxx xxxx xxxx xxxx xxxx xxxx
	//                                          ^
	//                      ^                                       .
	//            ^                   .
	//       ^         .
	//  ^    .
	//
	// With a guaranteed 16 elements the log2(16) = 4 steps unroll, and each
	// step adjusts the shift by half the remaining span minus a 0/1
	// comparison result scaled into place, with no data-dependent branch.
	shift := uint32(ixsBits / 2)
	shift = shift + 4*ixBits - t.le(value, shift)<<5 // - (0 | 8)*ixBits
	shift = shift + 2*ixBits - t.le(value, shift)<<4 // - (0 | 4)*ixBits
	shift = shift + 1*ixBits - t.le(value, shift)<<3 // - (0 | 2)*ixBits
	shift = shift - t.le(value, shift)<<2            // - (0 | 1)*ixBits

	// Splice the new value's slot index in at shift. E.g. with shift = 48
	// and sortedIxs = 0xFEDCBA9876543210:
	//
	//	upper = 0xFEDCBA9876543210 >> 52       = 0x0000000000000FED
	//	lower = 0xFEDCBA9876543210 << 12 >> 16 = 0x0000CBA987654321
	//	sortedIxs                              = 0xFED0CBA987654321
	//	                      inserted value's index ^
	//
	// lower keeps the field at shift itself and drops the bottom field,
	// which names the evicted smallest element; that freed slot is reused
	// to store the new value. Go defines shifts by 64 or more as 0, which
	// the shift == 0 and shift == 60 boundary cases rely on.
	lower := (t.sortedIxs << (ixsBits - ixBits - shift)) >> (ixsBits - shift)
	upper := t.sortedIxs >> (shift + ixBits)
	oldMinIx := t.ix(0)
	t.sortedIxs = (upper<<ixBits|uint64(oldMinIx))<<shift | lower

	t.elements[oldMinIx] = value
	t.threshold = t.elementAt(0) // always >= the previous threshold
	return shift
}

// Max returns the largest tracked value, or false if no value above the
// cutoff has been seen yet.
func (t *Top16) Max() (uint64, bool) {
	v := t.elementAt(ixsBits - ixBits)
	return v, v > t.cutoff
}

// Cutoff returns the current cutoff value.
func (t *Top16) Cutoff() uint64 {
	return t.cutoff
}

// SetCutoff changes the cutoff. Tracked values at or below the new cutoff are
// permanently dropped; they do not come back if the cutoff is lowered again.
func (t *Top16) SetCutoff(newCutoff uint64) {
	// If the cutoff is being raised, values smaller than the new cutoff
	// must be rewritten to the new cutoff. If it is being lowered, values
	// pinned at the old cutoff must follow it down so they keep reading as
	// unadmitted. One floor handles both directions; the newCutoff == 0
	// case is guarded so newCutoff-1 cannot wrap.
	floor := t.cutoff
	if newCutoff > 0 && newCutoff-1 > floor {
		floor = newCutoff - 1
	}
	for shift := uint32(0); shift < ixsBits; shift += ixBits {
		ix := t.ix(shift)
		if t.elements[ix] > floor {
			break // all remaining elements are larger; keep them
		}
		t.elements[ix] = newCutoff
	}
	t.threshold = t.elementAt(0)
	t.cutoff = newCutoff
}

// Merge feeds every value tracked by other through See. Workers that each own
// a tracker can combine their results this way once the stream is exhausted;
// descending order means the merge rejects in O(1) as soon as other's
// remaining values fall below the merged threshold.
func (t *Top16) Merge(other *Top16) {
	it := other.Iter()
	for v, ok := it.Next(); ok; v, ok = it.Next() {
		t.See(v)
	}
}

// String renders the tracker with the permutation word in hex, which is the
// form the insertion arithmetic is easiest to check against.
func (t *Top16) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Top16{cutoff: %d, threshold: %d, sortedIxs: %016X, elements: [",
		t.cutoff, t.threshold, t.sortedIxs)
	for i, v := range t.elements {
		if i > 0 {
			sb.WriteString(", ")
			if i%4 == 0 {
				sb.WriteByte(' ')
			}
		}
		fmt.Fprintf(&sb, "%d", v)
	}
	sb.WriteString("]}")
	return sb.String()
}
