// topfew-check is a diagnostic tool that validates a running topfew server
// against two independent local oracles. It generates a deterministic value
// stream, feeds it to the server through concurrent pipelined workers, and
// then verifies that the server's TOP.LIST answer matches:
//
//   - a set of local Top16 trackers, one per worker, merged at the end, and
//   - a generic min-heap top-set fed the whole stream sequentially.
//
// The first oracle exercises the merge path (one tracker per ingest worker,
// combined afterwards); the second is a slow, obviously-correct reference.
// Any disagreement between the three means a bug somewhere: in the tracker,
// in the server's locking, or in the wire plumbing.
//
// Usage Examples
// ==============
//
// Basic run against a local server:
//
//	topfew-check -addr localhost:6479
//
// A longer stream with more workers and a cutoff:
//
//	topfew-check -addr localhost:6479 -n 1000000 -workers 8 -cutoff 500000000
//
// Exit Codes
// ==========
//
// 0: The server agrees with both oracles.
// 1: Mismatch or connection failure.

package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/NicholasSterling/top-few/internal/topfew"
	"github.com/NicholasSterling/top-few/internal/topset"
)

// valueRange keeps generated values small enough to collide occasionally,
// so duplicate handling gets exercised on long streams.
const valueRange = 1_000_000_000

// valueAt derives the i-th stream value from the seed. xxhash over the packed
// pair gives a deterministic, well-distributed sequence that any two runs
// (and the offline tests) can reproduce exactly.
func valueAt(seed uint64, i int) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], seed)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(i))
	return xxhash.Sum64(buf[:]) % valueRange
}

// client wraps a connection with a buffered reader for RESP exchanges.
type client struct {
	conn   net.Conn
	reader *bufio.Reader
}

func dial(addr string) (*client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &client{conn: conn, reader: bufio.NewReader(conn)}, nil
}

func (c *client) close() {
	_ = c.conn.Close()
}

// command sends an inline command and returns the first response line
// without its CRLF.
func (c *client) command(cmd string) (string, error) {
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", cmd); err != nil {
		return "", err
	}
	return c.readLine()
}

func (c *client) readLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readUnsignedArray consumes a RESP array of integers ("*N" header already
// expected on the wire).
func (c *client) readUnsignedArray() ([]uint64, error) {
	header, err := c.readLine()
	if err != nil {
		return nil, err
	}
	if len(header) < 2 || header[0] != '*' {
		return nil, fmt.Errorf("expected array header, got %q", header)
	}
	count, err := strconv.Atoi(header[1:])
	if err != nil {
		return nil, fmt.Errorf("bad array header %q: %w", header, err)
	}

	values := make([]uint64, 0, count)
	for i := 0; i < count; i++ {
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}
		if len(line) < 2 || line[0] != ':' {
			return nil, fmt.Errorf("expected integer element, got %q", line)
		}
		v, err := strconv.ParseUint(line[1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad integer element %q: %w", line, err)
		}
		values = append(values, v)
	}
	return values, nil
}

// ingestWorker feeds its stripe of the stream to the server in pipelined
// batches while maintaining a local tracker over the same values. Returns the
// local tracker for merging.
func ingestWorker(addr, key string, seed uint64, n, workers, id int, cutoff uint64) (*topfew.Top16, error) {
	c, err := dial(addr)
	if err != nil {
		return nil, fmt.Errorf("worker %d: %w", id, err)
	}
	defer c.close()

	local := topfew.New(cutoff)

	const batchSize = 128
	var sb strings.Builder
	pending := 0

	flush := func() error {
		if pending == 0 {
			return nil
		}
		if _, err := c.conn.Write([]byte(sb.String())); err != nil {
			return fmt.Errorf("worker %d write: %w", id, err)
		}
		// Each TOP.SEE in the batch answers with one *1 header and one rank.
		for j := 0; j < pending; j++ {
			header, err := c.readLine()
			if err != nil {
				return fmt.Errorf("worker %d read: %w", id, err)
			}
			if header != "*1" {
				return fmt.Errorf("worker %d unexpected header %q", id, header)
			}
			if _, err := c.readLine(); err != nil {
				return fmt.Errorf("worker %d read rank: %w", id, err)
			}
		}
		sb.Reset()
		pending = 0
		return nil
	}

	for i := id; i < n; i += workers {
		v := valueAt(seed, i)
		local.See(v)
		fmt.Fprintf(&sb, "TOP.SEE %s %d\r\n", key, v)
		pending++
		if pending == batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return local, nil
}

func run(addr, key string, seed uint64, n, workers int, cutoff uint64) error {
	// Reset the server-side tracker so reruns start clean.
	setup, err := dial(addr)
	if err != nil {
		return fmt.Errorf("cannot connect to %s: %w", addr, err)
	}
	if _, err := setup.command(fmt.Sprintf("DEL %s", key)); err != nil {
		return fmt.Errorf("DEL failed: %w", err)
	}
	resp, err := setup.command(fmt.Sprintf("TOP.NEW %s %d", key, cutoff))
	if err != nil || resp != "+OK" {
		setup.close()
		return fmt.Errorf("TOP.NEW failed: resp=%q err=%v", resp, err)
	}

	start := time.Now()

	// Concurrent ingest, one stripe and one local tracker per worker.
	locals := make([]*topfew.Top16, workers)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			local, err := ingestWorker(addr, key, seed, n, workers, w, cutoff)
			if err != nil {
				return err
			}
			locals[w] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		setup.close()
		return err
	}

	elapsed := time.Since(start)
	fmt.Printf("Ingested %d values through %d workers in %v (%.0f values/sec)\n",
		n, workers, elapsed.Round(time.Millisecond), float64(n)/elapsed.Seconds())

	// Oracle 1: merge the per-worker trackers.
	merged := topfew.New(cutoff)
	for _, local := range locals {
		merged.Merge(local)
	}
	mergedTop := collect(merged)

	// Oracle 2: a sequential min-heap top-set over the full stream.
	set := topset.New(topfew.NumTracked, func(a, b uint64) bool { return a < b })
	for i := 0; i < n; i++ {
		if v := valueAt(seed, i); v > cutoff {
			set.Insert(v)
		}
	}
	heapTop := set.Sorted()

	// The server's answer.
	if _, err := fmt.Fprintf(setup.conn, "TOP.LIST %s\r\n", key); err != nil {
		setup.close()
		return fmt.Errorf("TOP.LIST failed: %w", err)
	}
	serverTop, err := setup.readUnsignedArray()
	setup.close()
	if err != nil {
		return fmt.Errorf("TOP.LIST failed: %w", err)
	}

	if !equal(serverTop, mergedTop) {
		return fmt.Errorf("server disagrees with merged trackers:\n  server: %v\n  merged: %v", serverTop, mergedTop)
	}
	if !equal(serverTop, heapTop) {
		return fmt.Errorf("server disagrees with heap oracle:\n  server: %v\n  heap:   %v", serverTop, heapTop)
	}

	fmt.Printf("OK: server, merged trackers, and heap oracle agree on %d values\n", len(serverTop))
	return nil
}

// collect drains a tracker's iterator into a slice, largest first.
func collect(t *topfew.Top16) []uint64 {
	values := make([]uint64, 0, topfew.NumTracked)
	it := t.Iter()
	for v, ok := it.Next(); ok; v, ok = it.Next() {
		values = append(values, v)
	}
	return values
}

func equal(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func main() {
	addr := flag.String("addr", "localhost:6479", "Server address")
	key := flag.String("key", "topfew_check", "Tracker key to use (deleted and recreated)")
	n := flag.Int("n", 100_000, "Number of values to stream")
	seed := flag.Uint64("seed", 1, "Stream seed")
	cutoff := flag.Uint64("cutoff", 0, "Tracker cutoff")
	workers := flag.Int("workers", 4, "Concurrent ingest workers")
	flag.Parse()

	if *workers < 1 {
		*workers = 1
	}

	if err := run(*addr, *key, *seed, *n, *workers, *cutoff); err != nil {
		fmt.Fprintf(os.Stderr, "[err] %v\n", err)
		os.Exit(1)
	}
}
