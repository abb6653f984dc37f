package topfew

import (
	"encoding/binary"
	"fmt"
	"sort"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/require"

	"github.com/NicholasSterling/top-few/internal/topset"
)

// streamValue derives the i-th value of a deterministic pseudo-random stream
// from its seed. Hashing the packed (seed, i) pair gives a sequence that is
// reproducible across runs and machines without carrying RNG state around.
// The modulus keeps the value range small enough that long streams contain
// duplicates, which is where the tie-breaking rules earn their keep.
func streamValue(seed uint64, i int) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], seed)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(i))
	return xxhash.Sum64(buf[:]) % 1_000_000_000
}

// topViaSort is the brute-force oracle: sort the qualifying values and keep
// the largest NumTracked, descending.
func topViaSort(values []uint64, cutoff uint64) []uint64 {
	var qualifying []uint64
	for _, v := range values {
		if v > cutoff {
			qualifying = append(qualifying, v)
		}
	}
	sort.Slice(qualifying, func(i, j int) bool { return qualifying[i] > qualifying[j] })
	if len(qualifying) > NumTracked {
		qualifying = qualifying[:NumTracked]
	}
	return qualifying
}

// TestDifferentialAgainstOracles cross-checks the tracker against both a
// full sort and the generic bounded top-set over random streams of varying
// length and cutoff.
func TestDifferentialAgainstOracles(t *testing.T) {
	for seed := uint64(1); seed <= 8; seed++ {
		for _, n := range []int{0, 1, 7, 16, 17, 100, 5000} {
			for _, cutoff := range []uint64{0, 500_000_000, 999_999_999} {
				t.Run(fmt.Sprintf("seed=%d/n=%d/cutoff=%d", seed, n, cutoff), func(t *testing.T) {
					tr := New(cutoff)
					set := topset.New(NumTracked, func(a, b uint64) bool { return a < b })
					values := make([]uint64, n)

					for i := 0; i < n; i++ {
						v := streamValue(seed, i)
						values[i] = v
						tr.See(v)
						if v > cutoff {
							set.Insert(v)
						}
					}

					want := topViaSort(values, cutoff)
					require.Equal(t, want, collectFwd(tr.Iter()), "tracker vs full sort")
					require.Equal(t, want, toSlice(set.Sorted()), "top-set vs full sort")
				})
			}
		}
	}
}

// toSlice normalizes an empty-but-non-nil slice to nil so require.Equal
// compares it against the oracles' nil result for empty streams.
func toSlice(s []uint64) []uint64 {
	if len(s) == 0 {
		return nil
	}
	return s
}

// TestIterReversal checks that NextBack yields the exact reverse of Next.
func TestIterReversal(t *testing.T) {
	for seed := uint64(10); seed <= 13; seed++ {
		tr := New(0)
		for i := 0; i < 200; i++ {
			tr.See(streamValue(seed, i))
		}

		fwd := collectFwd(tr.Iter())
		bwd := collectBack(tr.Iter())
		for i, j := 0, len(bwd)-1; i < len(bwd)/2; i, j = i+1, j-1 {
			bwd[i], bwd[j] = bwd[j], bwd[i]
		}
		require.Equal(t, fwd, bwd, "seed %d", seed)
	}
}

// TestTakeMatchesIterPrefix checks Take(n) against the first n values of a
// full iteration for every n from zero past the capacity.
func TestTakeMatchesIterPrefix(t *testing.T) {
	tr := New(0)
	for i := 0; i < 300; i++ {
		tr.See(streamValue(99, i))
	}

	full := collectFwd(tr.Iter())
	for n := 0; n <= NumTracked+4; n++ {
		want := full
		if n < len(full) {
			want = full[:n]
		}
		require.Equal(t, toSlice(want), toSlice(collectFwd(tr.Take(n))), "n=%d", n)
	}
}

// TestRankConsistency checks that every non-zero rank See returns matches the
// value's 1-based sort position, counting unfilled slots at the bottom.
func TestRankConsistency(t *testing.T) {
	const cutoff = 100
	tr := New(cutoff)

	for i := 0; i < 2000; i++ {
		v := streamValue(7, i) % 4000 // plenty of rejections and duplicates
		rank := tr.See(v)

		if v <= cutoff {
			require.Zero(t, rank, "value %d at or below cutoff", v)
			continue
		}
		require.GreaterOrEqual(t, rank, 0)
		require.LessOrEqual(t, rank, NumTracked)
		if rank == 0 {
			continue
		}

		// Ascending tracked values occupy positions 17-len .. 16; the
		// freshly inserted value must sit exactly at its reported rank.
		asc := collectBack(tr.Iter())
		pos := rank - (NumTracked + 1 - len(asc)) // index into asc
		require.GreaterOrEqual(t, pos, 0, "rank %d with %d tracked", rank, len(asc))
		require.Equal(t, v, asc[pos], "rank %d with %d tracked", rank, len(asc))
	}
}

// TestMergeMatchesSingleTracker shards a stream over several trackers and
// checks that merging them reproduces the single-tracker result.
func TestMergeMatchesSingleTracker(t *testing.T) {
	const workers = 4
	const n = 3000
	const cutoff = 250_000_000

	single := New(cutoff)
	locals := make([]*Top16, workers)
	for w := range locals {
		locals[w] = New(cutoff)
	}

	for i := 0; i < n; i++ {
		v := streamValue(21, i)
		single.See(v)
		locals[i%workers].See(v)
	}

	merged := New(cutoff)
	for _, local := range locals {
		merged.Merge(local)
	}
	require.Equal(t, collectFwd(single.Iter()), collectFwd(merged.Iter()))
}
