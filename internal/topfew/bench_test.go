package topfew

import (
	"testing"

	"github.com/NicholasSterling/top-few/internal/topset"
)

/*
 * Micro-benchmarks for the Top16 tracker.
 *
 * These measure the raw cost of the ingest path in isolation, and compare it
 * against the generic min-heap top-set to quantify what the packed
 * permutation and unrolled search buy.
 *
 * Two input shapes matter:
 *
 *   - Random data: after the first few insertions the threshold rejects the
 *     overwhelming majority of values, so this mostly measures the inlined
 *     fast-reject check.
 *   - Ascending data: every value beats the threshold, so every arrival pays
 *     for a full search and insertion. This is the worst case.
 *
 * Run with: go test -bench=. -benchmem ./internal/topfew/
 */

func randomStream(n int) []uint64 {
	values := make([]uint64, n)
	for i := range values {
		values[i] = streamValue(42, i)
	}
	return values
}

func ascendingStream(n int) []uint64 {
	values := make([]uint64, n)
	for i := range values {
		values[i] = uint64(i + 1)
	}
	return values
}

func BenchmarkSeeRandom(b *testing.B) {
	values := randomStream(b.N)

	b.ResetTimer()
	b.ReportAllocs()

	tr := New(0)
	for i := 0; i < b.N; i++ {
		tr.See(values[i])
	}
}

func BenchmarkSeeAscending(b *testing.B) {
	values := ascendingStream(b.N)

	b.ResetTimer()
	b.ReportAllocs()

	tr := New(0)
	for i := 0; i < b.N; i++ {
		tr.See(values[i])
	}
}

func BenchmarkTopSetInsertRandom(b *testing.B) {
	values := randomStream(b.N)

	b.ResetTimer()
	b.ReportAllocs()

	set := topset.New(NumTracked, func(x, y uint64) bool { return x < y })
	for i := 0; i < b.N; i++ {
		set.Insert(values[i])
	}
}

func BenchmarkTopSetInsertAscending(b *testing.B) {
	values := ascendingStream(b.N)

	b.ResetTimer()
	b.ReportAllocs()

	set := topset.New(NumTracked, func(x, y uint64) bool { return x < y })
	for i := 0; i < b.N; i++ {
		set.Insert(values[i])
	}
}

func BenchmarkIter(b *testing.B) {
	tr := New(0)
	for _, v := range randomStream(1000) {
		tr.See(v)
	}

	b.ResetTimer()
	b.ReportAllocs()

	var sink uint64
	for i := 0; i < b.N; i++ {
		it := tr.Iter()
		for v, ok := it.Next(); ok; v, ok = it.Next() {
			sink += v
		}
	}
	_ = sink
}
