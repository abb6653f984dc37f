// store.go implements the sharded in-memory store of named trackers.
//
// Sharding Strategy
// =================
//
// The store partitions trackers across 256 independent shards, each with its
// own mutex. This reduces lock contention compared to a single global lock:
// two concurrent commands against different keys will typically hit different
// shards and proceed in parallel. The shard count of 256 is a sweet spot:
// enough to virtually eliminate contention at typical workloads, but small
// enough to iterate quickly for INFO.
//
// Keys are assigned to shards using xxhash64. The shard count is a power of
// two, so the hash is masked rather than modded. Cryptographic strength is
// not needed here; xxhash is fast and distributes short keys well.
//
// Access Model
// ============
//
// Trackers are mutable structures owned by their shard. Handing a *Top16 out
// of a lock would invite unsynchronized mutation, so all access goes through
// two callback primitives: View (read lock, iteration and queries) and
// Mutate (write lock, read-modify-write). The tracker never escapes the
// critical section.

package main

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/NicholasSterling/top-few/internal/topfew"
)

// shardCount determines how many independent maps we maintain. Must be a
// power of two so shard selection can mask the hash.
const shardCount = 256

// Shard is a single slice of the store. It has its own lock, so locking this
// shard does not block the others.
type Shard struct {
	mu       sync.RWMutex
	trackers map[string]*topfew.Top16
}

// Store holds the array of shards and routes keys to the right one.
type Store struct {
	shards [shardCount]*Shard
}

// NewStore creates and initializes the sharded store.
func NewStore() *Store {
	s := &Store{}
	for i := 0; i < shardCount; i++ {
		s.shards[i] = &Shard{
			trackers: make(map[string]*topfew.Top16),
		}
	}
	return s
}

// getShard returns the shard responsible for the key.
func (s *Store) getShard(key string) *Shard {
	return s.shards[xxhash.Sum64String(key)&(shardCount-1)]
}

// View executes a read-only callback while holding the shard's read lock.
// The callback receives nil if the key does not exist. The tracker must not
// be mutated inside fn; iteration and queries are fine.
func (s *Store) View(key string, fn func(t *topfew.Top16) error) error {
	shard := s.getShard(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	return fn(shard.trackers[key])
}

// Mutate atomically reads, modifies, and updates a tracker using a callback.
//
// The callback receives the current tracker (nil if the key does not exist)
// and returns the tracker to store along with a boolean indicating whether
// the store should be updated. Holding the exclusive lock for the whole
// read-modify-write prevents the lost-update problem: without it, two
// concurrent TOP.SEE commands against the same key could interleave their
// reads and writes and silently drop values.
func (s *Store) Mutate(key string, fn func(t *topfew.Top16) (*topfew.Top16, bool)) {
	shard := s.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	updated, changed := fn(shard.trackers[key])
	if changed {
		shard.trackers[key] = updated
	}
}

// Delete removes a key from its shard, reporting whether it existed.
func (s *Store) Delete(key string) bool {
	shard := s.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	_, ok := shard.trackers[key]
	if ok {
		delete(shard.trackers, key)
	}
	return ok
}

// Keys returns the total number of trackers across all shards. Used by INFO;
// takes each shard's read lock briefly in turn rather than stopping the
// world.
func (s *Store) Keys() int {
	total := 0
	for i := 0; i < shardCount; i++ {
		s.shards[i].mu.RLock()
		total += len(s.shards[i].trackers)
		s.shards[i].mu.RUnlock()
	}
	return total
}
