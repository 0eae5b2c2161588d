package probe

import (
	"sync/atomic"
)

// Store is a fixed-capacity concurrent hash map from uint64 keys to uint64
// values. It never allocates after construction and never blocks, so it is
// safe to hit from the event pump at tracepoint rates. There is no deletion
// and no eviction: once the table is full, inserts of new keys are dropped
// silently while existing keys keep updating.
type Store struct {
	slots []slot
	mask  uint64
	count atomic.Uint64
}

// A slot key is stored offset by one so that zero means empty. Kernel cgroup
// ids and CPU ids never reach ^uint64(0), so the offset cannot wrap.
type slot struct {
	key atomic.Uint64
	val atomic.Uint64
}

// NewStore creates a store holding at most capacity entries. Capacity is
// rounded up to the next power of two.
func NewStore(capacity int) *Store {
	n := uint64(1)
	for n < uint64(capacity) {
		n <<= 1
	}
	return &Store{
		slots: make([]slot, n),
		mask:  n - 1,
	}
}

// murmur3 fmix64
func hashKey(k uint64) uint64 {
	k ^= k >> 33
	k *= 0xff51afd7ed558ccd
	k ^= k >> 33
	k *= 0xc4ceb9fe1a85ec53
	k ^= k >> 33
	return k
}

// Lookup returns the value stored for key. Absent keys read as (0, false).
func (s *Store) Lookup(key uint64) (uint64, bool) {
	k := key + 1
	idx := hashKey(key)
	for i := uint64(0); i <= s.mask; i++ {
		sl := &s.slots[(idx+i)&s.mask]
		got := sl.key.Load()
		if got == 0 {
			return 0, false
		}
		if got == k {
			return sl.val.Load(), true
		}
	}
	return 0, false
}

// Add atomically adds delta to the value for key, initializing it to delta if
// the key is absent. It reports false when the key is new and the table is
// full; the update is then dropped.
func (s *Store) Add(key uint64, delta uint64) bool {
	sl, ok := s.claim(key)
	if !ok {
		return false
	}
	sl.val.Add(delta)
	return true
}

// Put atomically overwrites the value for key, inserting it if absent. It
// reports false when the key is new and the table is full.
func (s *Store) Put(key uint64, val uint64) bool {
	sl, ok := s.claim(key)
	if !ok {
		return false
	}
	sl.val.Store(val)
	return true
}

// claim finds the slot owning key, taking over an empty slot if the key is
// not present yet. Probing is bounded by the table size.
func (s *Store) claim(key uint64) (*slot, bool) {
	k := key + 1
	idx := hashKey(key)
	for i := uint64(0); i <= s.mask; i++ {
		sl := &s.slots[(idx+i)&s.mask]
		got := sl.key.Load()
		if got == 0 {
			if sl.key.CompareAndSwap(0, k) {
				s.count.Add(1)
				return sl, true
			}
			// lost the slot to a concurrent insert; it may have been our key
			got = sl.key.Load()
		}
		if got == k {
			return sl, true
		}
	}
	return nil, false
}

// Range calls fn for each entry until fn returns false. Entries inserted
// concurrently may or may not be observed; none are observed twice.
func (s *Store) Range(fn func(key, val uint64) bool) {
	for i := range s.slots {
		sl := &s.slots[i]
		got := sl.key.Load()
		if got == 0 {
			continue
		}
		if !fn(got-1, sl.val.Load()) {
			return
		}
	}
}

// Len returns the number of entries currently stored.
func (s *Store) Len() int {
	return int(s.count.Load())
}
