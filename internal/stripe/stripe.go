// Package stripe implements the generic striped, slot-chained hash table
// shared by texcache's primary node table and fallback table. Both tables
// have the same shape — a fixed number of slots, each slot an intrusive
// doubly-linked chain, each slot guarded by one of a smaller number of
// stripes — they differ only in the entry payload and the key used to
// bucket it. This package factors the shape out so pkg/texcache only has to
// supply the payload type and the bucketing/matching logic.
//
// Concurrency model
// -----------------
// A Stripe owns a sync.RWMutex. Callers take the read lock to scan a chain
// for a matching entry and the write lock to mutate a chain (insert, unlink,
// or release to the free list). Apart from Table.Len, which takes every
// stripe's read lock itself, stripe never takes its own lock internally —
// the caller is expected to hold the appropriate lock for the
// whole critical section, exactly as the teacher's shard.go leaves locking
// to the caller around its map access.
//
// © 2025 texcache authors. MIT License.
package stripe

import "sync"

// Entry is one node in a slot's intrusive chain. The zero value is a
// detached, empty entry ready for reuse.
type Entry[T any] struct {
    next, prev *Entry[T]
    freeNext   *Entry[T]

    Value T
}

// Slot is the chain head/tail for one bucket.
type Slot[T any] struct {
    first, last *Entry[T]
}

// Find scans the chain for the first entry whose value matches, following
// the teacher's "first match wins" tie-break for a chain that may, under the
// relevant invariant, contain at most one true match anyway.
func (s *Slot[T]) Find(match func(*T) bool) *Entry[T] {
    for e := s.first; e != nil; e = e.next {
        if match(&e.Value) {
            return e
        }
    }
    return nil
}

// PushBack links e at the tail of the chain.
func (s *Slot[T]) PushBack(e *Entry[T]) {
    e.prev = s.last
    e.next = nil
    if s.last != nil {
        s.last.next = e
    } else {
        s.first = e
    }
    s.last = e
}

// Remove unlinks e from the chain. e must belong to this slot.
func (s *Slot[T]) Remove(e *Entry[T]) {
    if e.prev != nil {
        e.prev.next = e.next
    } else {
        s.first = e.next
    }
    if e.next != nil {
        e.next.prev = e.prev
    } else {
        s.last = e.prev
    }
    e.next, e.prev = nil, nil
}

// Each walks the chain front to back. fn returning false stops iteration.
func (s *Slot[T]) Each(fn func(*Entry[T]) bool) {
    for e := s.first; e != nil; {
        next := e.next
        if !fn(e) {
            return
        }
        e = next
    }
}

// Stripe guards every slot whose index maps to it under Table.StripeIndex
// (slot index modulo stripe count) and owns a free list of
// detached entries, standing in for the teacher's per-stripe arena: instead
// of bump-allocating from an arena and never reclaiming individual objects,
// we bump-allocate a fresh *Entry[T] only on free-list miss and otherwise
// recycle a retired one. Net effect is the same — steady state reuses
// memory without consulting the GC — without depending on the (build-tag
// gated, experimental) arena package.
type Stripe[T any] struct {
    Mu   sync.RWMutex
    free *Entry[T]
}

// Alloc returns an entry, preferring the free list. reset is invoked on the
// entry's payload before it is handed back so that payloads holding
// sync/atomic counters can clear each field individually rather than being
// copy-assigned a zero value, which `go vet`'s copylocks check flags. reset
// may be nil; a fresh *Entry[T] from the allocator is already zeroed, so
// reset is only needed on the free-list reuse path, which Alloc does for
// the caller automatically.
func (st *Stripe[T]) Alloc(reset func(*T)) *Entry[T] {
    if st.free != nil {
        e := st.free
        st.free = e.freeNext
        e.freeNext = nil
        if reset != nil {
            reset(&e.Value)
        }
        return e
    }
    return &Entry[T]{}
}

// Release resets e's payload via reset (see Alloc) and pushes it onto the
// free list for reuse. Callers must have already unlinked e from its slot.
func (st *Stripe[T]) Release(e *Entry[T], reset func(*T)) {
    if reset != nil {
        reset(&e.Value)
    }
    e.next, e.prev = nil, nil
    e.freeNext = st.free
    st.free = e
}

// Table is a fixed-size striped hash table. SlotCount and StripeCount are
// both expected to be reasonably small powers of two in practice, but
// neither is required to be.
type Table[T any] struct {
    slots       []Slot[T]
    stripes     []*Stripe[T]
    SlotCount   int
    StripeCount int
}

// New constructs a table with slotCount slots guarded by stripeCount
// stripes. Bucket assignment and stripe assignment are the caller's
// responsibility via SlotIndex/StripeIndex.
func New[T any](slotCount, stripeCount int) *Table[T] {
    if slotCount <= 0 {
        panic("stripe: slotCount must be > 0")
    }
    if stripeCount <= 0 {
        panic("stripe: stripeCount must be > 0")
    }
    t := &Table[T]{
        slots:       make([]Slot[T], slotCount),
        stripes:     make([]*Stripe[T], stripeCount),
        SlotCount:   slotCount,
        StripeCount: stripeCount,
    }
    for i := range t.stripes {
        t.stripes[i] = &Stripe[T]{}
    }
    return t
}

// SlotIndex buckets a 64-bit key into [0, SlotCount).
func (t *Table[T]) SlotIndex(bucket uint64) int {
    return int(bucket % uint64(t.SlotCount))
}

// StripeIndex maps a slot index to the stripe that guards it.
func (t *Table[T]) StripeIndex(slotIdx int) int {
    return slotIdx % t.StripeCount
}

// Slot returns the slot at idx.
func (t *Table[T]) Slot(idx int) *Slot[T] { return &t.slots[idx] }

// Stripe returns the stripe at idx.
func (t *Table[T]) Stripe(idx int) *Stripe[T] { return t.stripes[idx] }

// Locate is a convenience that resolves both the slot and the stripe
// guarding it for a given bucket key.
func (t *Table[T]) Locate(bucket uint64) (slotIdx int, s *Slot[T], st *Stripe[T]) {
    slotIdx = t.SlotIndex(bucket)
    return slotIdx, t.Slot(slotIdx), t.Stripe(t.StripeIndex(slotIdx))
}

// Len reports the total number of live entries across all slots. Len takes
// every stripe's read lock itself for a point-in-time (not globally atomic)
// count, mirroring the teacher's shard.len() "approximate" semantics.
func (t *Table[T]) Len() int {
    n := 0
    seen := make(map[*Stripe[T]]bool, len(t.stripes))
    for i := range t.slots {
        st := t.Stripe(t.StripeIndex(i))
        if !seen[st] {
            st.Mu.RLock()
            seen[st] = true
            defer st.Mu.RUnlock()
        }
        t.Slot(i).Each(func(*Entry[T]) bool { n++; return true })
    }
    return n
}
