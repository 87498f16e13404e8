package texcache

import (
    "sync/atomic"

    "github.com/Voskan/texcache/internal/clock"
)

// node.go defines the payload types stored in the two stripe.Table
// instantiations backing a Cache: primary nodes (keyed by hash+topology) and
// fallback nodes (keyed by user key). Fields that the concurrency model
// requires to be atomic (scope_ref_count, is_working, load_count, the two
// touch timestamps — spec.md §9 "Atomics granularity") are sync/atomic
// types; everything else mutates only under the owning stripe's write lock.
//
// Both node and fallbackNode are reset via a callback rather than a
// whole-struct zero-value assignment: node embeds sync/atomic fields, and
// Go's atomic types carry a noCopy marker specifically so `go vet`'s
// copylocks check catches `*n = node{}`-style resets. resetNode/
// resetFallbackNode clear each field individually instead, and are passed
// to stripe.Stripe's Alloc/Release as the reset callback.

// node is one entry in the primary table: (hash, topology) identifies it
// immutably from insertion; texture is written at most once, by the worker
// that wins the is_working CAS.
type node struct {
    hash     Hash
    topology Topology

    texture Handle // written once under the stripe write lock (§3 invariant 2)

    isWorking     atomic.Uint32 // CAS 0->1 claims the build (§3 invariant 4)
    loadCount     atomic.Uint64
    scopeRefCount atomic.Int64

    lastTimeTouchedUs       atomic.Uint64
    lastUserClockIdxTouched atomic.Uint64
}

// resetNode clears n in place for reuse from a stripe's free list.
func resetNode(n *node) {
    n.hash = Hash{}
    n.topology = Topology{}
    n.texture = Handle{}
    n.isWorking.Store(0)
    n.loadCount.Store(0)
    n.scopeRefCount.Store(0)
    n.lastTimeTouchedUs.Store(0)
    n.lastUserClockIdxTouched.Store(0)
}

// matchesIdentity reports whether n identifies the given (hash, topology).
func (n *node) matchesIdentity(hash Hash, topology Topology) bool {
    return n.hash == hash && n.topology == topology
}

// touch records a pin: increments scope_ref_count and stamps both clocks.
// Must be called with the owning stripe's lock held (read lock suffices:
// the evictor retires nodes only under the write lock and re-checks
// scope_ref_count there).
func (n *node) touch(nowUs, userClockIdx uint64) {
    n.scopeRefCount.Add(1)
    n.lastTimeTouchedUs.Store(nowUs)
    n.lastUserClockIdxTouched.Store(userClockIdx)
}

// untouch reverses a single touch's pin, called from Scope.Close.
func (n *node) untouch() {
    n.scopeRefCount.Add(-1)
}

// evictable reports whether n satisfies every precondition in spec.md §4.6
// step 2a, given the evictor's sweep-start clock readings and configured
// thresholds.
func (n *node) evictable(nowUs, wallThreshold uint64, userClockIdx, userThreshold uint64) bool {
    if n.scopeRefCount.Load() != 0 {
        return false
    }
    if n.loadCount.Load() == 0 {
        return false
    }
    if n.isWorking.Load() != 0 {
        return false
    }
    touchedUs := n.lastTimeTouchedUs.Load()
    touchedIdx := n.lastUserClockIdxTouched.Load()
    return clock.Expired(touchedUs, nowUs, wallThreshold, touchedIdx, userClockIdx, userThreshold)
}

// fallbackNode maps a user Key to the last content Hash whose build attempt
// completed for it; that build may have left the texture null, in which
// case fallback resolution finds no handle. The mapping is
// last-writer-wins and, per the original, fallback
// nodes are never retired — there is no evictor pass over the fallback
// table (see DESIGN.md "inherited asymmetry").
type fallbackNode struct {
    key  Key
    hash Hash
}

// resetFallbackNode clears f in place for reuse from a stripe's free list.
func resetFallbackNode(f *fallbackNode) {
    f.key = Key{}
    f.hash = Hash{}
}

// matchesKey reports whether f is the fallback entry for key.
func (f *fallbackNode) matchesKey(key Key) bool {
    return f.key == key
}
