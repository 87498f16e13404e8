package texcache

// scope.go implements the reader-side pinning protocol from spec.md §4.2.
// Go has no real thread-local storage, so unlike the original's per-OS-thread
// scope pool, Scope objects are pooled per-Cache via a sync.Pool — the same
// "reuse instead of allocate" idiom the teacher applies to arena-backed
// objects, just scoped to Go's GC-managed heap instead of a bump allocator.

type touchRecord struct {
    hash     Hash
    topology Topology
}

// Scope is a reader's pin record. Every node a lookup observes while this
// Scope is open is pinned (scope_ref_count > 0) until Close. A Scope must be
// closed by whoever opened it; letting one escape unclosed leaks pins and
// permanently excludes the nodes it touched from eviction.
type Scope struct {
    c       *Cache
    touches []touchRecord
}

func (s *Scope) push(hash Hash, topology Topology) {
    s.touches = append(s.touches, touchRecord{hash: hash, topology: topology})
}

// Close walks the touch stack, re-locating each node by (hash, topology)
// under its stripe's read lock and decrementing scope_ref_count, then
// returns the Scope to its Cache's pool.
func (s *Scope) Close() {
    for _, t := range s.touches {
        s.c.untouchPrimary(t.hash, t.topology)
    }
    s.touches = s.touches[:0]
    s.c.scopePool.Put(s)
}

// untouchPrimary re-locates a node by identity and decrements its pin
// count. A touch whose node has vanished would mean an evicted node was
// pinned, violating invariant 3 — it must not happen by construction. In
// debug-checks mode this panics; otherwise it is silently ignored, matching
// the original's "undefined behavior, debug-build assertion only" stance.
func (c *Cache) untouchPrimary(hash Hash, topology Topology) {
    _, slot, st := c.primary.Locate(hash.Hi)
    st.Mu.RLock()
    entry := slot.Find(func(n *node) bool { return n.matchesIdentity(hash, topology) })
    st.Mu.RUnlock()
    if entry == nil {
        if c.cfg.debugChecks {
            panic("texcache: scope close touched a node that no longer exists")
        }
        return
    }
    entry.Value.untouch()
}
