package texcache

import (
    "testing"
    "time"
)

func newTestCache(t *testing.T, opts ...Option) (*Cache, *fakeHashStore, *fakeBackend) {
    t.Helper()
    store := newFakeHashStore()
    backend := newFakeBackend()
    c, err := New("test", store, backend, opts...)
    if err != nil {
        t.Fatalf("New() error = %v", err)
    }
    t.Cleanup(func() { c.Close() })
    return c, store, backend
}

func TestNewRejectsNilCollaborators(t *testing.T) {
    store := newFakeHashStore()
    backend := newFakeBackend()

    if _, err := New("t", nil, backend); err != errNilHashStore {
        t.Fatalf("New(nil hash store) error = %v, want %v", err, errNilHashStore)
    }
    if _, err := New("t", store, nil); err != errNilBackend {
        t.Fatalf("New(nil backend) error = %v, want %v", err, errNilBackend)
    }
}

func TestNewValidatesConfig(t *testing.T) {
    store := newFakeHashStore()
    backend := newFakeBackend()

    if _, err := New("t", store, backend, WithPrimaryTableSize(0, 1)); err != errInvalidSlotCount {
        t.Fatalf("error = %v, want %v", err, errInvalidSlotCount)
    }
    if _, err := New("t", store, backend, WithRingCapacity(0)); err != errInvalidRingCapacity {
        t.Fatalf("error = %v, want %v", err, errInvalidRingCapacity)
    }
    if _, err := New("t", store, backend, WithWorkerCount(0)); err != errInvalidWorkerCount {
        t.Fatalf("error = %v, want %v", err, errInvalidWorkerCount)
    }
}

func TestLookupZeroHashReturnsNullWithoutTouchingStructures(t *testing.T) {
    c, _, _ := newTestCache(t)
    scope := c.ScopeOpen()
    defer scope.Close()

    h := c.Lookup(scope, Key{Hi: 1}, Hash{}, rgba8Topology(4, 4))
    if !h.IsZero() {
        t.Fatalf("Lookup with zero hash returned non-zero handle")
    }
    if got := c.Snapshot().PrimaryCount; got != 0 {
        t.Fatalf("PrimaryCount = %d, want 0", got)
    }
}

// TestColdMissThenWarmHit implements spec.md §8 scenario 1.
func TestColdMissThenWarmHit(t *testing.T) {
    c, store, _ := newTestCache(t, WithWorkerCount(1))

    hash := Hash{Hi: 0, Lo: 1}
    topology := rgba8Topology(4, 4)
    key := Key{Hi: 1, Lo: 1}
    store.put(hash, make([]byte, 64))

    scope1 := c.ScopeOpen()
    h1 := c.Lookup(scope1, key, hash, topology)
    if !h1.IsZero() {
        t.Fatalf("cold lookup returned non-zero handle: %+v", h1)
    }
    scope1.Close()

    var h2 Handle
    pollUntil(t, time.Second, func() bool {
        scope := c.ScopeOpen()
        h2 = c.Lookup(scope, key, hash, topology)
        scope.Close()
        return !h2.IsZero()
    })

    scope3 := c.ScopeOpen()
    h3 := c.Lookup(scope3, key, hash, topology)
    scope3.Close()
    if h3 != h2 {
        t.Fatalf("repeat lookup returned a different handle: %+v != %+v", h3, h2)
    }
}

// TestFallbackResolution implements spec.md §8 scenario 2.
func TestFallbackResolution(t *testing.T) {
    c, store, backend := newTestCache(t, WithWorkerCount(1))

    key := Key{Hi: 5, Lo: 5}
    topology := rgba8Topology(4, 4)
    h1 := Hash{Hi: 0, Lo: 1}
    h2 := Hash{Hi: 0, Lo: 2}
    store.put(h1, make([]byte, 64))

    scope := c.ScopeOpen()
    c.Lookup(scope, key, h1, topology)
    scope.Close()

    var firstHandle Handle
    pollUntil(t, time.Second, func() bool {
        s := c.ScopeOpen()
        firstHandle = c.Lookup(s, key, h1, topology)
        s.Close()
        return !firstHandle.IsZero()
    })

    // h2 has no node yet: lookup with (key, h2, topology) creates it,
    // enqueues its build, and meanwhile resolves via fallback to h1's
    // handle. The backend delay keeps h2's build from publishing before
    // that lookup's fallback check.
    store.put(h2, make([]byte, 64))
    backend.delay = 50 * time.Millisecond
    scope2 := c.ScopeOpen()
    resolved := c.Lookup(scope2, key, h2, topology)
    scope2.Close()
    if resolved != firstHandle {
        t.Fatalf("fallback lookup = %+v, want %+v (h1's handle)", resolved, firstHandle)
    }

    // Once h2's build completes, lookups for h2 should return h2's own
    // handle, not the fallback.
    var h2Handle Handle
    pollUntil(t, time.Second, func() bool {
        s := c.ScopeOpen()
        h2Handle = c.Lookup(s, key, h2, topology)
        s.Close()
        return !h2Handle.IsZero() && h2Handle != firstHandle
    })
}

func TestTopologyMismatchProducesDistinctNode(t *testing.T) {
    c, store, _ := newTestCache(t, WithWorkerCount(1))

    hash := Hash{Hi: 0, Lo: 1}
    key := Key{Hi: 1}
    t1 := rgba8Topology(4, 4)
    t2 := rgba8Topology(8, 8)
    store.put(hash, make([]byte, 8*8*4))

    scope := c.ScopeOpen()
    c.Lookup(scope, key, hash, t1)
    c.Lookup(scope, key, hash, t2)
    scope.Close()

    if got := c.Snapshot().PrimaryCount; got != 2 {
        t.Fatalf("PrimaryCount = %d, want 2 distinct (hash, topology) nodes", got)
    }
}

func TestZeroDimensionTopologyNeverAllocates(t *testing.T) {
    c, store, backend := newTestCache(t, WithWorkerCount(1))

    hash := Hash{Hi: 0, Lo: 1}
    key := Key{Hi: 1}
    topology := Topology{Width: 0, Height: 0, Format: FormatRGBA8}
    store.put(hash, make([]byte, 64))

    scope := c.ScopeOpen()
    c.Lookup(scope, key, hash, topology)
    scope.Close()

    pollUntil(t, time.Second, func() bool {
        return c.Snapshot().RingDepth == 0
    })
    time.Sleep(20 * time.Millisecond)

    if backend.nextID.Load() != 0 {
        t.Fatalf("expected no backend allocation for a zero-dimension topology")
    }
}
