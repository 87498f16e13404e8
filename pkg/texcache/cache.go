// Package texcache: cache.go assembles the primary/fallback tables, request
// ring, and background goroutines into the public Cache type and implements
// texture_for (spec.md §4.3) and the rest of the external interface (§6).
//
// © 2025 texcache authors. MIT License.
package texcache

import (
    "context"
    "sync"
    "sync/atomic"
    "time"

    "go.uber.org/zap"
    "golang.org/x/sync/errgroup"

    "github.com/Voskan/texcache/internal/clock"
    "github.com/Voskan/texcache/internal/ring"
    "github.com/Voskan/texcache/internal/stripe"
)

// buildRequest is the fixed-size tuple carried by the request ring, matching
// spec.md §3's (K, H, T) ring payload.
type buildRequest struct {
    Key      Key
    Hash     Hash
    Topology Topology
}

// Cache is the texture cache core: a primary node table, a fallback table,
// a bounded request ring, and a background worker pool plus evictor
// goroutine, all supervised by one errgroup so Close can quiesce them
// deterministically.
type Cache struct {
    name string
    cfg  config

    primary  *stripe.Table[node]
    fallback *stripe.Table[fallbackNode]
    ring     *ring.Ring[buildRequest]

    userClock clock.User

    metrics   metricsSink
    logger    *zap.Logger
    hashStore HashStore
    backend   Backend

    scopePool sync.Pool

    workersBusy atomic.Int32

    group       *errgroup.Group
    cancelGroup context.CancelFunc
}

// New constructs a Cache. name labels this instance's metrics when more
// than one Cache shares a Prometheus registry. hashStore and backend are
// required collaborators; see collaborators.go.
func New(name string, hashStore HashStore, backend Backend, opts ...Option) (*Cache, error) {
    if hashStore == nil {
        return nil, errNilHashStore
    }
    if backend == nil {
        return nil, errNilBackend
    }

    cfg := defaultConfig()
    if err := applyOptions(cfg, opts); err != nil {
        return nil, err
    }
    if name == "" {
        name = "default"
    }

    c := &Cache{
        name:      name,
        cfg:       *cfg,
        primary:   stripe.New[node](cfg.primarySlots, cfg.primaryStripes),
        fallback:  stripe.New[fallbackNode](cfg.fallbackSlots, cfg.fallbackStripes),
        ring:      ring.New[buildRequest](cfg.ringCapacity),
        metrics:   newMetricsSink(name, cfg.registry),
        logger:    cfg.logger,
        hashStore: hashStore,
        backend:   backend,
    }
    c.scopePool.New = func() any { return &Scope{c: c} }

    ctx, cancel := context.WithCancel(context.Background())
    g, gctx := errgroup.WithContext(ctx)
    c.group = g
    c.cancelGroup = cancel

    for i := 0; i < cfg.workerCount; i++ {
        g.Go(func() error {
            c.workerLoop(gctx)
            return nil
        })
    }
    g.Go(func() error {
        c.evictorLoop(gctx)
        return nil
    })

    return c, nil
}

// UserClockTick advances the process-wide user clock by one. The host calls
// this once per logical frame.
func (c *Cache) UserClockTick() { c.userClock.Tick() }

// UserClockIdx reads the current user clock value.
func (c *Cache) UserClockIdx() uint64 { return c.userClock.Idx() }

// ScopeOpen returns a fresh Scope with an empty touch stack.
func (c *Cache) ScopeOpen() *Scope {
    s := c.scopePool.Get().(*Scope)
    s.touches = s.touches[:0]
    return s
}

// Lookup implements texture_for (spec.md §4.3): returns a device handle,
// possibly null, for (key, hash, topology), pinning every node it observes
// in scope until scope.Close.
func (c *Cache) Lookup(scope *Scope, key Key, hash Hash, topology Topology) Handle {
    c.metrics.incLookup()

    // Step 1: zero hash is an immediate miss, no structure touched.
    if hash.IsZero() {
        c.metrics.incMiss()
        return Handle{}
    }

    nowUs := clock.NowMicros()
    userIdx := c.userClock.Idx()

    _, slot, st := c.primary.Locate(hash.Hi)

    // Step 2: read-lock scan.
    st.Mu.RLock()
    entry := slot.Find(func(n *node) bool { return n.matchesIdentity(hash, topology) })
    var handle Handle
    if entry != nil {
        handle = entry.Value.texture
        entry.Value.touch(nowUs, userIdx)
        scope.push(hash, topology)
    }
    st.Mu.RUnlock()

    isNew := false
    if entry == nil {
        // Step 3: write-lock double-check; insert if still absent.
        st.Mu.Lock()
        entry = slot.Find(func(n *node) bool { return n.matchesIdentity(hash, topology) })
        if entry == nil {
            entry = st.Alloc(resetNode)
            entry.Value.hash = hash
            entry.Value.topology = topology
            slot.PushBack(entry)
            isNew = true
        } else {
            handle = entry.Value.texture
        }
        entry.Value.touch(nowUs, userIdx)
        scope.push(hash, topology)
        st.Mu.Unlock()
    }

    // Step 4: enqueue a build request for a freshly created node.
    if isNew {
        c.enqueueBuild(key, hash, topology)
    }

    // Step 5: consult the fallback table if the primary resolution is null.
    if handle.IsZero() {
        if fb := c.fallbackLookup(key, topology, nowUs, userIdx, scope); !fb.IsZero() {
            handle = fb
        }
    }

    if handle.IsZero() {
        c.metrics.incMiss()
    } else {
        c.metrics.incHit()
    }
    return handle
}

// fallbackLookup implements spec.md §4.3 step 5: resolve key's last-known
// hash and re-look-up (hash', topology) in the primary table, read-lock
// only, never inserting.
func (c *Cache) fallbackLookup(key Key, topology Topology, nowUs, userIdx uint64, scope *Scope) Handle {
    if key.IsZero() {
        return Handle{}
    }

    _, fslot, fst := c.fallback.Locate(key.Hi)
    fst.Mu.RLock()
    fentry := fslot.Find(func(f *fallbackNode) bool { return f.matchesKey(key) })
    var fallbackHash Hash
    if fentry != nil {
        fallbackHash = fentry.Value.hash
    }
    fst.Mu.RUnlock()

    if fallbackHash.IsZero() {
        return Handle{}
    }

    _, slot, st := c.primary.Locate(fallbackHash.Hi)
    st.Mu.RLock()
    defer st.Mu.RUnlock()

    entry := slot.Find(func(n *node) bool { return n.matchesIdentity(fallbackHash, topology) })
    if entry == nil {
        return Handle{}
    }
    handle := entry.Value.texture
    if handle.IsZero() {
        return Handle{}
    }
    entry.Value.touch(nowUs, userIdx)
    scope.push(fallbackHash, topology)
    c.metrics.incFallbackHit()
    return handle
}

// enqueueBuild pushes a build request with an infinite deadline — the ring
// never drops a request on the caller's behalf, it only cedes the CPU via
// its condition variable while full. The only way Enqueue returns false is
// the ring having been closed by Cache.Close, which can only race a lookup
// during shutdown.
func (c *Cache) enqueueBuild(key Key, hash Hash, topology Topology) {
    ok := c.ring.Enqueue(buildRequest{Key: key, Hash: hash, Topology: topology}, time.Time{})
    if !ok {
        c.metrics.incRingDrop()
        c.logger.Warn("build request dropped: ring closed")
        return
    }
    c.metrics.setRingDepth(c.ring.Len())
}

// Snapshot is a point-in-time view of Cache internals, supplementing
// spec.md's external interface with an introspection surface for debug
// tooling (see cmd/texcache-inspect).
type Snapshot struct {
    Name           string
    PrimaryCount   int
    FallbackCount  int
    RingDepth      int
    RingCapacity   int
    WorkersBusy    int
    UserClockIdx   uint64
}

// Snapshot reports current table occupancy and worker/ring activity.
func (c *Cache) Snapshot() Snapshot {
    return Snapshot{
        Name:          c.name,
        PrimaryCount:  c.primary.Len(),
        FallbackCount: c.fallback.Len(),
        RingDepth:     c.ring.Len(),
        RingCapacity:  c.ring.Cap(),
        WorkersBusy:   int(c.workersBusy.Load()),
        UserClockIdx:  c.userClock.Idx(),
    }
}

// Close quiesces the worker pool and evictor and waits for them to exit.
// Closing the ring wakes every blocked producer and consumer; workers
// observe Dequeue's ok=false and return, while the evictor observes the
// shared errgroup context's cancellation.
func (c *Cache) Close() error {
    c.ring.Close()
    c.cancelGroup()
    return c.group.Wait()
}
