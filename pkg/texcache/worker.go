package texcache

// worker.go implements the transfer worker pool from spec.md §4.5. Workers
// drain the request ring, claim a node's build via CAS on is_working, fetch
// bytes from the hash store, ask the backend to allocate a texture, and
// record the key->hash fallback mapping — gated on having actually won the
// CAS, matching the original's `got_task` guard rather than the distilled
// spec text's looser "both key and hash are non-zero" phrasing.
//
// © 2025 texcache authors. MIT License.

import (
    "context"

    "go.uber.org/zap"
)

// workerLoop drains the ring until it is closed or ctx is done.
func (c *Cache) workerLoop(ctx context.Context) {
    for {
        req, ok := c.ring.Dequeue()
        if !ok {
            return
        }
        c.metrics.setRingDepth(c.ring.Len())
        select {
        case <-ctx.Done():
            return
        default:
        }
        c.processRequest(ctx, req)
    }
}

// processRequest implements tex_xfer_thread's per-tuple body (spec.md
// §4.5 steps 1-8).
func (c *Cache) processRequest(ctx context.Context, req buildRequest) {
    busy := c.workersBusy.Add(1)
    c.metrics.setWorkersBusy(int(busy))
    defer func() {
        busy := c.workersBusy.Add(-1)
        c.metrics.setWorkersBusy(int(busy))
    }()

    // Step 1: open a content-hash scope for this build.
    hsScope, err := c.hashStore.OpenScope(ctx)
    if err != nil {
        c.logger.Warn("hash store scope open failed", zap.Error(err))
        return
    }
    defer hsScope.Close()

    _, slot, st := c.primary.Locate(req.Hash.Hi)

    // Step 3: locate the node under the read lock and claim it via CAS.
    st.Mu.RLock()
    entry := slot.Find(func(n *node) bool { return n.matchesIdentity(req.Hash, req.Topology) })
    st.Mu.RUnlock()
    if entry == nil {
        // The node was evicted between enqueue and dequeue; nothing to build.
        return
    }

    gotTask := entry.Value.isWorking.CompareAndSwap(0, 1)
    if !gotTask {
        // Another worker already owns this build.
        return
    }

    // Step 4: fetch bytes; an empty/nil slice means "not yet available", not
    // an error — the resulting texture stays null. Lookups that find the
    // node do not re-enqueue it; a new build is requested only after the
    // evictor has retired the node and a later lookup inserts a fresh one.
    bytes, err := hsScope.DataFromHash(ctx, req.Hash)
    if err != nil {
        c.logger.Warn("hash store fetch failed", zap.Error(err))
        bytes = nil
    }

    // Step 5: allocate a texture if the topology is non-degenerate and the
    // payload is large enough. Block-compressed formats report a zero
    // BytesPerPixel; their size is validated by the backend instead of
    // here, so only uncompressed formats get the explicit length check.
    var handle Handle
    if req.Topology.Width > 0 && req.Topology.Height > 0 && len(bytes) > 0 {
        bpp := req.Topology.Format.BytesPerPixel()
        needed := int(req.Topology.Width) * int(req.Topology.Height) * bpp
        if bpp == 0 || len(bytes) >= needed {
            h, err := c.backend.AllocStatic2D(ctx, req.Topology, bytes)
            if err != nil {
                c.logger.Warn("backend allocation failed", zap.Error(err))
            } else {
                handle = h
            }
        }
    }

    // Step 6: publish under the write lock; release an orphaned allocation
    // if the node vanished while we were building. load_count increments
    // unconditionally on a won-CAS commit, even when the texture stayed
    // null — it marks "a build attempt finished", not "a build succeeded",
    // which is what makes a permanently-unbuildable node evictable instead
    // of pinning its slot forever.
    st.Mu.Lock()
    live := slot.Find(func(n *node) bool { return n.matchesIdentity(req.Hash, req.Topology) })
    if live == nil {
        st.Mu.Unlock()
        if !handle.IsZero() {
            if err := c.backend.Release(ctx, handle); err != nil {
                c.logger.Warn("backend release of orphaned texture failed", zap.Error(err))
            }
        }
        return
    }
    if !handle.IsZero() {
        live.Value.texture = handle
        c.metrics.incBuild()
    }
    live.Value.loadCount.Add(1)
    live.Value.isWorking.Store(0)
    st.Mu.Unlock()

    // Step 7: record key->hash in the fallback table, gated on having won
    // the CAS for this build (got_task) and both identifiers being non-zero.
    if gotTask && !req.Key.IsZero() && !req.Hash.IsZero() {
        c.upsertFallback(req.Key, req.Hash)
    }

    // Step 8: hsScope.Close() happens via the deferred call above.
}

// upsertFallback implements the fallback table's last-writer-wins upsert.
func (c *Cache) upsertFallback(key Key, hash Hash) {
    _, slot, st := c.fallback.Locate(key.Hi)
    st.Mu.Lock()
    defer st.Mu.Unlock()

    entry := slot.Find(func(f *fallbackNode) bool { return f.matchesKey(key) })
    if entry == nil {
        entry = st.Alloc(resetFallbackNode)
        entry.Value.key = key
        slot.PushBack(entry)
    }
    entry.Value.hash = hash
}
