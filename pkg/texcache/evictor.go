package texcache

// evictor.go implements the single background evictor goroutine from
// spec.md §4.6: a dual wall-clock/user-clock liveness test, scanning slots
// in order with a configurable pacing sleep between slots and between full
// sweeps. The per-slot pause is set with WithEvictorSlotPause; the pause
// between sweeps is a config field that defaultConfig fixes at one second
// and no Option changes (see config.go). See SPEC_FULL.md Open Question
// Decisions for why the per-slot pause stayed configurable rather than
// hardcoded or removed.
//
// © 2025 texcache authors. MIT License.

import (
    "context"
    "time"

    "go.uber.org/zap"

    "github.com/Voskan/texcache/internal/clock"
    "github.com/Voskan/texcache/internal/stripe"
)

// evictorLoop sweeps the primary table, waiting cfg.evictorSweepPause
// before each sweep, until ctx is cancelled by Cache.Close.
func (c *Cache) evictorLoop(ctx context.Context) {
    timer := time.NewTimer(c.cfg.evictorSweepPause)
    defer timer.Stop()

    for {
        select {
        case <-ctx.Done():
            return
        case <-timer.C:
            c.evictSweep(ctx)
            timer.Reset(c.cfg.evictorSweepPause)
        }
    }
}

// evictSweep scans every slot once, per spec.md §4.6 steps 1-2.
func (c *Cache) evictSweep(ctx context.Context) {
    nowUs := clock.NowMicros()
    userIdx := c.userClock.Idx()
    wallThresholdUs := uint64(c.cfg.wallClockThreshold.Microseconds())

    for i := 0; i < c.primary.SlotCount; i++ {
        select {
        case <-ctx.Done():
            return
        default:
        }

        c.evictSlot(ctx, i, nowUs, wallThresholdUs, userIdx)

        if c.cfg.evictorSlotPause > 0 {
            time.Sleep(c.cfg.evictorSlotPause)
        }
    }
}

// evictSlot applies step 2a/2b to one slot: a cheap read-locked check for
// any evictable node, followed by a write-locked retire pass only when the
// check found something.
func (c *Cache) evictSlot(ctx context.Context, idx int, nowUs, wallThresholdUs, userIdx uint64) {
    slot := c.primary.Slot(idx)
    st := c.primary.Stripe(c.primary.StripeIndex(idx))

    st.Mu.RLock()
    anyEvictable := false
    slot.Each(func(e *stripe.Entry[node]) bool {
        if e.Value.evictable(nowUs, wallThresholdUs, userIdx, c.cfg.userClockThreshold) {
            anyEvictable = true
            return false
        }
        return true
    })
    st.Mu.RUnlock()
    if !anyEvictable {
        return
    }

    var toRelease []Handle
    st.Mu.Lock()
    var dead []*stripe.Entry[node]
    slot.Each(func(e *stripe.Entry[node]) bool {
        if e.Value.evictable(nowUs, wallThresholdUs, userIdx, c.cfg.userClockThreshold) {
            dead = append(dead, e)
        }
        return true
    })
    for _, e := range dead {
        if !e.Value.texture.IsZero() {
            toRelease = append(toRelease, e.Value.texture)
        }
        slot.Remove(e)
        st.Release(e, resetNode)
        c.metrics.incEviction()
    }
    st.Mu.Unlock()

    // Backend release happens outside the stripe lock — the core never
    // holds a stripe lock across a call to an external collaborator.
    for _, h := range toRelease {
        if err := c.backend.Release(ctx, h); err != nil {
            c.logger.Warn("backend release during eviction failed", zap.Error(err))
        }
    }
}
