package texcache

// config.go defines the internal configuration object and the set of
// functional options accepted by New. An Option is a closure that mutates a
// private config before construction — users can only influence behavior
// through Option, which keeps the internal struct free to gain fields
// without breaking callers.
//
// Design notes
// ------------
// • All fields are initialised with sensible defaults in defaultConfig().
// • Options never allocate unless strictly necessary — most just capture a
//   pointer to an external object (registry, logger).
// • Validation happens once, in applyOptions, and returns a descriptive
//   sentinel error on the first violated invariant.
//
// © 2025 texcache authors. MIT License.

import (
    "runtime"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "go.uber.org/zap"
)

// Option configures a Cache at construction time.
type Option func(*config)

type config struct {
    primarySlots   int
    primaryStripes int
    fallbackSlots  int
    fallbackStripes int
    ringCapacity   int
    workerCount    int

    wallClockThreshold time.Duration
    userClockThreshold uint64
    evictorSweepPause  time.Duration
    evictorSlotPause   time.Duration

    debugChecks bool

    registry *prometheus.Registry
    logger   *zap.Logger
}

// defaultConfig matches spec.md §4.7's fixed parameters: 1024 slots / 64
// stripes for both tables, and §4.6's 10s / 10 tick eviction thresholds.
func defaultConfig() *config {
    return &config{
        primarySlots:    1024,
        primaryStripes:  64,
        fallbackSlots:   1024,
        fallbackStripes: 64,
        ringCapacity:    4096,
        workerCount:     workerCountDefault(),

        wallClockThreshold: 10 * time.Second,
        userClockThreshold: 10,
        evictorSweepPause:  time.Second,
        evictorSlotPause:   5 * time.Millisecond,

        debugChecks: false,

        registry: nil,
        logger:   zap.NewNop(),
    }
}

// workerCountDefault implements spec.md §4.5's min(4, logical_cores-1), at
// least 1.
func workerCountDefault() int {
    n := runtime.GOMAXPROCS(0) - 1
    if n > 4 {
        n = 4
    }
    if n < 1 {
        n = 1
    }
    return n
}

// WithPrimaryTableSize overrides the primary node table's slot and stripe
// counts. Both must be positive.
func WithPrimaryTableSize(slots, stripes int) Option {
    return func(c *config) {
        c.primarySlots = slots
        c.primaryStripes = stripes
    }
}

// WithFallbackTableSize overrides the fallback table's slot and stripe
// counts. Both must be positive.
func WithFallbackTableSize(slots, stripes int) Option {
    return func(c *config) {
        c.fallbackSlots = slots
        c.fallbackStripes = stripes
    }
}

// WithRingCapacity overrides the request ring's tuple capacity. The ring
// rounds this up to the next power of two internally; query Snapshot's
// RingCapacity for the effective value.
func WithRingCapacity(capacity int) Option {
    return func(c *config) {
        c.ringCapacity = capacity
    }
}

// WithWorkerCount overrides the transfer worker pool size.
func WithWorkerCount(n int) Option {
    return func(c *config) {
        c.workerCount = n
    }
}

// WithEvictionThresholds overrides the dual-clock liveness thresholds (10s /
// 10 ticks by default, per spec.md §4.6).
func WithEvictionThresholds(wallClock time.Duration, userClockTicks uint64) Option {
    return func(c *config) {
        c.wallClockThreshold = wallClock
        c.userClockThreshold = userClockTicks
    }
}

// WithEvictorSlotPause overrides the cooperative pacing sleep the evictor
// takes between slots (default 5ms). Pass 0 to disable per-slot pacing and
// sleep only between full sweeps — spec.md §9 leaves this pacing an open
// question; see SPEC_FULL.md / DESIGN.md for the resolution.
func WithEvictorSlotPause(d time.Duration) Option {
    return func(c *config) {
        c.evictorSlotPause = d
    }
}

// WithDebugChecks enables panics on conditions the original treats as
// debug-build assertions (e.g. a touch whose node has vanished). Off by
// default, matching release-build behavior.
func WithDebugChecks(enabled bool) Option {
    return func(c *config) {
        c.debugChecks = enabled
    }
}

// WithMetrics enables Prometheus metrics collection. Passing nil disables
// metrics (default).
func WithMetrics(reg *prometheus.Registry) Option {
    return func(c *config) {
        c.registry = reg
    }
}

// WithLogger plugs an external zap.Logger. The cache never logs on the hot
// lookup path; only slow or rare events are emitted.
func WithLogger(l *zap.Logger) Option {
    return func(c *config) {
        if l != nil {
            c.logger = l
        }
    }
}

// applyOptions copies user-supplied options into cfg and validates
// invariants, returning the first violated one.
func applyOptions(cfg *config, opts []Option) error {
    for _, opt := range opts {
        opt(cfg)
    }

    if cfg.primarySlots <= 0 || cfg.fallbackSlots <= 0 {
        return errInvalidSlotCount
    }
    if cfg.primaryStripes <= 0 || cfg.fallbackStripes <= 0 {
        return errInvalidStripeCount
    }
    if cfg.ringCapacity <= 0 {
        return errInvalidRingCapacity
    }
    if cfg.workerCount <= 0 {
        return errInvalidWorkerCount
    }
    return nil
}
