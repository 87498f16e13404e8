package texcache

// metrics.go is a thin abstraction over Prometheus so texcache can be used
// with or without metrics. When the caller passes a *prometheus.Registry via
// WithMetrics, labeled metrics are created and registered; otherwise a no-op
// sink is used and the hot path pays nothing for metric updates.
//
// Unlike a sharded cache, texcache has no per-shard label — instead
// metrics are labeled by a Name
// supplied at construction (defaulting to "default"), letting a process
// that runs more than one Cache distinguish them on one registry.
//
// ┌────────────────────────────────┬───────┬────────┐
// │ Metric                         │ Type  │ Labels │
// ├────────────────────────────────┼───────┼────────┤
// │ texcache_lookups_total         │ Ctr   │ name   │
// │ texcache_hits_total            │ Ctr   │ name   │
// │ texcache_misses_total          │ Ctr   │ name   │
// │ texcache_fallback_hits_total   │ Ctr   │ name   │
// │ texcache_evictions_total       │ Ctr   │ name   │
// │ texcache_builds_total          │ Ctr   │ name   │
// │ texcache_ring_drops_total      │ Ctr   │ name   │
// │ texcache_ring_depth            │ Gge   │ name   │
// │ texcache_workers_busy          │ Gge   │ name   │
// └────────────────────────────────┴───────┴────────┘
//
// © 2025 texcache authors. MIT License.

import (
    "github.com/prometheus/client_golang/prometheus"
)

// metricsSink abstracts away the concrete backend (Prometheus vs noop). Not
// exported — Cache and its workers/evictor only see the methods here.
type metricsSink interface {
    incLookup()
    incHit()
    incMiss()
    incFallbackHit()
    incEviction()
    incBuild()
    incRingDrop()
    setRingDepth(v int)
    setWorkersBusy(v int)
}

type noopMetrics struct{}

func (noopMetrics) incLookup()          {}
func (noopMetrics) incHit()             {}
func (noopMetrics) incMiss()            {}
func (noopMetrics) incFallbackHit()     {}
func (noopMetrics) incEviction()        {}
func (noopMetrics) incBuild()           {}
func (noopMetrics) incRingDrop()        {}
func (noopMetrics) setRingDepth(int)    {}
func (noopMetrics) setWorkersBusy(int)  {}

type promMetrics struct {
    name string

    lookups     *prometheus.CounterVec
    hits        *prometheus.CounterVec
    misses      *prometheus.CounterVec
    fallbackHit *prometheus.CounterVec
    evictions   *prometheus.CounterVec
    builds      *prometheus.CounterVec
    ringDrops   *prometheus.CounterVec
    ringDepth   *prometheus.GaugeVec
    workersBusy *prometheus.GaugeVec
}

func newPromMetrics(name string, reg *prometheus.Registry) *promMetrics {
    label := []string{"name"}

    pm := &promMetrics{
        name: name,
        lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: "texcache", Name: "lookups_total", Help: "Number of texture_for calls.",
        }, label),
        hits: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: "texcache", Name: "hits_total", Help: "Number of lookups returning a non-null handle, directly or via the fallback table.",
        }, label),
        misses: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: "texcache", Name: "misses_total", Help: "Number of lookups returning a null handle.",
        }, label),
        fallbackHit: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: "texcache", Name: "fallback_hits_total", Help: "Number of lookups resolved via the fallback table.",
        }, label),
        evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: "texcache", Name: "evictions_total", Help: "Number of primary nodes retired by the evictor.",
        }, label),
        builds: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: "texcache", Name: "builds_total", Help: "Number of successful texture builds.",
        }, label),
        ringDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: "texcache", Name: "ring_drops_total", Help: "Number of build requests dropped because the ring was closed.",
        }, label),
        ringDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
            Namespace: "texcache", Name: "ring_depth", Help: "Current occupied tuples in the request ring.",
        }, label),
        workersBusy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
            Namespace: "texcache", Name: "workers_busy", Help: "Number of transfer workers currently processing a request.",
        }, label),
    }

    reg.MustRegister(pm.lookups, pm.hits, pm.misses, pm.fallbackHit, pm.evictions, pm.builds, pm.ringDrops, pm.ringDepth, pm.workersBusy)
    return pm
}

func (m *promMetrics) incLookup()      { m.lookups.WithLabelValues(m.name).Inc() }
func (m *promMetrics) incHit()         { m.hits.WithLabelValues(m.name).Inc() }
func (m *promMetrics) incMiss()        { m.misses.WithLabelValues(m.name).Inc() }
func (m *promMetrics) incFallbackHit() { m.fallbackHit.WithLabelValues(m.name).Inc() }
func (m *promMetrics) incEviction()    { m.evictions.WithLabelValues(m.name).Inc() }
func (m *promMetrics) incBuild()       { m.builds.WithLabelValues(m.name).Inc() }
func (m *promMetrics) incRingDrop()    { m.ringDrops.WithLabelValues(m.name).Inc() }
func (m *promMetrics) setRingDepth(v int) {
    m.ringDepth.WithLabelValues(m.name).Set(float64(v))
}
func (m *promMetrics) setWorkersBusy(v int) {
    m.workersBusy.WithLabelValues(m.name).Set(float64(v))
}

// newMetricsSink decides which implementation to use based on cfg.registry.
func newMetricsSink(name string, reg *prometheus.Registry) metricsSink {
    if reg == nil {
        return noopMetrics{}
    }
    return newPromMetrics(name, reg)
}
