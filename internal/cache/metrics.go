// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderStats aggregates per-provider call outcomes and spend.
type ProviderStats struct {
	Calls         uint64        `json:"calls" yaml:"calls"`
	Failures      uint64        `json:"failures" yaml:"failures"`
	AvgLatency    time.Duration `json:"avg_latency" yaml:"avg_latency"`
	EstimatedCost float64       `json:"estimated_cost_usd" yaml:"estimated_cost_usd"`
}

// Snapshot is a point-in-time copy of the cache metrics. HitRatio is
// derived from the counters at read time, never stored.
type Snapshot struct {
	Requests     uint64 `json:"requests" yaml:"requests"`
	Hits         uint64 `json:"hits" yaml:"hits"`
	Misses       uint64 `json:"misses" yaml:"misses"`
	Evictions    uint64 `json:"evictions" yaml:"evictions"`
	ExpiredReaps uint64 `json:"expired_reaps" yaml:"expired_reaps"`

	HitRatio float64 `json:"hit_ratio" yaml:"hit_ratio"`

	AvgRetrieval time.Duration `json:"avg_retrieval" yaml:"avg_retrieval"`
	AvgStorage   time.Duration `json:"avg_storage" yaml:"avg_storage"`

	MemoryEntries int   `json:"memory_entries" yaml:"memory_entries"`
	MemoryBytes   int64 `json:"memory_bytes" yaml:"memory_bytes"`

	Providers map[string]ProviderStats `json:"providers" yaml:"providers"`
}

// Recorder tracks cache and provider counters for the lifetime of the
// process. Counters reset only on restart. All methods are safe for
// concurrent use; latency averages use an incremental mean so no
// sample history is retained.
type Recorder struct {
	mu sync.Mutex

	requests     uint64
	hits         uint64
	misses       uint64
	evictions    uint64
	expiredReaps uint64

	retrievalN   uint64
	avgRetrieval float64 // seconds
	storageN     uint64
	avgStorage   float64 // seconds

	providers map[string]*providerAgg

	registry     *prometheus.Registry
	promHits     prometheus.Counter
	promMisses   prometheus.Counter
	promEvict    prometheus.Counter
	promReaps    prometheus.Counter
	promLatency  *prometheus.HistogramVec
	promCost     *prometheus.CounterVec
	promFailures *prometheus.CounterVec
}

type providerAgg struct {
	calls      uint64
	failures   uint64
	latencyN   uint64
	avgLatency float64 // seconds
	cost       float64
}

// NewRecorder builds a recorder with its own Prometheus registry so
// two engines in one process never collide on metric names.
func NewRecorder() *Recorder {
	r := &Recorder{
		providers: make(map[string]*providerAgg),
		registry:  prometheus.NewRegistry(),
	}

	r.promHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lexsearch_cache_hits_total",
		Help: "Cache lookups served from either tier.",
	})
	r.promMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lexsearch_cache_misses_total",
		Help: "Cache lookups that fell through both tiers.",
	})
	r.promEvict = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lexsearch_cache_evictions_total",
		Help: "Entries evicted from the memory tier for space.",
	})
	r.promReaps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lexsearch_cache_expired_reaps_total",
		Help: "Expired entries purged by the sweep.",
	})
	r.promLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lexsearch_provider_latency_seconds",
		Help:    "Provider search call duration.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"provider"})
	r.promCost = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lexsearch_provider_cost_usd_total",
		Help: "Estimated provider API spend.",
	}, []string{"provider"})
	r.promFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lexsearch_provider_failures_total",
		Help: "Provider calls that returned an error.",
	}, []string{"provider"})

	r.registry.MustRegister(r.promHits, r.promMisses, r.promEvict, r.promReaps,
		r.promLatency, r.promCost, r.promFailures)
	return r
}

// Registry exposes the recorder's Prometheus registry for scraping.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// RecordHit counts one cache lookup served from a tier, with its
// retrieval latency.
func (r *Recorder) RecordHit(latency time.Duration) {
	r.mu.Lock()
	r.requests++
	r.hits++
	r.retrievalN++
	r.avgRetrieval = incMean(r.avgRetrieval, latency.Seconds(), r.retrievalN)
	r.mu.Unlock()
	r.promHits.Inc()
}

// RecordMiss counts one lookup that fell through both tiers.
func (r *Recorder) RecordMiss(latency time.Duration) {
	r.mu.Lock()
	r.requests++
	r.misses++
	r.retrievalN++
	r.avgRetrieval = incMean(r.avgRetrieval, latency.Seconds(), r.retrievalN)
	r.mu.Unlock()
	r.promMisses.Inc()
}

// RecordStore counts one write-through with its storage latency.
func (r *Recorder) RecordStore(latency time.Duration) {
	r.mu.Lock()
	r.storageN++
	r.avgStorage = incMean(r.avgStorage, latency.Seconds(), r.storageN)
	r.mu.Unlock()
}

// RecordEvictions adds n space-pressure evictions.
func (r *Recorder) RecordEvictions(n int) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	r.evictions += uint64(n)
	r.mu.Unlock()
	r.promEvict.Add(float64(n))
}

// RecordExpiredReaps adds n expired-entry purges.
func (r *Recorder) RecordExpiredReaps(n int) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	r.expiredReaps += uint64(n)
	r.mu.Unlock()
	r.promReaps.Add(float64(n))
}

// RecordProviderCall records one provider search call outcome.
func (r *Recorder) RecordProviderCall(provider string, latency time.Duration, cost float64, failed bool) {
	r.mu.Lock()
	agg, ok := r.providers[provider]
	if !ok {
		agg = &providerAgg{}
		r.providers[provider] = agg
	}
	agg.calls++
	if failed {
		agg.failures++
	}
	agg.latencyN++
	agg.avgLatency = incMean(agg.avgLatency, latency.Seconds(), agg.latencyN)
	agg.cost += cost
	r.mu.Unlock()

	r.promLatency.WithLabelValues(provider).Observe(latency.Seconds())
	if cost > 0 {
		r.promCost.WithLabelValues(provider).Add(cost)
	}
	if failed {
		r.promFailures.WithLabelValues(provider).Inc()
	}
}

// Snapshot returns a copy of all counters. The hit ratio is computed
// here as hits/max(requests, 1).
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		Requests:     r.requests,
		Hits:         r.hits,
		Misses:       r.misses,
		Evictions:    r.evictions,
		ExpiredReaps: r.expiredReaps,
		AvgRetrieval: secondsToDuration(r.avgRetrieval),
		AvgStorage:   secondsToDuration(r.avgStorage),
		Providers:    make(map[string]ProviderStats, len(r.providers)),
	}
	req := r.requests
	if req == 0 {
		req = 1
	}
	s.HitRatio = float64(r.hits) / float64(req)

	for name, agg := range r.providers {
		s.Providers[name] = ProviderStats{
			Calls:         agg.calls,
			Failures:      agg.failures,
			AvgLatency:    secondsToDuration(agg.avgLatency),
			EstimatedCost: agg.cost,
		}
	}
	return s
}

// incMean folds one sample into a running mean without keeping history.
func incMean(avg, sample float64, n uint64) float64 {
	return avg + (sample-avg)/float64(n)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
