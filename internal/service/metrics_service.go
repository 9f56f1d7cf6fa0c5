package service

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "records"

// Clean outcomes reported by ObserveClean.
const (
	CleanOutcomeCleaned = "cleaned"
	CleanOutcomeRefused = "refused"
	CleanOutcomeFailed  = "failed"
)

// timing accumulates a count and a total duration without locking.
type timing struct {
	count uint64
	nanos uint64
}

func (t *timing) add(d time.Duration) {
	atomic.AddUint64(&t.count, 1)
	atomic.AddUint64(&t.nanos, uint64(d.Nanoseconds()))
}

func (t *timing) load() (uint64, float64) {
	n := atomic.LoadUint64(&t.count)
	if n == 0 {
		return 0, 0
	}
	return n, float64(atomic.LoadUint64(&t.nanos)) / float64(n) / float64(time.Millisecond)
}

// MetricsService owns the Prometheus registry of the records process and
// keeps running totals for the status endpoint.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	httpDuration *prometheus.HistogramVec
	dbDuration   *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
	cacheWrites  prometheus.Histogram
	loaded       *prometheus.CounterVec
	cleans       *prometheus.CounterVec

	requests  timing
	queries   timing
	cacheHit  uint64
	cacheMiss uint64

	mu          sync.Mutex
	loadedByEnt map[string]uint64
	cleanByEnt  map[string]map[string]uint64
}

// NewMetricsService registers the record collectors plus the Go runtime and
// process collectors on a private registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		dbDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "db_query_duration_seconds",
			Help:      "Latency of record statements by operation and entity.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 15},
		}, []string{"operation", "entity"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_lookups_total",
			Help:      "Listing cache lookups by result.",
		}, []string{"result"}),
		cacheWrites: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "cache_write_seconds",
			Help:      "Latency of listing cache writes.",
			Buckets:   prometheus.DefBuckets,
		}),
		loaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "loaded_total",
			Help:      "Records constructed by full table listings.",
		}, []string{"entity"}),
		cleans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "clean_total",
			Help:      "Guarded table clean attempts by outcome.",
		}, []string{"entity", "outcome"}),
		loadedByEnt: make(map[string]uint64),
		cleanByEnt:  make(map[string]map[string]uint64),
	}

	m.registry.MustRegister(
		m.httpDuration, m.dbDuration, m.cacheLookups, m.cacheWrites, m.loaded, m.cleans,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
	m.requests.add(d)
}

// ObserveDBQuery records the latency of one record statement.
func (m *MetricsService) ObserveDBQuery(operation, entity string, d time.Duration) {
	if m == nil {
		return
	}
	m.dbDuration.WithLabelValues(operation, entity).Observe(d.Seconds())
	m.queries.add(d)
}

// RecordCacheOperation counts a listing cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, _ time.Duration) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.cacheHit, 1)
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
	atomic.AddUint64(&m.cacheMiss, 1)
}

// ObserveCacheWrite records the latency of a listing cache write.
func (m *MetricsService) ObserveCacheWrite(d time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrites.Observe(d.Seconds())
}

// ObserveRecordsLoaded counts records produced by a listing.
func (m *MetricsService) ObserveRecordsLoaded(entity string, n int) {
	if m == nil {
		return
	}
	m.loaded.WithLabelValues(entity).Add(float64(n))
	m.mu.Lock()
	m.loadedByEnt[entity] += uint64(n)
	m.mu.Unlock()
}

// ObserveClean records the outcome of a guarded clean.
func (m *MetricsService) ObserveClean(entity, outcome string) {
	if m == nil {
		return
	}
	m.cleans.WithLabelValues(entity, outcome).Inc()
	m.mu.Lock()
	byOutcome, ok := m.cleanByEnt[entity]
	if !ok {
		byOutcome = make(map[string]uint64)
		m.cleanByEnt[entity] = byOutcome
	}
	byOutcome[outcome]++
	m.mu.Unlock()
}

// MetricsSnapshot is a point-in-time summary for the status endpoint.
type MetricsSnapshot struct {
	RequestsTotal            uint64                       `json:"requests_total"`
	AverageRequestDurationMs float64                      `json:"average_request_duration_ms"`
	DBQueryCount             uint64                       `json:"db_query_count"`
	AverageDBQueryDurationMs float64                      `json:"average_db_query_duration_ms"`
	CacheHits                uint64                       `json:"cache_hits"`
	CacheMisses              uint64                       `json:"cache_misses"`
	CacheHitRatio            float64                      `json:"cache_hit_ratio"`
	RecordsLoaded            map[string]uint64            `json:"records_loaded"`
	Cleans                   map[string]map[string]uint64 `json:"cleans"`
	GeneratedAt              time.Time                    `json:"generated_at"`
}

// Snapshot copies the running totals.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	snap := MetricsSnapshot{
		CacheHits:     atomic.LoadUint64(&m.cacheHit),
		CacheMisses:   atomic.LoadUint64(&m.cacheMiss),
		RecordsLoaded: make(map[string]uint64),
		Cleans:        make(map[string]map[string]uint64),
		GeneratedAt:   time.Now().UTC(),
	}
	snap.RequestsTotal, snap.AverageRequestDurationMs = m.requests.load()
	snap.DBQueryCount, snap.AverageDBQueryDurationMs = m.queries.load()
	if lookups := snap.CacheHits + snap.CacheMisses; lookups > 0 {
		snap.CacheHitRatio = float64(snap.CacheHits) / float64(lookups)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for entity, n := range m.loadedByEnt {
		snap.RecordsLoaded[entity] = n
	}
	for entity, byOutcome := range m.cleanByEnt {
		cp := make(map[string]uint64, len(byOutcome))
		for outcome, n := range byOutcome {
			cp[outcome] = n
		}
		snap.Cleans[entity] = cp
	}
	return snap
}
