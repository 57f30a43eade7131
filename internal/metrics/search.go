package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_queries_total",
			Help: "Total number of search queries",
		},
		[]string{"backend"},
	)

	SearchQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_query_duration_seconds",
			Help:    "Search query duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"backend"},
	)

	SearchResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_results_total",
			Help: "Total number of search results returned",
		},
		[]string{"kind"},
	)

	SearchCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_cache_hits_total",
			Help: "Total number of search cache hits",
		},
	)

	SearchCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_cache_misses_total",
			Help: "Total number of search cache misses",
		},
	)

	SearchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_errors_total",
			Help: "Total number of search errors",
		},
		[]string{"backend", "index"},
	)

	ElasticsearchIndexOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elasticsearch_index_operations_total",
			Help: "Total number of Elasticsearch index operations",
		},
		[]string{"index", "operation", "status"},
	)
)

// QueryMetric describes one executed search
type QueryMetric struct {
	Backend  string // "elasticsearch" | "sql"
	People   int
	Groups   int
	Pages    int
	Duration time.Duration
	CacheHit bool
	Error    bool
}

// SearchStats keeps in-process aggregates for the diagnostics endpoint.
// Prometheus gets the same data through the package collectors.
type SearchStats struct {
	QueryCount  int64
	CacheHits   int64
	CacheMisses int64
	ErrorCount  int64
	Fallbacks   int64

	mu      sync.Mutex
	timings []int64
	maxKept int
}

var (
	searchStats     *SearchStats
	searchStatsOnce sync.Once
)

// Search returns the process-wide search stats
func Search() *SearchStats {
	searchStatsOnce.Do(func() {
		searchStats = NewSearchStats(10000)
	})
	return searchStats
}

func NewSearchStats(maxKept int) *SearchStats {
	return &SearchStats{timings: make([]int64, 0, maxKept), maxKept: maxKept}
}

// Record folds one query into the aggregates and the Prometheus collectors
func (s *SearchStats) Record(m QueryMetric) {
	atomic.AddInt64(&s.QueryCount, 1)
	if m.CacheHit {
		atomic.AddInt64(&s.CacheHits, 1)
		SearchCacheHitsTotal.Inc()
	} else {
		atomic.AddInt64(&s.CacheMisses, 1)
		SearchCacheMissesTotal.Inc()
	}
	if m.Error {
		atomic.AddInt64(&s.ErrorCount, 1)
	}
	if m.Backend == "sql" {
		atomic.AddInt64(&s.Fallbacks, 1)
	}

	s.mu.Lock()
	if len(s.timings) >= s.maxKept {
		// keep the newest window
		s.timings = append(s.timings[:0], s.timings[len(s.timings)/2:]...)
	}
	s.timings = append(s.timings, m.Duration.Milliseconds())
	s.mu.Unlock()

	if m.Backend != "" {
		SearchQueriesTotal.WithLabelValues(m.Backend).Inc()
		SearchQueryDuration.WithLabelValues(m.Backend).Observe(m.Duration.Seconds())
	}
	SearchResultsTotal.WithLabelValues("personnes").Add(float64(m.People))
	SearchResultsTotal.WithLabelValues("groupes").Add(float64(m.Groups))
	SearchResultsTotal.WithLabelValues("pages").Add(float64(m.Pages))
}

// Snapshot returns the current aggregates
func (s *SearchStats) Snapshot() map[string]interface{} {
	queries := atomic.LoadInt64(&s.QueryCount)
	hits := atomic.LoadInt64(&s.CacheHits)
	misses := atomic.LoadInt64(&s.CacheMisses)

	var hitRate float64
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses) * 100
	}

	s.mu.Lock()
	p50, p95, p99 := percentiles(s.timings)
	s.mu.Unlock()

	return map[string]interface{}{
		"total_queries":     queries,
		"cache_hits":        hits,
		"cache_misses":      misses,
		"cache_hit_rate":    hitRate,
		"error_count":       atomic.LoadInt64(&s.ErrorCount),
		"sql_fallbacks":     atomic.LoadInt64(&s.Fallbacks),
		"p50_query_time_ms": p50,
		"p95_query_time_ms": p95,
		"p99_query_time_ms": p99,
	}
}

func percentiles(values []int64) (p50, p95, p99 int64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	n := len(sorted)
	return sorted[(n*50)/100], sorted[(n*95)/100], sorted[(n*99)/100]
}

// Reset clears the in-process aggregates
func (s *SearchStats) Reset() {
	atomic.StoreInt64(&s.QueryCount, 0)
	atomic.StoreInt64(&s.CacheHits, 0)
	atomic.StoreInt64(&s.CacheMisses, 0)
	atomic.StoreInt64(&s.ErrorCount, 0)
	atomic.StoreInt64(&s.Fallbacks, 0)
	s.mu.Lock()
	s.timings = s.timings[:0]
	s.mu.Unlock()
}
