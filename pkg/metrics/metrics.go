package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CardsBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recap_cards_built_total",
		Help: "Total number of recap card views built",
	}, []string{"kind", "result"})

	CardBuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recap_card_build_duration_seconds",
		Help:    "Duration of card view construction, including data fetch",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total number of cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total number of cache misses",
	})

	DatabaseQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "database_queries_total",
		Help: "Total number of database queries",
	}, []string{"query_type", "status"})

	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "database_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query_type"})

	EntriesImported = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trade_entries_imported_total",
		Help: "Total number of trade log rows imported",
	}, []string{"status"})

	RendererRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "renderer_requests_total",
		Help: "Total number of requests sent to the image renderer",
	}, []string{"kind", "status"})

	WarmupRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "card_warmup_runs_total",
		Help: "Total number of scheduled cache warm-up runs",
	}, []string{"status"})
)

func RecordCacheHit() {
	CacheHits.Inc()
}

func RecordCacheMiss() {
	CacheMisses.Inc()
}

func RecordEntriesImported(status string, n int) {
	EntriesImported.WithLabelValues(status).Add(float64(n))
}

// RecordCardBuilt counts a card build; empty marks a period with no entries.
func RecordCardBuilt(kind string, empty bool) {
	result := "ok"
	if empty {
		result = "empty"
	}
	CardsBuilt.WithLabelValues(kind, result).Inc()
}

type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{
		start: time.Now(),
	}
}

func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
