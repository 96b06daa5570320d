package metrics

import (
	"time"

	"pathserver/routing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "pathserver"

// Metrics holds the server's prometheus collectors on a private registry.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	Registry *prometheus.Registry

	queries           *prometheus.CounterVec
	notFound          prometheus.Counter
	malformedRequests prometheus.Counter
	connections       prometheus.Counter
	activeHandlers    prometheus.Gauge
	acceptErrors      prometheus.Counter
	ioErrors          *prometheus.CounterVec
	queryDuration     prometheus.Histogram

	hostMemoryUsedPercent prometheus.Gauge
	hostLoad1             prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Path queries served, by cache result.",
		}, []string{"cache"}),
		notFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "path_not_found_total",
			Help:      "Queries answered with path not found.",
		}),
		malformedRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_requests_total",
			Help:      "Requests with fewer than two parsable node ids.",
		}),
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Accepted connections or streams.",
		}),
		activeHandlers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_handlers",
			Help:      "Connection handlers currently running.",
		}),
		acceptErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accept_errors_total",
			Help:      "Failed accept calls.",
		}),
		ioErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "io_errors_total",
			Help:      "Per-connection read or write failures.",
		}, []string{"op"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Time spent resolving a path, cache lookup included.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		hostMemoryUsedPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "memory_used_percent",
			Help:      "Host memory usage.",
		}),
		hostLoad1: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "load1",
			Help:      "Host one-minute load average.",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.queries,
		m.notFound,
		m.malformedRequests,
		m.connections,
		m.activeHandlers,
		m.acceptErrors,
		m.ioErrors,
		m.queryDuration,
		m.hostMemoryUsedPercent,
		m.hostLoad1,
	)
	return m
}

// RegisterCache exports the cache's size and eviction count
func (m *Metrics) RegisterCache(cache *routing.PathCache) {
	if m == nil || cache == nil {
		return
	}
	m.Registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Entries currently held by the path cache.",
		}, func() float64 { return float64(cache.Len()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Entries evicted from the path cache.",
		}, func() float64 { return float64(cache.Stats().Evictions) }),
	)
}

func (m *Metrics) ObserveQuery(cacheHit bool, found bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if cacheHit {
		result = "hit"
	}
	m.queries.WithLabelValues(result).Inc()
	if !found {
		m.notFound.Inc()
	}
	m.queryDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) MalformedRequest() {
	if m == nil {
		return
	}
	m.malformedRequests.Inc()
}

// HandlerStarted counts a new connection and returns a func marking it done
func (m *Metrics) HandlerStarted() func() {
	if m == nil {
		return func() {}
	}
	m.connections.Inc()
	m.activeHandlers.Inc()
	return m.activeHandlers.Dec
}

func (m *Metrics) AcceptError() {
	if m == nil {
		return
	}
	m.acceptErrors.Inc()
}

func (m *Metrics) IOError(op string) {
	if m == nil {
		return
	}
	m.ioErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) setHostStats(stats HostStats) {
	if m == nil {
		return
	}
	m.hostMemoryUsedPercent.Set(stats.MemoryUsedPercent)
	m.hostLoad1.Set(stats.Load1)
}
