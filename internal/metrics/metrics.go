// AngelaMos | 2026
// metrics.go

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ccdexplorer_api"

// Result labels shared by the refresh counters.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the gateway's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	quotaRejections  *prometheus.CounterVec
	counterFailures  prometheus.Counter
	subscriptionRuns *prometheus.CounterVec
	keyCacheLoads    *prometheus.CounterVec
	cacheLoads       *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		quotaRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_rejections_total",
			Help:      "Requests rejected with 429 by plan and window.",
		}, []string{"plan", "window"}),
		counterFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_counter_failures_total",
			Help:      "Quota checks that failed open because the counter store errored.",
		}),
		subscriptionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_refreshes_total",
			Help:      "Subscription end-date recomputations by result.",
		}, []string{"result"}),
		keyCacheLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_key_cache_loads_total",
			Help:      "Reloads of the active API key table by result.",
		}, []string{"result"}),
		cacheLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_loads_total",
			Help:      "Reloads of the read caches by cache name and result.",
		}, []string{"cache", "result"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.quotaRejections,
		m.counterFailures,
		m.subscriptionRuns,
		m.keyCacheLoads,
		m.cacheLoads,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(
	method, route string,
	status int,
	elapsed time.Duration,
) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) QuotaRejected(plan, window string) {
	if m == nil {
		return
	}
	m.quotaRejections.WithLabelValues(plan, window).Inc()
}

func (m *Metrics) QuotaCounterFailed() {
	if m == nil {
		return
	}
	m.counterFailures.Inc()
}

func (m *Metrics) SubscriptionRefreshed(err error) {
	if m == nil {
		return
	}
	m.subscriptionRuns.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) KeyCacheLoaded(err error) {
	if m == nil {
		return
	}
	m.keyCacheLoads.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) CacheLoaded(cache string, err error) {
	if m == nil {
		return
	}
	m.cacheLoads.WithLabelValues(cache, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
