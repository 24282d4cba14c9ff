package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// compliance sweeps.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec

	sweepDuration     prometheus.Observer
	alertsEmitted     *prometheus.CounterVec
	totalFineGauge    *prometheus.GaugeVec
	penaltyDocsGauge  *prometheus.GaugeVec
	burnRateGauge     *prometheus.GaugeVec
	evaluatedCounter  prometheus.Counter
	evaluationLatency prometheus.Observer
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "alert_sweep_duration_seconds",
		Help:    "Duration of alert sweep runs",
		Buckets: prometheus.DefBuckets,
	})

	alertsEmitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "compliance_alerts_emitted_total",
		Help: "Alert tiers emitted by the sweep, by tier",
	}, []string{"tier"})

	totalFineGauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "compliance_total_fine",
		Help: "Accrued fine exposure per company at the latest evaluation",
	}, []string{"company"})

	penaltyDocsGauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "compliance_penalty_documents",
		Help: "Documents in penalty per company at the latest evaluation",
	}, []string{"company"})

	burnRateGauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "compliance_daily_burn_rate",
		Help: "Projected daily fine growth per company at the latest evaluation",
	}, []string{"company"})

	evaluatedCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "compliance_employees_evaluated_total",
		Help: "Employees evaluated by the engine",
	})

	evaluationLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "compliance_evaluation_seconds",
		Help:    "Latency of compliance batch evaluations",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		dbQueryDuration, sweepDuration, alertsEmitted, totalFineGauge, penaltyDocsGauge, burnRateGauge,
		evaluatedCounter, evaluationLatency, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		dbQueryDuration:   dbQueryDuration,
		sweepDuration:     sweepDuration,
		alertsEmitted:     alertsEmitted,
		totalFineGauge:    totalFineGauge,
		penaltyDocsGauge:  penaltyDocsGauge,
		burnRateGauge:     burnRateGauge,
		evaluatedCounter:  evaluatedCounter,
		evaluationLatency: evaluationLatency,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// ObserveSweep records one alert sweep run.
func (m *MetricsService) ObserveSweep(duration time.Duration) {
	if m == nil || m.sweepDuration == nil {
		return
	}
	m.sweepDuration.Observe(duration.Seconds())
}

// RecordAlertEmitted counts an alert tier emission.
func (m *MetricsService) RecordAlertEmitted(tier string) {
	if m == nil {
		return
	}
	m.alertsEmitted.WithLabelValues(tier).Inc()
}

// RecordCompanyExposure publishes the latest evaluated exposure for a company.
func (m *MetricsService) RecordCompanyExposure(company string, totalFine, burnRate float64, penaltyDocs int) {
	if m == nil {
		return
	}
	m.totalFineGauge.WithLabelValues(company).Set(totalFine)
	m.burnRateGauge.WithLabelValues(company).Set(burnRate)
	m.penaltyDocsGauge.WithLabelValues(company).Set(float64(penaltyDocs))
}

// ObserveEvaluation records a batch evaluation run.
func (m *MetricsService) ObserveEvaluation(employees int, duration time.Duration) {
	if m == nil {
		return
	}
	m.evaluatedCounter.Add(float64(employees))
	m.evaluationLatency.Observe(duration.Seconds())
}
