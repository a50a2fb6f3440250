// Prometheus export for officewatch metrics. A dedicated registry keeps the
// presence-bot collectors separate from any default-registry users.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "officewatch"

	subsystemScan     = "scan"
	subsystemPresence = "presence"
	subsystemRegistry = "registry"
	subsystemAPI      = "api"
)

// PrometheusMetrics holds all Prometheus metric collectors.
type PrometheusMetrics struct {
	// Scan pipeline metrics
	scansTotal   *prometheus.CounterVec
	scanDuration *prometheus.HistogramVec
	scanErrors   *prometheus.CounterVec

	// Presence metrics
	presenceChecks *prometheus.CounterVec
	devicesSeen    prometheus.Gauge
	usersPresent   prometheus.Gauge

	// Registry metrics
	registryQueries  *prometheus.CounterVec
	registryDuration *prometheus.HistogramVec

	// API metrics
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance with all
// collectors registered.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	pm := &PrometheusMetrics{
		registry: registry,
		scansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystemScan,
				Name:      "sweeps_total",
				Help:      "Total number of double-scan sweeps by status",
			},
			[]string{"status"},
		),
		scanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystemScan,
				Name:      "sweep_duration_seconds",
				Help:      "Duration of double-scan sweeps including cooldown",
				Buckets:   []float64{1, 5, 15, 30, 60, 90, 120, 180},
			},
			[]string{"interface"},
		),
		scanErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystemScan,
				Name:      "errors_total",
				Help:      "Total number of failed scanner invocations",
			},
			[]string{"code"},
		),
		presenceChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystemPresence,
				Name:      "checks_total",
				Help:      "Total number of presence checks by trigger source",
			},
			[]string{"trigger"},
		),
		devicesSeen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystemPresence,
				Name:      "devices_seen",
				Help:      "Devices observed in the most recent sweep",
			},
		),
		usersPresent: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystemPresence,
				Name:      "users_present",
				Help:      "Users matched as present in the most recent sweep",
			},
		),
		registryQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystemRegistry,
				Name:      "queries_total",
				Help:      "Total number of user registry operations",
			},
			[]string{"operation", "status"},
		),
		registryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystemRegistry,
				Name:      "query_duration_seconds",
				Help:      "Duration of user registry operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystemAPI,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by method and status",
			},
			[]string{"method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystemAPI,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	registry.MustRegister(
		pm.scansTotal,
		pm.scanDuration,
		pm.scanErrors,
		pm.presenceChecks,
		pm.devicesSeen,
		pm.usersPresent,
		pm.registryQueries,
		pm.registryDuration,
		pm.httpRequests,
		pm.httpDuration,
	)

	// Standard Go and process collectors for runtime visibility
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return pm
}

// Handler returns an HTTP handler serving the Prometheus exposition format.
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// ObserveSweep records a completed or failed double-scan sweep.
func (pm *PrometheusMetrics) ObserveSweep(iface, status string, duration time.Duration) {
	pm.scansTotal.WithLabelValues(status).Inc()
	pm.scanDuration.WithLabelValues(iface).Observe(duration.Seconds())
}

// ObserveScanError records a failed scanner invocation by error code.
func (pm *PrometheusMetrics) ObserveScanError(code string) {
	pm.scanErrors.WithLabelValues(code).Inc()
}

// ObservePresence records the outcome of one presence check.
func (pm *PrometheusMetrics) ObservePresence(trigger string, devicesSeen, usersPresent int) {
	pm.presenceChecks.WithLabelValues(trigger).Inc()
	pm.devicesSeen.Set(float64(devicesSeen))
	pm.usersPresent.Set(float64(usersPresent))
}

// ObserveRegistryQuery records a registry operation.
func (pm *PrometheusMetrics) ObserveRegistryQuery(operation, status string, duration time.Duration) {
	pm.registryQueries.WithLabelValues(operation, status).Inc()
	pm.registryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveHTTPRequest records an API request.
func (pm *PrometheusMetrics) ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	pm.httpRequests.WithLabelValues(method, status).Inc()
	pm.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
