package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keithlinneman/devopsplatform-web/internal/version"
)

type ServerMetrics struct {
	reg       *prometheus.Registry
	handler   http.Handler
	inflight  prometheus.Gauge
	reqTotal  *prometheus.CounterVec
	reqDur    *prometheus.HistogramVec
	respBytes *prometheus.HistogramVec
	errTotal  *prometheus.CounterVec

	httpPanicTotal       prometheus.Counter
	buildInfo            *prometheus.GaugeVec
	ratelimitDeniedTotal prometheus.Counter
	ratelimitCapacity    prometheus.Counter
	profilingActive      prometheus.Gauge

	// site
	healthReports      *prometheus.CounterVec
	contactSubmissions *prometheus.CounterVec
	renderCache        *prometheus.CounterVec
	memoryLimit        prometheus.Gauge
}

// New returns a fresh registry + standard collectors + HTTP and site metrics.
// Labels stay low-cardinality: method, route, status, and small closed enums.
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"method", "route"}),
		errTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx HTTP server errors by method and route",
		}, []string{"method", "route"}),
		httpPanicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered handler panics",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "build_date", "vcs_dirty", "go_version"}),
		ratelimitDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by the contact rate limiter",
		}),
		ratelimitCapacity: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_capacity_total",
			Help: "Total number of times the rate limiter visitor table was full",
		}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is active (1) or disabled/failed (0)",
		}),
		healthReports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "health_reports_total",
			Help: "Health endpoint responses by mode and status code",
		}, []string{"mode", "code"}),
		contactSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Contact form submissions by result",
		}, []string{"result"}),
		renderCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "page_render_cache_total",
			Help: "Page render cache lookups by result (hit, miss)",
		}, []string{"result"}),
		memoryLimit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "app_memory_limit_bytes",
			Help: "Configured memory limit used by the memory_ok health check (0 = unlimited)",
		}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.errTotal,
		m.httpPanicTotal,
		m.buildInfo,
		m.ratelimitDeniedTotal,
		m.ratelimitCapacity,
		m.profilingActive,
		m.healthReports,
		m.contactSubmissions,
		m.renderCache,
		m.memoryLimit,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

func (m *ServerMetrics) Handler() http.Handler {
	return m.handler
}

// set once at startup.
func (m *ServerMetrics) SetBuildInfoFromVersion(app, component string, vi version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":        app,
		"component":  component,
		"version":    vi.Version,
		"commit":     vi.Commit,
		"build_date": vi.BuildDate,
		"go_version": vi.GoVersion,
		"vcs_dirty":  dirty,
	}).Set(1)
}

func (m *ServerMetrics) SetMemoryLimit(bytes uint64) {
	m.memoryLimit.Set(float64(bytes))
}

func (m *ServerMetrics) IncHttpPanic() {
	m.httpPanicTotal.Inc()
}

func (m *ServerMetrics) IncRateLimitDenied() {
	m.ratelimitDeniedTotal.Inc()
}

func (m *ServerMetrics) IncRateLimitCapacity() {
	m.ratelimitCapacity.Inc()
}

func (m *ServerMetrics) SetProfilingActive(active bool) {
	if active {
		m.profilingActive.Set(1)
	} else {
		m.profilingActive.Set(0)
	}
}

// ObserveHealthReport counts one health response.
func (m *ServerMetrics) ObserveHealthReport(mode string, code int) {
	m.healthReports.WithLabelValues(mode, strconv.Itoa(code)).Inc()
}

// IncContactSubmission counts a contact POST by result
// (accepted, invalid, failed, rate_limited).
func (m *ServerMetrics) IncContactSubmission(result string) {
	m.contactSubmissions.WithLabelValues(result).Inc()
}

func (m *ServerMetrics) ObserveRenderCache(hit bool) {
	if hit {
		m.renderCache.WithLabelValues("hit").Inc()
		return
	}
	m.renderCache.WithLabelValues("miss").Inc()
}
