package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/richardbrinkman/plagiarism/internal/orchestration"
	"github.com/richardbrinkman/plagiarism/internal/progress"
)

const metricsNamespace = "plagiarism"

// Metrics holds the Prometheus collectors of a server. Every Metrics owns
// its registry so that several servers (or tests) can coexist.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	activeRequests prometheus.Gauge
	requestsTotal  *prometheus.CounterVec
	runsTotal      *prometheus.CounterVec
	activeRuns     prometheus.Gauge
	tasksTotal     *prometheus.CounterVec
	taskDuration   prometheus.Histogram
}

var _ orchestration.Observer = (*Metrics)(nil)

// NewMetrics creates and registers the server collectors together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_requests",
			Help:      "Number of HTTP requests being served.",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Number of HTTP requests served, by method and status code.",
		}, []string{"method", "code"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Number of detection runs, by outcome.",
		}, []string{"outcome"}),
		activeRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_runs",
			Help:      "Number of detection runs in progress.",
		}),
		tasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "comparison_tasks_total",
			Help:      "Number of comparison tasks, by final status.",
		}, []string{"status"}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "comparison_task_duration_seconds",
			Help:      "Duration of comparison tasks.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	// Touch the request counter so it is exported before the first request.
	m.requestsTotal.WithLabelValues(http.MethodGet, strconv.Itoa(http.StatusOK)).Add(0)

	reg.MustRegister(
		m.activeRequests, m.requestsTotal,
		m.runsTotal, m.activeRuns,
		m.tasksTotal, m.taskDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	return m
}

// IncrementActiveRequests marks the start of a request.
func (m *Metrics) IncrementActiveRequests() { m.activeRequests.Inc() }

// DecrementActiveRequests marks the end of a request.
func (m *Metrics) DecrementActiveRequests() { m.activeRequests.Dec() }

// ObserveRequest counts a served request.
func (m *Metrics) ObserveRequest(method string, code int) {
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// RunStarted marks the start of a detection run.
func (m *Metrics) RunStarted() { m.activeRuns.Inc() }

// RunFinished marks the end of a detection run with the given outcome
// ("completed", "failed" or "canceled").
func (m *Metrics) RunFinished(outcome string) {
	m.activeRuns.Dec()
	m.runsTotal.WithLabelValues(outcome).Inc()
}

// ObserveTask implements orchestration.Observer.
func (m *Metrics) ObserveTask(status progress.Status, d time.Duration) {
	m.tasksTotal.WithLabelValues(string(status)).Inc()
	m.taskDuration.Observe(d.Seconds())
}

// WritePrometheus writes every registered metric in the Prometheus text
// exposition format.
func (m *Metrics) WritePrometheus(w http.ResponseWriter, r *http.Request) {
	m.handler.ServeHTTP(w, r)
}
