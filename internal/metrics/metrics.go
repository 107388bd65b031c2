// Package metrics exposes scheduler counters on the Prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mattjoyce/overviewd/internal/command"
)

// Metrics implements the dispatcher's Stats capability.
type Metrics struct {
	registry *prometheus.Registry

	submitted  *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	finished   *prometheus.CounterVec
	timeouts   *prometheus.CounterVec
	suppressed prometheus.Counter
	depth      prometheus.Gauge
}

// New creates and registers the scheduler metrics on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		submitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "overviewd_commands_submitted_total",
				Help: "Commands accepted into the queue.",
			},
			[]string{"type"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "overviewd_commands_dropped_total",
				Help: "Commands silently dropped at the queue bound.",
			},
			[]string{"type"},
		),
		finished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "overviewd_commands_finished_total",
				Help: "Commands that reached a terminal state.",
			},
			[]string{"type", "status"},
		),
		timeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "overviewd_commands_timed_out_total",
				Help: "Commands force-advanced by the watchdog.",
			},
			[]string{"type"},
		),
		suppressed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "overviewd_toggles_suppressed_total",
				Help: "Toggle commands completed without execution while a transition was in flight.",
			},
		),
		depth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "overviewd_queue_depth",
				Help: "Current command queue depth, head included.",
			},
		),
	}

	m.registry.MustRegister(m.submitted, m.dropped, m.finished, m.timeouts, m.suppressed, m.depth)
	return m
}

// Handler serves the registry for GET /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Submitted(t command.Type) {
	m.submitted.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) Dropped(t command.Type) {
	m.dropped.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) Finished(t command.Type, status command.Status, timedOut bool) {
	m.finished.WithLabelValues(string(t), string(status)).Inc()
	if timedOut {
		m.timeouts.WithLabelValues(string(t)).Inc()
	}
}

func (m *Metrics) Suppressed() {
	m.suppressed.Inc()
}

func (m *Metrics) Depth(n int) {
	m.depth.Set(float64(n))
}
