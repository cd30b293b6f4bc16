// Package metrics exposes Prometheus collectors for the HTTP API, the guest
// write queue and RSVP activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nihanthkethireddy/invite/internal/models"
)

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	rsvps     *prometheus.CounterVec
	queueWait prometheus.Histogram
}

// New registers the collectors. pending reports the current queue depth and
// may be nil.
func New(pending func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "invite",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "invite",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		rsvps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "invite",
			Name:      "rsvps_saved_total",
			Help:      "Saved RSVPs by response and scope.",
		}, []string{"rsvp", "scope"}),
		queueWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "invite",
			Name:      "write_queue_wait_seconds",
			Help:      "Time a guest mutation waited for the write queue.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.latency, m.rsvps, m.queueWait,
	)
	if pending != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "invite",
			Name:      "write_queue_pending",
			Help:      "Guest mutations waiting for the write queue.",
		}, func() float64 { return float64(pending()) }))
	}
	return m
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveQueueWait is meant for queue.Queue.OnWait.
func (m *Metrics) ObserveQueueWait(d time.Duration) {
	m.queueWait.Observe(d.Seconds())
}

// RSVPSaved implements guests.Recorder.
func (m *Metrics) RSVPSaved(g models.Guest) {
	m.rsvps.WithLabelValues(string(g.RSVP), string(g.Scope)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
