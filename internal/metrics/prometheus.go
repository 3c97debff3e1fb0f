package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"analyticsScope/internal/subgraph"
)

// Recorder exposes the service's Prometheus metrics.
type Recorder struct {
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	refreshes      *prometheus.CounterVec
	refreshLatency prometheus.Histogram
	entities       *prometheus.GaugeVec
	lastSuccess    prometheus.Gauge
	sinkErrors     *prometheus.CounterVec
}

// New registers the metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Recorder{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_subgraph_requests_total",
				Help: "Subgraph round trips by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		requestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dashboard_subgraph_request_duration_seconds",
				Help:    "Duration of subgraph round trips in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		refreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_refresh_total",
				Help: "Refresh ticks by outcome",
			},
			[]string{"outcome"},
		),
		refreshLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dashboard_refresh_duration_seconds",
				Help:    "Duration of a full fetch and reconcile pass",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		entities: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dashboard_entities",
				Help: "Entities in the latest snapshot per surface",
			},
			[]string{"surface"},
		),
		lastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dashboard_last_success_timestamp_seconds",
				Help: "Unix time of the last successful refresh",
			},
		),
		sinkErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_sink_errors_total",
				Help: "Snapshot sink failures by sink",
			},
			[]string{"sink"},
		),
	}
}

var _ subgraph.Recorder = (*Recorder)(nil)

// ObserveRequest records one subgraph round trip.
func (r *Recorder) ObserveRequest(endpoint string, d time.Duration, err error) {
	r.requestLatency.WithLabelValues(endpoint).Observe(d.Seconds())
	r.requests.WithLabelValues(endpoint, requestOutcome(err)).Inc()
}

// ObserveRefresh records one refresh tick.
func (r *Recorder) ObserveRefresh(d time.Duration, err error, at time.Time) {
	r.refreshLatency.Observe(d.Seconds())
	if err != nil {
		r.refreshes.WithLabelValues("error").Inc()
		return
	}
	r.refreshes.WithLabelValues("ok").Inc()
	r.lastSuccess.Set(float64(at.Unix()))
}

// SetEntities records how many entities a surface holds.
func (r *Recorder) SetEntities(surface string, n int) {
	r.entities.WithLabelValues(surface).Set(float64(n))
}

// RecordSinkError records a failed snapshot write.
func (r *Recorder) RecordSinkError(sink string) {
	r.sinkErrors.WithLabelValues(sink).Inc()
}

func requestOutcome(err error) string {
	if err == nil {
		return "ok"
	}
	var te *subgraph.TransportError
	if errors.As(err, &te) {
		switch {
		case te.GraphQL:
			return "graphql_error"
		case te.Status != 0:
			return "http_error"
		}
	}
	return "transport_error"
}
