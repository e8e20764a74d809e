package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "apportionment"

// Outcome labels recorded for each run.
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Recorder receives observations about apportionment runs.
type Recorder interface {
	ObserveRun(operation, outcome string, elapsed time.Duration)
	ObserveAllocation(subdivisions, totalSeats int)
}

// RequestObserver receives one observation per served HTTP request.
type RequestObserver interface {
	ObserveRequest(route, method string, status int, elapsed time.Duration)
}

// Nop discards all observations.
type Nop struct{}

func (Nop) ObserveRun(string, string, time.Duration)          {}
func (Nop) ObserveAllocation(int, int)                        {}
func (Nop) ObserveRequest(string, string, int, time.Duration) {}

// Prometheus implements Recorder backed by Prometheus collectors.
type Prometheus struct {
	gatherer prometheus.Gatherer

	runs         *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	subdivisions prometheus.Gauge
	seats        prometheus.Gauge

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

var (
	_ Recorder        = (*Prometheus)(nil)
	_ RequestObserver = (*Prometheus)(nil)
)

// NewPrometheus registers the apportionment collectors on reg.
//
// A nil reg gets a fresh registry, which keeps tests and multiple App
// instances from colliding on the default registerer.
func NewPrometheus(reg *prometheus.Registry, namespace string) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = defaultNamespace
	}

	p := &Prometheus{
		gatherer: reg,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total apportionment runs by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Apportionment run latency in seconds by operation.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"operation"}),
		subdivisions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_subdivisions",
			Help:      "Number of subdivisions in the most recent successful allocation.",
		}),
		seats: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_seats",
			Help:      "Total seats in the most recent successful allocation.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	collectors := []prometheus.Collector{p.runs, p.duration, p.subdivisions, p.seats, p.requests, p.requestDuration}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ObserveRun counts a run and records its latency.
func (p *Prometheus) ObserveRun(operation, outcome string, elapsed time.Duration) {
	p.runs.WithLabelValues(operation, outcome).Inc()
	p.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveAllocation records the shape of a successful allocation.
func (p *Prometheus) ObserveAllocation(subdivisions, totalSeats int) {
	p.subdivisions.Set(float64(subdivisions))
	p.seats.Set(float64(totalSeats))
}

// ObserveRequest counts a served request. route is the matched mux pattern.
func (p *Prometheus) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	p.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	p.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}
