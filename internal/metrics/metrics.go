// Package metrics provides recorders for embed resolution telemetry.
package metrics

import (
	"errors"
	"time"

	"github.com/goliatone/go-embed/pkg/interfaces"
	"github.com/prometheus/client_golang/prometheus"
)

// NoOp returns a recorder that drops every observation.
func NoOp() interfaces.EmbedMetrics {
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) IncrementResolution(string, string) {}

func (noopMetrics) ObserveFetchDuration(string, time.Duration) {}

func (noopMetrics) IncrementFetchFailure(string, string) {}

func (noopMetrics) IncrementStaleResult(string) {}

// Prometheus records embed telemetry as Prometheus collectors.
type Prometheus struct {
	resolutions   *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	fetchFailures *prometheus.CounterVec
	staleResults  *prometheus.CounterVec
}

var _ interfaces.EmbedMetrics = (*Prometheus)(nil)

// NewPrometheus registers the embed collectors on reg under namespace. A nil
// registerer falls back to prometheus.DefaultRegisterer. Collectors already
// registered by an earlier module on the same registerer are reused.
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	// Resolutions counts Resolve calls by provider and strategy
	resolutions, err := register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Total number of embed resolutions by provider and strategy",
		},
		[]string{"provider", "strategy"},
	))
	if err != nil {
		return nil, err
	}

	// FetchDuration measures unfurl round trips in seconds
	fetchDuration, err := register(reg, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Remote embed fetch duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	))
	if err != nil {
		return nil, err
	}

	// FetchFailures counts remote fetches that degraded to the error placeholder
	fetchFailures, err := register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Total number of failed remote embed fetches",
		},
		[]string{"provider", "reason"},
	))
	if err != nil {
		return nil, err
	}

	// StaleResults counts fetch results discarded after a newer assignment
	staleResults, err := register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_results_total",
			Help:      "Total number of superseded fetch results that were discarded",
		},
		[]string{"provider"},
	))
	if err != nil {
		return nil, err
	}

	return &Prometheus{
		resolutions:   resolutions,
		fetchDuration: fetchDuration,
		fetchFailures: fetchFailures,
		staleResults:  staleResults,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, collector C) (C, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	var zero C
	return zero, err
}

func (p *Prometheus) IncrementResolution(provider, strategy string) {
	p.resolutions.WithLabelValues(provider, strategy).Inc()
}

func (p *Prometheus) ObserveFetchDuration(provider string, duration time.Duration) {
	p.fetchDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func (p *Prometheus) IncrementFetchFailure(provider, reason string) {
	p.fetchFailures.WithLabelValues(provider, reason).Inc()
}

func (p *Prometheus) IncrementStaleResult(provider string) {
	p.staleResults.WithLabelValues(provider).Inc()
}
