// Package metrics provides Prometheus metrics collection for the explainer.
// It defines the explanation, model provider and stability metrics that are
// exposed via a Prometheus registry or written to a textfile for the node
// exporter.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the explainer.
type Metrics struct {
	// Explanation metrics
	Explanations        prometheus.Counter     // Total number of explanations produced
	ExplanationFailures *prometheus.CounterVec // Failed explanations by error kind
	ExplanationLatency  prometheus.Histogram   // End-to-end explanation latency
	RidgeFallbacks      prometheus.Counter     // Surrogate fits that needed a ridge penalty
	FilteredSamples     prometheus.Counter     // Synthetic samples dropped by the proximity filter

	// Model provider metrics
	ProviderLatency  prometheus.Histogram // Latency of one batch prediction call
	ProviderTimeouts prometheus.Counter   // Batch prediction calls that hit the deadline

	// Stability metrics
	StabilityRatio prometheus.Histogram // Agreement ratio of the top feature across runs

	// Storage metrics
	ObservationsRecorded prometheus.Counter // Prediction inputs recorded as observations
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing
// and for textfile export).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Explanations: factory.NewCounter(prometheus.CounterOpts{
			Name: "lime_explanations_total",
			Help: "Total number of explanations produced",
		}),
		ExplanationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lime_explanation_failures_total",
			Help: "Total number of failed explanations by error kind",
		}, []string{"kind"}),
		ExplanationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lime_explanation_latency_seconds",
			Help:    "Explanation latency in seconds (end-to-end)",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		RidgeFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "lime_ridge_fallbacks_total",
			Help: "Total number of surrogate fits that fell back to ridge regression",
		}),
		FilteredSamples: factory.NewCounter(prometheus.CounterOpts{
			Name: "lime_filtered_samples_total",
			Help: "Total number of synthetic samples dropped by the proximity filter",
		}),
		ProviderLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lime_provider_latency_seconds",
			Help:    "Model provider batch prediction latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		ProviderTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "lime_provider_timeouts_total",
			Help: "Total number of model provider calls that timed out",
		}),
		StabilityRatio: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lime_stability_ratio",
			Help:    "Share of runs agreeing on the most important feature",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		ObservationsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "lime_observations_recorded_total",
			Help: "Total number of prediction inputs recorded as observations",
		}),
	}
}
