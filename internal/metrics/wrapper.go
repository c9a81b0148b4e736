package metrics

// MetricsWrapper adapts Metrics to the method set the explainer records
// through, so that package does not import Prometheus.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) ExplanationsInc() {
	w.m.Explanations.Inc()
}

func (w *MetricsWrapper) ExplanationFailuresInc(kind string) {
	w.m.ExplanationFailures.WithLabelValues(kind).Inc()
}

func (w *MetricsWrapper) ExplanationLatencyObserve(seconds float64) {
	w.m.ExplanationLatency.Observe(seconds)
}

func (w *MetricsWrapper) ProviderLatencyObserve(seconds float64) {
	w.m.ProviderLatency.Observe(seconds)
}

func (w *MetricsWrapper) ProviderTimeoutsInc() {
	w.m.ProviderTimeouts.Inc()
}

func (w *MetricsWrapper) RidgeFallbacksInc() {
	w.m.RidgeFallbacks.Inc()
}

func (w *MetricsWrapper) FilteredSamplesAdd(n float64) {
	w.m.FilteredSamples.Add(n)
}

func (w *MetricsWrapper) StabilityRatioObserve(ratio float64) {
	w.m.StabilityRatio.Observe(ratio)
}

func (w *MetricsWrapper) ObservationsRecordedInc() {
	w.m.ObservationsRecorded.Inc()
}
