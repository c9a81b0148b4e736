package lime

// MetricsInterface defines the metrics methods needed by the explainer
type MetricsInterface interface {
	ExplanationsInc()
	ExplanationFailuresInc(kind string)
	ExplanationLatencyObserve(float64)
	ProviderLatencyObserve(float64)
	ProviderTimeoutsInc()
	RidgeFallbacksInc()
	FilteredSamplesAdd(float64)
	StabilityRatioObserve(float64)
}

type noopMetrics struct{}

func (noopMetrics) ExplanationsInc() {}
func (noopMetrics) ExplanationFailuresInc(string) {}
func (noopMetrics) ExplanationLatencyObserve(float64) {}
func (noopMetrics) ProviderLatencyObserve(float64) {}
func (noopMetrics) ProviderTimeoutsInc() {}
func (noopMetrics) RidgeFallbacksInc() {}
func (noopMetrics) FilteredSamplesAdd(float64) {}
func (noopMetrics) StabilityRatioObserve(float64) {}
