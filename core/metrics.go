package core

import "context"

// Metric names emitted by the lifecycle service. Counters carry
// event/status tags; histograms are in milliseconds.
const (
	MetricEventsTotal     = "orderflow.events.total"
	MetricEventDurationMS = "orderflow.events.duration_ms"
)

// NopMetricsRecorder is installed when no recorder is configured so the
// service can emit metrics unconditionally.
type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

// cloneTags keeps recorders from mutating tag maps shared with log fields.
func cloneTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return map[string]string{}
	}
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}

var _ MetricsRecorder = NopMetricsRecorder{}
