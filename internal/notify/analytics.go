package notify

import (
	"context"
	"sort"

	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

// Funnel events tracked by the booking flow.
const (
	EventViewContent      = "ViewContent"
	EventInitiateCheckout = "InitiateCheckout"
	EventPurchase         = "Purchase"
	EventLead             = "Lead"
)

// AnalyticsSink records funnel events. Implementations must not block the
// request path on remote calls.
type AnalyticsSink interface {
	Track(ctx context.Context, event string, props map[string]any)
}

// LogSink writes analytics events to the structured log.
type LogSink struct {
	logger *logging.Logger
}

func NewLogSink(logger *logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Track(ctx context.Context, event string, props map[string]any) {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]any, 0, 2+2*len(keys))
	args = append(args, "event", event)
	for _, k := range keys {
		args = append(args, k, scrubValue(props[k]))
	}
	s.logger.WithContext(ctx).Info("analytics event", args...)
}

type eventCounter interface {
	ObserveAnalyticsEvent(event string)
}

// MetricsSink counts analytics events by name.
type MetricsSink struct {
	counter eventCounter
}

func NewMetricsSink(counter eventCounter) *MetricsSink {
	return &MetricsSink{counter: counter}
}

func (s *MetricsSink) Track(ctx context.Context, event string, props map[string]any) {
	if s == nil || s.counter == nil {
		return
	}
	s.counter.ObserveAnalyticsEvent(event)
}

// MultiSink forwards events to every sink.
type MultiSink []AnalyticsSink

func (m MultiSink) Track(ctx context.Context, event string, props map[string]any) {
	for _, s := range m {
		if s != nil {
			s.Track(ctx, event, props)
		}
	}
}
