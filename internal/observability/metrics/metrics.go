package metrics

import "github.com/prometheus/client_golang/prometheus"

// QuoteMetrics exposes counters/histograms for pricing and payment flows.
type QuoteMetrics struct {
	quotesTotal     *prometheus.CounterVec
	quoteLatency    *prometheus.HistogramVec
	clampsTotal     *prometheus.CounterVec
	paymentsTotal   *prometheus.CounterVec
	analyticsEvents *prometheus.CounterVec
}

func NewQuoteMetrics(reg prometheus.Registerer) *QuoteMetrics {
	m := &QuoteMetrics{
		quotesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bridal",
			Subsystem: "pricing",
			Name:      "quotes_total",
			Help:      "Total quotes calculated",
		}, []string{"service_type", "outcome"}),
		quoteLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bridal",
			Subsystem: "pricing",
			Name:      "quote_latency_seconds",
			Help:      "Latency of quote calculation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		clampsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bridal",
			Subsystem: "pricing",
			Name:      "party_clamps_total",
			Help:      "Party counts reduced to their cap",
		}, []string{"field"}),
		paymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bridal",
			Subsystem: "payments",
			Name:      "recorded_total",
			Help:      "Payments recorded against bookings",
		}, []string{"provider", "payment_type", "status"}),
		analyticsEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bridal",
			Subsystem: "funnel",
			Name:      "events_total",
			Help:      "Booking funnel analytics events",
		}, []string{"event"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.quotesTotal, m.quoteLatency, m.clampsTotal, m.paymentsTotal, m.analyticsEvents)
	return m
}

func (m *QuoteMetrics) ObserveQuote(serviceType, outcome string) {
	if m == nil {
		return
	}
	m.quotesTotal.WithLabelValues(serviceType, outcome).Inc()
}

func (m *QuoteMetrics) ObserveLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.quoteLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *QuoteMetrics) ObserveClamp(field string) {
	if m == nil {
		return
	}
	m.clampsTotal.WithLabelValues(field).Inc()
}

func (m *QuoteMetrics) ObservePayment(provider, paymentType, status string) {
	if m == nil {
		return
	}
	m.paymentsTotal.WithLabelValues(provider, paymentType, status).Inc()
}

func (m *QuoteMetrics) ObserveAnalyticsEvent(event string) {
	if m == nil {
		return
	}
	m.analyticsEvents.WithLabelValues(event).Inc()
}
