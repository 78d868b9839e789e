package metrics

import "github.com/prometheus/client_golang/prometheus"

// DialogueMetrics exposes counters/histograms for booking dialogue flows.
type DialogueMetrics struct {
	sessionsStarted    prometheus.Counter
	turnsTotal         *prometheus.CounterVec
	confirmationsTotal prometheus.Counter
	gatewayLatency     prometheus.Histogram
}

func NewDialogueMetrics(reg prometheus.Registerer) *DialogueMetrics {
	m := &DialogueMetrics{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agendei",
			Subsystem: "dialogue",
			Name:      "sessions_started_total",
			Help:      "Total booking dialogue sessions initiated",
		}),
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agendei",
			Subsystem: "dialogue",
			Name:      "turns_total",
			Help:      "Total processed dialogue turns by outcome",
		}, []string{"outcome"}),
		confirmationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agendei",
			Subsystem: "dialogue",
			Name:      "confirmations_total",
			Help:      "Total sessions that ended in a confirmed appointment",
		}),
		gatewayLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agendei",
			Subsystem: "dialogue",
			Name:      "gateway_latency_seconds",
			Help:      "Latency of gateway completion calls",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sessionsStarted, m.turnsTotal, m.confirmationsTotal, m.gatewayLatency)
	return m
}

func (m *DialogueMetrics) ObserveSessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

func (m *DialogueMetrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
}

func (m *DialogueMetrics) ObserveConfirmation() {
	if m == nil {
		return
	}
	m.confirmationsTotal.Inc()
}

func (m *DialogueMetrics) ObserveGatewayLatency(seconds float64) {
	if m == nil {
		return
	}
	m.gatewayLatency.Observe(seconds)
}
