package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	DocumentPassport = "passport"
	DocumentVehicle  = "vehicle"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics is safe to use through a nil pointer; every method is then a no-op.
type Metrics struct {
	EventsHandled      *prometheus.CounterVec
	Extractions        *prometheus.CounterVec
	ExtractionDuration *prometheus.HistogramVec
	PollAttempts       prometheus.Counter
	PoliciesIssued     prometheus.Counter
	EventsDropped      prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EventsHandled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "insurance_bot_events_handled_total",
			Help: "Inbound events handled, by kind",
		}, []string{"kind"}),
		Extractions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "insurance_bot_extractions_total",
			Help: "Document extraction calls, by document type and outcome",
		}, []string{"document", "outcome"}),
		ExtractionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "insurance_bot_extraction_duration_seconds",
			Help:    "Duration of document extraction calls",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 45, 90},
		}, []string{"document"}),
		PollAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "insurance_bot_mindee_poll_attempts_total",
			Help: "Polling requests issued for asynchronous vehicle jobs",
		}),
		PoliciesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "insurance_bot_policies_issued_total",
			Help: "Policy documents delivered to users",
		}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "insurance_bot_events_dropped_total",
			Help: "Events dropped because a user's queue was full",
		}),
	}
}

func (m *Metrics) IncrementEvent(kind string) {
	if m == nil {
		return
	}
	m.EventsHandled.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveExtraction(document string, start time.Time, err error) {
	if m == nil {
		return
	}

	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}

	m.Extractions.WithLabelValues(document, outcome).Inc()
	m.ExtractionDuration.WithLabelValues(document).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementPollAttempt() {
	if m == nil {
		return
	}
	m.PollAttempts.Inc()
}

func (m *Metrics) IncrementPolicyIssued() {
	if m == nil {
		return
	}
	m.PoliciesIssued.Inc()
}

func (m *Metrics) IncrementEventDropped() {
	if m == nil {
		return
	}
	m.EventsDropped.Inc()
}
