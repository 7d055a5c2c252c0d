package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks movement through the investor funnel.
// All methods are safe on a nil receiver so services can run without it.
type Metrics struct {
	LeadsCreated          *prometheus.CounterVec
	LeadsAssigned         *prometheus.CounterVec
	ReservationsCreated   prometheus.Counter
	ReservationsExpired   prometheus.Counter
	ReservationsConverted prometheus.Counter
	KYCDecisions          *prometheus.CounterVec
	PaymentReviews        *prometheus.CounterVec
	SweepRuns             *prometheus.CounterVec
}

// New registers the funnel metrics on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LeadsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "somosrentable_leads_created_total",
			Help: "Leads created by source",
		}, []string{"source"}),

		LeadsAssigned: f.NewCounterVec(prometheus.CounterOpts{
			Name: "somosrentable_leads_assigned_total",
			Help: "Lead assignments by mode (auto, manual, none)",
		}, []string{"mode"}),

		ReservationsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "somosrentable_reservations_created_total",
			Help: "Reservations created",
		}),

		ReservationsExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "somosrentable_reservations_expired_total",
			Help: "Reservations moved to expired by the sweep or on conversion",
		}),

		ReservationsConverted: f.NewCounter(prometheus.CounterOpts{
			Name: "somosrentable_reservations_converted_total",
			Help: "Reservations converted into investments",
		}),

		KYCDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "somosrentable_kyc_decisions_total",
			Help: "KYC decisions by outcome and mode (auto, manual)",
		}, []string{"outcome", "mode"}),

		PaymentReviews: f.NewCounterVec(prometheus.CounterOpts{
			Name: "somosrentable_payment_reviews_total",
			Help: "Payment proof reviews by outcome",
		}, []string{"outcome"}),

		SweepRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "somosrentable_expiry_sweep_runs_total",
			Help: "Expiry sweep runs by result (ok, error, skipped)",
		}, []string{"result"}),
	}
}

func (m *Metrics) LeadCreated(source string) {
	if m != nil {
		m.LeadsCreated.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) LeadAssigned(mode string) {
	if m != nil {
		m.LeadsAssigned.WithLabelValues(mode).Inc()
	}
}

func (m *Metrics) ReservationCreated() {
	if m != nil {
		m.ReservationsCreated.Inc()
	}
}

func (m *Metrics) ReservationsExpiredAdd(n int64) {
	if m != nil && n > 0 {
		m.ReservationsExpired.Add(float64(n))
	}
}

func (m *Metrics) ReservationConverted() {
	if m != nil {
		m.ReservationsConverted.Inc()
	}
}

func (m *Metrics) KYCDecided(outcome, mode string) {
	if m != nil {
		m.KYCDecisions.WithLabelValues(outcome, mode).Inc()
	}
}

func (m *Metrics) PaymentReviewed(outcome string) {
	if m != nil {
		m.PaymentReviews.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) SweepRun(result string) {
	if m != nil {
		m.SweepRuns.WithLabelValues(result).Inc()
	}
}
