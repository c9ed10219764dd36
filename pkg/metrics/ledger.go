package metrics

import "github.com/prometheus/client_golang/prometheus"

// LedgerMetrics records ledger decision outcomes.
type LedgerMetrics struct {
	consumeAllowed  *prometheus.CounterVec
	consumeDenied   *prometheus.CounterVec
	payments        prometheus.Counter
	duplicates      prometheus.Counter
	referralBonuses prometheus.Counter
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	consumeAllowed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consume_allowed_total",
		Help: "Consume requests admitted, by kind.",
	}, []string{"kind"})
	consumeDenied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consume_denied_total",
		Help: "Consume requests denied by the daily quota, by kind.",
	}, []string{"kind"})
	payments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_processed_total",
		Help: "Payment notifications credited.",
	})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_duplicate_total",
		Help: "Payment notifications ignored as duplicates.",
	})
	referralBonuses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "referral_bonuses_total",
		Help: "Referral bonus credits granted.",
	})
	reg.MustRegister(consumeAllowed, consumeDenied, payments, duplicates, referralBonuses)
	return &LedgerMetrics{
		consumeAllowed:  consumeAllowed,
		consumeDenied:   consumeDenied,
		payments:        payments,
		duplicates:      duplicates,
		referralBonuses: referralBonuses,
	}
}

// IncConsumeAllowed increments the admitted counter for the kind.
func (m *LedgerMetrics) IncConsumeAllowed(kind string) {
	if m == nil || m.consumeAllowed == nil {
		return
	}
	m.consumeAllowed.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncConsumeDenied increments the denied counter for the kind.
func (m *LedgerMetrics) IncConsumeDenied(kind string) {
	if m == nil || m.consumeDenied == nil {
		return
	}
	m.consumeDenied.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncPaymentProcessed increments the credited-payments counter.
func (m *LedgerMetrics) IncPaymentProcessed() {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.Inc()
}

// IncPaymentDuplicate increments the duplicate-notification counter.
func (m *LedgerMetrics) IncPaymentDuplicate() {
	if m == nil || m.duplicates == nil {
		return
	}
	m.duplicates.Inc()
}

// IncReferralBonus increments the referral bonus counter.
func (m *LedgerMetrics) IncReferralBonus() {
	if m == nil || m.referralBonuses == nil {
		return
	}
	m.referralBonuses.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
