package metrics

import "github.com/prometheus/client_golang/prometheus"

// LedgerMetrics counts check-in/check-out outcomes.
type LedgerMetrics struct {
	CheckIns   prometheus.Counter
	CheckOuts  prometheus.Counter
	Rejections *prometheus.CounterVec
}

// NewLedgerMetrics creates and registers ledger metrics on the given registry.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	m := &LedgerMetrics{
		CheckIns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "check_ins_total",
			Help:      "Total number of accepted check-ins.",
		}),
		CheckOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "check_outs_total",
			Help:      "Total number of accepted check-outs.",
		}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "access_rejections_total",
			Help:      "Ledger requests rejected by a business rule, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.CheckIns, m.CheckOuts, m.Rejections)
	return m
}

func (m *LedgerMetrics) RecordCheckIn() { m.CheckIns.Inc() }

func (m *LedgerMetrics) RecordCheckOut() { m.CheckOuts.Inc() }

func (m *LedgerMetrics) RecordRejection(reason string) {
	m.Rejections.WithLabelValues(reason).Inc()
}
