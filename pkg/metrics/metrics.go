package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CoreMetrics counts matching and ledger activity.
type CoreMetrics struct {
	matchAttempts  *prometheus.CounterVec
	ledgerOps      *prometheus.CounterVec
	notifyFailures prometheus.Counter
}

// NewCoreMetrics registers the core counters on the provided registerer.
func NewCoreMetrics(reg prometheus.Registerer) *CoreMetrics {
	if reg == nil {
		return &CoreMetrics{}
	}
	matchAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matching_attempts_total",
		Help: "Pickup auto-match attempts by outcome (assigned/unassigned).",
	}, []string{"outcome"})
	ledgerOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operations_total",
		Help: "Bulk ledger mutations by operation and outcome.",
	}, []string{"operation", "outcome"})
	notifyFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_failures_total",
		Help: "Best-effort notification sends that failed and were swallowed.",
	})
	reg.MustRegister(matchAttempts, ledgerOps, notifyFailures)
	return &CoreMetrics{
		matchAttempts:  matchAttempts,
		ledgerOps:      ledgerOps,
		notifyFailures: notifyFailures,
	}
}

// ObserveMatch records one auto-match attempt.
func (m *CoreMetrics) ObserveMatch(assigned bool) {
	if m == nil || m.matchAttempts == nil {
		return
	}
	outcome := "unassigned"
	if assigned {
		outcome = "assigned"
	}
	m.matchAttempts.WithLabelValues(outcome).Inc()
}

// ObserveLedgerOp records one ledger mutation attempt.
func (m *CoreMetrics) ObserveLedgerOp(operation string, err error) {
	if m == nil || m.ledgerOps == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if operation == "" {
		operation = "unknown"
	}
	m.ledgerOps.WithLabelValues(operation, outcome).Inc()
}

// IncNotifyFailure records one swallowed notification failure.
func (m *CoreMetrics) IncNotifyFailure() {
	if m == nil || m.notifyFailures == nil {
		return
	}
	m.notifyFailures.Inc()
}
