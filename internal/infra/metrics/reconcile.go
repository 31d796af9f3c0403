package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		reconcileTotal,
		referralSettlementsTotal,
	)
}

var (
	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_total",
			Help: "Reconciliation runs by trigger (verify/webhook/poller) and outcome.",
		},
		[]string{"trigger", "outcome"},
	)

	referralSettlementsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "referral_settlements_total",
			Help: "Referral commissions credited (exactly once per successful payment).",
		},
	)
)

func IncReconcile(trigger, outcome string) {
	reconcileTotal.WithLabelValues(norm(trigger), norm(outcome)).Inc()
}

func IncReferralSettlement() {
	referralSettlementsTotal.Inc()
}
