package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		notificationsTotal,
		campaignRecipientsTotal,
	)
}

var (
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Transactional notifications by channel (email/sms) and outcome.",
		},
		[]string{"channel", "outcome"},
	)

	campaignRecipientsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_recipients_total",
			Help: "Campaign recipients processed by outcome (sent/failed).",
		},
		[]string{"outcome"},
	)
)

func IncNotification(channel, outcome string) {
	notificationsTotal.WithLabelValues(norm(channel), norm(outcome)).Inc()
}

func IncCampaignRecipient(outcome string) {
	campaignRecipientsTotal.WithLabelValues(norm(outcome)).Inc()
}
