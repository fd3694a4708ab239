package services

import "github.com/prometheus/client_golang/prometheus"

var (
	fanoutFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_fanout_failures_total",
			Help: "Message sends that failed part-way, by failing step.",
		},
		[]string{"step"},
	)
	messagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "messages_sent_total",
			Help: "Messages whose fan-out completed.",
		},
	)
	conversationResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_resolutions_total",
			Help: "Conversation resolutions by outcome.",
		},
		[]string{"outcome"},
	)
)

// Resolution outcomes.
const (
	resolvedPair    = "pair"
	resolvedLegacy  = "legacy"
	resolvedCreated = "created"
	resolvedLost    = "lost_claim"
)

func init() {
	prometheus.MustRegister(fanoutFailures, messagesSent, conversationResolutions)
}
