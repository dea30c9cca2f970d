package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		usersRegisteredTotal,
		telegramCommandsReceivedTotal,
		telegramRateLimitTriggeredTotal,
		dispatchLatencySeconds,
		dispatchFailuresTotal,
	)
}

var (
	usersRegisteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "users_registered_total",
			Help: "Total number of new users registered.",
		},
	)

	telegramCommandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_commands_received_total",
			Help: "Counts incoming messages and commands from users.",
		},
		[]string{"command"},
	)

	telegramRateLimitTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_rate_limit_triggered_total",
			Help: "Total number of times users have been rate-limited.",
		},
	)

	dispatchLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_latency_seconds",
			Help:    "Time spent handling one inbound event, by event kind.",
			Buckets: []float64{0.005, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"kind"},
	)

	dispatchFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_failures_total",
			Help: "Events whose handling failed or panicked and were answered with the generic apology.",
		},
	)
)

func IncUsersRegistered() {
	usersRegisteredTotal.Inc()
}

// IncTelegramCommand counts a received command. Commands the bot does not serve share the
// "unknown" label so user input cannot create new series.
func IncTelegramCommand(command string, known bool) {
	if !known {
		command = "unknown"
	}
	telegramCommandsReceivedTotal.WithLabelValues(norm(command)).Inc()
}

func IncRateLimitTriggered() {
	telegramRateLimitTriggeredTotal.Inc()
}

func ObserveDispatch(kind string, seconds float64) {
	dispatchLatencySeconds.WithLabelValues(norm(kind)).Observe(seconds)
}

func IncDispatchFailure() {
	dispatchFailuresTotal.Inc()
}
