package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		botConnected,
		healthChecksTotal,
	)
}

var (
	botConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_connected",
			Help: "1 when the last platform probe succeeded, 0 otherwise.",
		},
	)

	healthChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_checks_total",
			Help: "Connectivity probes by result.",
		},
		[]string{"result"}, // 'ok', 'fail'
	)
)

func ObserveHealthCheck(ok bool) {
	if ok {
		botConnected.Set(1)
		healthChecksTotal.WithLabelValues("ok").Inc()
		return
	}
	botConnected.Set(0)
	healthChecksTotal.WithLabelValues("fail").Inc()
}
