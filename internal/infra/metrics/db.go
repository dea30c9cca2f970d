package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolStats) }

// dbPoolStats is refreshed after every health check while Postgres is the order store.
var dbPoolStats = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "db_pool_stats",
		Help: "Connections in the order store pool, by state.",
	},
	[]string{"state"}, // total | idle | in_use
)

// SetDBPoolStats publishes a pgxpool.Stat snapshot.
func SetDBPoolStats(total, idle, inUse int32) {
	dbPoolStats.WithLabelValues("total").Set(float64(total))
	dbPoolStats.WithLabelValues("idle").Set(float64(idle))
	dbPoolStats.WithLabelValues("in_use").Set(float64(inUse))
}
