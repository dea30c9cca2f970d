package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(cacheRequestsTotal) }

// cacheRequestsTotal counts lookups in the Redis plan cache.
var cacheRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cache_requests_total",
		Help: "Plan cache lookups by cache and result.",
	},
	[]string{"cache", "result"}, // cache: plan | plan_list; result: hit | miss | error
)

func IncCacheRequest(cacheName, result string) {
	cacheRequestsTotal.WithLabelValues(norm(cacheName), norm(result)).Inc()
}
