package metrics

import (
	"telegram-vpn-orders/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		orderTransitionsTotal,
		ordersTotal,
	)
}

var (
	orderTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order status changes, labeled by the status entered.",
		},
		[]string{"status"}, // 'pending' counts creations
	)

	ordersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orders_total",
			Help: "Current number of orders by status.",
		},
		[]string{"status"},
	)
)

func IncOrderTransition(to model.OrderStatus) {
	orderTransitionsTotal.WithLabelValues(string(to)).Inc()
}

func SetOrdersTotal(counts map[model.OrderStatus]int) {
	statuses := []model.OrderStatus{
		model.OrderStatusPending,
		model.OrderStatusPaid,
		model.OrderStatusCompleted,
		model.OrderStatusCancelled,
	}
	for _, status := range statuses {
		ordersTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}
