package model

import (
	"strings"
	"time"

	"telegram-vpn-orders/internal/domain"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"   // plan selected, awaiting payment proof
	OrderStatusPaid      OrderStatus = "paid"      // proof forwarded to the admin
	OrderStatusCompleted OrderStatus = "completed" // fulfilled by the admin
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ActiveOrderStatuses are the statuses an order can have while it is "the active order".
var ActiveOrderStatuses = []OrderStatus{OrderStatusPending, OrderStatusPaid}

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCompleted, OrderStatusCancelled:
		return st, nil
	}
	return "", domain.ErrInvalidArgument
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransition encodes the forward-only state machine:
// pending -> paid -> completed, and pending|paid -> cancelled.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return to == OrderStatusPaid || to == OrderStatusCancelled
	case OrderStatusPaid:
		return to == OrderStatusCompleted || to == OrderStatusCancelled
	}
	return false
}

// Order links a chat user to the plan they selected.
type Order struct {
	ID        int64
	UserID    string // ChatUser.TelegramID
	PlanID    int64
	Status    OrderStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Newer reports whether o sorts before other in "most recent first" order:
// later creation time wins, higher id breaks ties.
func (o *Order) Newer(other *Order) bool {
	if other == nil {
		return true
	}
	if !o.CreatedAt.Equal(other.CreatedAt) {
		return o.CreatedAt.After(other.CreatedAt)
	}
	return o.ID > other.ID
}
