package model

import (
	"strings"
	"time"

	"telegram-vpn-orders/internal/domain"
)

// Plan is a purchasable VPN offering. Prices are stored in cents.
// Only the Active flag changes after creation.
type Plan struct {
	ID           int64
	Name         string
	Description  string
	DurationDays int
	PriceCents   int64
	TrafficGB    *int
	Devices      *int
	Category     string
	Active       bool
	CreatedAt    time.Time
}

func NewPlan(name, description string, durationDays int, priceCents int64, category string) (*Plan, error) {
	name = strings.TrimSpace(name)
	if name == "" || durationDays <= 0 || priceCents < 0 {
		return nil, domain.ErrInvalidArgument
	}
	if category == "" {
		category = "basic"
	}
	return &Plan{
		Name:         name,
		Description:  strings.TrimSpace(description),
		DurationDays: durationDays,
		PriceCents:   priceCents,
		Category:     category,
		Active:       true,
		CreatedAt:    time.Now(),
	}, nil
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == 0 }

// Purchasable reports whether a new order may reference this plan.
func (p *Plan) Purchasable() bool { return p != nil && p.Active }
