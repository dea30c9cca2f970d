package usecase

import (
	"context"

	"telegram-vpn-orders/internal/domain/model"
	"telegram-vpn-orders/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

type PlanInput struct {
	Name         string
	Description  string
	DurationDays int
	PriceCents   int64
	TrafficGB    *int
	Devices      *int
	Category     string
}

// PlanUseCase manages VPN plans. Plans are never deleted, only deactivated.
type PlanUseCase interface {
	Create(ctx context.Context, in PlanInput) (*model.Plan, error)
	Get(ctx context.Context, id int64) (*model.Plan, error)
	ListActive(ctx context.Context) ([]*model.Plan, error)
	ListAll(ctx context.Context) ([]*model.Plan, error)
	SetActive(ctx context.Context, id int64, active bool) (*model.Plan, error)
	// SeedDefaults creates the default catalogue when no plan exists yet.
	SeedDefaults(ctx context.Context) (int, error)
}

type planUC struct {
	repo repository.PlanRepository
	log  *zerolog.Logger
}

func NewPlanUseCase(repo repository.PlanRepository, logger *zerolog.Logger) *planUC {
	return &planUC{repo: repo, log: logger}
}

func (uc *planUC) Create(ctx context.Context, in PlanInput) (*model.Plan, error) {
	plan, err := model.NewPlan(in.Name, in.Description, in.DurationDays, in.PriceCents, in.Category)
	if err != nil {
		return nil, err
	}
	plan.TrafficGB = in.TrafficGB
	plan.Devices = in.Devices
	if err := uc.repo.Save(ctx, plan); err != nil {
		return nil, err
	}
	uc.log.Info().Int64("plan_id", plan.ID).Str("name", plan.Name).Msg("plan created")
	return plan, nil
}

func (uc *planUC) Get(ctx context.Context, id int64) (*model.Plan, error) {
	return uc.repo.FindByID(ctx, id)
}

func (uc *planUC) ListActive(ctx context.Context) ([]*model.Plan, error) {
	return uc.repo.ListActive(ctx)
}

func (uc *planUC) ListAll(ctx context.Context) ([]*model.Plan, error) {
	return uc.repo.ListAll(ctx)
}

func (uc *planUC) SetActive(ctx context.Context, id int64, active bool) (*model.Plan, error) {
	p, err := uc.repo.SetActive(ctx, id, active)
	if err != nil {
		return nil, err
	}
	uc.log.Info().Int64("plan_id", id).Bool("active", active).Msg("plan availability changed")
	return p, nil
}

func (uc *planUC) SeedDefaults(ctx context.Context) (int, error) {
	existing, err := uc.repo.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		uc.log.Info().Int("count", len(existing)).Msg("plans already exist")
		return 0, nil
	}

	for _, in := range defaultPlans() {
		if _, err := uc.Create(ctx, in); err != nil {
			return 0, err
		}
	}
	n := len(defaultPlans())
	uc.log.Info().Int("count", n).Msg("default plans created")
	return n, nil
}

func defaultPlans() []PlanInput {
	basic := func(name, desc string, days int, price int64) PlanInput {
		return PlanInput{Name: name, Description: desc, DurationDays: days, PriceCents: price,
			TrafficGB: intPtr(100), Devices: intPtr(2), Category: "basic"}
	}
	premium := func(name, desc string, days int, price int64) PlanInput {
		return PlanInput{Name: name, Description: desc, DurationDays: days, PriceCents: price,
			TrafficGB: intPtr(500), Devices: intPtr(5), Category: "premium"}
	}
	return []PlanInput{
		basic("Basic Monthly", "Standard VPN service for 1 month", 30, 4200),
		premium("Premium Monthly", "Enhanced VPN service for 1 month", 30, 6000),
		basic("Basic Quarterly", "Standard VPN service for 3 months", 90, 10500),
		premium("Premium Quarterly", "Enhanced VPN service for 3 months", 90, 15000),
		basic("Basic Annual", "Standard VPN service for 1 year", 365, 30000),
		premium("Premium Annual", "Enhanced VPN service for 1 year", 365, 48000),
	}
}

func intPtr(i int) *int { return &i }
