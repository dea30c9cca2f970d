// Package memory holds mutex-guarded map implementations of the repository ports.
// It is the default store when no database URL is configured, and the fixture store in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"telegram-vpn-orders/internal/domain"
	"telegram-vpn-orders/internal/domain/model"
	"telegram-vpn-orders/internal/domain/ports/repository"
)

var (
	_ repository.UserRepository   = (*UserRepo)(nil)
	_ repository.PlanRepository   = (*PlanRepo)(nil)
	_ repository.OrderRepository  = (*OrderRepo)(nil)
	_ repository.ConfigRepository = (*ConfigRepo)(nil)
	_ repository.LogRepository    = (*LogRepo)(nil)
)

// ---- users ----

type UserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*model.ChatUser
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]*model.ChatUser)}
}

func (r *UserRepo) FindByTelegramID(ctx context.Context, telegramID string) (*model.ChatUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[telegramID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) Create(ctx context.Context, u *model.ChatUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.users[u.TelegramID]; ok {
		*u = *existing
		return nil
	}
	r.nextID++
	u.ID = r.nextID
	cp := *u
	r.users[u.TelegramID] = &cp
	return nil
}

func (r *UserRepo) Touch(ctx context.Context, telegramID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[telegramID]
	if !ok {
		return domain.ErrNotFound
	}
	u.LastActiveAt = time.Now()
	return nil
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}

// ---- plans ----

type PlanRepo struct {
	mu     sync.Mutex
	nextID int64
	plans  map[int64]*model.Plan
}

func NewPlanRepo() *PlanRepo {
	return &PlanRepo{plans: make(map[int64]*model.Plan)}
}

func (r *PlanRepo) Save(ctx context.Context, plan *model.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if plan.ID == 0 {
		r.nextID++
		plan.ID = r.nextID
	} else if _, ok := r.plans[plan.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *plan
	r.plans[plan.ID] = &cp
	return nil
}

func (r *PlanRepo) FindByID(ctx context.Context, id int64) (*model.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *PlanRepo) ListActive(ctx context.Context) ([]*model.Plan, error) {
	out := r.snapshot(func(p *model.Plan) bool { return p.Active })
	sort.Slice(out, func(i, j int) bool {
		if out[i].PriceCents != out[j].PriceCents {
			return out[i].PriceCents < out[j].PriceCents
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *PlanRepo) ListAll(ctx context.Context) ([]*model.Plan, error) {
	out := r.snapshot(func(*model.Plan) bool { return true })
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *PlanRepo) SetActive(ctx context.Context, id int64, active bool) (*model.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p.Active = active
	cp := *p
	return &cp, nil
}

func (r *PlanRepo) snapshot(keep func(*model.Plan) bool) []*model.Plan {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Plan, 0, len(r.plans))
	for _, p := range r.plans {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}

// ---- orders ----

type OrderRepo struct {
	mu     sync.Mutex
	nextID int64
	orders map[int64]*model.Order
	now    func() time.Time
}

func NewOrderRepo() *OrderRepo {
	return &OrderRepo{orders: make(map[int64]*model.Order), now: time.Now}
}

// WithClock replaces the creation-time source; tests use it to produce equal timestamps.
func (r *OrderRepo) WithClock(now func() time.Time) *OrderRepo {
	r.now = now
	return r
}

func (r *OrderRepo) Create(ctx context.Context, userID string, planID int64) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	now := r.now()
	o := &model.Order{
		ID:        r.nextID,
		UserID:    userID,
		PlanID:    planID,
		Status:    model.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.orders[o.ID] = o
	cp := *o
	return &cp, nil
}

func (r *OrderRepo) FindByID(ctx context.Context, id int64) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Newer(out[j]) })
	return out, nil
}

func (r *OrderRepo) FindLatestByUser(ctx context.Context, userID string, statuses ...model.OrderStatus) (*model.Order, error) {
	if len(statuses) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *model.Order
	for _, o := range r.orders {
		if o.UserID != userID || !hasStatus(statuses, o.Status) {
			continue
		}
		if o.Newer(best) {
			best = o
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (r *OrderRepo) UpdateStatusIf(ctx context.Context, id int64, from, to model.OrderStatus) (*model.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, false, domain.ErrNotFound
	}
	if o.Status != from {
		cp := *o
		return &cp, false, nil
	}
	o.Status = to
	o.UpdatedAt = r.now()
	cp := *o
	return &cp, true, nil
}

func (r *OrderRepo) CountByStatus(ctx context.Context) (map[model.OrderStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[model.OrderStatus]int)
	for _, o := range r.orders {
		out[o.Status]++
	}
	return out, nil
}

func hasStatus(set []model.OrderStatus, s model.OrderStatus) bool {
	for _, x := range set {
		if x == s {
			return true
		}
	}
	return false
}

// ---- admin config ----

type ConfigRepo struct {
	mu  sync.Mutex
	cfg *model.AdminConfig
}

func NewConfigRepo() *ConfigRepo { return &ConfigRepo{} }

func (r *ConfigRepo) Get(ctx context.Context) (*model.AdminConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg == nil {
		return nil, domain.ErrNotFound
	}
	cp := *r.cfg
	return &cp, nil
}

func (r *ConfigRepo) Save(ctx context.Context, patch model.ConfigPatch) (*model.AdminConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	base := model.DefaultAdminConfig()
	if r.cfg != nil {
		base = *r.cfg
	}
	next := patch.Apply(base)
	r.cfg = &next
	cp := next
	return &cp, nil
}

// ---- logs ----

const defaultLogListLimit = 100

type LogRepo struct {
	mu        sync.Mutex
	nextID    int64
	entries   []*model.LogEntry // oldest first
	retention int
}

func NewLogRepo(retention int) *LogRepo {
	return &LogRepo{retention: retention}
}

func (r *LogRepo) Append(ctx context.Context, e *model.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e.ID = r.nextID
	cp := *e
	r.entries = append(r.entries, &cp)
	if r.retention > 0 && len(r.entries) > r.retention {
		r.entries = append([]*model.LogEntry(nil), r.entries[len(r.entries)-r.retention:]...)
	}
	return nil
}

func (r *LogRepo) List(ctx context.Context, level string, limit int) ([]*model.LogEntry, error) {
	if limit <= 0 {
		limit = defaultLogListLimit
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.LogEntry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := r.entries[i]
		if level != "" && e.Level != level {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r *LogRepo) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	return nil
}
