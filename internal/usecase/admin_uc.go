package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"telegram-vpn-orders/internal/domain"
	"telegram-vpn-orders/internal/domain/model"
	"telegram-vpn-orders/internal/domain/ports/repository"
	"telegram-vpn-orders/internal/infra/logging"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Compile-time check
var (
	_ AdminUseCase = (*adminUC)(nil)
	_ AdminChecker = (*adminUC)(nil)
)

// AdminUseCase owns the singleton AdminConfig: the admin identity and the runtime knobs
// (log level, health interval, detailed logging).
type AdminUseCase interface {
	// Init creates the config from the configured admin id on first start, or fills an empty
	// admin id of an existing config. Concurrent callers share one execution.
	Init(ctx context.Context) (*model.AdminConfig, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
	Config(ctx context.Context) (*model.AdminConfig, error)
	UpdateConfig(ctx context.Context, patch model.ConfigPatch) (*model.AdminConfig, error)
	MarkStarted(ctx context.Context) error
	// OnChange registers fn to run after every successful config write.
	OnChange(fn func(model.AdminConfig))
}

type adminUC struct {
	repo       repository.ConfigRepository
	seedID     string
	claimAdmin bool
	log        *zerolog.Logger

	sf      singleflight.Group
	claimMu sync.Mutex

	mu        sync.RWMutex
	listeners []func(model.AdminConfig)
}

// NewAdminUseCase takes the admin id from static configuration. With claimAdmin set and no
// admin id anywhere, the first identity checked by IsAdmin becomes the admin.
func NewAdminUseCase(repo repository.ConfigRepository, seedAdminID string, claimAdmin bool, logger *zerolog.Logger) *adminUC {
	l := logger.With().Str("component", "admin_uc").Logger()
	return &adminUC{repo: repo, seedID: seedAdminID, claimAdmin: claimAdmin, log: &l}
}

func (u *adminUC) Init(ctx context.Context) (*model.AdminConfig, error) {
	v, err, _ := u.sf.Do("init", func() (interface{}, error) {
		return u.init(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.AdminConfig), nil
}

func (u *adminUC) init(ctx context.Context) (*model.AdminConfig, error) {
	existing, err := u.repo.Get(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		cfg, err := u.save(ctx, model.ConfigPatch{AdminID: model.StringPtr(u.seedID)})
		if err != nil {
			return nil, err
		}
		u.log.Info().Str("admin_id", cfg.AdminID).Msg("admin config created")
		return cfg, nil
	case err != nil:
		return nil, err
	}

	if existing.AdminID == "" && u.seedID != "" {
		cfg, err := u.save(ctx, model.ConfigPatch{AdminID: model.StringPtr(u.seedID)})
		if err != nil {
			return nil, err
		}
		u.log.Info().Str("admin_id", cfg.AdminID).Msg("admin config updated with admin id")
		return cfg, nil
	}

	u.log.Info().Str("admin_id", existing.AdminID).Msg("admin config already exists")
	return existing, nil
}

func (u *adminUC) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	cfg, err := u.Config(ctx)
	if err != nil {
		return false, err
	}
	if cfg.AdminID != "" {
		return cfg.AdminID == userID, nil
	}
	if !u.claimAdmin {
		return false, nil
	}
	return u.claim(ctx, userID)
}

// claim makes userID the admin if, after re-reading under the lock, the slot is still empty.
func (u *adminUC) claim(ctx context.Context, userID string) (bool, error) {
	u.claimMu.Lock()
	defer u.claimMu.Unlock()

	cfg, err := u.repo.Get(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}
	if cfg != nil && cfg.AdminID != "" {
		return cfg.AdminID == userID, nil
	}

	saved, err := u.save(ctx, model.ConfigPatch{AdminID: model.StringPtr(userID)})
	if err != nil {
		return false, err
	}
	logging.With(ctx, u.log).Info().Str("admin_id", saved.AdminID).Msg("first user set as admin")
	return saved.AdminID == userID, nil
}

func (u *adminUC) Config(ctx context.Context) (*model.AdminConfig, error) {
	cfg, err := u.repo.Get(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return u.Init(ctx)
	}
	return cfg, err
}

func (u *adminUC) UpdateConfig(ctx context.Context, patch model.ConfigPatch) (*model.AdminConfig, error) {
	defer logging.TraceDuration(u.log, "AdminUC.UpdateConfig")()
	cfg, err := u.save(ctx, patch)
	if err != nil {
		return nil, err
	}
	u.log.Info().
		Str("log_level", cfg.LogLevel).
		Int("health_check_interval", cfg.HealthCheckInterval).
		Bool("detailed_logging", cfg.DetailedLogging).
		Msg("admin config updated")
	return cfg, nil
}

func (u *adminUC) MarkStarted(ctx context.Context) error {
	now := time.Now()
	_, err := u.repo.Save(ctx, model.ConfigPatch{LastStarted: &now})
	return err
}

func (u *adminUC) OnChange(fn func(model.AdminConfig)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.listeners = append(u.listeners, fn)
}

func (u *adminUC) save(ctx context.Context, patch model.ConfigPatch) (*model.AdminConfig, error) {
	cfg, err := u.repo.Save(ctx, patch)
	if err != nil {
		return nil, err
	}
	u.mu.RLock()
	listeners := append(([]func(model.AdminConfig))(nil), u.listeners...)
	u.mu.RUnlock()
	for _, fn := range listeners {
		fn(*cfg)
	}
	return cfg, nil
}
