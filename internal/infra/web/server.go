package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"telegram-vpn-orders/internal/config"
	"telegram-vpn-orders/internal/infra/health"
	"telegram-vpn-orders/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// BotControl starts and stops the bot process.
type BotControl interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
}

// HealthChecker is the connection health supervisor as seen by the API.
type HealthChecker interface {
	Check(ctx context.Context) health.Snapshot
	Snapshot() health.Snapshot
}

type Deps struct {
	Bot    BotControl
	Health HealthChecker
	Plans  usecase.PlanUseCase
	Admins usecase.AdminUseCase
	Logs   usecase.LogUseCase
	Users  usecase.UserUseCase
	Orders usecase.OrderUseCase
}

// Server is the admin dashboard API.
type Server struct {
	Deps
	cfg       config.AdminConfig
	apiKey    string
	auth      *AuthManager
	validator *Validator
	log       *zerolog.Logger
	// base outlives requests; the bot started from /bot/start runs under it.
	base context.Context
	now  func() time.Time

	srv *http.Server
}

func NewServer(base context.Context, cfg config.AdminConfig, deps Deps, secureCookie bool, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "admin_api").Logger()
	secret := cfg.JWTSecret
	if secret == "" {
		secret = cfg.APIKey
	}
	return &Server{
		Deps:      deps,
		cfg:       cfg,
		apiKey:    cfg.APIKey,
		auth:      NewAuthManager(secret, secureCookie, cfg.SessionTTL),
		validator: NewValidator(),
		log:       &l,
		base:      base,
		now:       time.Now,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(Timeout(30 * time.Second))
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)

			r.Get("/health", s.handleHealth)
			r.Get("/stats", s.handleStats)

			r.Get("/bot/status", s.handleBotStatus)
			r.Post("/bot/start", s.handleBotStart)
			r.Post("/bot/stop", s.handleBotStop)

			r.Get("/plans", s.handlePlansList)
			r.Post("/plans", s.handlePlanCreate)
			r.Patch("/plans/{id}", s.handlePlanSetActive)

			r.Get("/config", s.handleConfigGet)
			r.Put("/config", s.handleConfigUpdate)

			r.Get("/logs", s.handleLogsList)
			r.Delete("/logs", s.handleLogsClear)
		})
	})
	return r
}

// ListenAndServe blocks until the server stops. http.ErrServerClosed is not an error.
func (s *Server) ListenAndServe() error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", s.cfg.Port).Msg("admin API listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
