package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"telegram-vpn-orders/internal/domain"
	"telegram-vpn-orders/internal/domain/model"
	"telegram-vpn-orders/internal/infra/logging"
	"telegram-vpn-orders/internal/usecase"

	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors to HTTP codes; anything unknown is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidPlan):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logging.With(r.Context(), s.log).Error().Err(err).Str("op", op).Msg("admin API request failed")
		writeError(w, code, op+" failed")
		return
	}
	writeError(w, code, err.Error())
}

// ---- auth ----

type loginRequest struct {
	APIKey string `json:"api_key" validate:"required"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}
	if s.apiKey == "" || subtle.ConstantTimeCompare([]byte(req.APIKey), []byte(s.apiKey)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if _, _, err := s.auth.Mint(w, s.now()); err != nil {
		s.fail(w, r, "login", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// ---- health / bot ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.Health.Check(r.Context())
	code := http.StatusOK
	if !snap.Connected {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, snap)
}

type botStatus struct {
	Running   bool `json:"running"`
	Connected bool `json:"connected"`
}

func (s *Server) botStatus() botStatus {
	return botStatus{Running: s.Bot.Running(), Connected: s.Health.Snapshot().Connected}
}

func (s *Server) handleBotStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.botStatus())
}

func (s *Server) handleBotStart(w http.ResponseWriter, r *http.Request) {
	if err := s.Bot.Start(s.base); err != nil {
		s.fail(w, r, "bot start", err)
		return
	}
	logging.With(r.Context(), s.log).Info().Msg("bot started from admin API")
	writeJSON(w, http.StatusOK, s.botStatus())
}

func (s *Server) handleBotStop(w http.ResponseWriter, r *http.Request) {
	s.Bot.Stop()
	logging.With(r.Context(), s.log).Info().Msg("bot stopped from admin API")
	writeJSON(w, http.StatusOK, s.botStatus())
}

// ---- stats ----

type statsResponse struct {
	Users  int                       `json:"users"`
	Orders map[model.OrderStatus]int `json:"orders"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	users, err := s.Users.Count(r.Context())
	if err != nil {
		s.fail(w, r, "stats", err)
		return
	}
	orders, err := s.Orders.CountByStatus(r.Context())
	if err != nil {
		s.fail(w, r, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Users: users, Orders: orders})
}

// ---- plans ----

type planDTO struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	DurationDays int       `json:"duration_days"`
	PriceCents   int64     `json:"price_cents"`
	TrafficGB    *int      `json:"traffic_gb,omitempty"`
	Devices      *int      `json:"devices,omitempty"`
	Category     string    `json:"category"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

func toPlanDTO(p *model.Plan) planDTO {
	return planDTO{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		DurationDays: p.DurationDays,
		PriceCents:   p.PriceCents,
		TrafficGB:    p.TrafficGB,
		Devices:      p.Devices,
		Category:     p.Category,
		Active:       p.Active,
		CreatedAt:    p.CreatedAt,
	}
}

func (s *Server) handlePlansList(w http.ResponseWriter, r *http.Request) {
	plans, err := s.Plans.ListAll(r.Context())
	if err != nil {
		s.fail(w, r, "list plans", err)
		return
	}
	items := make([]planDTO, 0, len(plans))
	for _, p := range plans {
		items = append(items, toPlanDTO(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

type planCreateRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	Description  string `json:"description" validate:"max=1000"`
	DurationDays int    `json:"duration_days" validate:"required,min=1,max=3650"`
	PriceCents   int64  `json:"price_cents" validate:"min=0"`
	TrafficGB    *int   `json:"traffic_gb" validate:"omitempty,min=0"`
	Devices      *int   `json:"devices" validate:"omitempty,min=1"`
	Category     string `json:"category" validate:"omitempty,oneof=basic premium"`
}

func (s *Server) handlePlanCreate(w http.ResponseWriter, r *http.Request) {
	var req planCreateRequest
	if !s.decode(w, r, &req) {
		return
	}
	plan, err := s.Plans.Create(r.Context(), usecase.PlanInput{
		Name:         req.Name,
		Description:  req.Description,
		DurationDays: req.DurationDays,
		PriceCents:   req.PriceCents,
		TrafficGB:    req.TrafficGB,
		Devices:      req.Devices,
		Category:     req.Category,
	})
	if err != nil {
		s.fail(w, r, "create plan", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanDTO(plan))
}

type planActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (s *Server) handlePlanSetActive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid plan id")
		return
	}
	var req planActiveRequest
	if !s.decode(w, r, &req) {
		return
	}
	plan, err := s.Plans.SetActive(r.Context(), id, *req.Active)
	if err != nil {
		s.fail(w, r, "update plan", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(plan))
}

// ---- config ----

type configDTO struct {
	AdminID             string     `json:"admin_id"`
	LogLevel            string     `json:"log_level"`
	HealthCheckInterval int        `json:"health_check_interval"`
	DetailedLogging     bool       `json:"detailed_logging"`
	LastStarted         *time.Time `json:"last_started,omitempty"`
}

func toConfigDTO(c *model.AdminConfig) configDTO {
	dto := configDTO{
		AdminID:             c.AdminID,
		LogLevel:            c.LogLevel,
		HealthCheckInterval: c.HealthCheckInterval,
		DetailedLogging:     c.DetailedLogging,
	}
	if !c.LastStarted.IsZero() {
		t := c.LastStarted
		dto.LastStarted = &t
	}
	return dto
}

func (s *Server) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.Admins.Config(r.Context())
	if err != nil {
		s.fail(w, r, "get config", err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigDTO(cfg))
}

type configUpdateRequest struct {
	AdminID             *string `json:"admin_id" validate:"omitempty,max=32"`
	LogLevel            *string `json:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
	HealthCheckInterval *int    `json:"health_check_interval" validate:"omitempty,min=1,max=1440"`
	DetailedLogging     *bool   `json:"detailed_logging"`
}

func (s *Server) handleConfigUpdate(w http.ResponseWriter, r *http.Request) {
	var req configUpdateRequest
	if !s.decode(w, r, &req) {
		return
	}
	cfg, err := s.Admins.UpdateConfig(r.Context(), model.ConfigPatch{
		AdminID:             req.AdminID,
		LogLevel:            req.LogLevel,
		HealthCheckInterval: req.HealthCheckInterval,
		DetailedLogging:     req.DetailedLogging,
	})
	if err != nil {
		s.fail(w, r, "update config", err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigDTO(cfg))
}

// ---- logs ----

type logDTO struct {
	ID        int64                  `json:"id"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	UserID    string                 `json:"user_id,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (s *Server) handleLogsList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	level := strings.ToLower(strings.TrimSpace(q.Get("level")))
	if level != "" && !logging.ValidLevel(level) {
		writeError(w, http.StatusBadRequest, "invalid level")
		return
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	entries, err := s.Logs.List(r.Context(), level, limit)
	if err != nil {
		s.fail(w, r, "list logs", err)
		return
	}
	items := make([]logDTO, 0, len(entries))
	for _, e := range entries {
		items = append(items, logDTO{
			ID: e.ID, Level: e.Level, Message: e.Message, UserID: e.UserID,
			Metadata: e.Metadata, Timestamp: e.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (s *Server) handleLogsClear(w http.ResponseWriter, r *http.Request) {
	if err := s.Logs.Clear(r.Context()); err != nil {
		s.fail(w, r, "clear logs", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
