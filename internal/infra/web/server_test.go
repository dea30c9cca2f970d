//go:build !integration

package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"telegram-vpn-orders/internal/config"
	"telegram-vpn-orders/internal/domain/model"
	"telegram-vpn-orders/internal/infra/db/memory"
	"telegram-vpn-orders/internal/infra/health"
	"telegram-vpn-orders/internal/usecase"

	"github.com/rs/zerolog"
)

const testAPIKey = "test-admin-key"

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type fakeBot struct {
	mu      sync.Mutex
	running bool
	ctx     context.Context
}

func (b *fakeBot) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running, b.ctx = true, ctx
	return nil
}

func (b *fakeBot) Stop() {
	b.mu.Lock()
	b.running = false
	b.mu.Unlock()
}

func (b *fakeBot) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

type fakeHealth struct{ connected bool }

func (h *fakeHealth) Check(context.Context) health.Snapshot { return h.Snapshot() }
func (h *fakeHealth) Snapshot() health.Snapshot {
	return health.Snapshot{Connected: h.connected, Timestamp: time.Now()}
}

type fixture struct {
	srv     *Server
	handler http.Handler
	bot     *fakeBot
	health  *fakeHealth
	admins  usecase.AdminUseCase
	logs    *memory.LogRepo
	changes []model.AdminConfig
}

func newFixture(t *testing.T, apiKey string) *fixture {
	t.Helper()
	logger := newTestLogger()
	planRepo := memory.NewPlanRepo()
	logRepo := memory.NewLogRepo(100)
	admins := usecase.NewAdminUseCase(memory.NewConfigRepo(), "1000", false, logger)
	if _, err := admins.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	f := &fixture{bot: &fakeBot{}, health: &fakeHealth{connected: true}, admins: admins, logs: logRepo}
	admins.OnChange(func(c model.AdminConfig) { f.changes = append(f.changes, c) })

	deps := Deps{
		Bot:    f.bot,
		Health: f.health,
		Plans:  usecase.NewPlanUseCase(planRepo, logger),
		Admins: admins,
		Logs:   usecase.NewLogUseCase(logRepo, logger),
		Users:  usecase.NewUserUseCase(memory.NewUserRepo(), logger),
		Orders: usecase.NewOrderUseCase(memory.NewOrderRepo(), planRepo, admins, logger),
	}
	cfg := config.AdminConfig{APIKey: apiKey, JWTSecret: "test-admin-jwt-secret", SessionTTL: time.Minute}
	f.srv = NewServer(context.Background(), cfg, deps, false, logger)
	f.handler = f.srv.Routes()
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, auth func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if auth != nil {
		auth(req)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func bearer(tok string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

var withKey = bearer(testAPIKey)

func TestAuth(t *testing.T) {
	f := newFixture(t, testAPIKey)

	t.Run("no credentials -> 401", func(t *testing.T) {
		if rec := f.do(t, http.MethodGet, "/api/stats", "", nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("want 401, got %d", rec.Code)
		}
	})

	t.Run("wrong scheme -> 401", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/stats", "", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") })
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("want 401, got %d", rec.Code)
		}
	})

	t.Run("bearer but invalid jwt -> 401", func(t *testing.T) {
		if rec := f.do(t, http.MethodGet, "/api/stats", "", bearer("not.a.jwt")); rec.Code != http.StatusUnauthorized {
			t.Errorf("want 401, got %d", rec.Code)
		}
	})

	t.Run("api key as bearer -> 200", func(t *testing.T) {
		if rec := f.do(t, http.MethodGet, "/api/stats", "", withKey); rec.Code != http.StatusOK {
			t.Errorf("want 200, got %d", rec.Code)
		}
	})

	t.Run("login with wrong key -> 401", func(t *testing.T) {
		if rec := f.do(t, http.MethodPost, "/api/login", `{"api_key":"nope"}`, nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("want 401, got %d", rec.Code)
		}
	})

	t.Run("login -> cookie works on protected routes, logout clears it", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/login", `{"api_key":"`+testAPIKey+`"}`, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("want 204, got %d body=%s", rec.Code, rec.Body.String())
		}
		var session *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == sessionCookie {
				session = c
			}
		}
		if session == nil || session.Value == "" {
			t.Fatal("session cookie not set")
		}

		rec = f.do(t, http.MethodGet, "/api/stats", "", func(r *http.Request) { r.AddCookie(session) })
		if rec.Code != http.StatusOK {
			t.Errorf("want 200 with cookie, got %d", rec.Code)
		}
		rec = f.do(t, http.MethodGet, "/api/stats", "", bearer(session.Value))
		if rec.Code != http.StatusOK {
			t.Errorf("want 200 with bearer jwt, got %d", rec.Code)
		}

		rec = f.do(t, http.MethodPost, "/api/logout", "", nil)
		if rec.Code != http.StatusNoContent {
			t.Errorf("want 204, got %d", rec.Code)
		}
		if cs := rec.Result().Cookies(); len(cs) != 1 || cs[0].MaxAge >= 0 {
			t.Errorf("expected an expiring cookie, got %+v", cs)
		}
	})

	t.Run("expired session -> 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		tok, _, err := f.srv.auth.Mint(rec, time.Now().Add(-time.Hour))
		if err != nil {
			t.Fatalf("mint: %v", err)
		}
		if rec := f.do(t, http.MethodGet, "/api/stats", "", bearer(tok)); rec.Code != http.StatusUnauthorized {
			t.Errorf("want 401, got %d", rec.Code)
		}
	})

	t.Run("no api key configured -> 403", func(t *testing.T) {
		closed := newFixture(t, "")
		if rec := closed.do(t, http.MethodGet, "/api/stats", "", bearer("anything")); rec.Code != http.StatusForbidden {
			t.Errorf("want 403, got %d", rec.Code)
		}
	})

	t.Run("metrics are public", func(t *testing.T) {
		if rec := f.do(t, http.MethodGet, "/metrics", "", nil); rec.Code != http.StatusOK {
			t.Errorf("want 200, got %d", rec.Code)
		}
	})
}

func TestPlans(t *testing.T) {
	f := newFixture(t, testAPIKey)

	t.Run("should reject an invalid plan with field errors", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/plans", `{"name":"","duration_days":0,"category":"gold"}`, withKey)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("want 422, got %d", rec.Code)
		}
		var body ValidationError
		_ = json.NewDecoder(rec.Body).Decode(&body)
		for _, field := range []string{"name", "duration_days", "category"} {
			if _, ok := body.Errors[field]; !ok {
				t.Errorf("missing error for %s in %v", field, body.Errors)
			}
		}
	})

	t.Run("should reject unknown fields", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/plans", `{"name":"x","duration_days":30,"bogus":1}`, withKey)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("want 400, got %d", rec.Code)
		}
	})

	t.Run("should create, list and deactivate a plan", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/plans", `{"name":"Basic Monthly","duration_days":30,"price_cents":4200,"traffic_gb":100}`, withKey)
		if rec.Code != http.StatusCreated {
			t.Fatalf("want 201, got %d body=%s", rec.Code, rec.Body.String())
		}
		var created planDTO
		_ = json.NewDecoder(rec.Body).Decode(&created)
		if created.ID == 0 || !created.Active || created.Category != "basic" || *created.TrafficGB != 100 {
			t.Errorf("unexpected plan %+v", created)
		}

		rec = f.do(t, http.MethodPatch, "/api/plans/1", `{"active":false}`, withKey)
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", rec.Code)
		}

		rec = f.do(t, http.MethodGet, "/api/plans", "", withKey)
		var list struct {
			Items []planDTO `json:"items"`
		}
		_ = json.NewDecoder(rec.Body).Decode(&list)
		if len(list.Items) != 1 || list.Items[0].Active {
			t.Errorf("expected one inactive plan, got %+v", list.Items)
		}
	})

	t.Run("should 404 an unknown plan and 400 a bad id", func(t *testing.T) {
		if rec := f.do(t, http.MethodPatch, "/api/plans/99", `{"active":true}`, withKey); rec.Code != http.StatusNotFound {
			t.Errorf("want 404, got %d", rec.Code)
		}
		if rec := f.do(t, http.MethodPatch, "/api/plans/abc", `{"active":true}`, withKey); rec.Code != http.StatusBadRequest {
			t.Errorf("want 400, got %d", rec.Code)
		}
		if rec := f.do(t, http.MethodPatch, "/api/plans/1", `{}`, withKey); rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("want 422 without active, got %d", rec.Code)
		}
	})
}

func TestConfig(t *testing.T) {
	t.Run("should update config and notify listeners", func(t *testing.T) {
		f := newFixture(t, testAPIKey)
		rec := f.do(t, http.MethodPut, "/api/config", `{"log_level":"debug","health_check_interval":15,"detailed_logging":false}`, withKey)
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d body=%s", rec.Code, rec.Body.String())
		}
		var got configDTO
		_ = json.NewDecoder(rec.Body).Decode(&got)
		if got.AdminID != "1000" || got.LogLevel != "debug" || got.HealthCheckInterval != 15 || got.DetailedLogging {
			t.Errorf("unexpected config %+v", got)
		}
		if len(f.changes) == 0 || f.changes[len(f.changes)-1].HealthCheckInterval != 15 {
			t.Errorf("listeners not notified: %+v", f.changes)
		}
	})

	t.Run("should keep the admin id when an empty one is sent", func(t *testing.T) {
		f := newFixture(t, testAPIKey)
		rec := f.do(t, http.MethodPut, "/api/config", `{"admin_id":""}`, withKey)
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", rec.Code)
		}
		rec = f.do(t, http.MethodGet, "/api/config", "", withKey)
		var got configDTO
		_ = json.NewDecoder(rec.Body).Decode(&got)
		if got.AdminID != "1000" {
			t.Errorf("admin id cleared: %+v", got)
		}
	})

	t.Run("should validate values", func(t *testing.T) {
		f := newFixture(t, testAPIKey)
		for _, body := range []string{`{"log_level":"loud"}`, `{"health_check_interval":0}`, `{"admin_id":"123456789012345678901234567890123"}`} {
			if rec := f.do(t, http.MethodPut, "/api/config", body, withKey); rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("%s: want 422, got %d", body, rec.Code)
			}
		}
	})
}

func TestBotAndHealth(t *testing.T) {
	f := newFixture(t, testAPIKey)

	t.Run("should start the bot under the server context", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/bot/start", "", withKey)
		var st botStatus
		_ = json.NewDecoder(rec.Body).Decode(&st)
		if rec.Code != http.StatusOK || !st.Running {
			t.Fatalf("unexpected %d %+v", rec.Code, st)
		}
		if f.bot.ctx != context.Background() {
			t.Error("bot must not run under the request context")
		}

		rec = f.do(t, http.MethodPost, "/api/bot/stop", "", withKey)
		_ = json.NewDecoder(rec.Body).Decode(&st)
		if st.Running {
			t.Error("expected stopped")
		}
	})

	t.Run("should report 503 when the transport is down", func(t *testing.T) {
		f.health.connected = false
		if rec := f.do(t, http.MethodGet, "/api/health", "", withKey); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("want 503, got %d", rec.Code)
		}
		f.health.connected = true
		if rec := f.do(t, http.MethodGet, "/api/health", "", withKey); rec.Code != http.StatusOK {
			t.Errorf("want 200, got %d", rec.Code)
		}
	})
}

func TestLogsAndStats(t *testing.T) {
	f := newFixture(t, testAPIKey)
	ctx := context.Background()
	_ = f.logs.Append(ctx, &model.LogEntry{Level: "info", Message: "a", Timestamp: time.Now()})
	_ = f.logs.Append(ctx, &model.LogEntry{Level: "error", Message: "b", UserID: "2000", Timestamp: time.Now()})

	t.Run("should filter logs by level", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/logs?level=error&limit=10", "", withKey)
		var body struct {
			Items []logDTO `json:"items"`
		}
		_ = json.NewDecoder(rec.Body).Decode(&body)
		if rec.Code != http.StatusOK || len(body.Items) != 1 || body.Items[0].Message != "b" {
			t.Errorf("unexpected %d %+v", rec.Code, body.Items)
		}
	})

	t.Run("should reject bad query values", func(t *testing.T) {
		for _, q := range []string{"?level=loud", "?limit=0", "?limit=x"} {
			if rec := f.do(t, http.MethodGet, "/api/logs"+q, "", withKey); rec.Code != http.StatusBadRequest {
				t.Errorf("%s: want 400, got %d", q, rec.Code)
			}
		}
	})

	t.Run("should clear logs", func(t *testing.T) {
		if rec := f.do(t, http.MethodDelete, "/api/logs", "", withKey); rec.Code != http.StatusNoContent {
			t.Fatalf("want 204, got %d", rec.Code)
		}
		entries, _ := f.logs.List(ctx, "", 0)
		if len(entries) != 0 {
			t.Errorf("expected empty log, got %d", len(entries))
		}
	})

	t.Run("should return stats", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/stats", "", withKey)
		var body statsResponse
		_ = json.NewDecoder(rec.Body).Decode(&body)
		if rec.Code != http.StatusOK || body.Users != 0 {
			t.Errorf("unexpected %d %+v", rec.Code, body)
		}
	})
}

