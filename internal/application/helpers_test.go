//go:build !integration

package application

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"telegram-vpn-orders/internal/domain/model"
	"telegram-vpn-orders/internal/domain/ports/adapter"
	"telegram-vpn-orders/internal/infra/db/memory"
	"telegram-vpn-orders/internal/infra/i18n"
	"telegram-vpn-orders/internal/infra/ratelimit"
	"telegram-vpn-orders/internal/usecase"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type sent struct {
	kind string // text | buttons | photo | callback
	to   string
	text string
	rows [][]adapter.InlineButton
	file string
}

// fakeMessenger records every outbound call.
type fakeMessenger struct {
	mu       sync.Mutex
	out      []sent
	photoErr error
	textErr  func(to string) error
}

func (m *fakeMessenger) SendText(ctx context.Context, to, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.textErr != nil {
		if err := m.textErr(to); err != nil {
			return err
		}
	}
	m.out = append(m.out, sent{kind: "text", to: to, text: text})
	return nil
}

func (m *fakeMessenger) SendButtons(ctx context.Context, to, text string, rows [][]adapter.InlineButton) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.out = append(m.out, sent{kind: "buttons", to: to, text: text, rows: rows})
	return nil
}

func (m *fakeMessenger) SendPhoto(ctx context.Context, to, fileRef, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.photoErr != nil {
		return m.photoErr
	}
	m.out = append(m.out, sent{kind: "photo", to: to, text: caption, file: fileRef})
	return nil
}

func (m *fakeMessenger) AnswerCallback(ctx context.Context, callbackID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.out = append(m.out, sent{kind: "callback", to: callbackID, text: text})
	return nil
}

func (m *fakeMessenger) sentTo(to, kind string) []sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []sent
	for _, s := range m.out {
		if s.to == to && s.kind == kind {
			res = append(res, s)
		}
	}
	return res
}

func (m *fakeMessenger) last(t *testing.T) sent {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.out) == 0 {
		t.Fatal("nothing was sent")
	}
	return m.out[len(m.out)-1]
}

func (m *fakeMessenger) reset() {
	m.mu.Lock()
	m.out = nil
	m.mu.Unlock()
}

const (
	adminID    = "1000"
	customerID = "2000"
)

// testBot wires the real use cases over in-memory storage behind the default chain.
type testBot struct {
	msg    *fakeMessenger
	tr     *i18n.Translator
	orders *memory.OrderRepo
	plans  usecase.PlanUseCase
	users  usecase.UserUseCase
	admins usecase.AdminUseCase
	order  usecase.OrderUseCase
	chain  *Chain
}

func newTestBot(t *testing.T, seedAdmin string, limiter Limiter) *testBot {
	t.Helper()
	logger := newTestLogger()
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		t.Fatalf("translator: %v", err)
	}
	if limiter == nil {
		limiter = ratelimit.New(ratelimit.DefaultWindow, ratelimit.DefaultLimit)
	}

	orderRepo := memory.NewOrderRepo()
	planRepo := memory.NewPlanRepo()
	plans := usecase.NewPlanUseCase(planRepo, logger)
	users := usecase.NewUserUseCase(memory.NewUserRepo(), logger)
	admins := usecase.NewAdminUseCase(memory.NewConfigRepo(), seedAdmin, false, logger)
	if _, err := admins.Init(context.Background()); err != nil {
		t.Fatalf("admin init: %v", err)
	}
	orders := usecase.NewOrderUseCase(orderRepo, planRepo, admins, logger)

	msg := &fakeMessenger{}
	router := NewRouter(orders, plans, admins, msg, tr, logger)
	return &testBot{
		msg:    msg,
		tr:     tr,
		orders: orderRepo,
		plans:  plans,
		users:  users,
		admins: admins,
		order:  orders,
		chain:  NewChain(router, DefaultStages(msg, tr, limiter, users, router.Known, logger)...),
	}
}

func (b *testBot) dispatch(t *testing.T, ev *Event) {
	t.Helper()
	if ev.ChatID == "" {
		ev.ChatID = ev.SenderID
	}
	if err := b.chain.Dispatch(context.Background(), ev); err != nil {
		t.Fatalf("dispatch %s: %v", ev.Label(), err)
	}
}

func command(sender, cmd, args string) *Event {
	return &Event{Kind: EventCommand, SenderID: sender, Command: cmd, Args: args}
}

func callback(sender, data string) *Event {
	return &Event{Kind: EventCallback, SenderID: sender, CallbackID: "cb-" + sender, CallbackData: data}
}

func photo(sender string) *Event {
	return &Event{Kind: EventPhoto, SenderID: sender, PhotoRef: "file-xyz"}
}

func (b *testBot) seedPlan(t *testing.T, name string, active bool) *model.Plan {
	t.Helper()
	p, err := b.plans.Create(context.Background(), usecase.PlanInput{
		Name: name, Description: name + " plan", DurationDays: 30, PriceCents: 4200, Category: "basic",
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if !active {
		if p, err = b.plans.SetActive(context.Background(), p.ID, false); err != nil {
			t.Fatalf("deactivate plan: %v", err)
		}
	}
	return p
}

func contains(s, sub string) bool { return strings.Contains(s, sub) }
