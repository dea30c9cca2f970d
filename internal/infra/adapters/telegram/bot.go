package telegram

import (
	"context"
	"errors"
	"sync"

	"telegram-vpn-orders/internal/application"
	"telegram-vpn-orders/internal/config"
	"telegram-vpn-orders/internal/domain/ports/adapter"
	"telegram-vpn-orders/internal/infra/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Compile-time check
var (
	_ adapter.Messenger     = (*Bot)(nil)
	_ adapter.Prober        = (*Bot)(nil)
	_ application.Transport = (*Bot)(nil)
)

// botAPI is the part of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetMe() (tgbotapi.User, error)
}

type Translator interface {
	T(key string, args ...interface{}) string
}

// Bot polls Telegram for updates, hands them to the dispatcher through a worker pool and
// implements the outbound Messenger.
type Bot struct {
	cfg     *config.BotConfig
	tr      Translator
	log     *zerolog.Logger
	connect func() (botAPI, error)

	mu  sync.Mutex
	api botAPI
	// stale is set once polling stopped; the next Run reconnects.
	stale bool
}

// New connects with the configured token. A bad token fails here, at startup.
func New(cfg *config.BotConfig, tr Translator, logger *zerolog.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	connect := func() (botAPI, error) {
		return tgbotapi.NewBotAPI(cfg.Token)
	}
	api, err := connect()
	if err != nil {
		return nil, err
	}
	return newBot(cfg, api, connect, tr, logger), nil
}

func newBot(cfg *config.BotConfig, api botAPI, connect func() (botAPI, error), tr Translator, logger *zerolog.Logger) *Bot {
	l := logger.With().Str("component", "telegram").Logger()
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	return &Bot{cfg: cfg, tr: tr, log: &l, connect: connect, api: api}
}

func (b *Bot) client() botAPI {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.api
}

// Run long-polls until ctx is cancelled. Each update becomes one task on the worker pool
// so senders are served concurrently.
func (b *Bot) Run(ctx context.Context, dispatch func(ctx context.Context, ev *application.Event) error) error {
	api, err := b.polling()
	if err != nil {
		return err
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	pool := worker.NewPool(b.cfg.Workers, b.log)
	pool.Start(ctx)
	defer func() {
		api.StopReceivingUpdates()
		b.markStale()
		pool.Stop()
	}()

	b.log.Info().Int("workers", b.cfg.Workers).Msg("polling started")
	for {
		select {
		case <-ctx.Done():
			b.log.Info().Msg("polling stopped")
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			ev := toEvent(up)
			if ev == nil {
				continue
			}
			if err := pool.Submit(ctx, func(ctx context.Context) error { return dispatch(ctx, ev) }); err != nil {
				b.log.Warn().Err(err).Str("event", ev.Label()).Msg("update dropped")
			}
		}
	}
}

func (b *Bot) polling() (botAPI, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stale {
		api, err := b.connect()
		if err != nil {
			return nil, err
		}
		b.api = api
		b.stale = false
	}
	return b.api, nil
}

func (b *Bot) markStale() {
	b.mu.Lock()
	b.stale = true
	b.mu.Unlock()
}

// RegisterCommands publishes the public command menu.
func (b *Bot) RegisterCommands(ctx context.Context) error {
	cmds := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: b.tr.T("menu_start")},
		tgbotapi.BotCommand{Command: "plans", Description: b.tr.T("menu_plans")},
		tgbotapi.BotCommand{Command: "status", Description: b.tr.T("menu_status")},
		tgbotapi.BotCommand{Command: "help", Description: b.tr.T("menu_help")},
	)
	return b.request(ctx, "set commands", cmds)
}
