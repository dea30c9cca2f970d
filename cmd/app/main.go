package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-vpn-orders/internal/application"
	"telegram-vpn-orders/internal/config"
	"telegram-vpn-orders/internal/domain/model"
	"telegram-vpn-orders/internal/domain/ports/repository"
	tele "telegram-vpn-orders/internal/infra/adapters/telegram"
	"telegram-vpn-orders/internal/infra/db/memory"
	pg "telegram-vpn-orders/internal/infra/db/postgres"
	"telegram-vpn-orders/internal/infra/health"
	"telegram-vpn-orders/internal/infra/i18n"
	"telegram-vpn-orders/internal/infra/logging"
	"telegram-vpn-orders/internal/infra/metrics"
	"telegram-vpn-orders/internal/infra/ratelimit"
	red "telegram-vpn-orders/internal/infra/redis"
	"telegram-vpn-orders/internal/infra/web"
	"telegram-vpn-orders/internal/usecase"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

var (
	version = "dev"
	commit  = "none"
)

type stores struct {
	users   repository.UserRepository
	plans   repository.PlanRepository
	orders  repository.OrderRepository
	configs repository.ConfigRepository
	logs    repository.LogRepository
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "console logging and debug-friendly defaults")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("config")
	}
	bootLog := logging.New(cfg.Log, cfg.Runtime.Dev)

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Storage ----
	var st stores
	var pool *pgxpool.Pool
	if cfg.Database.URL != "" {
		pool, err = pg.Connect(ctx, &cfg.Database)
		if err != nil {
			bootLog.Fatal().Err(err).Msg("postgres")
		}
		defer pool.Close()
		st = stores{
			users:   pg.NewPostgresUserRepo(pool),
			plans:   pg.NewPostgresPlanRepo(pool),
			orders:  pg.NewPostgresOrderRepo(pool),
			configs: pg.NewPostgresConfigRepo(pool),
			logs:    pg.NewPostgresLogRepo(pool, cfg.Log.Retention),
		}
		bootLog.Info().Msg("using postgres storage")
	} else {
		st = stores{
			users:   memory.NewUserRepo(),
			plans:   memory.NewPlanRepo(),
			orders:  memory.NewOrderRepo(),
			configs: memory.NewConfigRepo(),
			logs:    memory.NewLogRepo(cfg.Log.Retention),
		}
		bootLog.Warn().Msg("database.url not set; using in-memory storage, state is lost on restart")
	}

	// ---- Redis (optional) ----
	// Orders check purchasability against the store itself, never a cached copy.
	planStore := st.plans
	var limiter application.Limiter = ratelimit.New(cfg.RateLimit.Window, cfg.RateLimit.Limit)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			bootLog.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		st.plans = red.NewPlanCacheDecorator(st.plans, redisClient, cfg.Redis.TTL)
		if cfg.RateLimit.Backend == "redis" {
			limiter = red.NewRateLimiter(redisClient, cfg.RateLimit.Window, cfg.RateLimit.Limit)
		}
	}
	bootLog.Info().Str("backend", cfg.RateLimit.Backend).Dur("window", cfg.RateLimit.Window).Int("limit", cfg.RateLimit.Limit).Msg("rate limiter ready")

	// ---- Logger with persisted sink ----
	var sink *logging.Sink
	logger := bootLog
	if cfg.Log.Persist {
		sink = logging.NewSink(st.logs, cfg.DetailedLogging, 1024)
		defer sink.Close()
		logger = logging.New(cfg.Log, cfg.Runtime.Dev, sink)
	}

	// ---- Use cases ----
	adminUC := usecase.NewAdminUseCase(st.configs, cfg.Bot.AdminID, cfg.Bot.ClaimAdmin, logger)
	userUC := usecase.NewUserUseCase(st.users, logger)
	planUC := usecase.NewPlanUseCase(st.plans, logger)
	orderUC := usecase.NewOrderUseCase(st.orders, planStore, adminUC, logger)
	logUC := usecase.NewLogUseCase(st.logs, logger)

	if _, err := planUC.SeedDefaults(ctx); err != nil {
		logger.Fatal().Err(err).Msg("seed plans")
	}
	adminCfg, err := adminUC.Init(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("admin config")
	}
	if adminCfg.AdminID == "" {
		logger.Warn().Msg("no admin configured; payment proofs cannot be forwarded until one is set")
	}
	logging.SetLevel(adminCfg.LogLevel)
	if sink != nil {
		sink.SetDetailed(adminCfg.DetailedLogging)
	}

	// ---- Telegram ----
	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Bot.Language)
	if err != nil {
		logger.Fatal().Err(err).Msg("translations")
	}
	if cfg.Bot.Mode != "polling" {
		logger.Warn().Str("mode", cfg.Bot.Mode).Msg("only polling is implemented; falling back to polling")
	}
	bot, err := tele.New(&cfg.Bot, tr, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram")
	}
	logger.Info().Str("token", logging.Redact(cfg.Bot.Token, cfg.Runtime.Dev)).Msg("telegram client ready")

	// ---- Dispatcher + lifecycle ----
	router := application.NewRouter(orderUC, planUC, adminUC, bot, tr, logger)
	chain := application.NewChain(router, application.DefaultStages(bot, tr, limiter, userUC, router.Known, logger)...)

	var lifecycle *application.Lifecycle
	supervisor := health.NewSupervisor(bot, health.Options{
		IntervalMinutes: adminCfg.HealthCheckInterval,
		ProbeTimeout:    cfg.Health.ProbeTimeout,
		BotRunning:      func() bool { return lifecycle != nil && lifecycle.Running() },
		AfterCheck: func() {
			if pool != nil {
				pg.ReportPoolStats(pool)
			}
		},
	}, logger)
	lifecycle = application.NewLifecycle(bot, chain, supervisor, adminUC, logger)

	adminUC.OnChange(func(c model.AdminConfig) {
		logging.SetLevel(c.LogLevel)
		if sink != nil {
			sink.SetDetailed(c.DetailedLogging)
		}
		supervisor.SetInterval(c.HealthCheckInterval)
	})

	if err := lifecycle.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("bot start")
	}

	// ---- Admin API ----
	api := web.NewServer(ctx, cfg.Admin, web.Deps{
		Bot:    lifecycle,
		Health: supervisor,
		Plans:  planUC,
		Admins: adminUC,
		Logs:   logUC,
		Users:  userUC,
		Orders: orderUC,
	}, !cfg.Runtime.Dev, logger)
	go func() {
		if err := api.ListenAndServe(); err != nil {
			logger.Error().Err(err).Msg("admin API stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := api.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("admin API shutdown")
	}
	// Stops the health timer before the transport.
	lifecycle.Stop()
	cancel()
	if sink != nil && sink.Dropped() > 0 {
		logger.Warn().Int64("dropped", sink.Dropped()).Msg("log sink dropped entries")
	}
}
