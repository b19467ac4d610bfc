package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/gratefultolord/insurance_bot/internal/bot"
	"github.com/gratefultolord/insurance_bot/internal/composer"
	"github.com/gratefultolord/insurance_bot/internal/config"
	"github.com/gratefultolord/insurance_bot/internal/conversation"
	"github.com/gratefultolord/insurance_bot/internal/db"
	"github.com/gratefultolord/insurance_bot/internal/files"
	"github.com/gratefultolord/insurance_bot/internal/metrics"
	"github.com/gratefultolord/insurance_bot/internal/mindee"
	"github.com/gratefultolord/insurance_bot/internal/policy"
	"github.com/gratefultolord/insurance_bot/internal/server"
	"github.com/gratefultolord/insurance_bot/internal/state"
	"github.com/gratefultolord/insurance_bot/internal/worker"
	logx "github.com/gratefultolord/insurance_bot/pkg/logger"
)

func main() {
	logx.Init()

	cfg, err := config.Load()
	if err != nil {
		logx.Fatal().Err(err).Msg("error loading config")
	}
	// APP_ENV may come from .env, which is only read by config.Load.
	logx.Init(logx.LoggerOpts{Production: cfg.IsProduction()})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	g, ctx := errgroup.WithContext(ctx)
	checks := map[string]server.CheckFunc{}

	var store state.Store
	if cfg.RedisURL != "" {
		rdb, err := state.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logx.Fatal().Err(err).Msg("error connecting to redis")
		}
		defer rdb.Close()

		store = state.NewRedisStore(rdb, cfg.SessionTTL)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		memory := state.NewMemoryStore(cfg.SessionTTL)
		g.Go(func() error { return memory.Run(ctx, cfg.SessionSweepInterval) })
		store = memory
	}

	var ledger conversation.PolicyLedger
	if cfg.LedgerEnabled() {
		database, err := db.New(ctx, cfg)
		if err != nil {
			logx.Fatal().Err(err).Msg("error connecting to database")
		}
		defer database.Close()

		if err := db.RunMigrations(database.Conn, "db_scripts/init.sql"); err != nil {
			logx.Fatal().Err(err).Msg("error running migrations")
		}

		ledger = db.NewPolicyRepository(database.Conn)
		checks["postgres"] = database.Ping
	}

	extractor := mindee.NewClient(cfg.MindeeAPIKey,
		mindee.WithPassportURL(cfg.MindeePassportURL),
		mindee.WithVehicleURL(cfg.MindeeVehicleURL),
		mindee.WithPollInterval(cfg.MindeePollInterval),
		mindee.WithMaxPollAttempts(cfg.MindeeMaxPollAttempts),
		mindee.WithMetrics(m),
	)
	if cfg.MindeeAPIKey == "" {
		logx.Warn().Msg("MINDEE_API_KEY is not set, document extraction will fail")
	}

	copywriter, err := composer.New(ctx, composer.Settings{
		Provider:     cfg.ComposerProvider,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		GeminiAPIKey: cfg.GeminiAPIKey,
		Model:        cfg.ComposerModel,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("error creating copywriter")
	}

	policyWriter, err := composer.New(ctx, composer.Settings{
		Provider:     cfg.ComposerProvider,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		GeminiAPIKey: cfg.GeminiAPIKey,
		Model:        cfg.PolicyModel,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("error creating policy writer")
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logx.Fatal().Err(err).Msg("error creating telegram bot")
	}

	fileService, err := files.NewFileService(botAPI, cfg.PolicyDir)
	if err != nil {
		logx.Fatal().Err(err).Msg("error creating FileService")
	}

	controller, err := conversation.New(conversation.Dependencies{
		Messenger:         bot.NewMessenger(botAPI),
		Store:             store,
		Files:             fileService,
		Extractor:         extractor,
		Copywriter:        copywriter,
		PolicyWriter:      policyWriter,
		Renderer:          policy.NewRenderer(),
		Ledger:            ledger,
		Metrics:           m,
		PriceUSD:          cfg.PolicyPriceUSD,
		ExtractionTimeout: cfg.ExtractionTimeout,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("error creating conversation controller")
	}

	botService := bot.New(botAPI, controller, worker.Options{
		QueueSize:   cfg.WorkerQueueSize,
		IdleTimeout: cfg.WorkerIdleTimeout,
		OnDrop:      func(int64) { m.IncrementEventDropped() },
	})

	if cfg.MetricsAddr != "" {
		srv := server.New(registry, checks)
		g.Go(func() error { return srv.Run(ctx, cfg.MetricsAddr) })
	}

	logx.Info().Str("username", botAPI.Self.UserName).Msg("bot started")

	g.Go(func() error { return botService.Start(ctx) })

	if err := g.Wait(); err != nil {
		logx.Error().Err(err).Msg("bot stopped with error")
		return
	}
	logx.Info().Msg("bot stopped")
}
