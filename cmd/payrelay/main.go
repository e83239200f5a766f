package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/bustravel/payrelay/internal/approval"
	"github.com/bustravel/payrelay/internal/events"
	"github.com/bustravel/payrelay/internal/notify"
	"github.com/bustravel/payrelay/internal/server"
	"github.com/bustravel/payrelay/internal/store"
	"github.com/bustravel/payrelay/internal/store/redisstore"
	"github.com/bustravel/payrelay/pkg/config"
	"github.com/bustravel/payrelay/pkg/logger"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = logger.NewWithConfig(cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessionTTL := cfg.Approval.SessionTTL.Std()
	if sessionTTL == 0 {
		sessionTTL = 30 * time.Minute
	}

	var sessions store.SessionStore
	if cfg.Redis.Addr != "" {
		redisStore, err := redisstore.New(redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, sessionTTL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisStore.Close()
		sessions = redisStore
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Using Redis session store")
	} else {
		sessions = store.NewMemoryStore()
		log.Info().Msg("Using in-memory session store")
	}

	hub := events.NewHub(log)

	var notifier notify.Notifier
	var telegram *notify.Telegram
	if cfg.Telegram.BotToken != "" {
		telegram, err = notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
		}
		notifier = telegram
	} else {
		log.Warn().Msg("No bot token configured, admin notifications go to the log")
		notifier = notify.NewLogNotifier(log)
	}

	approvalSvc := approval.New(sessions, hub, notifier, approval.Config{
		CodeTTL:       cfg.Approval.CodeTTL.Std(),
		SessionTTL:    cfg.Approval.SessionTTL.Std(),
		SweepInterval: cfg.Approval.SweepInterval.Std(),
		VerifiedGrace: cfg.Approval.VerifiedGrace.Std(),
	}, log)

	if telegram != nil {
		telegram.OnAdminAction(func(ctx context.Context, ev notify.AdminEvent) {
			// Errors are already acknowledged to the admin and logged.
			_ = approvalSvc.HandleAdminAction(ctx, ev)
		})

		if cfg.Server.PublicBaseURL != "" {
			if err := telegram.RegisterWebhook(cfg.Server.PublicBaseURL); err != nil {
				log.Error().Err(err).Msg("Webhook registration failed, falling back to polling")
				go telegram.RunPolling(ctx)
			}
		} else {
			go telegram.RunPolling(ctx)
		}
	}

	go approvalSvc.Run(ctx)

	srv := server.New(cfg, approvalSvc, hub, telegram, log)
	srv.Start(ctx)
}
