package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/ran-group/shiftdesk/internal/auth"
	"github.com/ran-group/shiftdesk/internal/config"
	"github.com/ran-group/shiftdesk/internal/delivery"
	"github.com/ran-group/shiftdesk/internal/domain/identity"
	"github.com/ran-group/shiftdesk/internal/domain/profiles"
	"github.com/ran-group/shiftdesk/internal/gate"
	"github.com/ran-group/shiftdesk/internal/httpapi"
	"github.com/ran-group/shiftdesk/internal/infra/db"
	httpx "github.com/ran-group/shiftdesk/internal/infra/http"
	"github.com/ran-group/shiftdesk/internal/infra/logger"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	cfg, err := config.Load("config/example.yaml")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	usersRepo := identity.NewRepo(pool)
	profilesRepo := profiles.NewRepo(pool)
	outbox := delivery.NewOutbox(pool)

	var sender delivery.Sender
	var notifier auth.Notifier
	if cfg.Telegram.Token != "" {
		api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			log.Error("telegram init failed", "err", err)
			return
		}
		tg := delivery.NewTelegram(api, cfg.Telegram.AdminChatID, log)
		sender = tg
		notifier = tg
		log.Info("telegram connected", "bot", api.Self.UserName)
	} else {
		log.Warn("telegram token empty, deliveries will stay queued")
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTTTL)
	authSvc := auth.NewService(pool, usersRepo, profilesRepo, tokens, notifier, log)
	g := gate.New(tokens, profilesRepo, log)

	handler := httpapi.Routes(httpapi.Deps{
		Auth:     httpapi.NewAuthHandler(authSvc),
		Accounts: httpapi.NewAccountsHandler(profilesRepo),
		Reports:  httpapi.NewReportsHandler(outbox, cfg.Telegram.BranchChats),
		Gate:     g,
		Log:      log,
		Metrics:  cfg.Metrics.Enabled,
	})

	if sender != nil {
		worker := delivery.NewWorker(outbox, sender, delivery.WorkerConfig{
			PollInterval: cfg.Delivery.PollInterval,
			BatchSize:    cfg.Delivery.BatchSize,
			MaxAttempts:  cfg.Delivery.MaxAttempts,
		}, log)
		go func() {
			if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("delivery worker stopped", "err", err)
			}
		}()
	}

	srv := httpx.New(cfg.HTTP.Addr, handler)
	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
