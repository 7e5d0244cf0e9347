package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/veldlink/veldlink/internal/app"
	"github.com/veldlink/veldlink/internal/auth"
	"github.com/veldlink/veldlink/internal/notify"
	"github.com/veldlink/veldlink/internal/offer"
	"github.com/veldlink/veldlink/internal/platform/cache"
	"github.com/veldlink/veldlink/internal/platform/db"
	"github.com/veldlink/veldlink/internal/pricing"
	"github.com/veldlink/veldlink/internal/quote"
	"github.com/veldlink/veldlink/internal/rfq"
	"github.com/veldlink/veldlink/internal/shared"
	"github.com/veldlink/veldlink/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	queueClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("asynq client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	authService := auth.NewService(auth.NewRepository(pool), auditLogger, logger)
	notifier := notify.NewNotifier(queueClient, notify.NewAuthDirectory(authService), logger)

	distances := pricing.NewDistanceResolver(pricing.NewCityDistanceRepo(pool, redisClient, time.Hour))
	offerService := offer.NewService(offer.NewRepository(pool), quote.NewRepository(pool), rfq.NewRepository(pool),
		distances, offer.Defaults{
			MarginPercent: cfg.DefaultMarginPercent,
			RatePerKm:     cfg.LogisticsRatePerKm,
			MinFee:        cfg.MinLogisticsFee,
			ValidDays:     cfg.OfferValidDays,
		}, notifier, auditLogger, nil, logger)

	mailer := notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: jobs.NewSendEmailHandler(mailer, logger)},
			{Type: jobs.TaskTypeOfferExpire, Handler: jobs.NewOfferExpireHandler(offerService, logger)},
			{Type: jobs.TaskTypeAuditPrune, Handler: jobs.NewAuditPruneHandler(pool, cfg.AuditRetentionDays, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/10 * * * *", Task: jobs.NewOfferExpireTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 2 * * *", Task: jobs.NewAuditPruneTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
