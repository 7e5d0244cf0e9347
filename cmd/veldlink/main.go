package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/veldlink/veldlink/internal/app"
	"github.com/veldlink/veldlink/internal/auth"
	"github.com/veldlink/veldlink/internal/catalog"
	"github.com/veldlink/veldlink/internal/logistics"
	"github.com/veldlink/veldlink/internal/notify"
	"github.com/veldlink/veldlink/internal/observability"
	"github.com/veldlink/veldlink/internal/offer"
	"github.com/veldlink/veldlink/internal/order"
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
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "veldlink_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

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

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, auditLogger, logger)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	notifier := notify.NewNotifier(queueClient, notify.NewAuthDirectory(authService), logger)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	rfqRepo := rfq.NewRepository(dbpool)
	rfqService := rfq.NewService(rfqRepo, auditLogger, metrics, logger)
	rfqHandler := rfq.NewHandler(logger, rfqService)

	quoteRepo := quote.NewRepository(dbpool)
	quoteService := quote.NewService(quoteRepo, rfqRepo, authService)
	quoteHandler := quote.NewHandler(logger, quoteService)

	distanceRepo := pricing.NewCityDistanceRepo(dbpool, redisClient, time.Hour)
	distances := pricing.NewDistanceResolver(distanceRepo)

	offerRepo := offer.NewRepository(dbpool)
	offerService := offer.NewService(offerRepo, quoteRepo, rfqRepo, distances, offer.Defaults{
		MarginPercent: cfg.DefaultMarginPercent,
		RatePerKm:     cfg.LogisticsRatePerKm,
		MinFee:        cfg.MinLogisticsFee,
		ValidDays:     cfg.OfferValidDays,
	}, notifier, auditLogger, metrics, logger)
	offerHandler := offer.NewHandler(logger, offerService)

	orderRepo := order.NewRepository(dbpool)
	orderService := order.NewService(orderRepo, auditLogger, metrics, logger)
	orderHandler := order.NewHandler(logger, orderService)

	logisticsRepo := logistics.NewRepository(dbpool)
	logisticsService := logistics.NewService(logisticsRepo, notifier, auditLogger, metrics, logger)
	logisticsHandler := logistics.NewHandler(logger, logisticsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		AuthHandler:      authHandler,
		CatalogHandler:   catalogHandler,
		RFQHandler:       rfqHandler,
		QuoteHandler:     quoteHandler,
		OfferHandler:     offerHandler,
		OrderHandler:     orderHandler,
		LogisticsHandler: logisticsHandler,
		JobHandler:       jobHandler,
		Pool:             dbpool,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
