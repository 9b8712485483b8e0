package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"casepay/internal/adapter/api"
	"casepay/internal/adapter/api/handler"
	apimiddleware "casepay/internal/adapter/api/middleware"
	"casepay/internal/adapter/api/router"
	"casepay/internal/adapter/repository"
	"casepay/internal/domain/service"
	"casepay/internal/infrastructure/firebase"
	"casepay/internal/infrastructure/migrate"
	"casepay/internal/infrastructure/postgres"
	"casepay/internal/infrastructure/ratelimit"
	"casepay/internal/usecase"
	"casepay/pkg/logger"
)

func serveCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the torn-write sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(autoMigrate)
		},
	}

	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServe(autoMigrate bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := postgres.MustInitDB(cfg.Database)
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if autoMigrate {
		if err := migrate.RunMigrations(db, cfg.Database.MigrationsPath); err != nil {
			return err
		}
	}

	fb, err := firebase.NewClients(ctx, cfg.FirebaseProject, cfg.FirebaseCredentialsJSON, cfg.FirebaseCredentialsFile)
	if err != nil {
		return err
	}
	defer fb.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app := newCore(cfg, db, registry)
	defer app.Close()

	if !cfg.IsProduction() && cfg.Gateway.WebhookSecret == "" {
		logger.Warn("GATEWAY_WEBHOOK_SECRET not set, every webhook will be rejected")
	}

	verifier := service.NewSignatureVerifier(cfg.Gateway.KeySecret, cfg.Gateway.WebhookSecret)
	gateway := service.NewRazorpayPaymentService(cfg.Gateway.BaseURL, cfg.Gateway.KeyID, cfg.Gateway.KeySecret)

	orderUseCase, err := usecase.NewOrderUseCase(app.caseRepo, app.paymentRepo, gateway, app.metrics, cfg.Gateway.Currency, cfg.Gateway.DefaultFee)
	if err != nil {
		return err
	}
	verificationUseCase := usecase.NewVerificationUseCase(app.paymentRepo, verifier, app.reconciler, app.metrics)
	webhookUseCase := usecase.NewWebhookUseCase(app.paymentRepo, app.eventRepo, verifier, app.reconciler, app.metrics)

	paymentLimiter := ratelimit.NewKeyedLimiter(cfg.RateLimit.PaymentRPS, cfg.RateLimit.PaymentBurst)
	webhookLimiter := ratelimit.NewKeyedLimiter(cfg.RateLimit.WebhookRPS, cfg.RateLimit.WebhookBurst)
	go paymentLimiter.Cleanup(ctx, 5*time.Minute)
	go webhookLimiter.Cleanup(ctx, 5*time.Minute)

	go app.reconciler.StartTornWriteSweep(ctx, cfg.Sweep.Interval, cfg.Sweep.BatchSize)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Validator = api.NewValidator()

	router.Setup(e,
		router.Handlers{
			Payment: handler.NewPaymentHandler(orderUseCase, verificationUseCase, webhookUseCase, app.reconciler, app.cases),
			Case:    handler.NewCaseHandler(app.cases),
			Health:  handler.NewHealthHandler(sqlDB),
			Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		},
		router.Middlewares{
			Auth:           apimiddleware.NewAuthMiddleware(fb.Auth),
			Role:           apimiddleware.NewRoleMiddleware(repository.NewFirestoreUserRepository(fb.Firestore)),
			PaymentLimiter: paymentLimiter,
			WebhookLimiter: webhookLimiter,
		},
	)

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort, "environment", cfg.Environment)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
