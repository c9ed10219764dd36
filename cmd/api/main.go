package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ykarpenko/solvebot-backend/api/routes"
	"github.com/ykarpenko/solvebot-backend/internal/entitlement"
	"github.com/ykarpenko/solvebot-backend/internal/gateway"
	"github.com/ykarpenko/solvebot-backend/internal/payments"
	"github.com/ykarpenko/solvebot-backend/internal/quota"
	"github.com/ykarpenko/solvebot-backend/internal/referrals"
	"github.com/ykarpenko/solvebot-backend/internal/sessioncache"
	paymentwebhook "github.com/ykarpenko/solvebot-backend/internal/webhooks/payment"
	"github.com/ykarpenko/solvebot-backend/pkg/clock"
	"github.com/ykarpenko/solvebot-backend/pkg/config"
	"github.com/ykarpenko/solvebot-backend/pkg/db"
	"github.com/ykarpenko/solvebot-backend/pkg/logger"
	"github.com/ykarpenko/solvebot-backend/pkg/metrics"
	"github.com/ykarpenko/solvebot-backend/pkg/migrate"
	"github.com/ykarpenko/solvebot-backend/pkg/notify"
	"github.com/ykarpenko/solvebot-backend/pkg/redis"
)

const paymentGuardTTL = 48 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)
	clk := clock.System()

	usersRepo := entitlement.NewRepository(dbClient.DB())

	entitlementService, err := entitlement.NewService(entitlement.ServiceParams{
		Repo:  usersRepo,
		Clock: clk,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create entitlement service", err)
		os.Exit(1)
	}

	quotaService, err := quota.NewService(quota.ServiceParams{
		Repo:        quota.NewRepository(dbClient.DB()),
		Entitlement: entitlementService,
		Clock:       clk,
		Limits:      cfg.Quota,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create quota service", err)
		os.Exit(1)
	}

	var notifier notify.Notifier
	if cfg.Notify.BaseURL != "" && cfg.Notify.Token != "" {
		client, err := notify.New(cfg.Notify)
		if err != nil {
			logg.Error(context.Background(), "failed to create notifier", err)
			os.Exit(1)
		}
		notifier = client
	} else {
		logg.Warn(context.Background(), "notifier not configured, referral notifications disabled")
	}

	paymentsRepo := payments.NewRepository(dbClient.DB())

	referralService, err := referrals.NewService(referrals.ServiceParams{
		Repo:        referrals.NewRepository(dbClient.DB()),
		Users:       usersRepo,
		Tx:          dbClient,
		Entitlement: entitlementService,
		Payments:    paymentsRepo,
		Notifier:    notifier,
		Config:      cfg.Referral,
		Logger:      logg,
		Metrics:     ledgerMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create referral service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Repo:        paymentsRepo,
		Tx:          dbClient,
		Entitlement: entitlementService,
		Hook:        referralService,
		Logger:      logg,
		Metrics:     ledgerMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	gatewayService, err := gateway.NewService(gateway.ServiceParams{
		Entitlement: entitlementService,
		Quota:       quotaService,
		Payments:    paymentService,
		Referrals:   referralService,
		Metrics:     ledgerMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway service", err)
		os.Exit(1)
	}

	paymentGuard, err := paymentwebhook.NewIdempotencyGuard(redisClient, paymentGuardTTL, "payment")
	if err != nil {
		logg.Error(context.Background(), "failed to create payment idempotency guard", err)
		os.Exit(1)
	}

	answerCache, err := sessioncache.New(redisClient, cfg.SessionCache.TTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create session cache", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, gatewayService, gatewayService, paymentGuard, answerCache),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
