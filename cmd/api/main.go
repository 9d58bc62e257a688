package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/isokofarm/isoko-backend/api/routes"
	"github.com/isokofarm/isoko-backend/internal/cart"
	"github.com/isokofarm/isoko-backend/internal/checkout"
	"github.com/isokofarm/isoko-backend/internal/ledger"
	"github.com/isokofarm/isoko-backend/internal/listings"
	"github.com/isokofarm/isoko-backend/internal/notifications"
	"github.com/isokofarm/isoko-backend/internal/orders"
	"github.com/isokofarm/isoko-backend/internal/payments"
	"github.com/isokofarm/isoko-backend/pkg/config"
	"github.com/isokofarm/isoko-backend/pkg/db"
	"github.com/isokofarm/isoko-backend/pkg/logger"
	"github.com/isokofarm/isoko-backend/pkg/migrate"
	"github.com/isokofarm/isoko-backend/pkg/outbox"
	"github.com/isokofarm/isoko-backend/pkg/redis"
	"github.com/isokofarm/isoko-backend/pkg/stripe"
)

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

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	cartRepo := cart.NewRepository(gormDB)
	listingRepo := listings.NewRepository(gormDB)
	orderRepo := orders.NewRepository(gormDB)
	paymentRepo := payments.NewRepository(gormDB)
	notificationRepo := notifications.NewRepository(gormDB)
	ledgerRepo := ledger.NewRepository(gormDB)

	cartSvc, err := cart.NewService(cartRepo, listingRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	checkoutSvc, err := checkout.NewService(cartRepo, orderRepo, listingRepo, dbClient, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	paymentsSvc, err := payments.NewService(paymentRepo, orderRepo, payments.NewStripeProcessor(stripeClient), dbClient, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(orderRepo, dbClient, outboxSvc, listingRepo, paymentsSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	notificationsSvc, err := notifications.NewService(notificationRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	ledgerSvc, err := ledger.NewService(ledgerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
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
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			CartSvc:       cartSvc,
			CheckoutSvc:   checkoutSvc,
			OrdersSvc:     ordersSvc,
			PaymentsSvc:   paymentsSvc,
			Notifications: notificationsSvc,
			LedgerSvc:     ledgerSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
