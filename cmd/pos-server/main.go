package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pos-platform/internal/auth"
	"github.com/vasiliy-maslov/pos-platform/internal/config"
	"github.com/vasiliy-maslov/pos-platform/internal/customer"
	"github.com/vasiliy-maslov/pos-platform/internal/db"
	"github.com/vasiliy-maslov/pos-platform/internal/gateway"
	"github.com/vasiliy-maslov/pos-platform/internal/handler"
	"github.com/vasiliy-maslov/pos-platform/internal/jobs"
	"github.com/vasiliy-maslov/pos-platform/internal/notify"
	"github.com/vasiliy-maslov/pos-platform/internal/order"
	"github.com/vasiliy-maslov/pos-platform/internal/payment"
	"github.com/vasiliy-maslov/pos-platform/internal/product"
	"github.com/vasiliy-maslov/pos-platform/internal/receipt"
	"github.com/vasiliy-maslov/pos-platform/internal/shipping"
	"github.com/vasiliy-maslov/pos-platform/internal/storage"
	"github.com/vasiliy-maslov/pos-platform/internal/tenant"
	"github.com/vasiliy-maslov/pos-platform/internal/transport"
	"github.com/vasiliy-maslov/pos-platform/internal/user"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "pos-server").Logger()

	log.Info().Msg("POS server starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.App.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	if err := pg.ApplyMigrations(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	localStore := storage.NewLocalStore(cfg.MediaRoot)
	var durable storage.BlobStore
	if cfg.S3.Bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:   cfg.S3.Bucket,
			Region:   cfg.S3.Region,
			Endpoint: cfg.S3.Endpoint,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 store")
		}
		durable = s3Store
	}

	receiptRepo := receipt.NewRepository(pg.Pool)
	paymentRepo := payment.NewRepository(pg.Pool)
	receiptSvc := receipt.NewService(receiptRepo, paymentRepo, durable, localStore)
	notifySvc := notify.NewService(notify.NewRepository(pg.Pool))

	jobHandlers := map[jobs.Kind]jobs.Handler{
		jobs.KindReceiptGenerate:  receipt.GenerateHandler(receiptSvc),
		jobs.KindNotifyLowStock:   notifySvc.LowStockHandler(),
		jobs.KindNotifyOrderEvent: notifySvc.OrderEventHandler(),
	}
	submitter := jobs.NewFallbackSubmitter(
		jobs.NewQueueSubmitter(redisClient, cfg.Jobs.Queue),
		jobs.NewInlineSubmitter(jobHandlers),
	)

	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	gateways := gateway.NewFactory(nil)

	userSvc := user.NewService(user.NewRepository(pg.Pool), issuer)
	orderSvc := order.NewService(order.NewRepository(pg.Pool), submitter, "")
	productSvc := product.NewService(product.NewRepository(pg.Pool), submitter)

	router := transport.NewRouter(issuer,
		handler.NewAuthHandler(userSvc),
		handler.NewOrderHandler(orderSvc),
		handler.NewProductHandler(productSvc),
		handler.NewCustomerHandler(customer.NewRepository(pg.Pool)),
		handler.NewShippingHandler(shipping.NewRepository(pg.Pool)),
		handler.NewPaymentHandler(paymentRepo, gateways, ""),
		handler.NewWebhookHandler(gateways, submitter),
		handler.NewReceiptHandler(receiptSvc),
		handler.NewTenantHandler(tenant.NewRepository(pg.Pool)),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
