package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pos-platform/internal/auth"
	"github.com/vasiliy-maslov/pos-platform/internal/config"
	"github.com/vasiliy-maslov/pos-platform/internal/db"
	"github.com/vasiliy-maslov/pos-platform/internal/jobs"
	"github.com/vasiliy-maslov/pos-platform/internal/notify"
	"github.com/vasiliy-maslov/pos-platform/internal/payment"
	"github.com/vasiliy-maslov/pos-platform/internal/product"
	"github.com/vasiliy-maslov/pos-platform/internal/receipt"
	"github.com/vasiliy-maslov/pos-platform/internal/storage"
)

const lowStockInterval = time.Hour

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "pos-worker").Logger()

	log.Info().Msg("POS worker starting...")

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

	receiptSvc := receipt.NewService(receipt.NewRepository(pg.Pool), payment.NewRepository(pg.Pool), durable, localStore)
	notifySvc := notify.NewService(notify.NewRepository(pg.Pool))

	jobHandlers := map[jobs.Kind]jobs.Handler{
		jobs.KindReceiptGenerate:  receipt.GenerateHandler(receiptSvc),
		jobs.KindNotifyLowStock:   notifySvc.LowStockHandler(),
		jobs.KindNotifyOrderEvent: notifySvc.OrderEventHandler(),
	}

	runner := jobs.NewRunner(redisClient, cfg.Jobs.Queue, jobHandlers, jobs.DefaultPolicies, cfg.Jobs.Concurrency, cfg.Jobs.JobTimeout)

	// Low-stock scanning enqueues through the same queue this worker drains,
	// so alerts follow the notification retry policy.
	productSvc := product.NewService(product.NewRepository(pg.Pool), jobs.NewQueueSubmitter(redisClient, cfg.Jobs.Queue))
	go func() {
		ticker := time.NewTicker(lowStockInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				count, err := productSvc.CheckLowStock(ctx, auth.UnrestrictedScope())
				if err != nil {
					log.Error().Err(err).Msg("Low-stock scan failed")
					continue
				}
				log.Info().Int("count", count).Msg("Low-stock scan completed")
			}
		}
	}()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	runner.Run(ctx)
	log.Info().Msg("Worker stopped")
}
