package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/cache"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/config"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/database"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/gateway"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/jobs"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/logger"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/messaging"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/providers"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/repository"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/service"
)

// Standalone expiry sweeper for deployments that keep background work off
// the API instances.
func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", "error", err)
	}
	defer natsClient.Close()

	dedup, err := cache.NewDedupClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", "error", err)
	}
	defer dedup.Close()

	gateways := gateway.NewRouter(
		gateway.NewCardGateway(cfg.Card),
		gateway.NewOfflineGateway(),
	)
	registry := providers.NewRegistry(
		providers.NewEntrioClient(cfg.Entrio),
		providers.NewUlazniceClient(cfg.Ulaznice),
	)

	repos := repository.NewRepositories(db)
	services := service.NewServicesFromRepositories(repos, service.Deps{
		Gateways:  gateways,
		Providers: registry,
		NATS:      natsClient,
		Dedup:     dedup,
		HoldTTL:   cfg.BookingHoldTTL,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := jobs.NewExpirationJob(repos, services.Bookings, cfg.SweepInterval, cfg.SweepBatchSize)
	sweeper.Start(ctx)

	log.Info("Sweeper started",
		"interval", cfg.SweepInterval.String(),
		"batch_size", cfg.SweepBatchSize)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down sweeper...")
	sweeper.Stop()
	log.Info("Sweeper stopped")
}
