package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldworks/dispatch-system/internal/api"
	"github.com/fieldworks/dispatch-system/internal/core/domain"
	"github.com/fieldworks/dispatch-system/internal/core/service"
	"github.com/fieldworks/dispatch-system/internal/infrastructure/config"
	mongodb "github.com/fieldworks/dispatch-system/internal/infrastructure/db/mongo"
	redisdb "github.com/fieldworks/dispatch-system/internal/infrastructure/db/redis"
	"github.com/fieldworks/dispatch-system/internal/infrastructure/queue"
	"github.com/fieldworks/dispatch-system/pkg/logger"
)

// main is the application composition root: it wires the Mongo/Redis
// adapters behind the core ports, starts the technician synchronizer and the
// ingest workers, and serves the dispatcher-facing HTTP API.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Config errors are reported on a bootstrap logger; the real singleton
	// is initialised once the configured level is known.
	bootstrap := zerolog.New(os.Stderr).With().Timestamp().Logger()
	cfg := config.Load(bootstrap)
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.Env == "development"})

	// --- Data layer ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	technicianRepo := mongodb.NewTechnicianRepository(db)
	locationRepo := mongodb.NewLocationRepository(db)
	ticketRepo := mongodb.NewTicketRepository(db)
	for name, ensure := range map[string]func(context.Context) error{
		"technicians":      technicianRepo.EnsureIndexes,
		"location_samples": locationRepo.EnsureIndexes,
		"tickets":          ticketRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Warn().Err(err).Str("collection", name).Msg("index bootstrap failed")
		}
	}

	feed := redisdb.NewLocationFeed(ctx, rdb, log)
	defer func() { _ = feed.Close() }()

	// --- Core services ---
	routingOpts := service.RoutingOptions{
		AverageSpeedMPH:    cfg.Routing.AverageSpeedMPH,
		DefaultStopMinutes: cfg.Routing.DefaultStopMinutes,
	}

	synchronizer := service.NewSynchronizer(technicianRepo, locationRepo, ticketRepo, feed, service.SyncOptions{
		PollInterval:   cfg.Sync.PollInterval,
		EnableRealtime: cfg.Sync.EnableRealtime,
		RefreshTimeout: cfg.Sync.RefreshTimeout,
		Liveness: domain.LivenessThresholds{
			Fresh:    cfg.Sync.FreshThreshold,
			Degraded: cfg.Sync.DegradedThreshold,
		},
	}, log)
	synchronizer.Start(ctx)
	defer synchronizer.Stop()

	optimizer := service.NewRouteOptimizer(routingOpts, log)
	planner := service.NewFleetPlanner(optimizer, synchronizer, log)
	advisor := service.NewAssignmentAdvisor(routingOpts, log)

	ingest := service.NewLocationIngest(locationRepo, feed, log)
	dispatcher := queue.NewIngestDispatcher(cfg.Ingest.Workers, ingest, log)
	dispatcher.Start(ctx)

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		Tracker:   synchronizer,
		Optimizer: optimizer,
		Planner:   planner,
		Advisor:   advisor,
		Ingest:    dispatcher,
		Mongo:     db,
		Redis:     rdb,
		Logger:    log,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("dispatch service started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
}
