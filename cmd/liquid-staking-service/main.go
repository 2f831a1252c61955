package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/vtokenlabs/liquid-staking-service/cmd/liquid-staking-service/cli"
	"github.com/vtokenlabs/liquid-staking-service/cmd/liquid-staking-service/scripts"
	"github.com/vtokenlabs/liquid-staking-service/internal/api"
	"github.com/vtokenlabs/liquid-staking-service/internal/config"
	"github.com/vtokenlabs/liquid-staking-service/internal/db"
	"github.com/vtokenlabs/liquid-staking-service/internal/db/memdb"
	"github.com/vtokenlabs/liquid-staking-service/internal/db/model"
	"github.com/vtokenlabs/liquid-staking-service/internal/events"
	"github.com/vtokenlabs/liquid-staking-service/internal/observability/healthcheck"
	"github.com/vtokenlabs/liquid-staking-service/internal/observability/metrics"
	"github.com/vtokenlabs/liquid-staking-service/internal/queue"
	"github.com/vtokenlabs/liquid-staking-service/internal/queue/handlers"
	"github.com/vtokenlabs/liquid-staking-service/internal/services"
	"github.com/vtokenlabs/liquid-staking-service/internal/utils/poller"
	"github.com/vtokenlabs/liquid-staking-service/internal/xcm"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("failed to load .env file")
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	// setup cli commands and flags
	if err := cli.Setup(); err != nil {
		log.Fatal().Err(err).Msg("error while setting up cli")
	}

	// load config
	cfgPath := cli.GetConfigPath()
	cfg, err := config.New(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msgf("error while loading config file: %s", cfgPath)
	}

	// initialize metrics with the metrics address from config
	metrics.Init(cfg.Metrics.GetMetricsAddress(), cfg.Metrics.Namespace)

	var (
		dbClient  db.DBClient
		sender    xcm.Sender
		publisher events.Publisher
		queues    *queue.Queues
	)
	if cli.GetInMemoryFlag() {
		log.Warn().Msg("running on in-memory storage, state is lost on exit and xcm programs are not delivered")
		dbClient = memdb.New(cfg.Db)
		sender = xcm.NewMemorySender()
	} else {
		if err := model.Setup(ctx, &cfg.Db); err != nil {
			log.Fatal().Err(err).Msg("error while setting up staking db model")
		}
		database, err := db.New(ctx, cfg.Db)
		if err != nil {
			log.Fatal().Err(err).Msg("error while connecting to the database")
		}
		dbClient = db.NewDbWithMetrics(database)

		queues, err = queue.New(&cfg.Queue)
		if err != nil {
			log.Fatal().Err(err).Msg("error while setting up queues")
		}
		defer queues.StopReceivingMessages()
		sender = xcm.NewQueueSender(queues.XcmOutboundQueueClient, cfg.Queue.SendAttempts, cfg.Queue.SendRetryDelay)
		publisher = queue.NewEventPublisher(queues.VaultEventQueueClient)
	}

	// Check if the replay flag is set
	if cli.GetReplayFlag() {
		if queues == nil {
			log.Fatal().Msg("replay needs the message broker, it cannot run with --in-memory")
		}
		log.Info().Msg("Replay flag is set. Starting replay of unprocessable messages.")
		if err := scripts.ReplayUnprocessableMessages(ctx, queues, dbClient); err != nil {
			log.Fatal().Err(err).Msg("error while replaying unprocessable messages")
		}
		return
	}

	services, err := services.New(ctx, cfg, dbClient, sender, publisher)
	if err != nil {
		log.Fatal().Err(err).Msg("error while setting up staking services layer")
	}

	checks := []healthcheck.Check{{Name: "db", Run: services.DoHealthCheck}}
	if queues != nil {
		if err := queues.StartReceivingMessages(handlers.NewQueueHandler(services)); err != nil {
			log.Fatal().Err(err).Msg("error while starting queue consumers")
		}
		checks = append(checks, healthcheck.Check{
			Name: "queue",
			Run:  func(ctx context.Context) error { return queues.IsConnectionHealthy() },
		})
	}
	if err := healthcheck.StartHealthCheckCron(ctx, cfg.Server.HealthCheckInterval, checks...); err != nil {
		log.Fatal().Err(err).Msg("error while starting health check cron")
	}

	apiServer, err := api.New(ctx, cfg, services)
	if err != nil {
		log.Fatal().Err(err).Msg("error while setting up staking api service")
	}
	blockTicker := poller.NewPoller("block_ticker", cfg.Runtime.BlockInterval, services.Tick)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return apiServer.Start(gctx)
	})
	g.Go(func() error {
		blockTicker.Start(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("service stopped with error")
		return
	}
	log.Info().Msg("service stopped")
}
