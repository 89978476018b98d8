// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobapply-gateway/internal/config"
	pg "jobapply-gateway/internal/infra/db/postgres"
	"jobapply-gateway/internal/infra/dispatch"
	"jobapply-gateway/internal/infra/logging"
	"jobapply-gateway/internal/infra/metrics"
	"jobapply-gateway/internal/infra/mq"
	red "jobapply-gateway/internal/infra/redis"
	"jobapply-gateway/internal/infra/sched"
	"jobapply-gateway/internal/infra/sse"
	"jobapply-gateway/internal/infra/web"
	"jobapply-gateway/internal/infra/worker"
	"jobapply-gateway/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	artifactCache := red.NewArtifactCache(redisClient, cfg.Redis.TTL)
	dashboardCache := red.NewDashboardCache(redisClient)

	// ---- Repositories ----
	jobRepo := pg.NewPostgresJobRepo(pool)
	artifactRepo := pg.NewPostgresArtifactRepo(pool)

	// ---- Broker + batching ----
	publisher, err := mq.NewAMQPPublisher(&cfg.Broker, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("amqp")
	}
	defer publisher.Close()
	batcher := mq.NewBatcher(publisher, cfg.Broker.BatchSize, cfg.Broker.BatchFlush, logger)
	batcher.Start(ctx)
	defer batcher.Stop()

	// ---- Submission gateway ----
	var primary dispatch.SubmissionPath
	if cfg.Primary.Enabled {
		primary = dispatch.NewPrimaryPath(dispatch.NewHTTPTransport(cfg.Primary.BaseURL, cfg.Primary.Timeout), cfg.Primary.Timeout)
	}
	var queue dispatch.SubmissionPath
	if cfg.Broker.QueueEnabled {
		queue = dispatch.NewQueuePath(batcher, cfg.Broker.Exchange)
	}
	gateway := dispatch.NewGateway(primary, queue, cfg.Primary.Retries, logger)

	// ---- Live stream registry ----
	registry := sse.NewRegistry(cfg.Stream.MaxConnections, cfg.Stream.IdleTimeout, cfg.Stream.SweepInterval, logger)
	registry.Start(ctx)
	defer registry.Shutdown()

	pool2 := worker.NewPool(cfg.Stream.Workers, logger)
	pool2.Start(ctx)
	defer pool2.Stop()
	heartbeat := sched.NewHeartbeatWorker(cfg.Stream.Heartbeat, registry, pool2, logger)
	go func() { _ = heartbeat.Run(ctx) }()

	// ---- Use case ----
	statusUC := usecase.NewStatusUseCase(jobRepo, artifactRepo, artifactCache, dashboardCache, gateway, registry, batcher, logger)
	defer statusUC.FlushPending()

	// ---- HTTP ----
	server := web.NewServer(statusUC, registry, cfg, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: server.Routes(),
	}
	go func() {
		logger.Info().Int("port", cfg.HTTP.Port).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	// ---- Wait for shutdown signal ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
