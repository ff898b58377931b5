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

	"enrollment-docgen/internal/config"
	pg "enrollment-docgen/internal/infra/db/postgres"
	"enrollment-docgen/internal/infra/logging"
	"enrollment-docgen/internal/infra/metrics"
	red "enrollment-docgen/internal/infra/redis"
	"enrollment-docgen/internal/infra/render"
	"enrollment-docgen/internal/infra/sched"
	"enrollment-docgen/internal/infra/storage"
	"enrollment-docgen/internal/infra/web"
	"enrollment-docgen/internal/infra/worker"
	"enrollment-docgen/internal/usecase"
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
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
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
	taskQueue := red.NewQueue(redisClient, &cfg.Queue, logger)

	// ---- Artifact store ----
	artifacts, err := storage.NewGCSArtifactStore(ctx, cfg.Storage.Bucket)
	if err != nil {
		logger.Fatal().Err(err).Msg("artifact store")
	}
	defer artifacts.Close()

	// ---- Repositories ----
	jobRepo := pg.NewJobRepo(pool)
	studentRepo := pg.NewStudentRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Use cases ----
	subUC := usecase.NewSubmissionUseCase(jobRepo, taskQueue, logger)
	queryUC := usecase.NewJobQueryUseCase(jobRepo, artifacts, logger)

	// ---- Worker pipeline ----
	renderer := render.NewPDFRenderer("Academic Office", "Porto Alegre")
	pool2 := worker.NewPool(cfg.Worker.Count, logger)
	pool2.Start(ctx)
	defer pool2.Stop()

	processor := worker.NewDocumentJobProcessor(
		jobRepo, studentRepo, taskQueue, artifacts, renderer,
		cfg.Storage.KeyPrefix, cfg.Worker.BatchSize, cfg.Worker.PollWait, logger,
	)
	go processor.Run(ctx, pool2)
	go taskQueue.RunReclaimer(ctx, cfg.Queue.ReclaimInterval)

	// ---- Stale job reconciler (optional) ----
	if cfg.Reconciler.Enabled {
		rec := sched.NewStaleJobReconciler(cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, jobRepo, taskQueue, tm, logger)
		go func() {
			if err := rec.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("reconciler stopped")
			}
		}()
	}

	// ---- HTTP server ----
	srv := web.NewServer(subUC, queryUC, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
