package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/questionnaire-tracker/constants"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/async"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/common"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/export"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/ingest"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/questionnaire"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/server"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/session"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/telemetry"
)

func main() {
	cfg, err := common.LoadConfigFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelCfg, err := telemetry.LoadConfig()
	if err != nil {
		logger.Error("invalid telemetry config", "error", err)
		os.Exit(2)
	}
	shutdownTracing, err := telemetry.Setup(ctx, otelCfg)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracer shutdown", "error", err)
		}
	}()

	store, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		os.Exit(1)
	}
	defer server.CloseDB(store, logger)
	if err := server.PingDB(ctx, store, logger, 5*time.Second); err != nil {
		os.Exit(1)
	}

	countries := cfg.Countries
	if len(countries) == 0 {
		countries = constants.SupportedCountries
	}

	svc := questionnaire.NewService(questionnaire.NewPipelineFromConfig(cfg, logger), store, countries, logger)
	engine := session.NewEngine(store, session.NewMemorySessionStore(), countries, logger)
	exports := export.NewService(svc, logger)
	queue := async.NewUploadQueue(svc, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
	)

	if cfg.Ingest.InboxDir != "" {
		events, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
			Roots:       []string{cfg.Ingest.InboxDir},
			InitialScan: true,
			Debounce:    cfg.Ingest.Debounce,
			SkipHidden:  true,
			Logger:      logger,
		})
		if err != nil {
			logger.Error("failed to watch inbox", "dir", cfg.Ingest.InboxDir, "error", err)
			os.Exit(1)
		}
		go func() {
			for path := range events {
				if err := queue.Enqueue(ctx, async.Job{Path: path}); err != nil {
					logger.Warn("inbox enqueue failed", "path", path, "error", err)
				}
			}
		}()
		go func() {
			for err := range errs {
				logger.Warn("inbox watcher error", "error", err)
			}
		}()
	}

	srv := server.NewServer(svc, engine, exports, queue, logger)
	grpcServer, healthServer := server.NewGRPCServer(srv, logger)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	logger.Info("questionnaired listening", "addr", lis.Addr().String(), "driver", cfg.Database.Driver, "countries", len(countries))
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()
	grpcServer.GracefulStop()

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(drainCtx)
}
