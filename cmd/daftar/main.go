package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/daftar-ledger/daftar/internal/app"
	"github.com/daftar-ledger/daftar/internal/ledger"
	"github.com/daftar-ledger/daftar/internal/observability"
	"github.com/daftar-ledger/daftar/internal/offline"
	"github.com/daftar-ledger/daftar/internal/platform/cache"
	"github.com/daftar-ledger/daftar/internal/platform/db"
	"github.com/daftar-ledger/daftar/internal/remote"
	"github.com/daftar-ledger/daftar/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	// The remote store is optional: without PG_DSN the service runs
	// entirely from the local snapshot.
	var remoteStore ledger.RemoteStore
	if cfg.PGDSN != "" {
		if err := db.Migrate(cfg.PGDSN); err != nil {
			logger.Error("migrate database", slog.Any("error", err))
			os.Exit(1)
		}
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		remoteStore = remote.NewPostgresStore(pool)
	} else {
		logger.Warn("PG_DSN empty, running without a remote store")
	}

	metrics := observability.NewMetrics()
	store := offline.NewRedisStore(redisClient)
	queue := offline.NewQueue(store, logger)
	monitor := offline.NewMonitor(cfg.StartOnline && remoteStore != nil)

	service := ledger.NewService(remoteStore, store, queue, monitor, logger, metrics)

	syncClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := syncClient.Close(); err != nil {
			logger.Warn("sync client close", slog.Any("error", err))
		}
	}()

	// Drain the queue and refresh the snapshot whenever the uplink
	// comes back.
	go watchConnectivity(ctx, logger, service, monitor, syncClient)

	handler := ledger.NewHandler(logger, service)
	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		LedgerHandler: handler,
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func watchConnectivity(ctx context.Context, logger *slog.Logger, service *ledger.Service, monitor *offline.Monitor, syncClient *jobs.Client) {
	updates := monitor.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-updates:
			if !ok {
				return
			}
			if !online {
				logger.Info("connectivity lost, buffering writes locally")
				continue
			}
			logger.Info("connectivity restored, draining offline queue")
			synced, err := service.SyncOfflineChanges(ctx)
			if err != nil {
				logger.Warn("drain after reconnect incomplete",
					slog.Int("synced", synced), slog.Any("error", err))
			}
			if err := service.RefreshAll(ctx); err != nil {
				logger.Warn("snapshot refresh after reconnect", slog.Any("error", err))
			}
			// Nudge the worker too, so anything left behind by a
			// transient failure retries sooner than the next cron tick.
			if _, err := syncClient.EnqueueOfflineSync(ctx); err != nil {
				logger.Warn("enqueue offline sync task", slog.Any("error", err))
			}
		}
	}
}
