package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"savane-boutik/internal/config"
	"savane-boutik/internal/logger"
	"savane-boutik/internal/server"
	"savane-boutik/internal/service"
	"savane-boutik/internal/storage"
	"savane-boutik/internal/store"
	"savane-boutik/internal/tracker"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, stopTracker context.CancelFunc, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// Stop the abandoned cart tracker before the HTTP surface so no new
	// snapshot writes race the flush.
	stopTracker()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")
	done <- true
}

// openStorage builds the configured durable backend. The redis client is
// returned separately for components that share the instance.
func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.KV, *redis.Client, error) {
	switch cfg.Storage.Backend {
	case "postgres":
		kv, err := storage.NewPostgresKV(cfg.Database.ConnString())
		if err != nil {
			return nil, nil, err
		}
		if err := storage.RunMigrations(kv.DB(), "migrations", log); err != nil {
			kv.Close()
			return nil, nil, err
		}
		return kv, nil, nil
	case "redis":
		addr := fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port)
		kv, err := storage.NewRedisKV(ctx, addr, cfg.Redis.Password, cfg.Redis.DB, "boutik")
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Client(), nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting savane-boutik API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Backend),
	)

	ctx := context.Background()

	kv, redisClient, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open storage backend", zap.Error(err))
	}

	st := store.New(kv, log)
	if err := st.Hydrate(ctx); err != nil {
		log.Fatal("Failed to hydrate commerce store", zap.Error(err))
	}

	// The tracker resolves the merchant account per snapshot, so an
	// account registered while the server runs scopes later records
	// correctly. Before registration it records under the nil ID and the
	// dashboard stays empty.
	authSvc := service.NewAuthService(kv, cfg.JWT.Secret)
	merchantLookup := func(ctx context.Context) uuid.UUID {
		merchant, err := authSvc.Merchant(ctx)
		if err != nil {
			return uuid.Nil
		}
		return merchant.ID
	}

	trackerCtx, stopTracker := context.WithCancel(context.Background())
	cartTracker := tracker.New(st, merchantLookup, tracker.Config{
		Threshold:  cfg.Tracker.Threshold,
		SafetyTick: cfg.Tracker.SafetyTick,
	}, log)
	go cartTracker.Run(trackerCtx)

	srv := server.NewServer(cfg, log, st, kv, redisClient)

	done := make(chan bool, 1)
	go gracefulShutdown(srv, stopTracker, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")
}
