package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	app "github.com/memetip/tipboard/internal/app"
	"github.com/memetip/tipboard/internal/app/httpapi"
	"github.com/memetip/tipboard/internal/app/storage"
	filestore "github.com/memetip/tipboard/internal/app/storage/file"
	pgstore "github.com/memetip/tipboard/internal/app/storage/postgres"
	redisstore "github.com/memetip/tipboard/internal/app/storage/redis"
	"github.com/memetip/tipboard/internal/config"
	"github.com/memetip/tipboard/internal/wallet"
	"github.com/memetip/tipboard/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	if err := run(cfg, log); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	store, cleanup, err := buildStore(cfg)
	if err != nil {
		return fmt.Errorf("configure storage: %w", err)
	}
	defer cleanup()

	gateway, err := wallet.NewClient(wallet.Config{
		RPCURL:  cfg.Wallet.RPCURL,
		Timeout: cfg.Wallet.Timeout,
	})
	if err != nil {
		return fmt.Errorf("configure wallet gateway: %w", err)
	}

	application, err := app.New(app.Options{
		Store:             store,
		Gateway:           gateway,
		ReconcileInterval: cfg.Reconcile.Interval,
	}, log)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start application: %w", err)
	}

	server := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: httpapi.NewHandler(application, httpapi.Options{
			JWTSecret: cfg.Auth.JWTSecret,
			TokenTTL:  cfg.Auth.TokenTTL,
		}, log.WithField("component", "httpapi")),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown")
	}
	return application.Stop(shutdownCtx)
}

func buildStore(cfg *config.Config) (storage.SnapshotStore, func(), error) {
	noop := func() {}
	switch cfg.Storage.Driver {
	case "file":
		store, err := filestore.New(cfg.Storage.Path)
		return store, noop, err
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, noop, fmt.Errorf("connect to redis: %w", err)
		}
		return redisstore.New(client, cfg.Storage.RedisKey), func() { client.Close() }, nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, noop, fmt.Errorf("connect to postgres: %w", err)
		}
		store, err := pgstore.New(db)
		if err != nil {
			db.Close()
			return nil, noop, err
		}
		return store, func() { db.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
