package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/forumauth"
	"github.com/MrEthical07/forumauth/internal/config"
	"github.com/MrEthical07/forumauth/internal/httpserver"
	"github.com/MrEthical07/forumauth/internal/logging"
	"github.com/MrEthical07/forumauth/internal/observability"
	"github.com/MrEthical07/forumauth/metrics/export/prometheus"
	"github.com/MrEthical07/forumauth/store/gormstore"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		slog.Error("forumauth exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv); err != nil {
		logger.Warn("sentry init failed", "error", err)
	}
	defer observability.FlushSentry()

	engineCfg, err := cfg.Engine()
	if err != nil {
		return err
	}
	engineCfg.Audit.Enabled = true

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	store := gormstore.New(db)
	if err := store.Migrate(initCtx); err != nil {
		return err
	}

	builder := forumauth.New().
		WithConfig(engineCfg).
		WithCredentialStore(store).
		WithLogger(logger).
		WithAuditSink(forumauth.NewSlogSink(logger.With("component", "audit")))

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(initCtx).Err(); err != nil {
			return err
		}
		builder = builder.WithRedis(rdb)
		logger.Info("redis revocation registry enabled", "addr", cfg.RedisAddr)
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	e := httpserver.New(&httpserver.Deps{
		Engine:  engine,
		Logger:  logger,
		Metrics: prometheus.NewExporter(engine).Handler(),
		Ready:   readiness(db, rdb),
	})

	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("echo start", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo shutdown", "error", err)
	}
	if dropped := engine.AuditDropped(); dropped > 0 {
		logger.Warn("audit events dropped", "count", dropped)
	}
	return nil
}

// openDB uses Postgres when DATABASE_URL is set and a local SQLite file
// otherwise.
func openDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL != "" {
		return gormstore.OpenPostgres(cfg.DatabaseURL)
	}
	if cfg.Production() {
		return nil, errors.New("DATABASE_URL is required in production")
	}
	return gormstore.OpenSQLite(cfg.SQLitePath)
}

func readiness(db *gorm.DB, rdb *redis.Client) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return err
		}
		if rdb != nil {
			return rdb.Ping(ctx).Err()
		}
		return nil
	}
}
