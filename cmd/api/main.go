package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"

	"github.com/Nikita-Hritsay/TeamUp/db"
	"github.com/Nikita-Hritsay/TeamUp/internal/app/migrate"
	"github.com/Nikita-Hritsay/TeamUp/internal/events"
	httpx "github.com/Nikita-Hritsay/TeamUp/internal/http"
	"github.com/Nikita-Hritsay/TeamUp/internal/identity"
	"github.com/Nikita-Hritsay/TeamUp/internal/repository"
	"github.com/Nikita-Hritsay/TeamUp/internal/repository/memory"
	"github.com/Nikita-Hritsay/TeamUp/internal/repository/postgres"
	"github.com/Nikita-Hritsay/TeamUp/internal/service/card"
	"github.com/Nikita-Hritsay/TeamUp/internal/service/team"
	"github.com/Nikita-Hritsay/TeamUp/pkg/config"
	"github.com/Nikita-Hritsay/TeamUp/pkg/jwt"
	"github.com/Nikita-Hritsay/TeamUp/pkg/logger"
)

const identityAudience = "accounts"

func main() {
	cfg := config.LoadTeamsConfig()
	log := logger.New("teams", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, dbHealth, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	var rdb redis.UniversalClient
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("redis unavailable, falling back to in-process cache and limiter", "addr", addr, "error", err)
			_ = client.Close()
		} else {
			rdb = client
			defer client.Close()
		}
	}

	users, err := buildResolver(cfg, rdb, log)
	if err != nil {
		log.Error("failed to configure identity client", "error", err)
		os.Exit(1)
	}

	hub := events.NewHub(cfg.EventBuffer)
	defer hub.Stop()

	teamSvc := team.New(store, users, hub, log)
	cardSvc := card.New(store, users, log)

	var limiter httpx.RateLimiter
	if rdb != nil {
		limiter = httpx.NewRedisRateLimiter(rdb, log)
	} else {
		limiter = httpx.NewMemoryRateLimiter()
	}

	router := httpx.NewRouter(log, teamSvc, cardSvc, hub, limiter, httpx.Options{
		BuildVersion:    cfg.BuildVersion,
		RateLimitRead:   cfg.RateLimitRead,
		RateLimitWrite:  cfg.RateLimitWrite,
		RateLimitWindow: cfg.RateLimitWindow,
		DBHealth:        dbHealth,
	})
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("teams server starting", "addr", cfg.Addr, "env", cfg.Environment, "storage", cfg.StorageDriver, "version", cfg.BuildVersion)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("teams server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

// openStore selects the storage driver. The memory driver reports no database health.
func openStore(ctx context.Context, cfg config.TeamsConfig, log *slog.Logger) (repository.Store, func(context.Context) error, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StorageDriver)) {
	case "memory":
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.New(memory.WithActor(cfg.AuditActor)), nil, func() {}, nil
	case "postgres", "":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if cfg.AutoMigrate {
			if err := runMigrations(ctx, pool, cfg.MigrationsDir, log); err != nil {
				pool.Close()
				return nil, nil, nil, err
			}
		}
		return postgres.New(pool, postgres.WithActor(cfg.AuditActor)), pool.Ping, pool.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool, dir string, log *slog.Logger) error {
	source, err := migrate.Source(dir, db.Migrations())
	if err != nil {
		return err
	}
	runner, err := migrate.New(pool, source, log)
	if err != nil {
		return fmt.Errorf("configure migrations: %w", err)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		return err
	}
	return runner.Ensure(ctx)
}

// buildResolver chains the accounts client with the optional redis cache and
// the outcome counter.
func buildResolver(cfg config.TeamsConfig, rdb redis.UniversalClient, log *slog.Logger) (identity.Resolver, error) {
	opts := []identity.Option{
		identity.WithTimeout(cfg.IdentityTimeout),
		identity.WithLogger(log),
	}
	if secret := cfg.IdentityTokenSecret; secret != "" {
		opts = append(opts, identity.WithTokenSource(func() (string, error) {
			return jwt.GenerateServiceToken("teams", identityAudience, secret, cfg.IdentityTokenTTL)
		}))
	}
	httpResolver, err := identity.NewHTTPResolver(cfg.IdentityBaseURL, opts...)
	if err != nil {
		return nil, err
	}
	var resolver identity.Resolver = httpResolver
	if rdb != nil && cfg.IdentityCacheTTL > 0 {
		resolver = identity.NewCachedResolver(resolver, identity.NewRedisCache(rdb), cfg.IdentityCacheTTL, log)
	}
	return identity.NewInstrumentedResolver(resolver, prometheus.DefaultRegisterer)
}
