package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/manajemen-lele/lele/internal/auth"
	"github.com/manajemen-lele/lele/internal/ledger"
	"github.com/manajemen-lele/lele/internal/platform/cache"
	"github.com/manajemen-lele/lele/internal/platform/db"
	"github.com/manajemen-lele/lele/internal/reconcile"
	"github.com/manajemen-lele/lele/internal/reconcile/export"
	"github.com/manajemen-lele/lele/internal/store"
	"github.com/manajemen-lele/lele/report"
)

// Backends bundles the clients shared by the server, the worker and the CLI.
type Backends struct {
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Gateway store.Gateway
	Engine  *reconcile.Engine
	Reports *reconcile.Service
	Exports *export.Set

	logger *slog.Logger
}

// OpenBackends connects Postgres when needed, Redis and the ledger gateway.
// A nil observer leaves the gateway uninstrumented apart from the call timeout.
func OpenBackends(ctx context.Context, cfg *Config, logger *slog.Logger, obs store.Observer) (*Backends, error) {
	b := &Backends{logger: logger}
	if cfg.NeedsPostgres() {
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			return nil, err
		}
		b.Pool = pool
	}

	client, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Redis = client

	gw, err := store.Open(ctx, store.Options{
		Backend: cfg.StoreBackend,
		Pool:    b.Pool,
		Supabase: store.SupabaseConfig{
			URL:     cfg.SupabaseURL,
			Key:     cfg.SupabaseKey,
			Timeout: cfg.StoreTimeout,
		},
		Tables:    ledger.Tables(),
		Bootstrap: !cfg.IsProduction(),
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	b.Gateway = store.Instrument(gw, obs, cfg.StoreTimeout)

	b.Engine = reconcile.NewEngine(b.Gateway, reconcile.WithMode(reconcile.ParseMode(cfg.ReportMode)))
	b.Reports = reconcile.NewService(b.Engine, reconcile.NewCache(b.Redis, cfg.ReportCacheTTL), logger)

	var pdf export.HTMLRenderer
	if cfg.PDFRenderer == export.RendererGotenberg {
		pdf = report.NewClient(cfg.GotenbergURL, cfg.AppRequestTimeout)
	}
	b.Exports = export.NewSet(cfg.PDFRenderer, pdf, nil)
	return b, nil
}

// QueueOpts returns the asynq connection options for cfg.
func QueueOpts(cfg *Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}

// NewAuthenticator builds the provider named by AUTH_PROVIDER.
func NewAuthenticator(cfg *Config, pool *pgxpool.Pool) (auth.Authenticator, error) {
	switch cfg.AuthProvider {
	case auth.ProviderGoTrue:
		return auth.NewGoTrueAuthenticator(auth.GoTrueConfig{
			URL:       cfg.SupabaseURL,
			Key:       cfg.SupabaseKey,
			JWTSecret: cfg.SupabaseJWTSecret,
			Timeout:   cfg.StoreTimeout,
		}), nil
	case auth.ProviderLocal:
		if pool == nil {
			return nil, fmt.Errorf("local auth requires a postgres pool")
		}
		return auth.NewLocalAuthenticator(auth.NewPGUserStore(pool)), nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.AuthProvider)
	}
}

// Close releases every opened client.
func (b *Backends) Close() {
	if b == nil {
		return
	}
	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil && b.logger != nil {
			b.logger.Warn("redis close", slog.Any("error", err))
		}
	}
	if b.Pool != nil {
		b.Pool.Close()
	}
}
