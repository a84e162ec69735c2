package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"
)

// Options selects and configures a gateway backend.
type Options struct {
	Backend  string
	Pool     *pgxpool.Pool
	Supabase SupabaseConfig
	// Tables lists the tables an in-memory backend exposes.
	Tables []string
	// Bootstrap runs EnsureSchema for the postgres backend.
	Bootstrap bool
}

// Open builds the gateway named by opts.Backend.
func Open(ctx context.Context, opts Options) (Gateway, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemory(opts.Tables...), nil
	case BackendPostgres:
		if opts.Pool == nil {
			return nil, fmt.Errorf("store: postgres backend requires a pool")
		}
		pg := NewPostgres(opts.Pool)
		if opts.Bootstrap {
			if err := pg.EnsureSchema(ctx); err != nil {
				return nil, err
			}
		}
		return pg, nil
	case BackendSupabase:
		if opts.Supabase.URL == "" || opts.Supabase.Key == "" {
			return nil, fmt.Errorf("store: supabase backend requires SUPABASE_URL and SUPABASE_KEY")
		}
		return NewSupabase(opts.Supabase), nil
	default:
		return nil, fmt.Errorf("store: unknown backend %q", opts.Backend)
	}
}
