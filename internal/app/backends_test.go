package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manajemen-lele/lele/internal/auth"
	"github.com/manajemen-lele/lele/internal/ledger"
	"github.com/manajemen-lele/lele/internal/reconcile"
	"github.com/manajemen-lele/lele/internal/store"
)

type callCounter struct{ calls int }

func (c *callCounter) ObserveStoreCall(string, string, time.Duration, error) { c.calls++ }

func TestOpenBackendsMemory(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &Config{
		StoreBackend:   "memory",
		AuthProvider:   "gotrue",
		RedisAddr:      mr.Addr(),
		ReportMode:     "strict",
		ReportCacheTTL: time.Minute,
		StoreTimeout:   time.Second,
		PDFRenderer:    "maroto",
	}
	obs := &callCounter{}
	b, err := OpenBackends(context.Background(), cfg, nil, obs)
	require.NoError(t, err)
	defer b.Close()

	assert.Nil(t, b.Pool)
	assert.Equal(t, reconcile.ModeStrict, b.Engine.Mode())

	report, err := b.Reports.Report(context.Background(), ledger.DateFilter{})
	require.NoError(t, err)
	assert.True(t, report.Complete())
	assert.Equal(t, len(reconcile.Kinds), obs.calls)

	_, err = b.Exports.For("pdf")
	require.NoError(t, err)
}

func TestOpenBackendsUnknownStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &Config{StoreBackend: "sqlite", AuthProvider: "gotrue", RedisAddr: mr.Addr()}
	_, err := OpenBackends(context.Background(), cfg, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open store")
}

func TestNewAuthenticator(t *testing.T) {
	a, err := NewAuthenticator(&Config{AuthProvider: auth.ProviderGoTrue, SupabaseURL: "http://supabase.local", SupabaseKey: "anon"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &auth.GoTrueAuthenticator{}, a)

	_, err = NewAuthenticator(&Config{AuthProvider: auth.ProviderLocal}, nil)
	require.Error(t, err)

	_, err = NewAuthenticator(&Config{AuthProvider: "ldap"}, nil)
	require.Error(t, err)
}

var _ store.Observer = (*callCounter)(nil)

func TestQueueOptsCarriesRedisAuth(t *testing.T) {
	opts := QueueOpts(&Config{RedisAddr: "redis:6379", RedisPassword: "rahasia", RedisDB: 2})
	assert.Equal(t, "redis:6379", opts.Addr)
	assert.Equal(t, "rahasia", opts.Password)
	assert.Equal(t, 2, opts.DB)
}
