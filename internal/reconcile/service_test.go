package reconcile

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manajemen-lele/lele/internal/ledger"
	"github.com/manajemen-lele/lele/internal/store"
)

type countingGateway struct {
	store.Gateway
	selects atomic.Int64
}

func (g *countingGateway) Select(ctx context.Context, table string, q store.Query) ([]store.Row, error) {
	g.selects.Add(1)
	return g.Gateway.Select(ctx, table, q)
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestServiceCachesCompleteReports(t *testing.T) {
	gw := &countingGateway{Gateway: seededStore()}
	svc := NewService(NewEngine(gw), NewCache(newRedis(t), time.Minute), nil)
	ctx := context.Background()
	filter := ledger.NewDateFilter("2024-01-01", "2024-01-31")

	first, err := svc.Report(ctx, filter)
	require.NoError(t, err)
	loads := gw.selects.Load()
	assert.Equal(t, int64(len(Kinds)), loads)

	second, err := svc.Report(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, loads, gw.selects.Load(), "served from cache")
	assert.True(t, first.Totals.NetProfitLoss.Decimal.Equal(second.Totals.NetProfitLoss.Decimal))
	assert.Len(t, second.Rows(ledger.KindPakan), 1)

	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.Report(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 2*loads, gw.selects.Load(), "invalidation forces a reload")
}

func TestServiceSkipsCachingPartialReports(t *testing.T) {
	gw := &countingGateway{Gateway: flakyGateway{Gateway: seededStore(), failing: map[string]bool{"modal": true}}}
	svc := NewService(NewEngine(gw), NewCache(newRedis(t), time.Minute), nil)
	ctx := context.Background()

	_, err := svc.Report(ctx, ledger.DateFilter{})
	require.NoError(t, err)
	_, err = svc.Report(ctx, ledger.DateFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2*len(Kinds)), gw.selects.Load())
}

func TestServiceWithoutRedis(t *testing.T) {
	gw := &countingGateway{Gateway: seededStore()}
	svc := NewService(NewEngine(gw), NewCache(nil, time.Minute), nil)

	report, err := svc.Report(context.Background(), ledger.DateFilter{})
	require.NoError(t, err)
	assert.True(t, report.Complete())
	require.NoError(t, svc.Invalidate(context.Background()))
}

func TestCacheVersionBump(t *testing.T) {
	cache := NewCache(newRedis(t), time.Minute)
	ctx := context.Background()

	k1, err := cache.BuildKey(ctx, "partial", "*_*")
	require.NoError(t, err)
	assert.Equal(t, "laporan:partial:*_*:v1", k1)
	require.NoError(t, cache.Bump(ctx))
	k2, err := cache.BuildKey(ctx, "partial", "*_*")
	require.NoError(t, err)
	assert.Equal(t, "laporan:partial:*_*:v2", k2)
}
