package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manajemen-lele/lele/internal/ledger"
	"github.com/manajemen-lele/lele/internal/store"
)

var errDown = errors.New("connection refused")

// flakyGateway fails every select against the listed tables.
type flakyGateway struct {
	store.Gateway
	failing map[string]bool
}

func (g flakyGateway) Select(ctx context.Context, table string, q store.Query) ([]store.Row, error) {
	if g.failing[table] {
		return nil, errDown
	}
	return g.Gateway.Select(ctx, table, q)
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func seededStore() *store.Memory {
	mem := store.NewMemory(ledger.Tables()...)
	mem.Seed("biaya_listrik", store.Row{"tanggal": "2024-01-05", "jumlah_biaya": dec(100000), "catatan": "PLN"})
	mem.Seed("biaya_pakan", store.Row{"tanggal": "2024-01-06", "nama_pakan": "Pelet", "harga": dec(200000)})
	mem.Seed("biaya_lainnya", store.Row{"tanggal": "2024-01-07", "nominal": dec(50000)})
	mem.Seed("penjualan", store.Row{"tanggal": "2024-01-08", "jumlah_kg": dec(20), "harga_per_kg": dec(15000)})
	mem.Seed("laba_rugi", store.Row{"tanggal": "2024-01-09", "pendapatan": dec(500000), "biaya": dec(350000)})
	mem.Seed("modal", store.Row{"tanggal": "2024-01-01T00:00:00", "jumlah_modal": dec(1000000)})
	mem.Seed("stok_bibit", store.Row{"tanggal": "2024-01-02", "jumlah": dec(1000), "harga_per_unit": dec(150)})
	return mem
}

func fixedClock() time.Time { return time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC) }

func TestEngineAggregatesAllLedgers(t *testing.T) {
	engine := NewEngine(seededStore(), WithClock(fixedClock))
	report, err := engine.Load(context.Background(), ledger.DateFilter{})
	require.NoError(t, err)

	assert.True(t, report.Complete())
	assert.Equal(t, ledger.StateReady, engine.State())
	assert.Equal(t, fixedClock(), report.GeneratedAt)

	tot := report.Totals
	assert.True(t, dec(100000).Equal(tot.Electricity.Decimal))
	assert.True(t, dec(200000).Equal(tot.Feed.Decimal))
	assert.True(t, dec(50000).Equal(tot.Misc.Decimal))
	assert.True(t, dec(300000).Equal(tot.Sales.Decimal))
	require.True(t, tot.NetOperatingCost.Valid)
	assert.True(t, dec(50000).Equal(tot.NetOperatingCost.Decimal))
	assert.True(t, dec(150000).Equal(tot.NetProfitLoss.Decimal))
	assert.True(t, dec(1000000).Equal(tot.Capital.Decimal))
	assert.True(t, dec(150000).Equal(tot.FryStock.Decimal))
}

func TestEngineFilterIsInclusiveForEveryKind(t *testing.T) {
	mem := store.NewMemory(ledger.Tables()...)
	dates := []string{"2023-12-31", "2024-01-01", "2024-01-15", "2024-01-31", "2024-02-01"}
	for _, s := range ledger.Schemas() {
		for _, d := range dates {
			row := store.Row{"tanggal": d}
			for _, f := range s.Fields {
				if f.Numeric && f.Input != "computed" {
					row[f.Column] = dec(1)
				}
			}
			mem.Seed(s.Table, row)
		}
	}

	report, err := NewEngine(mem).Load(context.Background(), ledger.NewDateFilter("2024-01-01", "2024-01-31"))
	require.NoError(t, err)
	for _, kind := range Kinds {
		rows := report.Rows(kind)
		require.Len(t, rows, 3, string(kind))
		assert.Equal(t, "2024-01-31", rows[0].Date, string(kind))
		assert.Equal(t, "2024-01-01", rows[2].Date, string(kind))
	}
}

func TestEnginePartialModeFlagsFailedKinds(t *testing.T) {
	gw := flakyGateway{Gateway: seededStore(), failing: map[string]bool{"penjualan": true}}
	report, err := NewEngine(gw).Load(context.Background(), ledger.DateFilter{})
	require.NoError(t, err)

	assert.False(t, report.Complete())
	assert.Equal(t, []ledger.Kind{ledger.KindPenjualan}, report.Failed())
	assert.Contains(t, report.Status[ledger.KindPenjualan].Err, "connection refused")
	assert.Empty(t, report.Rows(ledger.KindPenjualan))

	assert.False(t, report.Totals.Sales.Valid)
	assert.False(t, report.Totals.NetOperatingCost.Valid, "operating cost needs sales")
	assert.True(t, report.Totals.Electricity.Valid)
	assert.True(t, report.Totals.NetProfitLoss.Valid)
}

func TestEngineStrictModeFailsWholeLoad(t *testing.T) {
	gw := flakyGateway{Gateway: seededStore(), failing: map[string]bool{"modal": true}}
	engine := NewEngine(gw, WithMode(ModeStrict))
	report, err := engine.Load(context.Background(), ledger.DateFilter{})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, ledger.StateError, engine.State())
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeStrict, ParseMode("strict"))
	assert.Equal(t, ModePartial, ParseMode(""))
	assert.Equal(t, ModePartial, ParseMode("whatever"))
}
