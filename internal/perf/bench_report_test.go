package perf

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/manajemen-lele/lele/internal/ledger"
	"github.com/manajemen-lele/lele/internal/reconcile"
	"github.com/manajemen-lele/lele/internal/reconcile/export"
	"github.com/manajemen-lele/lele/internal/store"
)

type downGateway struct {
	store.Gateway
	table string
}

func (g downGateway) Select(ctx context.Context, table string, q store.Query) ([]store.Row, error) {
	if table == g.table {
		return nil, errors.New("connection reset")
	}
	return g.Gateway.Select(ctx, table, q)
}

// seasonStore fills every ledger with one row per day for the given number of days from 2024-01-01.
func seasonStore(t testing.TB, days int) *store.Memory {
	t.Helper()
	mem := store.NewMemory(ledger.Tables()...)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d).Format(time.DateOnly)
		n := decimal.NewFromInt(int64(d + 1))
		mem.Seed("biaya_listrik", store.Row{"tanggal": date, "jumlah_biaya": n.Mul(decimal.NewFromInt(1000))})
		mem.Seed("biaya_pakan", store.Row{"tanggal": date, "nama_pakan": fmt.Sprintf("Pelet %d", d), "harga": n.Mul(decimal.NewFromInt(5000))})
		mem.Seed("biaya_lainnya", store.Row{"tanggal": date, "nominal": decimal.NewFromInt(2500)})
		mem.Seed("penjualan", store.Row{"tanggal": date, "jumlah_kg": decimal.NewFromInt(12), "harga_per_kg": decimal.NewFromInt(21000)})
		mem.Seed("laba_rugi", store.Row{"tanggal": date, "pendapatan": decimal.NewFromInt(252000), "biaya": decimal.NewFromInt(90000)})
		mem.Seed("modal", store.Row{"tanggal": date + "T07:00:00", "jumlah_modal": decimal.NewFromInt(100000)})
		mem.Seed("stok_bibit", store.Row{"tanggal": date, "jumlah": decimal.NewFromInt(100), "harga_per_unit": decimal.NewFromInt(200), "harga": decimal.NewFromInt(20000)})
	}
	return mem
}

func TestReportLatencyTargets(t *testing.T) {
	engine := reconcile.NewEngine(seasonStore(t, 180))
	exports := export.NewSet(export.RendererMaroto, nil, nil)

	scenarios := []struct {
		name      string
		filter    ledger.DateFilter
		format    export.Format
		threshold time.Duration
	}{
		{name: "month csv", filter: ledger.NewDateFilter("2024-02-01", "2024-02-29"), format: export.FormatCSV, threshold: 500 * time.Millisecond},
		{name: "season xlsx", filter: ledger.DateFilter{}, format: export.FormatXLSX, threshold: 2 * time.Second},
		{name: "season pdf", filter: ledger.DateFilter{}, format: export.FormatPDF, threshold: 5 * time.Second},
	}

	for _, scenario := range scenarios {
		samples := make([]time.Duration, 0, 10)
		for i := 0; i < 10; i++ {
			started := time.Now()
			report, err := engine.Load(context.Background(), scenario.filter)
			if err != nil {
				t.Fatalf("%s: load: %v", scenario.name, err)
			}
			if _, err := exports.Render(context.Background(), scenario.format, report); err != nil {
				t.Fatalf("%s: render: %v", scenario.name, err)
			}
			samples = append(samples, time.Since(started))
		}
		p95 := percentile95(samples)
		if p95 > scenario.threshold {
			t.Fatalf("%s latency regression: p95=%s threshold=%s", scenario.name, p95, scenario.threshold)
		}
	}
}

func BenchmarkEngineLoadSeason(b *testing.B) {
	engine := reconcile.NewEngine(seasonStore(b, 365))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Load(context.Background(), ledger.DateFilter{}); err != nil {
			b.Fatal(err)
		}
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
