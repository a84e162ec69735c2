package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryInsertAssignsIdentity(t *testing.T) {
	m := NewMemory("biaya_listrik")
	ctx := context.Background()

	first, err := m.Insert(ctx, "biaya_listrik", Row{"tanggal": "2024-01-02", "jumlah_biaya": decimal.NewFromInt(1000)})
	require.NoError(t, err)
	second, err := m.Insert(ctx, "biaya_listrik", Row{"tanggal": "2024-01-03", "jumlah_biaya": decimal.NewFromInt(2000)})
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID())
	assert.NotEqual(t, first.ID(), second.ID())
	assert.True(t, second[ColumnCreatedAt].(time.Time).After(first[ColumnCreatedAt].(time.Time)))
}

func TestMemorySelectFiltersAndOrders(t *testing.T) {
	m := NewMemory("penjualan")
	for _, d := range []string{"2023-12-31", "2024-01-01", "2024-01-15", "2024-01-31", "2024-02-01"} {
		m.Seed("penjualan", Row{"tanggal": d})
	}

	rows, err := m.Select(context.Background(), "penjualan", Query{
		Filters: []Filter{Gte("tanggal", "2024-01-01"), Lte("tanggal", "2024-01-31")},
		Order:   &Order{Column: "tanggal", Descending: true},
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2024-01-31", rows[0]["tanggal"])
	assert.Equal(t, "2024-01-15", rows[1]["tanggal"])
	assert.Equal(t, "2024-01-01", rows[2]["tanggal"])
}

func TestMemoryDateBoundMatchesTimestampRows(t *testing.T) {
	m := NewMemory("modal")
	m.Seed("modal", Row{"tanggal": "2024-01-31T00:00:00"})

	rows, err := m.Select(context.Background(), "modal", Query{Filters: []Filter{Lte("tanggal", "2024-01-31")}})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMemoryOrdersByCreation(t *testing.T) {
	m := NewMemory("biaya_pakan")
	ctx := context.Background()
	a, err := m.Insert(ctx, "biaya_pakan", Row{"nama_pakan": "A"})
	require.NoError(t, err)
	b, err := m.Insert(ctx, "biaya_pakan", Row{"nama_pakan": "B"})
	require.NoError(t, err)

	rows, err := m.Select(ctx, "biaya_pakan", Query{Order: &Order{Column: ColumnCreatedAt, Descending: true}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, b.ID(), rows[0].ID())
	assert.Equal(t, a.ID(), rows[1].ID())
}

func TestMemoryUpdateAndDelete(t *testing.T) {
	m := NewMemory("modal")
	ctx := context.Background()
	row, err := m.Insert(ctx, "modal", Row{"tanggal": "2024-03-01", "jumlah_modal": decimal.NewFromInt(5)})
	require.NoError(t, err)

	require.NoError(t, m.Update(ctx, "modal", row.ID(), Row{"jumlah_modal": decimal.NewFromInt(7)}))
	rows, err := m.Select(ctx, "modal", Query{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, decimal.NewFromInt(7).Equal(rows[0]["jumlah_modal"].(decimal.Decimal)))

	require.NoError(t, m.Delete(ctx, "modal", row.ID()))
	rows, err = m.Select(ctx, "modal", Query{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	err = m.Delete(ctx, "modal", row.ID())
	assert.True(t, errors.Is(err, ErrNotFound))
	err = m.Update(ctx, "modal", "missing", Row{"jumlah_modal": decimal.NewFromInt(1)})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryUnknownTable(t *testing.T) {
	m := NewMemory()
	_, err := m.Select(context.Background(), "nope", Query{})
	assert.True(t, errors.Is(err, ErrUnknownTable))
}

func TestMemorySelectReturnsCopies(t *testing.T) {
	m := NewMemory("modal")
	m.Seed("modal", Row{"tanggal": "2024-01-01"})

	rows, err := m.Select(context.Background(), "modal", Query{})
	require.NoError(t, err)
	rows[0]["tanggal"] = "changed"

	again, err := m.Select(context.Background(), "modal", Query{})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", again[0]["tanggal"])
}

type recordingObserver struct {
	ops []string
}

func (r *recordingObserver) ObserveStoreCall(op, table string, _ time.Duration, _ error) {
	r.ops = append(r.ops, op+":"+table)
}

func TestInstrumentReportsEachCall(t *testing.T) {
	obs := &recordingObserver{}
	g := Instrument(NewMemory("modal"), obs, time.Second)
	ctx := context.Background()

	row, err := g.Insert(ctx, "modal", Row{"tanggal": "2024-01-01"})
	require.NoError(t, err)
	_, err = g.Select(ctx, "modal", Query{})
	require.NoError(t, err)
	require.NoError(t, g.Update(ctx, "modal", row.ID(), Row{"tanggal": "2024-01-02"}))
	require.NoError(t, g.Delete(ctx, "modal", row.ID()))

	assert.Equal(t, []string{"insert:modal", "select:modal", "update:modal", "delete:modal"}, obs.ops)
}
