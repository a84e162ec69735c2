package ledger

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manajemen-lele/lele/internal/store"
)

// countingGateway counts calls and can fail writes.
type countingGateway struct {
	store.Gateway
	selects  atomic.Int32
	writes   atomic.Int32
	failWith error
}

func (g *countingGateway) Select(ctx context.Context, table string, q store.Query) ([]store.Row, error) {
	g.selects.Add(1)
	return g.Gateway.Select(ctx, table, q)
}

func (g *countingGateway) Insert(ctx context.Context, table string, row store.Row) (store.Row, error) {
	g.writes.Add(1)
	if g.failWith != nil {
		return nil, g.failWith
	}
	return g.Gateway.Insert(ctx, table, row)
}

func (g *countingGateway) Update(ctx context.Context, table, id string, row store.Row) error {
	g.writes.Add(1)
	if g.failWith != nil {
		return g.failWith
	}
	return g.Gateway.Update(ctx, table, id, row)
}

func (g *countingGateway) Delete(ctx context.Context, table, id string) error {
	g.writes.Add(1)
	if g.failWith != nil {
		return g.failWith
	}
	return g.Gateway.Delete(ctx, table, id)
}

func newGateway() *countingGateway {
	return &countingGateway{Gateway: store.NewMemory(Tables()...)}
}

func fill(f *FormController, draft map[string]string) {
	for k, v := range draft {
		f.UpdateField(k, v)
	}
}

func TestFormSubmitInsertsAndClears(t *testing.T) {
	gw := newGateway()
	form := NewFormController(MustLookup(KindListrik), gw)
	fill(form, validDraft(KindListrik))

	require.NoError(t, form.Submit(context.Background()))
	assert.Empty(t, form.Draft())
	assert.Empty(t, form.EditingID())
	assert.Empty(t, form.Err())
	assert.Equal(t, StateReady, form.State())

	rows, err := gw.Select(context.Background(), "biaya_listrik", store.Query{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-01-10", rows[0]["tanggal"])
}

func TestFormSubmitValidationAbortsWithoutCall(t *testing.T) {
	gw := newGateway()
	form := NewFormController(MustLookup(KindPenjualan), gw)
	form.UpdateField(FieldDate, "2024-01-10")
	form.UpdateField(FieldQuantity, "0")

	err := form.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "Tanggal, Jumlah KG dan Harga per KG wajib diisi.", form.Err())
	assert.Equal(t, int32(0), gw.writes.Load())
	assert.Equal(t, "0", form.Value(FieldQuantity))
}

func TestFormSubmitFailurePreservesDraft(t *testing.T) {
	gw := newGateway()
	gw.failWith = errors.New("permission denied for table modal")
	form := NewFormController(MustLookup(KindModal), gw)
	rec := Record{ID: "abc", Kind: KindModal, Date: "2024-01-01", Amount: decimal.NewFromInt(10)}
	form.BeginEdit(rec)
	form.UpdateField(FieldAmount, "20")

	err := form.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Gagal update data: permission denied for table modal", form.Err())
	assert.Equal(t, "abc", form.EditingID())
	assert.Equal(t, "20", form.Value(FieldAmount))
	assert.Equal(t, StateError, form.State())
}

func TestFormInsertFailureMessage(t *testing.T) {
	gw := newGateway()
	gw.failWith = errors.New("timeout")
	form := NewFormController(MustLookup(KindListrik), gw)
	fill(form, validDraft(KindListrik))

	require.Error(t, form.Submit(context.Background()))
	assert.Equal(t, "Gagal tambah data: timeout", form.Err())
}

func TestFormFryStockTotal(t *testing.T) {
	gw := newGateway()
	ctx := context.Background()
	s := MustLookup(KindBibit)
	form := NewFormController(s, gw)
	fill(form, validDraft(KindBibit))
	assert.Equal(t, "1500", form.PreviewTotal())
	require.NoError(t, form.Submit(ctx))

	rows, err := gw.Select(ctx, s.Table, store.Query{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, decimal.NewFromInt(1500).Equal(rows[0]["harga"].(decimal.Decimal)))

	rec, err := Decode(s, rows[0])
	require.NoError(t, err)
	form.BeginEdit(rec)
	form.UpdateField(FieldQuantity, "4")
	require.NoError(t, form.Submit(ctx))

	rows, err = gw.Select(ctx, s.Table, store.Query{})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2000).Equal(rows[0]["harga"].(decimal.Decimal)))
}

func TestFormBeginEditDoesNotFetch(t *testing.T) {
	gw := newGateway()
	form := NewFormController(MustLookup(KindPakan), gw)
	form.BeginEdit(Record{ID: "p1", Kind: KindPakan, Name: "Pelet", Amount: decimal.NewFromInt(9000), Date: "2024-05-01", Note: "karung"})

	assert.Equal(t, "p1", form.EditingID())
	assert.True(t, form.Editing())
	assert.Equal(t, "Pelet", form.Value(FieldName))
	assert.Equal(t, "9000", form.Value(FieldAmount))
	assert.Equal(t, "karung", form.Value(FieldNote))
	assert.Equal(t, int32(0), gw.selects.Load())
}

func TestFormCancelEditRestoresCreateMode(t *testing.T) {
	gw := newGateway()
	gw.failWith = errors.New("boom")
	form := NewFormController(MustLookup(KindListrik), gw)
	form.BeginEdit(Record{ID: "x", Kind: KindListrik, Date: "2024-01-01", Amount: decimal.NewFromInt(1)})
	require.Error(t, form.Submit(context.Background()))
	require.NotEmpty(t, form.Err())

	form.CancelEdit()
	assert.Empty(t, form.EditingID())
	assert.Empty(t, form.Draft())
	assert.Empty(t, form.Err())
	assert.Equal(t, StateIdle, form.State())
}

func TestFormIgnoresUnknownField(t *testing.T) {
	form := NewFormController(MustLookup(KindModal), newGateway())
	form.UpdateField("nama_pakan", "x")
	assert.Empty(t, form.Draft())
}
