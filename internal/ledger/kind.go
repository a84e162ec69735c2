// Package ledger models the farm's bookkeeping entities as one generic record
// shape tagged by kind, together with the form controller and list view that
// drive every data entry page.
package ledger

import (
	"fmt"

	"github.com/manajemen-lele/lele/internal/store"
)

// Kind tags a record with the ledger it belongs to.
type Kind string

const (
	KindListrik   Kind = "listrik"
	KindPakan     Kind = "pakan"
	KindLainnya   Kind = "lainnya"
	KindModal     Kind = "modal"
	KindBibit     Kind = "bibit"
	KindPenjualan Kind = "penjualan"
	KindLabaRugi  Kind = "labarugi"
)

// Canonical field names shared by all kinds.
const (
	FieldDate      = "date"
	FieldAmount    = "amount"
	FieldName      = "name"
	FieldNote      = "note"
	FieldQuantity  = "quantity"
	FieldUnitPrice = "unit_price"
	FieldTotal     = "total"
	FieldIncome    = "income"
	FieldCost      = "cost"
)

// TotalPolicy states how a kind's line total is obtained.
type TotalPolicy int

const (
	// TotalNone means the kind has a single money field and no line total.
	TotalNone TotalPolicy = iota
	// TotalPersisted stores quantity x unit price next to its factors; every submit recomputes it.
	TotalPersisted
	// TotalComputed derives quantity x unit price whenever the record is read.
	TotalComputed
)

// Field maps a canonical field onto a table column.
type Field struct {
	Name   string
	Column string
	Label  string
	Input  string
	// Fallbacks are read when Column is absent from a row.
	Fallbacks []string
	// Nullable fields are written as NULL instead of an empty string.
	Nullable bool
	// Numeric fields are parsed as decimals before writing.
	Numeric bool
}

// Rule is one validation step evaluated in declaration order.
type Rule struct {
	Field   string
	Tag     string
	Message string
}

// Schema describes one kind: its table, columns, ordering and rules.
type Schema struct {
	Kind     Kind
	Table    string
	Title    string
	Category string
	Path     string
	Confirm  string
	Fields   []Field
	Rules    []Rule
	Order    store.Order
	Total    TotalPolicy
	// Money is the canonical field summed by list footers and reports.
	Money string
}

// Field returns the schema field with the given canonical name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Has reports whether the kind carries the canonical field.
func (s *Schema) Has(name string) bool {
	_, ok := s.Field(name)
	return ok
}

const (
	confirmDefault = "Yakin ingin menghapus data ini?"
	dateColumn     = "tanggal"
)

var byCreation = store.Order{Column: store.ColumnCreatedAt, Descending: true}
var byDate = store.Order{Column: dateColumn, Descending: true}

func dateField() Field {
	return Field{Name: FieldDate, Column: dateColumn, Label: "Tanggal", Input: "date"}
}

func noteField(column string) Field {
	return Field{Name: FieldNote, Column: column, Label: "Catatan", Input: "text"}
}

var schemas = []*Schema{
	{
		Kind:     KindListrik,
		Table:    "biaya_listrik",
		Title:    "Biaya Listrik",
		Category: "Biaya Listrik",
		Path:     "/biaya/listrik",
		Confirm:  confirmDefault,
		Fields: []Field{
			dateField(),
			{Name: FieldAmount, Column: "jumlah_biaya", Label: "Jumlah Biaya (Rp)", Input: "number", Numeric: true},
			noteField("catatan"),
		},
		Rules: []Rule{
			{Field: FieldAmount, Tag: "posdec", Message: "Jumlah biaya harus berupa angka positif."},
			{Field: FieldDate, Tag: "required", Message: "Tanggal wajib diisi."},
		},
		Order: byCreation,
		Money: FieldAmount,
	},
	{
		Kind:     KindPakan,
		Table:    "biaya_pakan",
		Title:    "Biaya Pakan",
		Category: "Biaya Pakan",
		Path:     "/biaya/pakan",
		Confirm:  confirmDefault,
		Fields: []Field{
			{Name: FieldName, Column: "nama_pakan", Label: "Nama Pakan", Input: "text"},
			{Name: FieldAmount, Column: "harga", Label: "Harga (Rp)", Input: "number", Numeric: true},
			dateField(),
			noteField("catatan"),
		},
		Rules: []Rule{
			{Field: FieldName, Tag: "required", Message: "Nama pakan wajib diisi."},
			{Field: FieldAmount, Tag: "posdec", Message: "Harga harus berupa angka positif."},
			{Field: FieldDate, Tag: "required", Message: "Tanggal wajib diisi."},
		},
		Order: byCreation,
		Money: FieldAmount,
	},
	{
		Kind:     KindLainnya,
		Table:    "biaya_lainnya",
		Title:    "Biaya Lain-lain",
		Category: "Biaya Lainnya",
		Path:     "/biaya/lain-lain",
		Confirm:  confirmDefault,
		Fields: []Field{
			dateField(),
			{Name: FieldAmount, Column: "nominal", Label: "Nominal (Rp)", Input: "number", Numeric: true, Fallbacks: []string{"jumlah_biaya"}},
			noteField("catatan"),
		},
		Rules: []Rule{
			{Field: FieldAmount, Tag: "posdec", Message: "Nominal harus berupa angka positif."},
			{Field: FieldDate, Tag: "required", Message: "Tanggal wajib diisi."},
		},
		Order: byCreation,
		Money: FieldAmount,
	},
	{
		Kind:     KindModal,
		Table:    "modal",
		Title:    "Modal",
		Category: "Modal",
		Path:     "/modal",
		Confirm:  "Yakin ingin menghapus data modal ini?",
		Fields: []Field{
			dateField(),
			{Name: FieldAmount, Column: "jumlah_modal", Label: "Jumlah Modal (Rp)", Input: "number", Numeric: true},
			noteField("catatan"),
		},
		Rules: []Rule{
			{Field: FieldDate, Tag: "required", Message: "Tanggal dan jumlah modal wajib diisi."},
			{Field: FieldAmount, Tag: "posdec", Message: "Tanggal dan jumlah modal wajib diisi."},
		},
		Order: byDate,
		Money: FieldAmount,
	},
	{
		Kind:     KindBibit,
		Table:    "stok_bibit",
		Title:    "Stok Bibit",
		Category: "Stok Bibit",
		Path:     "/stok-bibit",
		Confirm:  "Yakin mau hapus data ini?",
		Fields: []Field{
			dateField(),
			{Name: FieldQuantity, Column: "jumlah", Label: "Jumlah (ekor)", Input: "number", Numeric: true},
			{Name: FieldUnitPrice, Column: "harga_per_unit", Label: "Harga per Unit (Rp)", Input: "number", Numeric: true},
			{Name: FieldTotal, Column: "harga", Label: "Total Harga (Rp)", Input: "computed", Numeric: true},
		},
		Rules: []Rule{
			{Field: FieldDate, Tag: "required", Message: "Mohon isi semua data"},
			{Field: FieldQuantity, Tag: "posdec", Message: "Mohon isi semua data"},
			{Field: FieldUnitPrice, Tag: "posdec", Message: "Mohon isi semua data"},
		},
		Order: byDate,
		Total: TotalPersisted,
		Money: FieldTotal,
	},
	{
		Kind:     KindPenjualan,
		Table:    "penjualan",
		Title:    "Penjualan",
		Category: "Penjualan",
		Path:     "/penjualan",
		Confirm:  confirmDefault,
		Fields: []Field{
			dateField(),
			{Name: FieldQuantity, Column: "jumlah_kg", Label: "Jumlah (Kg)", Input: "number", Numeric: true},
			{Name: FieldUnitPrice, Column: "harga_per_kg", Label: "Harga per Kg (Rp)", Input: "number", Numeric: true},
			{Name: FieldName, Column: "nama_pembeli", Label: "Nama Pembeli", Input: "text", Nullable: true},
			{Name: FieldNote, Column: "catatan", Label: "Catatan", Input: "text", Nullable: true},
		},
		Rules: []Rule{
			{Field: FieldDate, Tag: "required", Message: "Tanggal, Jumlah KG dan Harga per KG wajib diisi."},
			{Field: FieldQuantity, Tag: "posdec", Message: "Tanggal, Jumlah KG dan Harga per KG wajib diisi."},
			{Field: FieldUnitPrice, Tag: "posdec", Message: "Tanggal, Jumlah KG dan Harga per KG wajib diisi."},
		},
		Order: byDate,
		Total: TotalComputed,
		Money: FieldTotal,
	},
	{
		Kind:     KindLabaRugi,
		Table:    "laba_rugi",
		Title:    "Laba Rugi",
		Category: "Laba Rugi",
		Path:     "/laba-rugi",
		Confirm:  confirmDefault,
		Fields: []Field{
			dateField(),
			{Name: FieldIncome, Column: "pendapatan", Label: "Pendapatan (Rp)", Input: "number", Numeric: true},
			{Name: FieldCost, Column: "biaya", Label: "Biaya (Rp)", Input: "number", Numeric: true},
			noteField("keterangan"),
		},
		Rules: []Rule{
			{Field: FieldDate, Tag: "required", Message: "Tanggal wajib diisi."},
			{Field: FieldIncome, Tag: "nonnegdec", Message: "Pendapatan harus berupa angka tidak negatif."},
			{Field: FieldCost, Tag: "nonnegdec", Message: "Biaya harus berupa angka tidak negatif."},
		},
		Order: byDate,
		Money: FieldIncome,
	},
}

var schemaByKind = func() map[Kind]*Schema {
	m := make(map[Kind]*Schema, len(schemas))
	for _, s := range schemas {
		m[s.Kind] = s
	}
	return m
}()

// Lookup returns the schema for a kind.
func Lookup(kind Kind) (*Schema, error) {
	s, ok := schemaByKind[kind]
	if !ok {
		return nil, fmt.Errorf("ledger: unknown kind %q", kind)
	}
	return s, nil
}

// MustLookup is Lookup for statically known kinds.
func MustLookup(kind Kind) *Schema {
	s, err := Lookup(kind)
	if err != nil {
		panic(err)
	}
	return s
}

// Schemas returns every schema in menu order.
func Schemas() []*Schema {
	out := make([]*Schema, len(schemas))
	copy(out, schemas)
	return out
}

// Tables lists the table of every kind.
func Tables() []string {
	out := make([]string, len(schemas))
	for i, s := range schemas {
		out[i] = s.Table
	}
	return out
}

var menuOrder = []Kind{KindBibit, KindPenjualan, KindModal, KindPakan, KindListrik, KindLainnya, KindLabaRugi}

// Menu returns the schemas in navigation order.
func Menu() []*Schema {
	out := make([]*Schema, 0, len(menuOrder))
	for _, k := range menuOrder {
		out = append(out, schemaByKind[k])
	}
	return out
}
