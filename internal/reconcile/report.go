// Package reconcile loads every ledger under one date window, derives the
// farm's totals and projects the result for the export sinks.
package reconcile

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/manajemen-lele/lele/internal/ledger"
)

// Kinds is the load order of the report.
var Kinds = []ledger.Kind{
	ledger.KindListrik,
	ledger.KindPakan,
	ledger.KindLainnya,
	ledger.KindBibit,
	ledger.KindLabaRugi,
	ledger.KindPenjualan,
	ledger.KindModal,
}

// Status records how one kind's load ended.
type Status struct {
	OK    bool   `json:"ok"`
	Err   string `json:"error,omitempty"`
	Count int    `json:"count"`
}

// Totals are the derived aggregates. A total is invalid when an input failed to load.
type Totals struct {
	Electricity      decimal.NullDecimal `json:"electricity"`
	Feed             decimal.NullDecimal `json:"feed"`
	Misc             decimal.NullDecimal `json:"misc"`
	Sales            decimal.NullDecimal `json:"sales"`
	NetOperatingCost decimal.NullDecimal `json:"net_operating_cost"`
	Income           decimal.NullDecimal `json:"income"`
	Cost             decimal.NullDecimal `json:"cost"`
	NetProfitLoss    decimal.NullDecimal `json:"net_profit_loss"`
	Capital          decimal.NullDecimal `json:"capital"`
	FryStock         decimal.NullDecimal `json:"fry_stock"`
}

// Report is one reconciled snapshot of all ledgers.
type Report struct {
	Filter      ledger.DateFilter               `json:"filter"`
	Records     map[ledger.Kind][]ledger.Record `json:"records"`
	Status      map[ledger.Kind]Status          `json:"status"`
	Totals      Totals                          `json:"totals"`
	GeneratedAt time.Time                       `json:"generated_at"`
}

// Complete reports whether every kind loaded.
func (r *Report) Complete() bool {
	for _, k := range Kinds {
		if !r.Status[k].OK {
			return false
		}
	}
	return true
}

// Failed lists the kinds that did not load, in report order.
func (r *Report) Failed() []ledger.Kind {
	var out []ledger.Kind
	for _, k := range Kinds {
		if st, ok := r.Status[k]; ok && !st.OK {
			out = append(out, k)
		}
	}
	return out
}

// Rows returns the records of one kind.
func (r *Report) Rows(kind ledger.Kind) []ledger.Record {
	return r.Records[kind]
}

func (r *Report) loaded(kinds ...ledger.Kind) bool {
	for _, k := range kinds {
		if !r.Status[k].OK {
			return false
		}
	}
	return true
}

func (r *Report) sum(kind ledger.Kind, pick func(ledger.Record) decimal.Decimal) decimal.NullDecimal {
	if !r.loaded(kind) {
		return decimal.NullDecimal{}
	}
	total := decimal.Zero
	for _, rec := range r.Records[kind] {
		total = total.Add(pick(rec))
	}
	return decimal.NewNullDecimal(total)
}

func amount(r ledger.Record) decimal.Decimal    { return r.Amount }
func lineTotal(r ledger.Record) decimal.Decimal { return r.LineTotal() }
func income(r ledger.Record) decimal.Decimal    { return r.Income }
func cost(r ledger.Record) decimal.Decimal      { return r.Cost }

// Aggregate derives Totals from the loaded snapshots. It performs no I/O.
func Aggregate(r *Report) Totals {
	t := Totals{
		Electricity: r.sum(ledger.KindListrik, amount),
		Feed:        r.sum(ledger.KindPakan, amount),
		Misc:        r.sum(ledger.KindLainnya, amount),
		Sales:       r.sum(ledger.KindPenjualan, lineTotal),
		Income:      r.sum(ledger.KindLabaRugi, income),
		Cost:        r.sum(ledger.KindLabaRugi, cost),
		Capital:     r.sum(ledger.KindModal, amount),
		FryStock:    r.sum(ledger.KindBibit, lineTotal),
	}
	if t.Electricity.Valid && t.Feed.Valid && t.Misc.Valid && t.Sales.Valid {
		t.NetOperatingCost = decimal.NewNullDecimal(
			t.Electricity.Decimal.Add(t.Feed.Decimal).Add(t.Misc.Decimal).Sub(t.Sales.Decimal))
	}
	if t.Income.Valid && t.Cost.Valid {
		t.NetProfitLoss = decimal.NewNullDecimal(t.Income.Decimal.Sub(t.Cost.Decimal))
	}
	return t
}
