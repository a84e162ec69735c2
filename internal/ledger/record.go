package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is the canonical shape of every ledger row.
type Record struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Date      string          `json:"date"`
	Name      string          `json:"name,omitempty"`
	Note      string          `json:"note,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
	Income    decimal.Decimal `json:"income"`
	Cost      decimal.Decimal `json:"cost"`
	CreatedAt time.Time       `json:"created_at"`
}

// LineTotal returns quantity x unit price for kinds that carry both factors.
// A persisted fry-stock total wins over the live product when present.
func (r Record) LineTotal() decimal.Decimal {
	switch r.Kind {
	case KindBibit:
		if !r.Total.IsZero() {
			return r.Total
		}
		return r.Quantity.Mul(r.UnitPrice)
	case KindPenjualan:
		return r.Quantity.Mul(r.UnitPrice)
	default:
		return decimal.Zero
	}
}

// Value is the money figure of the record as summed by footers and reports.
func (r Record) Value() decimal.Decimal {
	switch r.Kind {
	case KindBibit, KindPenjualan:
		return r.LineTotal()
	case KindLabaRugi:
		return r.Income.Sub(r.Cost)
	default:
		return r.Amount
	}
}

// Text returns the canonical field as the string shown in a form input.
func (r Record) Text(field string) string {
	switch field {
	case FieldDate:
		return r.Date
	case FieldName:
		return r.Name
	case FieldNote:
		return r.Note
	case FieldAmount:
		return r.Amount.String()
	case FieldQuantity:
		return r.Quantity.String()
	case FieldUnitPrice:
		return r.UnitPrice.String()
	case FieldTotal:
		return r.LineTotal().String()
	case FieldIncome:
		return r.Income.String()
	case FieldCost:
		return r.Cost.String()
	default:
		return ""
	}
}

// Sum adds up Value over records.
func Sum(records []Record) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Value())
	}
	return total
}
