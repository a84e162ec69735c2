package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/manajemen-lele/lele/internal/store"
)

// Decode maps a store row onto a Record using the schema's column mapping.
func Decode(s *Schema, row store.Row) (Record, error) {
	rec := Record{ID: row.ID(), Kind: s.Kind}
	for _, f := range s.Fields {
		raw, ok := lookupColumn(row, f)
		if !ok {
			continue
		}
		if f.Numeric {
			d, err := toDecimal(raw)
			if err != nil {
				return Record{}, fmt.Errorf("ledger: %s.%s: %w", s.Table, f.Column, err)
			}
			setDecimal(&rec, f.Name, d)
			continue
		}
		switch f.Name {
		case FieldDate:
			rec.Date = toDate(raw)
		case FieldName:
			rec.Name = toText(raw)
		case FieldNote:
			rec.Note = toText(raw)
		}
	}
	rec.CreatedAt = toTime(row[store.ColumnCreatedAt])
	return rec, nil
}

// DecodeAll decodes rows in order.
func DecodeAll(s *Schema, rows []store.Row) ([]Record, error) {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := Decode(s, row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Encode builds the normalized write payload from a validated draft.
// Numeric inputs become decimals rounded to cents, dates lose any time suffix
// and optional text is written as "" or NULL per field. A persisted total is
// recomputed from the rounded factors.
func Encode(s *Schema, draft map[string]string) (store.Row, error) {
	row := make(store.Row, len(s.Fields))
	for _, f := range s.Fields {
		if f.Input == "computed" {
			continue
		}
		value := strings.TrimSpace(draft[f.Name])
		switch {
		case f.Numeric:
			if value == "" {
				row[f.Column] = decimal.Zero
				continue
			}
			d, err := decimal.NewFromString(value)
			if err != nil {
				return nil, fmt.Errorf("ledger: %s: %w", f.Name, err)
			}
			row[f.Column] = d.Round(2)
		case f.Name == FieldDate:
			row[f.Column] = NormalizeDate(value)
		case value == "" && f.Nullable:
			row[f.Column] = nil
		default:
			row[f.Column] = value
		}
	}
	if s.Total == TotalPersisted {
		qty, _ := s.Field(FieldQuantity)
		price, _ := s.Field(FieldUnitPrice)
		total, _ := s.Field(FieldTotal)
		q, _ := row[qty.Column].(decimal.Decimal)
		p, _ := row[price.Column].(decimal.Decimal)
		row[total.Column] = q.Mul(p)
	}
	return row, nil
}

// NormalizeDate truncates a timestamp string to its calendar date.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > len(time.DateOnly) {
		if _, err := time.Parse(time.DateOnly, s[:len(time.DateOnly)]); err == nil {
			return s[:len(time.DateOnly)]
		}
	}
	return s
}

func lookupColumn(row store.Row, f Field) (any, bool) {
	if v, ok := row[f.Column]; ok {
		return v, true
	}
	for _, alt := range f.Fallbacks {
		if v, ok := row[alt]; ok {
			return v, true
		}
	}
	return nil, false
}

func setDecimal(rec *Record, field string, d decimal.Decimal) {
	switch field {
	case FieldAmount:
		rec.Amount = d
	case FieldQuantity:
		rec.Quantity = d
	case FieldUnitPrice:
		rec.UnitPrice = d
	case FieldTotal:
		rec.Total = d
	case FieldIncome:
		rec.Income = d
	case FieldCost:
		rec.Cost = d
	}
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return t, nil
	case json.Number:
		return decimal.NewFromString(t.String())
	case string:
		if strings.TrimSpace(t) == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(strings.TrimSpace(t))
	case float64:
		return decimal.NewFromFloat(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int64:
		return decimal.NewFromInt(t), nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported numeric value %T", v)
	}
}

func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(v)
	}
}

func toDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.DateOnly)
	default:
		return NormalizeDate(toText(v))
	}
}

func toTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts
		}
	}
	return time.Time{}
}
