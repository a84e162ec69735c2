package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/manajemen-lele/lele/internal/store"
)

// DateFilter is an inclusive pair of optional calendar-date bounds.
type DateFilter struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// NewDateFilter trims and date-normalizes both bounds.
func NewDateFilter(from, to string) DateFilter {
	return DateFilter{From: NormalizeDate(from), To: NormalizeDate(to)}
}

// IsZero reports whether neither bound is set.
func (f DateFilter) IsZero() bool { return f.From == "" && f.To == "" }

// Validate rejects bounds that are not YYYY-MM-DD dates.
func (f DateFilter) Validate() error {
	for _, b := range []string{f.From, f.To} {
		if b == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, b); err != nil {
			return fmt.Errorf("ledger: invalid date bound %q", b)
		}
	}
	return nil
}

// Predicates returns gte/lte filters on the date column for each set bound.
func (f DateFilter) Predicates() []store.Filter {
	var out []store.Filter
	if f.From != "" {
		out = append(out, store.Gte(dateColumn, f.From))
	}
	if f.To != "" {
		out = append(out, store.Lte(dateColumn, f.To))
	}
	return out
}

// Query builds the select for a schema under this filter using the schema's ordering.
func (f DateFilter) Query(s *Schema) store.Query {
	order := s.Order
	return store.Query{Filters: f.Predicates(), Order: &order}
}

// Contains reports whether a date lies inside the inclusive window.
func (f DateFilter) Contains(date string) bool {
	date = NormalizeDate(date)
	if f.From != "" && date < f.From {
		return false
	}
	if f.To != "" && date > f.To {
		return false
	}
	return true
}

// Caption renders the human description printed on reports.
func (f DateFilter) Caption() string {
	switch {
	case f.From != "" && f.To != "":
		return fmt.Sprintf("Dari %s sampai %s", f.From, f.To)
	case f.From != "":
		return "Mulai dari " + f.From
	case f.To != "":
		return "Sampai " + f.To
	default:
		return "Semua tanggal"
	}
}

// Key is a stable cache key fragment for the window.
func (f DateFilter) Key() string {
	from, to := f.From, f.To
	if from == "" {
		from = "*"
	}
	if to == "" {
		to = "*"
	}
	return strings.Join([]string{from, to}, "_")
}

// MonthOf returns the window covering the calendar month containing t.
func MonthOf(t time.Time) DateFilter {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1)
	return DateFilter{From: first.Format(time.DateOnly), To: last.Format(time.DateOnly)}
}
