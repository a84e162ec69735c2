package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Memory is an in-process Gateway used for development and tests.
type Memory struct {
	mu     sync.RWMutex
	tables map[string][]Row
	last   time.Time
	now    func() time.Time
}

// NewMemory constructs a Memory gateway exposing the given tables.
func NewMemory(tables ...string) *Memory {
	m := &Memory{tables: make(map[string][]Row, len(tables)), now: time.Now}
	for _, t := range tables {
		m.tables[t] = nil
	}
	return m
}

// Select implements Gateway.
func (m *Memory) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	rows, ok := m.tables[table]
	if !ok {
		m.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if matchAll(row, q.Filters) {
			out = append(out, row.Clone())
		}
	}
	m.mu.RUnlock()

	if q.Order != nil {
		col, desc := q.Order.Column, q.Order.Descending
		sort.SliceStable(out, func(i, j int) bool {
			c, _ := compareValues(out[i][col], out[j][col])
			if desc {
				return c > 0
			}
			return c < 0
		})
	}
	return out, nil
}

// Insert implements Gateway.
func (m *Memory) Insert(ctx context.Context, table string, row Row) (Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[table]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	stored := row.Clone()
	stored[ColumnID] = uuid.NewString()
	stored[ColumnCreatedAt] = m.tick()
	m.tables[table] = append(m.tables[table], stored)
	return stored.Clone(), nil
}

// Update implements Gateway.
func (m *Memory) Update(ctx context.Context, table, id string, row Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	for _, existing := range rows {
		if existing.ID() != id {
			continue
		}
		for k, v := range row {
			if k == ColumnID || k == ColumnCreatedAt {
				continue
			}
			existing[k] = v
		}
		return nil
	}
	return fmt.Errorf("%w: %s/%s", ErrNotFound, table, id)
}

// Delete implements Gateway.
func (m *Memory) Delete(ctx context.Context, table, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	for i, existing := range rows {
		if existing.ID() == id {
			m.tables[table] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s/%s", ErrNotFound, table, id)
}

// Seed appends a row verbatim, assigning id and created_at only when missing.
func (m *Memory) Seed(table string, row Row) Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := row.Clone()
	if stored.ID() == "" {
		stored[ColumnID] = uuid.NewString()
	}
	if _, ok := stored[ColumnCreatedAt]; !ok {
		stored[ColumnCreatedAt] = m.tick()
	}
	m.tables[table] = append(m.tables[table], stored)
	return stored.Clone()
}

// tick returns a strictly increasing creation timestamp.
func (m *Memory) tick() time.Time {
	t := m.now().UTC()
	if !t.After(m.last) {
		t = m.last.Add(time.Microsecond)
	}
	m.last = t
	return t
}

func matchAll(row Row, filters []Filter) bool {
	for _, f := range filters {
		c, ok := compareValues(row[f.Column], f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case OpEq:
			if c != 0 {
				return false
			}
		case OpGte:
			if c < 0 {
				return false
			}
		case OpLte:
			if c > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// compareValues orders two column values. Numbers compare numerically, times
// chronologically, everything else by its string form.
func compareValues(a, b any) (int, bool) {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0, true
		case a == nil:
			return -1, false
		default:
			return 1, false
		}
	}
	if da, ok := asDecimal(a); ok {
		if db, ok := asDecimal(b); ok {
			return da.Cmp(db), true
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb), true
		}
	}
	sa, sb := asText(a), asText(b)
	// A bare date bound compares against the date part of a timestamp.
	if isBareDate(sa) || isBareDate(sb) {
		sa, sb = datePart(sa), datePart(sb)
	}
	return strings.Compare(sa, sb), true
}

func isBareDate(s string) bool {
	if len(s) != len(time.DateOnly) {
		return false
	}
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

func datePart(s string) string {
	if len(s) > len(time.DateOnly) {
		return s[:len(time.DateOnly)]
	}
	return s
}

func asDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case float64:
		return decimal.NewFromFloat(n), true
	default:
		return decimal.Decimal{}, false
	}
}

func asText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}
