// Package store provides the record store gateway used by every ledger page:
// a table-oriented select/insert/update/delete contract with interchangeable
// backends (PostgreSQL, Supabase PostgREST, in-memory).
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound indicates the addressed row does not exist.
	ErrNotFound = errors.New("store: row not found")
	// ErrUnavailable indicates the backend could not be reached or refused the call.
	ErrUnavailable = errors.New("store: backend unavailable")
	// ErrUnknownTable indicates a table outside the configured schema.
	ErrUnknownTable = errors.New("store: unknown table")
)

// Row is a single table row keyed by column name.
type Row map[string]any

// ID returns the row identifier as a string.
func (r Row) ID() string {
	if r == nil {
		return ""
	}
	switch v := r[ColumnID].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

const (
	// ColumnID is the store-assigned identifier column present on every table.
	ColumnID = "id"
	// ColumnCreatedAt is the store-assigned creation timestamp column.
	ColumnCreatedAt = "created_at"
)

// Op enumerates supported filter predicates.
type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpLte Op = "lte"
)

// Filter narrows a select to rows whose column satisfies Op against Value.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Eq builds an equality filter.
func Eq(column string, value any) Filter { return Filter{Column: column, Op: OpEq, Value: value} }

// Gte builds a greater-or-equal filter.
func Gte(column string, value any) Filter { return Filter{Column: column, Op: OpGte, Value: value} }

// Lte builds a less-or-equal filter.
func Lte(column string, value any) Filter { return Filter{Column: column, Op: OpLte, Value: value} }

// Order describes the sort applied to a select.
type Order struct {
	Column     string
	Descending bool
}

// Query bundles filters and ordering for Select.
type Query struct {
	Filters []Filter
	Order   *Order
}

// Gateway is the record store contract.
type Gateway interface {
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Update(ctx context.Context, table, id string, row Row) error
	Delete(ctx context.Context, table, id string) error
}

// Observer receives one callback per gateway call.
type Observer interface {
	ObserveStoreCall(op, table string, elapsed time.Duration, err error)
}

// Instrument wraps a gateway so each call is reported to obs and bounded by timeout.
func Instrument(next Gateway, obs Observer, timeout time.Duration) Gateway {
	return &instrumented{next: next, obs: obs, timeout: timeout}
}

type instrumented struct {
	next    Gateway
	obs     Observer
	timeout time.Duration
}

func (g *instrumented) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *instrumented) observe(op, table string, started time.Time, err error) {
	if g.obs != nil {
		g.obs.ObserveStoreCall(op, table, time.Since(started), err)
	}
}

func (g *instrumented) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	started := time.Now()
	rows, err := g.next.Select(ctx, table, q)
	g.observe("select", table, started, err)
	return rows, err
}

func (g *instrumented) Insert(ctx context.Context, table string, row Row) (Row, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	started := time.Now()
	out, err := g.next.Insert(ctx, table, row)
	g.observe("insert", table, started, err)
	return out, err
}

func (g *instrumented) Update(ctx context.Context, table, id string, row Row) error {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	started := time.Now()
	err := g.next.Update(ctx, table, id, row)
	g.observe("update", table, started, err)
	return err
}

func (g *instrumented) Delete(ctx context.Context, table, id string) error {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	started := time.Now()
	err := g.next.Delete(ctx, table, id)
	g.observe("delete", table, started, err)
	return err
}
