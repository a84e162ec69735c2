package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/manajemen-lele/lele/internal/ledger"
	"github.com/manajemen-lele/lele/internal/store"
)

// Mode selects how the engine treats a kind that fails to load.
type Mode string

const (
	// ModePartial keeps the kinds that loaded and flags the rest in Report.Status.
	ModePartial Mode = "partial"
	// ModeStrict fails the whole load when any kind fails.
	ModeStrict Mode = "strict"
)

// ErrIncomplete wraps the first failure of a strict load.
var ErrIncomplete = errors.New("reconcile: report incomplete")

// ParseMode maps configuration text onto a Mode, defaulting to partial.
func ParseMode(s string) Mode {
	if Mode(s) == ModeStrict {
		return ModeStrict
	}
	return ModePartial
}

// Engine fans out one filtered select per kind and aggregates the results.
type Engine struct {
	gw   store.Gateway
	mode Mode
	now  func() time.Time

	mu    sync.Mutex
	state ledger.State
}

// Option customises an Engine.
type Option func(*Engine)

// WithMode sets the failure mode.
func WithMode(m Mode) Option { return func(e *Engine) { e.mode = m } }

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// NewEngine constructs an Engine in partial mode.
func NewEngine(gw store.Gateway, opts ...Option) *Engine {
	e := &Engine{gw: gw, mode: ModePartial, now: time.Now, state: ledger.StateIdle}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mode returns the configured failure mode.
func (e *Engine) Mode() Mode { return e.mode }

// State returns the lifecycle state of the latest load.
func (e *Engine) State() ledger.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s ledger.State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

type loadResult struct {
	records []ledger.Record
	err     error
}

// Load reads every kind concurrently under filter. Both bounds are inclusive
// and every kind is ordered by date, newest first.
func (e *Engine) Load(ctx context.Context, filter ledger.DateFilter) (*Report, error) {
	e.setState(ledger.StateLoading)
	results := make([]loadResult, len(Kinds))

	var g *errgroup.Group
	gctx := ctx
	if e.mode == ModeStrict {
		g, gctx = errgroup.WithContext(ctx)
	} else {
		g = &errgroup.Group{}
	}
	for i, kind := range Kinds {
		i, kind := i, kind
		g.Go(func() error {
			recs, err := e.loadKind(gctx, kind, filter)
			results[i] = loadResult{records: recs, err: err}
			if e.mode == ModeStrict && err != nil {
				return fmt.Errorf("%w: %s: %w", ErrIncomplete, kind, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.setState(ledger.StateError)
		return nil, err
	}

	report := &Report{
		Filter:      filter,
		Records:     make(map[ledger.Kind][]ledger.Record, len(Kinds)),
		Status:      make(map[ledger.Kind]Status, len(Kinds)),
		GeneratedAt: e.now().UTC(),
	}
	for i, kind := range Kinds {
		res := results[i]
		if res.err != nil {
			report.Status[kind] = Status{Err: res.err.Error()}
			report.Records[kind] = []ledger.Record{}
			continue
		}
		report.Status[kind] = Status{OK: true, Count: len(res.records)}
		report.Records[kind] = res.records
	}
	report.Totals = Aggregate(report)
	e.setState(ledger.StateReady)
	return report, nil
}

func (e *Engine) loadKind(ctx context.Context, kind ledger.Kind, filter ledger.DateFilter) ([]ledger.Record, error) {
	schema, err := ledger.Lookup(kind)
	if err != nil {
		return nil, err
	}
	q := store.Query{
		Filters: filter.Predicates(),
		Order:   &store.Order{Column: "tanggal", Descending: true},
	}
	rows, err := e.gw.Select(ctx, schema.Table, q)
	if err != nil {
		return nil, err
	}
	return ledger.DecodeAll(schema, rows)
}
