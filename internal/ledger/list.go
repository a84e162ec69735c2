package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/manajemen-lele/lele/internal/store"
)

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// Confirm implements Confirmer.
func (fn ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return fn(ctx, prompt) }

// ListView holds the fetched snapshot of one kind under a date filter.
// Every fetch carries a sequence number; starting a new fetch cancels the
// previous one and only the latest issued fetch may replace the snapshot.
type ListView struct {
	schema *Schema
	gw     store.Gateway

	mu      sync.Mutex
	rows    []Record
	message string
	state   State
	filter  DateFilter
	seq     uint64
	cancel  context.CancelFunc
	form    *FormController
}

// NewListView constructs an idle list view.
func NewListView(s *Schema, gw store.Gateway) *ListView {
	return &ListView{schema: s, gw: gw, rows: []Record{}, state: StateIdle}
}

// Bind pairs a form so each successful submit triggers exactly one fetch.
func (l *ListView) Bind(form *FormController) {
	l.mu.Lock()
	l.form = form
	l.mu.Unlock()
	form.OnMutated(func(ctx context.Context) {
		_ = l.Fetch(ctx, l.Filter())
	})
}

// Fetch replaces the snapshot with the rows matching filter.
func (l *ListView) Fetch(ctx context.Context, filter DateFilter) error {
	l.mu.Lock()
	l.seq++
	seq := l.seq
	if l.cancel != nil {
		l.cancel()
	}
	fctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.filter = filter
	l.state = StateLoading
	l.mu.Unlock()
	defer cancel()

	rows, err := l.gw.Select(fctx, l.schema.Table, filter.Query(l.schema))
	var records []Record
	if err == nil {
		records, err = DecodeAll(l.schema, rows)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.seq {
		return ErrSuperseded
	}
	l.cancel = nil
	if err != nil {
		l.rows = []Record{}
		l.message = msgFetchFailed + err.Error()
		l.state = StateError
		return fmt.Errorf("ledger: fetch %s: %w", l.schema.Table, err)
	}
	l.rows = records
	l.message = ""
	l.state = StateReady
	return nil
}

// RequestDelete deletes id after confirmation and refetches. A declined
// confirmation issues no call and returns nil.
func (l *ListView) RequestDelete(ctx context.Context, id string, c Confirmer) error {
	if c == nil || !c.Confirm(ctx, l.schema.Confirm) {
		return nil
	}
	if err := l.gw.Delete(ctx, l.schema.Table, id); err != nil {
		l.mu.Lock()
		l.message = msgDeleteFailed + err.Error()
		l.state = StateError
		l.mu.Unlock()
		return fmt.Errorf("ledger: delete %s: %w", l.schema.Table, err)
	}

	l.mu.Lock()
	form := l.form
	filter := l.filter
	l.mu.Unlock()
	if form != nil && form.EditingID() == id {
		form.Reset()
	}
	return l.Fetch(ctx, filter)
}

// Find returns the snapshot record with the given id.
func (l *ListView) Find(id string) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.rows {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// Rows returns a copy of the snapshot.
func (l *ListView) Rows() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.rows))
	copy(out, l.rows)
	return out
}

// Total sums the money field of the snapshot.
func (l *ListView) Total() decimal.Decimal {
	return Sum(l.Rows())
}

// Err is the message of the last failure.
func (l *ListView) Err() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.message
}

// State returns the current lifecycle state.
func (l *ListView) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Filter returns the filter of the latest fetch.
func (l *ListView) Filter() DateFilter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter
}

// Schema exposes the kind the list shows.
func (l *ListView) Schema() *Schema { return l.schema }
