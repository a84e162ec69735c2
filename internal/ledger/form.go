package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/manajemen-lele/lele/internal/store"
)

// FormController owns one draft record for a kind and dispatches create or update.
type FormController struct {
	schema *Schema
	gw     store.Gateway

	mu        sync.Mutex
	draft     map[string]string
	editingID string
	message   string
	state     State
	onMutated func(context.Context)
}

// NewFormController constructs a form in create mode.
func NewFormController(s *Schema, gw store.Gateway) *FormController {
	return &FormController{schema: s, gw: gw, draft: map[string]string{}, state: StateIdle}
}

// Schema exposes the kind the form edits.
func (f *FormController) Schema() *Schema { return f.schema }

// OnMutated registers the hook run once after every successful submit.
func (f *FormController) OnMutated(fn func(context.Context)) {
	f.mu.Lock()
	f.onMutated = fn
	f.mu.Unlock()
}

// UpdateField writes one draft field. Unknown names are ignored.
func (f *FormController) UpdateField(name, value string) {
	if !f.schema.Has(name) {
		return
	}
	f.mu.Lock()
	f.draft[name] = value
	f.mu.Unlock()
}

// Validate returns the first violated rule of the current draft.
func (f *FormController) Validate() error {
	return Validate(f.schema, f.Draft())
}

// Submit validates the draft and inserts or updates it.
func (f *FormController) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.state == StateLoading {
		f.mu.Unlock()
		return ErrBusy
	}
	draft := copyDraft(f.draft)
	editingID := f.editingID

	if err := Validate(f.schema, draft); err != nil {
		f.message = err.Error()
		f.state = StateError
		f.mu.Unlock()
		return err
	}
	payload, err := Encode(f.schema, draft)
	if err != nil {
		f.message = err.Error()
		f.state = StateError
		f.mu.Unlock()
		return err
	}
	f.state = StateLoading
	f.mu.Unlock()

	var prefix string
	if editingID != "" {
		prefix = msgUpdateFailed
		err = f.gw.Update(ctx, f.schema.Table, editingID, payload)
	} else {
		prefix = msgInsertFailed
		_, err = f.gw.Insert(ctx, f.schema.Table, payload)
	}

	f.mu.Lock()
	if err != nil {
		f.message = prefix + err.Error()
		f.state = StateError
		f.mu.Unlock()
		return fmt.Errorf("ledger: save %s: %w", f.schema.Table, err)
	}
	f.draft = map[string]string{}
	f.editingID = ""
	f.message = ""
	f.state = StateReady
	hook := f.onMutated
	f.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}
	return nil
}

// BeginEdit copies a record into the draft and switches to update mode.
func (f *FormController) BeginEdit(rec Record) {
	draft := make(map[string]string, len(f.schema.Fields))
	for _, field := range f.schema.Fields {
		draft[field.Name] = rec.Text(field.Name)
	}
	f.mu.Lock()
	f.draft = draft
	f.editingID = rec.ID
	f.message = ""
	f.mu.Unlock()
}

// CancelEdit returns the form to create mode with an empty draft.
func (f *FormController) CancelEdit() {
	f.mu.Lock()
	f.draft = map[string]string{}
	f.editingID = ""
	f.message = ""
	f.state = StateIdle
	f.mu.Unlock()
}

// Reset is CancelEdit under the name used by list views.
func (f *FormController) Reset() { f.CancelEdit() }

// Draft returns a copy of the draft.
func (f *FormController) Draft() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyDraft(f.draft)
}

// Value returns one draft field.
func (f *FormController) Value(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft[name]
}

// EditingID is empty in create mode.
func (f *FormController) EditingID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.editingID
}

// Editing reports update mode.
func (f *FormController) Editing() bool { return f.EditingID() != "" }

// Err is the message of the last failure, empty after success or cancel.
func (f *FormController) Err() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

// State returns the current lifecycle state.
func (f *FormController) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// PreviewTotal is the live quantity x unit price for kinds with line totals.
func (f *FormController) PreviewTotal() string {
	if f.schema.Total == TotalNone {
		return ""
	}
	q, okQ := parseDecimal(f.Value(FieldQuantity))
	p, okP := parseDecimal(f.Value(FieldUnitPrice))
	if !okQ || !okP {
		return ""
	}
	return q.Mul(p).String()
}

func copyDraft(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = strings.Clone(v)
	}
	return out
}
