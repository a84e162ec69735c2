// Package entry serves the data entry pages of every ledger kind.
package entry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/manajemen-lele/lele/internal/ledger"
	"github.com/manajemen-lele/lele/internal/shared"
	"github.com/manajemen-lele/lele/internal/store"
	"github.com/manajemen-lele/lele/internal/view"
)

const (
	msgSaved       = "Data berhasil disimpan."
	msgUpdated     = "Data berhasil diperbarui."
	msgDeleted     = "Data berhasil dihapus."
	msgNotFound    = "Data tidak ditemukan."
	msgBadFilter   = "Rentang tanggal tidak valid."
	confirmedValue = "yes"
)

// Invalidator drops derived state after a ledger changes.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Handler renders list and form pages for each kind.
type Handler struct {
	logger    *slog.Logger
	gw        store.Gateway
	templates *view.Engine
	csrf      *shared.CSRFManager
	cache     Invalidator
	perPage   int
}

// NewHandler constructs the entry handler. cache may be nil.
func NewHandler(logger *slog.Logger, gw store.Gateway, templates *view.Engine, csrf *shared.CSRFManager, cache Invalidator) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, gw: gw, templates: templates, csrf: csrf, cache: cache, perPage: shared.DefaultPerPage}
}

// MountRoutes registers the routes of every kind under its path.
func (h *Handler) MountRoutes(r chi.Router) {
	for _, s := range ledger.Schemas() {
		schema := s
		r.Route(schema.Path, func(r chi.Router) {
			r.Get("/", h.withSchema(schema, h.list))
			r.Post("/", h.withSchema(schema, h.submit))
			r.Get("/{id}/delete", h.withSchema(schema, h.confirmDelete))
			r.Post("/{id}/delete", h.withSchema(schema, h.delete))
		})
	}
}

type schemaHandler func(w http.ResponseWriter, r *http.Request, s *ledger.Schema)

func (h *Handler) withSchema(s *ledger.Schema, fn schemaHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { fn(w, r, s) }
}

type formField struct {
	Field ledger.Field
	Value string
}

type pageData struct {
	Schema     *ledger.Schema
	Fields     []formField
	FormError  string
	Editing    bool
	EditingID  string
	Preview    string
	Rows       []ledger.Record
	Total      decimal.Decimal
	ListError  string
	Filter     ledger.DateFilter
	Pagination shared.Pagination
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, s *ledger.Schema) {
	q := r.URL.Query()
	filter, filterErr := parseFilter(q.Get("from"), q.Get("to"))

	form := ledger.NewFormController(s, h.gw)
	lv := ledger.NewListView(s, h.gw)
	lv.Bind(form)
	if err := lv.Fetch(r.Context(), filter); err != nil {
		h.logger.Warn("fetch entries", slog.String("table", s.Table), slog.Any("error", err))
	}
	if id := q.Get("edit"); id != "" {
		if rec, ok := lv.Find(id); ok {
			form.BeginEdit(rec)
		} else {
			h.addFlash(r, shared.FlashError, msgNotFound)
		}
	}

	page, _ := strconv.Atoi(q.Get("page"))
	data := h.page(form, lv, page)
	if filterErr != "" {
		data.ListError = filterErr
	}
	h.render(w, r, http.StatusOK, s, data, nil)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, s *ledger.Schema) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	form := ledger.NewFormController(s, h.gw)
	lv := ledger.NewListView(s, h.gw)

	id := r.PostFormValue("id")
	if id != "" {
		// The record must still exist before switching into update mode.
		if err := lv.Fetch(ctx, ledger.DateFilter{}); err != nil {
			h.addFlash(r, shared.FlashError, lv.Err())
			http.Redirect(w, r, s.Path, http.StatusSeeOther)
			return
		}
		rec, ok := lv.Find(id)
		if !ok {
			h.addFlash(r, shared.FlashError, msgNotFound)
			http.Redirect(w, r, s.Path, http.StatusSeeOther)
			return
		}
		form.BeginEdit(rec)
	}
	for _, f := range s.Fields {
		if f.Input != "computed" {
			form.UpdateField(f.Name, r.PostFormValue(f.Name))
		}
	}
	form.OnMutated(h.invalidate)

	err := form.Submit(ctx)
	switch {
	case err == nil:
		msg := msgSaved
		if id != "" {
			msg = msgUpdated
		}
		h.addFlash(r, shared.FlashSuccess, msg)
		http.Redirect(w, r, s.Path, http.StatusSeeOther)
		return
	case errors.Is(err, ledger.ErrValidation):
		h.rerender(w, r, http.StatusUnprocessableEntity, form, lv, nil)
	default:
		h.logger.Error("save entry", slog.String("table", s.Table), slog.Any("error", err))
		banner := &shared.FlashMessage{Kind: shared.FlashError, Message: form.Err()}
		h.rerender(w, r, http.StatusBadGateway, form, lv, banner)
	}
}

// rerender shows the rejected draft above a freshly fetched list.
func (h *Handler) rerender(w http.ResponseWriter, r *http.Request, status int, form *ledger.FormController, lv *ledger.ListView, banner *shared.FlashMessage) {
	if err := lv.Fetch(r.Context(), ledger.DateFilter{}); err != nil {
		h.logger.Warn("fetch entries", slog.String("table", lv.Schema().Table), slog.Any("error", err))
	}
	data := h.page(form, lv, 1)
	if banner != nil {
		data.FormError = ""
	}
	h.render(w, r, status, form.Schema(), data, banner)
}

func (h *Handler) confirmDelete(w http.ResponseWriter, r *http.Request, s *ledger.Schema) {
	id := chi.URLParam(r, "id")
	lv := ledger.NewListView(s, h.gw)
	if err := lv.Fetch(r.Context(), ledger.DateFilter{}); err != nil {
		h.addFlash(r, shared.FlashError, lv.Err())
		http.Redirect(w, r, s.Path, http.StatusSeeOther)
		return
	}
	rec, ok := lv.Find(id)
	if !ok {
		h.addFlash(r, shared.FlashError, msgNotFound)
		http.Redirect(w, r, s.Path, http.StatusSeeOther)
		return
	}
	data := map[string]any{"Schema": s, "Record": rec}
	h.renderTemplate(w, r, http.StatusOK, "pages/confirm.html", s.Title, data, nil)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request, s *ledger.Schema) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	lv := ledger.NewListView(s, h.gw)
	confirmed := false
	err := lv.RequestDelete(r.Context(), id, ledger.ConfirmFunc(func(context.Context, string) bool {
		confirmed = r.PostFormValue("confirm") == confirmedValue
		return confirmed
	}))
	if confirmed {
		h.invalidate(r.Context())
		if err != nil {
			h.logger.Error("delete entry", slog.String("table", s.Table), slog.Any("error", err))
			h.addFlash(r, shared.FlashError, lv.Err())
		} else {
			h.addFlash(r, shared.FlashSuccess, msgDeleted)
		}
	}
	http.Redirect(w, r, s.Path, http.StatusSeeOther)
}

func (h *Handler) invalidate(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx); err != nil {
		h.logger.Warn("invalidate report cache", slog.Any("error", err))
	}
}

func (h *Handler) page(form *ledger.FormController, lv *ledger.ListView, page int) pageData {
	s := form.Schema()
	draft := form.Draft()
	fields := make([]formField, 0, len(s.Fields))
	for _, f := range s.Fields {
		fields = append(fields, formField{Field: f, Value: draft[f.Name]})
	}
	rows := lv.Rows()
	pagination := shared.NewPagination(page, h.perPage, len(rows))
	start, end := pagination.Bounds()

	data := pageData{
		Schema:     s,
		Fields:     fields,
		Editing:    form.Editing(),
		EditingID:  form.EditingID(),
		Preview:    previewText(form.PreviewTotal()),
		Rows:       rows[start:end],
		Total:      ledger.Sum(rows),
		ListError:  lv.Err(),
		Filter:     lv.Filter(),
		Pagination: pagination,
	}
	if form.State() == ledger.StateError {
		data.FormError = form.Err()
	}
	return data
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, s *ledger.Schema, data pageData, banner *shared.FlashMessage) {
	h.renderTemplate(w, r, status, "pages/entry.html", s.Title, data, banner)
}

func (h *Handler) renderTemplate(w http.ResponseWriter, r *http.Request, status int, name, title string, data any, banner *shared.FlashMessage) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	flash := banner
	if flash == nil && sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Shell:       shared.ShellFromContext(r.Context()),
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, name, viewData); err != nil {
		h.logger.Error("render entry page", slog.String("template", name), slog.Any("error", err))
	}
}

func (h *Handler) addFlash(r *http.Request, kind, msg string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: msg})
	}
}

func parseFilter(from, to string) (ledger.DateFilter, string) {
	filter := ledger.NewDateFilter(from, to)
	if err := filter.Validate(); err != nil {
		return ledger.DateFilter{}, msgBadFilter
	}
	return filter, ""
}

func previewText(raw string) string {
	if raw == "" {
		return "-"
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "-"
	}
	return ledger.FormatRupiah(d)
}
