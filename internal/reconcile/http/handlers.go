// Package reconcilehttp serves the dashboard, the report page and its downloads.
package reconcilehttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/manajemen-lele/lele/internal/ledger"
	"github.com/manajemen-lele/lele/internal/reconcile"
	"github.com/manajemen-lele/lele/internal/platform/httpx"
	"github.com/manajemen-lele/lele/internal/reconcile/export"
	"github.com/manajemen-lele/lele/internal/shared"
	"github.com/manajemen-lele/lele/internal/view"
	"github.com/manajemen-lele/lele/jobs"
)

const (
	msgBadFilter   = "Rentang tanggal tidak valid."
	msgLoadFailed  = "Gagal memuat laporan: "
	msgQueued      = "Export sedang diproses di latar belakang."
	msgQueueFailed = "Export gagal dijadwalkan."
	msgNoQueue     = "Export latar belakang tidak tersedia."
)

const requestTimeout = 30 * time.Second

// ReportService loads reconciled reports.
type ReportService interface {
	Report(ctx context.Context, filter ledger.DateFilter) (*reconcile.Report, error)
}

// ExportQueue accepts asynchronous export requests.
type ExportQueue interface {
	EnqueueReportExport(ctx context.Context, payload jobs.ReportExportPayload) (*asynq.TaskInfo, error)
}

// ExportObserver counts downloads.
type ExportObserver interface {
	ObserveExport(format string, err error)
}

// Handler coordinates HTTP requests for the report pages.
type Handler struct {
	logger    *slog.Logger
	reports   ReportService
	exports   *export.Set
	queue     ExportQueue
	templates *view.Engine
	csrf      *shared.CSRFManager
	observer  ExportObserver
	now       func() time.Time
}

// NewHandler constructs the report HTTP handler. queue and observer may be nil.
func NewHandler(logger *slog.Logger, reports ReportService, exports *export.Set, queue ExportQueue, templates *view.Engine, csrf *shared.CSRFManager, observer ExportObserver) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		reports:   reports,
		exports:   exports,
		queue:     queue,
		templates: templates,
		csrf:      csrf,
		observer:  observer,
		now:       time.Now,
	}
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

type reportPage struct {
	Report   *reconcile.Report
	Document reconcile.Document
	Failed   []string
	Error    string
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	filter, filterErr := h.parseFilter(r, true)
	page := h.load(r.Context(), filter)
	if filterErr != "" {
		page.Error = filterErr
	}
	h.render(w, r, http.StatusOK, "pages/dashboard.html", "Dashboard", page)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	filter, filterErr := h.parseFilter(r, false)
	page := h.load(r.Context(), filter)
	if filterErr != "" {
		page.Error = filterErr
	}
	status := http.StatusOK
	if page.Error != "" && filterErr == "" {
		status = http.StatusBadGateway
	}
	h.render(w, r, status, "pages/laporan.html", "Laporan", page)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter, filterErr := h.parseFilter(r, false)
	if filterErr != "" {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, filterErr))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	artifact, err := h.build(ctx, format, filter)
	h.observe(format, err)
	if err != nil {
		h.logger.Error("export report", slog.String("format", string(format)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Attachment(w, artifact.ContentType, artifact.Filename, artifact.Body)
}

// handleJSON serves the reconciled report for API consumers.
func (h *Handler) handleJSON(w http.ResponseWriter, r *http.Request) {
	filter, filterErr := h.parseFilter(r, false)
	if filterErr != "" {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, filterErr))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	report, err := h.reports.Report(ctx, filter)
	if err != nil {
		h.logger.Error("load report", slog.String("filter", filter.Key()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) build(ctx context.Context, format export.Format, filter ledger.DateFilter) (export.Artifact, error) {
	report, err := h.reports.Report(ctx, filter)
	if err != nil {
		return export.Artifact{}, err
	}
	return h.exports.Render(ctx, format, report)
}

func (h *Handler) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	filter := ledger.NewDateFilter(r.PostFormValue("from"), r.PostFormValue("to"))
	back := "/laporan?" + url.Values{"from": {filter.From}, "to": {filter.To}}.Encode()

	format, err := export.ParseFormat(r.PostFormValue("format"))
	switch {
	case err != nil || filter.Validate() != nil:
		h.addFlash(r, shared.FlashError, msgBadFilter)
	case h.queue == nil:
		h.addFlash(r, shared.FlashError, msgNoQueue)
	default:
		payload := jobs.ReportExportPayload{From: filter.From, To: filter.To, Format: string(format)}
		if sess := shared.SessionFromContext(r.Context()); sess != nil {
			payload.RequestedBy = sess.Email()
		}
		info, err := h.queue.EnqueueReportExport(r.Context(), payload)
		if err != nil {
			h.logger.Error("enqueue export", slog.Any("error", err))
			h.addFlash(r, shared.FlashError, msgQueueFailed)
			break
		}
		h.logger.Info("export enqueued", slog.String("task_id", info.ID), slog.String("format", string(format)))
		h.addFlash(r, shared.FlashSuccess, msgQueued)
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// load never fails the page: a failed load is surfaced as an error banner.
func (h *Handler) load(ctx context.Context, filter ledger.DateFilter) reportPage {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	report, err := h.reports.Report(ctx, filter)
	if err != nil {
		h.logger.Error("load report", slog.String("filter", filter.Key()), slog.Any("error", err))
		empty := &reconcile.Report{Filter: filter}
		return reportPage{Report: empty, Document: reconcile.DocumentSections(empty), Error: msgLoadFailed + err.Error()}
	}
	page := reportPage{Report: report, Document: reconcile.DocumentSections(report)}
	for _, kind := range report.Failed() {
		page.Failed = append(page.Failed, ledger.MustLookup(kind).Category+": "+report.Status[kind].Err)
	}
	return page
}

// parseFilter reads from/to; the dashboard falls back to the current month.
func (h *Handler) parseFilter(r *http.Request, defaultMonth bool) (ledger.DateFilter, string) {
	q := r.URL.Query()
	filter := ledger.NewDateFilter(q.Get("from"), q.Get("to"))
	if err := filter.Validate(); err != nil {
		filter = ledger.DateFilter{}
		if defaultMonth {
			filter = ledger.MonthOf(h.now())
		}
		return filter, msgBadFilter
	}
	if filter.IsZero() && defaultMonth && !q.Has("from") && !q.Has("to") {
		filter = ledger.MonthOf(h.now())
	}
	return filter, ""
}

func (h *Handler) observe(format export.Format, err error) {
	if h.observer != nil {
		h.observer.ObserveExport(string(format), err)
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data reportPage) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
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
		h.logger.Error("render report page", slog.String("template", name), slog.Any("error", err))
	}
}

func (h *Handler) addFlash(r *http.Request, kind, msg string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: msg})
	}
}
