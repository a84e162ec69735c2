package reconcilehttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manajemen-lele/lele/internal/ledger"
	"github.com/manajemen-lele/lele/internal/reconcile"
	"github.com/manajemen-lele/lele/internal/reconcile/export"
	"github.com/manajemen-lele/lele/internal/shared"
	"github.com/manajemen-lele/lele/internal/store"
	"github.com/manajemen-lele/lele/internal/view"
	"github.com/manajemen-lele/lele/jobs"
)

type stubQueue struct {
	payloads []jobs.ReportExportPayload
	err      error
}

func (q *stubQueue) EnqueueReportExport(_ context.Context, payload jobs.ReportExportPayload) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.payloads = append(q.payloads, payload)
	return &asynq.TaskInfo{ID: "task-1", Queue: jobs.QueueDefault}, nil
}

type exportCounter map[string]int

func (c exportCounter) ObserveExport(format string, err error) {
	if err != nil {
		format += ":failure"
	}
	c[format]++
}

type failingTable struct {
	store.Gateway
	table string
}

func (f failingTable) Select(ctx context.Context, table string, q store.Query) ([]store.Row, error) {
	if table == f.table {
		return nil, errors.New("connection reset")
	}
	return f.Gateway.Select(ctx, table, q)
}

type harness struct {
	router  http.Handler
	queue   *stubQueue
	exports exportCounter
	cookie  *http.Cookie
}

func seeded() *store.Memory {
	mem := store.NewMemory(ledger.Tables()...)
	mem.Seed("biaya_listrik", store.Row{"tanggal": "2024-01-05", "jumlah_biaya": decimal.NewFromInt(100000)})
	mem.Seed("biaya_listrik", store.Row{"tanggal": "2024-02-05", "jumlah_biaya": decimal.NewFromInt(70000)})
	mem.Seed("penjualan", store.Row{"tanggal": "2024-01-08", "jumlah_kg": decimal.NewFromInt(20), "harga_per_kg": decimal.NewFromInt(15000)})
	mem.Seed("laba_rugi", store.Row{"tanggal": "2024-01-31", "pendapatan": decimal.NewFromInt(500000), "biaya": decimal.NewFromInt(350000)})
	return mem
}

func newHarness(t *testing.T, gw store.Gateway, queue ExportQueue) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", time.Hour, false)
	templates, err := view.NewEngine()
	require.NoError(t, err)

	svc := reconcile.NewService(reconcile.NewEngine(gw), reconcile.NewCache(client, time.Minute), nil)
	counter := exportCounter{}
	h := NewHandler(nil, svc, export.NewSet(export.RendererMaroto, nil, nil), queue, templates, shared.NewCSRFManager("csrf"), counter)
	h.WithNow(func() time.Time { return time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC) })

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessions.Load(req.Context(), req)
			require.NoError(t, err)
			sess.SetUser("1", "petani@lele.id")
			ctx := shared.ContextWithSession(req.Context(), sess)
			ctx = shared.ContextWithShell(ctx, shared.LoadShell(req, sess))
			rec := httptest.NewRecorder()
			next.ServeHTTP(rec, req.WithContext(ctx))
			require.NoError(t, sessions.Commit(ctx, w, sess))
			for k, v := range rec.Header() {
				w.Header()[k] = v
			}
			w.WriteHeader(rec.Code)
			_, _ = w.Write(rec.Body.Bytes())
		})
	})
	h.MountRoutes(r)

	out := &harness{router: r, exports: counter}
	if q, ok := queue.(*stubQueue); ok {
		out.queue = q
	}
	return out
}

func (h *harness) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	body := strings.NewReader("")
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test_session" {
			h.cookie = c
		}
	}
	return rec
}

func TestDashboardDefaultsToCurrentMonth(t *testing.T) {
	h := newHarness(t, seeded(), nil)

	rec := h.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Dari 2024-01-01 sampai 2024-01-31")
	assert.Contains(t, body, "Rp 100.000")
	assert.Contains(t, body, "Rp 150.000")
	assert.NotContains(t, body, "Rp 170.000")

	rec = h.do(http.MethodGet, "/?from=&to=", nil)
	body = rec.Body.String()
	assert.Contains(t, body, "Semua tanggal")
	assert.Contains(t, body, "Rp 170.000")
}

func TestReportPageShowsSectionsAndSummary(t *testing.T) {
	h := newHarness(t, seeded(), nil)

	rec := h.do(http.MethodGet, "/laporan?from=2024-01-01&to=2024-01-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, want := range []string{"Biaya Listrik", "Penjualan", "Laporan Laba Rugi", "Laba Bersih", "Rp 150.000", "/laporan/pdf?from=2024-01-01"} {
		assert.Contains(t, body, want)
	}
}

func TestReportPageFlagsFailedKind(t *testing.T) {
	h := newHarness(t, failingTable{Gateway: seeded(), table: "biaya_pakan"}, nil)

	rec := h.do(http.MethodGet, "/laporan", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Gagal memuat data: Biaya Pakan: connection reset")
}

func TestReportPageRejectsBadWindow(t *testing.T) {
	h := newHarness(t, seeded(), nil)
	rec := h.do(http.MethodGet, "/laporan?from=31-01-2024", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rentang tanggal tidak valid.")
}

func TestDownloadServesAttachment(t *testing.T) {
	h := newHarness(t, seeded(), nil)

	rec := h.do(http.MethodGet, "/laporan/csv?from=2024-01-01&to=2024-01-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.MIMECSV, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Laporan.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "Kategori")
	assert.NotContains(t, rec.Body.String(), "70000")

	rec = h.do(http.MethodGet, "/laporan/pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
	assert.Equal(t, 2, len(h.exports))

	rec = h.do(http.MethodGet, "/laporan/docx", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodGet, "/laporan/xlsx?to=besok", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestReportJSON(t *testing.T) {
	h := newHarness(t, seeded(), nil)

	rec := h.do(http.MethodGet, "/api/laporan?from=2024-01-01&to=2024-01-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report reconcile.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.Complete())
	require.True(t, report.Totals.NetProfitLoss.Valid)
	assert.True(t, decimal.NewFromInt(150000).Equal(report.Totals.NetProfitLoss.Decimal))

	rec = h.do(http.MethodGet, "/api/laporan?from=kemarin", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestStrictReportFailureMapsToBadGateway(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	engine := reconcile.NewEngine(failingTable{Gateway: seeded(), table: "modal"}, reconcile.WithMode(reconcile.ModeStrict))
	templates, err := view.NewEngine()
	require.NoError(t, err)
	h := NewHandler(nil, reconcile.NewService(engine, reconcile.NewCache(client, time.Minute), nil), export.NewSet("", nil, nil), nil, templates, shared.NewCSRFManager("csrf"), nil)
	r := chi.NewRouter()
	h.MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/laporan/csv", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestEnqueueExport(t *testing.T) {
	queue := &stubQueue{}
	h := newHarness(t, seeded(), queue)

	rec := h.do(http.MethodPost, "/laporan/export", url.Values{"from": {"2024-01-01"}, "to": {"2024-01-31"}, "format": {"xlsx"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/laporan?from=2024-01-01&to=2024-01-31", rec.Header().Get("Location"))
	require.Len(t, h.queue.payloads, 1)
	assert.Equal(t, jobs.ReportExportPayload{From: "2024-01-01", To: "2024-01-31", Format: "xlsx", RequestedBy: "petani@lele.id"}, h.queue.payloads[0])

	rec = h.do(http.MethodGet, "/laporan", nil)
	assert.Contains(t, rec.Body.String(), "Export sedang diproses di latar belakang.")

	h.do(http.MethodPost, "/laporan/export", url.Values{"format": {"docx"}})
	assert.Len(t, h.queue.payloads, 1)
}

func TestEnqueueRedirectEscapesWindow(t *testing.T) {
	queue := &stubQueue{}
	h := newHarness(t, seeded(), queue)

	rec := h.do(http.MethodPost, "/laporan/export", url.Values{"from": {"kemarin & lusa"}, "to": {"2024-01-31"}, "format": {"csv"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/laporan", loc.Path)
	assert.Equal(t, []string{"kemarin & lusa"}, loc.Query()["from"])
	assert.Equal(t, []string{"2024-01-31"}, loc.Query()["to"])
	assert.Empty(t, h.queue.payloads)
}

func TestEnqueueWithoutQueue(t *testing.T) {
	h := newHarness(t, seeded(), nil)
	rec := h.do(http.MethodPost, "/laporan/export", url.Values{"format": {"pdf"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = h.do(http.MethodGet, "/laporan", nil)
	assert.Contains(t, rec.Body.String(), "Export latar belakang tidak tersedia.")
}
