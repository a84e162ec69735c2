package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manajemen-lele/lele/internal/ledger"
	"github.com/manajemen-lele/lele/internal/reconcile"
	"github.com/manajemen-lele/lele/internal/reconcile/export"
	"github.com/manajemen-lele/lele/internal/store"
)

func TestRespondErrorStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"http not found", ErrNotFound, http.StatusNotFound},
		{"store not found", fmt.Errorf("delete: %w", store.ErrNotFound), http.StatusNotFound},
		{"unsupported format", fmt.Errorf("%w: \"docx\"", export.ErrUnsupported), http.StatusNotFound},
		{"ledger validation", &ledger.ValidationError{Field: ledger.FieldDate, Message: "Tanggal wajib diisi."}, http.StatusUnprocessableEntity},
		{"filter", fmt.Errorf("%w: from", ErrValidation), http.StatusUnprocessableEntity},
		{"store down", fmt.Errorf("select: %w", store.ErrUnavailable), http.StatusBadGateway},
		{"strict report", fmt.Errorf("%w: modal", reconcile.ErrIncomplete), http.StatusBadGateway},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.status, body.Status)
		})
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("password=hunter2"))
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	Attachment(rec, "text/csv; charset=utf-8", "Laporan.csv", []byte("a,b\n"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="Laporan.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "4", rec.Header().Get("Content-Length"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "a,b\n", rec.Body.String())
}
