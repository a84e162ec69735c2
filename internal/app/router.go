package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/manajemen-lele/lele/internal/auth"
	"github.com/manajemen-lele/lele/internal/entry"
	"github.com/manajemen-lele/lele/internal/observability"
	reconcilehttp "github.com/manajemen-lele/lele/internal/reconcile/http"
	"github.com/manajemen-lele/lele/internal/shared"
	"github.com/manajemen-lele/lele/internal/view"
	"github.com/manajemen-lele/lele/jobs"
	"github.com/manajemen-lele/lele/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthHandler    *auth.Handler
	EntryHandler   *entry.Handler
	ReportHandler  *reconcilehttp.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with the application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.AuthHandler != nil {
		params.AuthHandler.WithLoginLimiter(LoginRateLimit())
		params.AuthHandler.MountRoutes(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(shared.RequireAuth)
		if params.ReportHandler != nil {
			params.ReportHandler.MountRoutes(r)
		}
		if params.EntryHandler != nil {
			params.EntryHandler.MountRoutes(r)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, r, params, http.StatusNotFound, "Halaman tidak ditemukan.")
	})

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

func renderError(w http.ResponseWriter, r *http.Request, params RouterParams, status int, message string) {
	if params.Templates == nil {
		http.Error(w, message, status)
		return
	}
	data := view.TemplateData{
		Title:       http.StatusText(status),
		CurrentPath: r.URL.Path,
		Shell:       shared.ShellFromContext(r.Context()),
		Data:        message,
	}
	if err := params.Templates.RenderStatus(w, status, "pages/error.html", data); err != nil {
		params.Logger.Error("render error page", slog.Any("error", err))
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
