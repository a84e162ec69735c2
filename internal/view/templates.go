package view

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/manajemen-lele/lele/internal/ledger"
	"github.com/manajemen-lele/lele/internal/shared"
	"github.com/manajemen-lele/lele/web"
)

// AppTitle is shown in the navigation bar and page titles.
const AppTitle = "Manajemen Lele"

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	Shell       shared.Shell
	Data        any
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"appTitle": func() string { return AppTitle },
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"number": ledger.FormatNumber,
		"rupiah": ledger.FormatRupiah,
		"nullRupiah": func(d decimal.NullDecimal) string {
			if !d.Valid {
				return "-"
			}
			return ledger.FormatRupiah(d.Decimal)
		},
		"cell": Cell,
		"menu": ledger.Menu,
		"active": func(current, path string) bool {
			return current == path
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates,
		"templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus is Render with an explicit status code.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	if data.Title == "" {
		data.Title = AppTitle
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return e.templates.ExecuteTemplate(w, name, data)
}

// Cell formats one field of a record for a table cell.
func Cell(rec ledger.Record, f ledger.Field) string {
	if f.Numeric {
		var d decimal.Decimal
		switch f.Name {
		case ledger.FieldTotal:
			d = rec.LineTotal()
		case ledger.FieldQuantity:
			return ledger.FormatNumber(rec.Quantity)
		default:
			v, err := decimal.NewFromString(rec.Text(f.Name))
			if err != nil {
				return "-"
			}
			d = v
		}
		return ledger.FormatRupiah(d)
	}
	if v := rec.Text(f.Name); v != "" {
		return v
	}
	return "-"
}
