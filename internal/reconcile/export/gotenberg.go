package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/manajemen-lele/lele/internal/reconcile"
)

// HTMLRenderer converts an HTML document into PDF bytes.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// GotenbergExporter renders the document projection to HTML and hands it to
// a remote Chromium for printing.
type GotenbergExporter struct {
	Renderer HTMLRenderer
	Now      func() time.Time
}

// Export implements Exporter.
func (e *GotenbergExporter) Export(ctx context.Context, report *reconcile.Report) (Artifact, error) {
	if e == nil || e.Renderer == nil {
		return Artifact{}, fmt.Errorf("gotenberg exporter not initialised")
	}
	html, err := BuildHTML(reconcile.DocumentSections(report), e.now())
	if err != nil {
		return Artifact{}, err
	}
	pdf, err := e.Renderer.RenderHTML(ctx, html)
	if err != nil {
		return Artifact{}, fmt.Errorf("gotenberg render: %w", err)
	}
	return Artifact{Filename: pdfFilename, ContentType: MIMEPDF, Body: pdf}, nil
}

func (e *GotenbergExporter) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

var documentTemplate = template.Must(template.New("laporan").Parse(`<!DOCTYPE html>
<html lang="id">
<head>
<meta charset="utf-8">
<title>{{.Doc.Title}}</title>
<style>
body { font-family: sans-serif; font-size: 11px; margin: 14mm; }
h1 { font-size: 18px; margin: 0 0 4px; }
h2 { font-size: 13px; margin: 16px 0 4px; }
table { width: 100%; border-collapse: collapse; }
th, td { border: 1px solid #999; padding: 3px 5px; text-align: left; }
th { background: #2980b9; color: #fff; }
.notice { color: #b03a2e; font-style: italic; }
.summary p { font-size: 13px; margin: 4px 0; }
footer { margin-top: 24px; font-size: 9px; text-align: right; color: #666; }
</style>
</head>
<body>
<h1>{{.Doc.Title}}</h1>
<p>{{.Doc.Caption}}</p>
{{range .Doc.Notices}}<p class="notice">Gagal memuat data: {{.}}</p>
{{end}}
{{range .Doc.Sections}}<h2>{{.Title}}</h2>
<table>
<thead><tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>{{range .Body}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{else}}<tr><td colspan="{{len .Header}}">-</td></tr>{{end}}</tbody>
</table>
{{end}}
<section class="summary">
<h2>{{.Doc.Heading.Label}}</h2>
{{range .Doc.Summary}}<p>{{.Label}}: {{.Value}}</p>
{{end}}
</section>
<footer>Dibuat {{.Generated}}</footer>
</body>
</html>
`))

// BuildHTML renders the standalone HTML version of a document.
func BuildHTML(doc reconcile.Document, generated time.Time) (string, error) {
	buf := &bytes.Buffer{}
	err := documentTemplate.Execute(buf, struct {
		Doc       reconcile.Document
		Generated string
	}{Doc: doc, Generated: generated.Format("2006-01-02 15:04")})
	if err != nil {
		return "", fmt.Errorf("render report html: %w", err)
	}
	return buf.String(), nil
}
