// Package export renders reconciled reports into downloadable files.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/manajemen-lele/lele/internal/reconcile"
)

// Format names a download flavour.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// Content types served with each format.
const (
	MIMEPDF  = "application/pdf"
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMECSV  = "text/csv; charset=utf-8"
)

// Renderer names for the PDF sink.
const (
	RendererMaroto    = "maroto"
	RendererGotenberg = "gotenberg"
)

// ErrUnsupported is returned for an unknown format.
var ErrUnsupported = errors.New("export: unsupported format")

// Artifact is one rendered file.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Exporter renders a report into an Artifact.
type Exporter interface {
	Export(ctx context.Context, report *reconcile.Report) (Artifact, error)
}

// ParseFormat maps a path or task segment onto a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPDF, FormatXLSX, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, s)
	}
}

// Set holds one sink per format.
type Set struct {
	sinks map[Format]Exporter
}

// NewSet wires the sinks. The PDF sink is Gotenberg when renderer asks for it
// and a client is configured, maroto otherwise.
func NewSet(renderer string, gotenberg HTMLRenderer, now func() time.Time) *Set {
	if now == nil {
		now = time.Now
	}
	var pdf Exporter = &MarotoExporter{Now: now}
	if renderer == RendererGotenberg && gotenberg != nil {
		pdf = &GotenbergExporter{Renderer: gotenberg, Now: now}
	}
	return &Set{sinks: map[Format]Exporter{
		FormatPDF:  pdf,
		FormatXLSX: &XLSXExporter{},
		FormatCSV:  &CSVExporter{},
	}}
}

// For returns the sink for f.
func (s *Set) For(f Format) (Exporter, error) {
	exp, ok := s.sinks[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, f)
	}
	return exp, nil
}

// Render is For followed by Export.
func (s *Set) Render(ctx context.Context, f Format, report *reconcile.Report) (Artifact, error) {
	exp, err := s.For(f)
	if err != nil {
		return Artifact{}, err
	}
	return exp.Export(ctx, report)
}
