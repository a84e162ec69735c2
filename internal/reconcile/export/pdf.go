package export

import (
	"context"
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/page"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/manajemen-lele/lele/internal/reconcile"
)

const pdfFilename = "Laporan.pdf"

// MarotoExporter lays out the document projection as an A4 PDF.
type MarotoExporter struct {
	Now func() time.Time
}

// Export implements Exporter.
func (e *MarotoExporter) Export(ctx context.Context, report *reconcile.Report) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	doc := reconcile.DocumentSections(report)

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithOrientation(orientation.Vertical).
		WithLeftMargin(14).
		WithTopMargin(reconcile.PageTop).
		WithRightMargin(14).
		WithBottomMargin(10).
		Build()
	m := maroto.New(cfg)

	if err := m.RegisterFooter(
		row.New(4).Add(col.New(12).Add(line.New())),
		row.New(6).Add(text.NewCol(12, "Dibuat "+e.now().Format("2006-01-02 15:04"), props.Text{
			Size:  8,
			Align: align.Right,
		})),
	); err != nil {
		return Artifact{}, fmt.Errorf("register footer: %w", err)
	}

	m.AddRow(8, text.NewCol(12, doc.Title, props.Text{Size: 16, Style: fontstyle.Bold}))
	m.AddRow(reconcile.CursorStart-reconcile.PageTop-8, text.NewCol(12, doc.Caption, props.Text{Size: 12}))
	for _, notice := range doc.Notices {
		m.AddRow(6, text.NewCol(12, "Gagal memuat data: "+notice, props.Text{Size: 9, Style: fontstyle.Italic}))
	}

	sectionBreaks, summaryBreak := pageBreaks(doc)
	for i, sec := range doc.Sections {
		rows := make([]core.Row, 0, len(sec.Body)+3)
		if i > 0 && !sectionBreaks[i] {
			rows = append(rows, row.New(reconcile.GroupGap))
		}
		rows = append(rows,
			row.New(reconcile.RowHeight).Add(text.NewCol(12, sec.Title, props.Text{Size: 11, Style: fontstyle.Bold, Top: 1})),
			row.New(reconcile.RowHeight).Add(tableCells(sec.Header, props.Text{Size: 9, Style: fontstyle.Bold, Top: 1.5})...),
		)
		for _, cells := range sec.Body {
			rows = append(rows, row.New(reconcile.RowHeight).Add(tableCells(cells, props.Text{Size: 9, Top: 1.5})...))
		}
		addRows(m, sectionBreaks[i], rows)
	}

	summary := []core.Row{
		row.New(reconcile.SummaryStep),
		row.New(reconcile.SummaryStep).Add(text.NewCol(12, doc.Heading.Label, props.Text{Size: 14, Style: fontstyle.Bold})),
	}
	for _, l := range doc.Summary {
		summary = append(summary, row.New(reconcile.SummaryStep).Add(text.NewCol(12, l.Label+": "+l.Value, props.Text{Size: 12})))
	}
	addRows(m, summaryBreak, summary)

	out, err := m.Generate()
	if err != nil {
		return Artifact{}, fmt.Errorf("generate pdf: %w", err)
	}
	return Artifact{Filename: pdfFilename, ContentType: MIMEPDF, Body: out.GetBytes()}, nil
}

func (e *MarotoExporter) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// pageBreaks reports which sections open a fresh page according to the
// document cursor, and whether the summary does.
func pageBreaks(doc reconcile.Document) ([]bool, bool) {
	breaks := make([]bool, len(doc.Sections))
	current := 1
	for i, sec := range doc.Sections {
		breaks[i] = sec.StartPage > current
		current = sec.EndPage
	}
	return breaks, doc.Heading.Page > current
}

func addRows(m core.Maroto, newPage bool, rows []core.Row) {
	if newPage {
		m.AddPages(page.New().Add(rows...))
		return
	}
	m.AddRows(rows...)
}

// tableCells spreads values evenly over the 12-column grid.
func tableCells(values []string, p props.Text) []core.Col {
	if len(values) == 0 {
		return nil
	}
	width := 12 / len(values)
	cols := make([]core.Col, 0, len(values))
	for _, v := range values {
		cols = append(cols, text.NewCol(width, v, p))
	}
	return cols
}
