package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/manajemen-lele/lele/internal/ledger"
)

// DocumentTitle heads every exported report.
const DocumentTitle = "Laporan Biaya dan Laba Rugi"

// SheetHeader is the column order of the spreadsheet projection.
var SheetHeader = []string{"Kategori", "Tanggal", "Nama", "Jumlah", "Harga Satuan", "Nominal", "Pendapatan", "Biaya", "Catatan"}

// SheetRow is one tagged row of the flat spreadsheet projection.
type SheetRow struct {
	Category  string
	Date      string
	Name      string
	Quantity  decimal.NullDecimal
	UnitPrice decimal.NullDecimal
	Amount    decimal.NullDecimal
	Income    decimal.NullDecimal
	Cost      decimal.NullDecimal
	Note      string
}

// Cells returns the row in SheetHeader order; blank numbers are nil.
func (r SheetRow) Cells() []any {
	num := func(d decimal.NullDecimal) any {
		if !d.Valid {
			return nil
		}
		return d.Decimal.InexactFloat64()
	}
	return []any{r.Category, r.Date, r.Name, num(r.Quantity), num(r.UnitPrice), num(r.Amount), num(r.Income), num(r.Cost), r.Note}
}

var sheetOrder = []ledger.Kind{
	ledger.KindListrik,
	ledger.KindPakan,
	ledger.KindLainnya,
	ledger.KindBibit,
	ledger.KindLabaRugi,
	ledger.KindPenjualan,
	ledger.KindModal,
}

// SpreadsheetRows flattens the report into category-tagged rows.
func SpreadsheetRows(r *Report) []SheetRow {
	var out []SheetRow
	for _, kind := range sheetOrder {
		schema := ledger.MustLookup(kind)
		for _, rec := range r.Records[kind] {
			row := SheetRow{Category: schema.Category, Date: rec.Date, Name: rec.Name, Note: rec.Note}
			switch schema.Total {
			case ledger.TotalPersisted, ledger.TotalComputed:
				row.Quantity = decimal.NewNullDecimal(rec.Quantity)
				row.UnitPrice = decimal.NewNullDecimal(rec.UnitPrice)
				row.Amount = decimal.NewNullDecimal(rec.LineTotal())
			default:
				if kind == ledger.KindLabaRugi {
					row.Income = decimal.NewNullDecimal(rec.Income)
					row.Cost = decimal.NewNullDecimal(rec.Cost)
				} else {
					row.Amount = decimal.NewNullDecimal(rec.Amount)
				}
			}
			out = append(out, row)
		}
	}
	return out
}

// Layout of the paginated document, in millimetres on A4 portrait.
const (
	CursorStart = 35.0
	RowHeight   = 7.0
	GroupGap    = 10.0
	PageTop     = 20.0
	PageLimit   = 277.0
	SummaryStep = 10.0
)

// Section is one titled table of the document projection.
type Section struct {
	Kind      ledger.Kind
	Title     string
	Header    []string
	Body      [][]string
	StartY    float64
	StartPage int
	EndY      float64
	EndPage   int
}

// SummaryLine is a labelled total printed after the tables.
type SummaryLine struct {
	Label string
	Value string
	Y     float64
	Page  int
}

// Document is the paginated projection consumed by the PDF sinks.
type Document struct {
	Title    string
	Caption  string
	Sections []Section
	Heading  SummaryLine
	Summary  []SummaryLine
	Notices  []string
	Pages    int
}

var documentOrder = []ledger.Kind{
	ledger.KindListrik,
	ledger.KindPakan,
	ledger.KindPenjualan,
	ledger.KindLainnya,
	ledger.KindBibit,
	ledger.KindModal,
	ledger.KindLabaRugi,
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func sectionTable(kind ledger.Kind, recs []ledger.Record) ([]string, [][]string) {
	f := ledger.FormatNumber
	body := make([][]string, 0, len(recs))
	var header []string
	switch kind {
	case ledger.KindListrik:
		header = []string{"Tanggal", "Jumlah Biaya (Rp)", "Catatan"}
		for _, r := range recs {
			body = append(body, []string{r.Date, f(r.Amount), orDash(r.Note)})
		}
	case ledger.KindPakan:
		header = []string{"Nama Pakan", "Harga", "Tanggal", "Catatan"}
		for _, r := range recs {
			body = append(body, []string{r.Name, f(r.Amount), r.Date, orDash(r.Note)})
		}
	case ledger.KindPenjualan:
		header = []string{"Tanggal", "Jumlah", "Harga per Kg", "Total", "Nama Pembeli", "Catatan"}
		for _, r := range recs {
			body = append(body, []string{r.Date, f(r.Quantity), f(r.UnitPrice), f(r.LineTotal()), orDash(r.Name), orDash(r.Note)})
		}
	case ledger.KindLainnya:
		header = []string{"Tanggal", "Nominal (Rp)", "Catatan"}
		for _, r := range recs {
			body = append(body, []string{r.Date, f(r.Amount), orDash(r.Note)})
		}
	case ledger.KindBibit:
		header = []string{"Tanggal", "Jumlah", "Harga per Unit", "Total"}
		for _, r := range recs {
			body = append(body, []string{r.Date, f(r.Quantity), f(r.UnitPrice), f(r.LineTotal())})
		}
	case ledger.KindModal:
		header = []string{"Tanggal", "Jumlah Modal (Rp)", "Catatan"}
		for _, r := range recs {
			body = append(body, []string{r.Date, f(r.Amount), orDash(r.Note)})
		}
	case ledger.KindLabaRugi:
		header = []string{"Tanggal", "Pendapatan", "Biaya", "Keterangan"}
		for _, r := range recs {
			body = append(body, []string{r.Date, f(r.Income), f(r.Cost), orDash(r.Note)})
		}
	}
	return header, body
}

// cursor tracks the running vertical offset across pages.
type cursor struct {
	y    float64
	page int
}

func (c *cursor) advance(h float64) {
	if c.y+h > PageLimit {
		c.page++
		c.y = PageTop
	}
	c.y += h
}

// DocumentSections projects the report into ordered tables with a running
// vertical cursor, followed by the profit and loss summary.
func DocumentSections(r *Report) Document {
	doc := Document{Title: DocumentTitle, Caption: r.Filter.Caption()}
	c := &cursor{y: CursorStart, page: 1}

	for _, kind := range documentOrder {
		schema := ledger.MustLookup(kind)
		if st, ok := r.Status[kind]; ok && !st.OK {
			doc.Notices = append(doc.Notices, schema.Category+": "+st.Err)
			continue
		}
		if len(doc.Sections) > 0 {
			c.advance(GroupGap)
		}
		// Keep title, header and the first body row together.
		if c.y+3*RowHeight > PageLimit {
			c.page++
			c.y = PageTop
		}
		header, body := sectionTable(kind, r.Records[kind])
		sec := Section{Kind: kind, Title: schema.Title, Header: header, Body: body, StartY: c.y, StartPage: c.page}
		c.advance(RowHeight)
		c.advance(RowHeight)
		for range body {
			c.advance(RowHeight)
		}
		sec.EndY, sec.EndPage = c.y, c.page
		doc.Sections = append(doc.Sections, sec)
	}

	t := r.Totals
	lines := []SummaryLine{
		{Label: "Total Pendapatan", Value: rupiah(t.Income)},
		{Label: "Total Biaya", Value: rupiah(t.Cost)},
		{Label: "Laba Bersih", Value: rupiah(t.NetProfitLoss)},
		{Label: "Total Biaya Listrik", Value: rupiah(t.Electricity)},
		{Label: "Total Biaya Pakan", Value: rupiah(t.Feed)},
		{Label: "Total Biaya Lainnya", Value: rupiah(t.Misc)},
		{Label: "Total Penjualan", Value: rupiah(t.Sales)},
		{Label: "Total Keseluruhan", Value: rupiah(t.NetOperatingCost)},
	}
	if c.y+SummaryStep*float64(len(lines)+2) > PageLimit {
		c.page++
		c.y = PageTop
	}
	base := c.y
	doc.Heading = SummaryLine{Label: "Laporan Laba Rugi", Y: base + 15, Page: c.page}
	for i := range lines {
		lines[i].Y = base + 25 + SummaryStep*float64(i)
		lines[i].Page = c.page
	}
	doc.Summary = lines
	doc.Pages = c.page
	return doc
}

func rupiah(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return ledger.FormatRupiah(d.Decimal)
}
