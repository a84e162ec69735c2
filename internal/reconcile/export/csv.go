package export

import (
	"bytes"
	"context"
	"encoding/csv"

	"github.com/shopspring/decimal"

	"github.com/manajemen-lele/lele/internal/reconcile"
)

// CSVExporter emits the same tagged rows as the spreadsheet.
type CSVExporter struct{}

// Export implements Exporter.
func (CSVExporter) Export(ctx context.Context, report *reconcile.Report) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	buf := &bytes.Buffer{}
	if err := WriteCSV(buf, reconcile.SpreadsheetRows(report)); err != nil {
		return Artifact{}, err
	}
	return Artifact{Filename: "Laporan.csv", ContentType: MIMECSV, Body: buf.Bytes()}, nil
}

// WriteCSV serialises rows with a header line.
func WriteCSV(buf *bytes.Buffer, rows []reconcile.SheetRow) error {
	writer := csv.NewWriter(buf)
	if err := writer.Write(reconcile.SheetHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := writer.Write([]string{
			r.Category,
			r.Date,
			r.Name,
			formatNull(r.Quantity),
			formatNull(r.UnitPrice),
			formatNull(r.Amount),
			formatNull(r.Income),
			formatNull(r.Cost),
			r.Note,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatNull(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}
