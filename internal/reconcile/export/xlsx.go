package export

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/manajemen-lele/lele/internal/reconcile"
)

// SheetName is the only worksheet of the spreadsheet export.
const SheetName = "Laporan"

// XLSXExporter writes the tagged rows into a single worksheet.
type XLSXExporter struct{}

// Export implements Exporter.
func (XLSXExporter) Export(ctx context.Context, report *reconcile.Report) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return Artifact{}, err
	}
	if err := writeRow(f, 1, toAny(reconcile.SheetHeader)); err != nil {
		return Artifact{}, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return Artifact{}, err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return Artifact{}, err
	}
	for i, row := range reconcile.SpreadsheetRows(report) {
		if err := writeRow(f, i+2, row.Cells()); err != nil {
			return Artifact{}, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return Artifact{}, fmt.Errorf("write xlsx: %w", err)
	}
	return Artifact{Filename: "Laporan.xlsx", ContentType: MIMEXLSX, Body: buf.Bytes()}, nil
}

func writeRow(f *excelize.File, rowNum int, cells []any) error {
	for col, v := range cells {
		if v == nil {
			continue
		}
		name, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, name, v); err != nil {
			return err
		}
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
