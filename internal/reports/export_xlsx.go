package reports

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const xlsxMaxColWidth = 60

// WriteXLSX renders the report as a single-sheet workbook.
func WriteXLSX(w io.Writer, report Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := "Report"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}

	rows := make([][]any, 0, len(report.Rows)+2)
	rows = append(rows, toAny(tableHeader(report)))
	for _, row := range report.Rows {
		rows = append(rows, numericRow(row))
	}
	rows = append(rows, numericRow(report.GrandTotal))

	for i, values := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	if err := formatSheet(f, sheet, len(rows)); err != nil {
		return err
	}
	_ = f.SetDocProps(&excelize.DocProperties{Title: fmt.Sprintf("%s %s", report.Title, report.Period)})
	return f.Write(w)
}

// formatSheet bolds the header and total rows, adds a filter and sizes columns.
func formatSheet(f *excelize.File, sheet string, rowCount int) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return err
	}
	cols := 0
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	if cols == 0 {
		return nil
	}
	last, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return err
	}

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(sheet, "A1", last+"1", style)
		_ = f.SetCellStyle(sheet, fmt.Sprintf("A%d", rowCount), fmt.Sprintf("%s%d", last, rowCount), style)
	}
	_ = f.AutoFilter(sheet, fmt.Sprintf("A1:%s1", last), nil)

	widths := make([]float64, cols)
	for c := range widths {
		widths[c] = 10
	}
	for rIdx, row := range rows {
		for cIdx, v := range row {
			w := float64(utf8.RuneCountInString(v)) * 1.1
			if rIdx == 0 {
				w += 1.5
			}
			if w > widths[cIdx] {
				widths[cIdx] = min(w, xlsxMaxColWidth)
			}
		}
	}
	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, col, col, width)
	}
	return nil
}

func numericRow(row Row) []any {
	out := make([]any, 0, len(row.Counts)+3)
	out = append(out, row.Name, row.Records)
	for _, c := range row.Counts {
		out = append(out, c)
	}
	return append(out, row.Total)
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
