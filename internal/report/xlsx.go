package report

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"ccreport/internal/model"
)

const (
	titleRow  = 1
	headerRow = 2
	firstRow  = 3

	thresholdFill = "92D050"
	peakFill      = "FFFF00"
	headerFill    = "4472C4"
	violationFill = "FF0000"
)

// Options controls workbook rendering.
type Options struct {
	Fraction     float64
	LookbackDays int
}

// WriteXLSX renders rows into a single-sheet workbook at path, creating the
// parent directory if needed.
func WriteXLSX(path string, rows []model.ReportRow, opts Options) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	w := &sheetWriter{f: f, sheet: f.GetSheetName(0)}
	w.titles(opts.LookbackDays)
	w.header()
	w.rows(rows, opts.Fraction)
	w.widths(rows)
	if w.err != nil {
		return fmt.Errorf("render workbook: %w", w.err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// sheetWriter keeps the first error so rendering steps read top to bottom.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) titles(days int) {
	thresholdFirst := nameColumns + 1
	thresholdLast := nameColumns + thresholdColumns
	peakFirst := thresholdLast + 1
	peakLast := columnCount

	w.title(thresholdFirst, thresholdLast, "Current Thresholds", thresholdFill)
	w.title(peakFirst, peakLast, fmt.Sprintf("Max value for last %d days", days), peakFill)
}

func (w *sheetWriter) title(firstCol, lastCol int, text, fill string) {
	from := w.cell(firstCol, titleRow)
	to := w.cell(lastCol, titleRow)
	if w.err != nil {
		return
	}
	style := w.style(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Fill:      solid(fill),
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	w.do(w.f.MergeCell(w.sheet, from, to))
	w.do(w.f.SetCellValue(w.sheet, from, text))
	w.do(w.f.SetCellStyle(w.sheet, from, to, style))
}

func (w *sheetWriter) header() {
	for i, name := range Columns() {
		cell := w.cell(i+1, headerRow)
		if w.err != nil {
			return
		}
		w.do(w.f.SetCellValue(w.sheet, cell, name))
	}
	style := w.style(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: solid(headerFill),
	})
	w.do(w.f.SetCellStyle(w.sheet, w.cell(1, headerRow), w.cell(columnCount, headerRow), style))
}

func (w *sheetWriter) rows(rows []model.ReportRow, fraction float64) {
	highlight := w.style(&excelize.Style{Fill: solid(violationFill)})
	for i, row := range rows {
		r := firstRow + i
		for col, v := range cells(row) {
			if v == nil {
				continue
			}
			cell := w.cell(col+1, r)
			if w.err != nil {
				return
			}
			w.do(w.f.SetCellValue(w.sheet, cell, v))
		}
		if Violates(row, fraction) {
			w.do(w.f.SetCellStyle(w.sheet, w.cell(1, r), w.cell(columnCount, r), highlight))
		}
	}
}

func (w *sheetWriter) widths(rows []model.ReportRow) {
	widest := make([]int, columnCount)
	for i, name := range Columns() {
		widest[i] = utf8.RuneCountInString(name)
	}
	for _, row := range rows {
		for i, v := range cells(row) {
			if n := utf8.RuneCountInString(cellText(v)); n > widest[i] {
				widest[i] = n
			}
		}
	}
	for i, n := range widest {
		name, err := excelize.ColumnNumberToName(i + 1)
		w.do(err)
		if w.err != nil {
			return
		}
		w.do(w.f.SetColWidth(w.sheet, name, name, float64(n+2)))
	}
}

func (w *sheetWriter) cell(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	w.do(err)
	return name
}

func (w *sheetWriter) style(s *excelize.Style) int {
	if w.err != nil {
		return 0
	}
	id, err := w.f.NewStyle(s)
	w.do(err)
	return id
}

func (w *sheetWriter) do(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

func solid(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
}
