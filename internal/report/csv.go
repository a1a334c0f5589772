package report

import (
	"encoding/csv"
	"io"

	"ccreport/internal/model"
)

// WriteCSV writes rows to CSV with the same fixed column order as the
// workbook.
func WriteCSV(w io.Writer, rows []model.ReportRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(Columns()); err != nil {
		return err
	}

	for _, row := range rows {
		values := cells(row)
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = cellText(v)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
