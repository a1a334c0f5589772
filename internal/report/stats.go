package report

import (
	"fmt"
	"time"

	"ccreport/internal/model"
)

// Summary is a basic snapshot of a report.
type Summary struct {
	Objects      int
	Violations   int
	Unconfigured int
}

// Summarize counts objects, flagged rows and rows with no configured
// threshold at all.
func Summarize(rows []model.ReportRow, fraction float64) Summary {
	s := Summary{Objects: len(rows)}
	for _, row := range rows {
		if Violates(row, fraction) {
			s.Violations++
		}
		if !configured(row) {
			s.Unconfigured++
		}
	}
	return s
}

func configured(row model.ReportRow) bool {
	for _, limit := range row.Limits {
		if _, ok := limit.Mbps.Value(); ok {
			return true
		}
		if _, ok := limit.PPS.Value(); ok {
			return true
		}
	}
	return false
}

// Filename returns the workbook name for a run started at t.
func Filename(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", prefix, t.Format("2006-01-02_15-04-05"))
}
