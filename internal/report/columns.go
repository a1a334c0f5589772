package report

import (
	"math"
	"strconv"
	"strings"

	"ccreport/internal/model"
)

// Column layout: the object name, then Mbps/PPS thresholds per protocol,
// then Mbps/PPS peaks per protocol.
const (
	nameColumns      = 1
	pairsPerProtocol = 2
)

var (
	thresholdColumns = len(model.Protocols) * pairsPerProtocol
	columnCount      = nameColumns + 2*thresholdColumns
)

// Columns returns the header names in report order.
func Columns() []string {
	cols := make([]string, 0, columnCount)
	cols = append(cols, "Protected Object")
	for _, p := range model.Protocols {
		cols = append(cols, p.Label()+" Activation Mbps", p.Label()+" Activation PPS")
	}
	for _, p := range model.Protocols {
		cols = append(cols, p.Label()+" Max Mbps", p.Label()+" Max PPS")
	}
	return cols
}

// cells returns row values in column order. Numeric thresholds become
// float64, other non-blank raw values stay strings, blanks and missing peaks
// are nil.
func cells(row model.ReportRow) []any {
	out := make([]any, 0, columnCount)
	out = append(out, row.Name)
	for _, p := range model.Protocols {
		limit := row.Limits[p]
		out = append(out, thresholdCell(limit.Mbps), thresholdCell(limit.PPS))
	}
	for _, p := range model.Protocols {
		peak, ok := row.Peaks[p]
		if !ok {
			out = append(out, nil, nil)
			continue
		}
		out = append(out, peak.Mbps, peak.PPS)
	}
	return out
}

func thresholdCell(t model.Threshold) any {
	s := strings.TrimSpace(string(t))
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}

// cellText renders a cell value for CSV output and width estimation.
func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return ""
	}
}
