// Package report turns collected rows into the threshold report: the
// highlight rule, the XLSX workbook and a plain CSV export.
package report

import "ccreport/internal/model"

// Pair identifies one (configured threshold, observed peak) comparison.
type Pair struct {
	Protocol  model.Protocol
	Unit      string // Mbps|PPS
	Threshold float64
	Peak      int64
}

// Violations returns every pair of row whose configured threshold is below
// fraction of the observed peak. Unconfigured thresholds are skipped and a
// missing peak counts as zero.
func Violations(row model.ReportRow, fraction float64) []Pair {
	var out []Pair
	for _, proto := range model.Protocols {
		limit := row.Limits[proto]
		peak := row.Peaks[proto]
		if p, ok := violates(proto, "Mbps", limit.Mbps, peak.Mbps, fraction); ok {
			out = append(out, p)
		}
		if p, ok := violates(proto, "PPS", limit.PPS, peak.PPS, fraction); ok {
			out = append(out, p)
		}
	}
	return out
}

// Violates reports whether any pair of row violates; one is enough to flag
// the whole row.
func Violates(row model.ReportRow, fraction float64) bool {
	return len(Violations(row, fraction)) > 0
}

func violates(proto model.Protocol, unit string, t model.Threshold, peak int64, fraction float64) (Pair, bool) {
	v, configured := t.Value()
	if !configured {
		return Pair{}, false
	}
	if v < float64(peak)*fraction {
		return Pair{Protocol: proto, Unit: unit, Threshold: v, Peak: peak}, true
	}
	return Pair{}, false
}
