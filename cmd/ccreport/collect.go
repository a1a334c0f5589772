package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ccreport/internal/job"
	"ccreport/internal/model"
	"ccreport/internal/report"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
)

func newCollectCommand(g *globals) *cobra.Command {
	var format, outPath string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect thresholds and peaks without writing the workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatTable && format != formatCSV {
				return fmt.Errorf("unknown format %q (want %s or %s)", format, formatTable, formatCSV)
			}
			cfg, err := g.loadConfig(cmd, true)
			if err != nil {
				return err
			}

			res, err := job.Collect(cmd.Context(), cfg, g.log)
			if errors.Is(err, job.ErrNoData) {
				fmt.Fprintln(cmd.OutOrStdout(), "no protected objects collected")
				return nil
			}
			if err != nil {
				return err
			}

			write := func(w io.Writer) error {
				if format == formatCSV {
					return report.WriteCSV(w, res.Rows)
				}
				return writeTable(w, res.Rows, cfg.Report.ThresholdFraction)
			}
			if outPath == "" {
				return write(cmd.OutOrStdout())
			}
			if err := writeFile(outPath, write); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", len(res.Rows), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "output format: table or csv")
	cmd.Flags().StringVar(&outPath, "out", "", "write to file instead of stdout")
	return cmd
}

// writeFile creates path, runs write on it and reports the close error too.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// writeTable prints one line per object with the pairs that violate.
func writeTable(w io.Writer, rows []model.ReportRow, fraction float64) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROTECTED OBJECT\tHIGHLIGHT\tVIOLATIONS")
	for _, row := range rows {
		pairs := report.Violations(row, fraction)
		flag, detail := "no", "-"
		if len(pairs) > 0 {
			flag = "yes"
			parts := make([]string, 0, len(pairs))
			for _, p := range pairs {
				parts = append(parts, fmt.Sprintf("%s %s %g<%d", p.Protocol.Label(), p.Unit, p.Threshold, p.Peak))
			}
			detail = strings.Join(parts, ", ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", row.Name, flag, detail)
	}
	return tw.Flush()
}
