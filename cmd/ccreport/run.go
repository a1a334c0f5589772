package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ccreport/internal/job"
)

func newRunCommand(g *globals) *cobra.Command {
	var opts job.Options

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Collect thresholds and peaks, write the workbook and mail it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd, true)
			if err != nil {
				return err
			}

			res, err := job.Run(cmd.Context(), cfg, g.log, opts)
			if errors.Is(err, job.ErrNoData) {
				g.log.Warn("no protected objects collected, no report generated")
				return nil
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "report: %s\n", res.Path)
			fmt.Fprintf(out, "objects=%d highlighted=%d unconfigured=%d controller=%s\n",
				res.Summary.Objects, res.Summary.Violations, res.Summary.Unconfigured, res.Endpoint.Name)
			switch {
			case res.EmailErr != nil:
				fmt.Fprintf(out, "email: failed: %v\n", res.EmailErr)
			case res.Emailed:
				fmt.Fprintf(out, "email: sent to %d recipient(s)\n", len(cfg.Email.Recipients()))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.NoEmail, "no-email", false, "skip email delivery even when enabled")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "", "directory for the workbook (overrides report.output_dir)")
	return cmd
}
