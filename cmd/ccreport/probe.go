package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ccreport/internal/job"
)

func newProbeCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Show which controller of the HA pair is active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd, true)
			if err != nil {
				return err
			}

			sess, attempts, err := job.NewProber(cfg.Controller, g.log).Connect(cmd.Context(), cfg.Controller.Endpoints())

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ENDPOINT\tURL\tSTATE\tSTATUS\tERROR")
			for _, a := range attempts {
				status, detail := "-", ""
				if a.Outcome.StatusCode != 0 {
					status = fmt.Sprint(a.Outcome.StatusCode)
				}
				if a.Outcome.Err != nil {
					detail = a.Outcome.Err.Error()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.Endpoint.Name, a.Endpoint.BaseURL, a.Outcome.State, status, detail)
			}
			if flushErr := tw.Flush(); flushErr != nil {
				return flushErr
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "active: %s (%s)\n", sess.Endpoint.Name, sess.BaseURL())
			return nil
		},
	}
}
