package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ccreport/internal/notify"
)

func newEmailCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "email",
		Short: "Email delivery commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Connect and authenticate to the SMTP server without sending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd, false)
			if err != nil {
				return err
			}
			if err := notify.New(cfg.Email, notify.WithLogger(g.log)).Check(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "smtp connection to %s:%d ok\n", cfg.Email.SMTPHost, cfg.Email.SMTPPort)
			return nil
		},
	})
	return cmd
}
