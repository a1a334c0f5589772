package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ccreport/internal/api"
	"ccreport/internal/controller"
)

func newSimulateCommand(g *globals) *cobra.Command {
	var (
		role        string
		listen      string
		fixturePath string
		creds       api.Credentials
		initFixture bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Serve an emulated controller for trying the pipeline without hardware",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := controller.Role(role)
			switch r {
			case controller.RoleActive, controller.RoleBackup, controller.RoleBroken:
			default:
				return fmt.Errorf("unknown role %q", role)
			}

			if initFixture {
				if err := controller.SaveFixture(fixturePath, controller.SampleFixture()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", fixturePath)
				return nil
			}

			fx, err := controller.LoadFixture(fixturePath)
			if err != nil {
				return fmt.Errorf("load fixture: %w", err)
			}
			return controller.NewServer(r, creds, fx.Objects).ListenAndServe(cmd.Context(), listen, g.log)
		},
	}

	cmd.Flags().StringVar(&role, "role", string(controller.RoleActive), "HA role: active, backup or broken")
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&fixturePath, "fixture", "controller-fixture.yaml", "fixture file; the built-in sample is served when missing")
	cmd.Flags().StringVar(&creds.Username, "username", "admin", "accepted username")
	cmd.Flags().StringVar(&creds.Password, "password", "admin", "accepted password")
	cmd.Flags().BoolVar(&initFixture, "init-fixture", false, "write the sample fixture to --fixture and exit")
	return cmd
}
