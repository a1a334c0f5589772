package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"ccreport/internal/config"
	"ccreport/internal/logging"
)

const (
	defaultConfigPath = "ccreport.yaml"
	passwordEnv       = "CCREPORT_PASSWORD"
)

// globals holds the persistent flags and what PersistentPreRunE builds from
// them.
type globals struct {
	configPath string
	logLevel   string
	log        *zap.Logger
}

func newRootCommand() *cobra.Command {
	g := &globals{log: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "ccreport",
		Short: "Flow detector threshold report for an HA controller pair",
		Long: `ccreport finds the active controller of an HA pair, compares each protected
object's flow detector thresholds with the traffic peaks of the last days,
writes the comparison to an XLSX workbook and mails it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.NewWriter(cmd.ErrOrStderr(), g.logLevel)
			if err != nil {
				return err
			}
			g.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = g.log.Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&g.configPath, "config", defaultConfigPath, "path to YAML config")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", logging.DefaultLevel, "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newRunCommand(g),
		newProbeCommand(g),
		newCollectCommand(g),
		newEmailCommand(g),
		newConfigCommand(g),
		newSimulateCommand(g),
	)
	return cmd
}

// loadConfig reads and validates the config file. When needPassword is set
// and the file has no controller password, it is taken from the environment
// or prompted for.
func (g *globals) loadConfig(cmd *cobra.Command, needPassword bool) (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.Config{}, fmt.Errorf("%w (create one with `ccreport config init`)", err)
		}
		return config.Config{}, err
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}

	if needPassword && cfg.Controller.Password == "" {
		if pw := os.Getenv(passwordEnv); pw != "" {
			cfg.Controller.Password = pw
		} else {
			prompt := fmt.Sprintf("Password for %s: ", cfg.Controller.Username)
			pw, err := promptPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), prompt)
			if err != nil {
				return config.Config{}, fmt.Errorf("read password: %w", err)
			}
			if pw == "" {
				return config.Config{}, errors.New("controller password is required")
			}
			cfg.Controller.Password = pw
		}
	}
	return cfg, nil
}

// promptPassword reads a password without echo from a terminal, or a single
// line from any other reader.
func promptPassword(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	reader := bufio.NewReader(in)
	text, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
