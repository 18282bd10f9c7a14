/*
leasectl - Lease engine command line

COMMANDS:
  serve                       Run the HTTP API and the continuity auditor
  audit                       Report tariff gaps of every lease once
  loan schedule <loan-id>     Regenerate and print a loan schedule
  loan crd <loan-id> --at     Print the capital remaining at a date

CONFIGURATION:
  Settings come from defaults, an optional config.toml (or --config), a .env
  file and LEASE_* environment variables. See config/config.go.

EXAMPLES:
  leasectl serve
  LEASE_DB_PATH=./data/lease.db leasectl audit
  leasectl loan crd loan-1 --at 2025-01-01
*/
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/warp/lease-engine/config"
	"github.com/warp/lease-engine/store/sqlite"
)

// app carries what every command needs once the root command has loaded
// the configuration.
type app struct {
	configPath string
	cfg        *config.Config
	log        zerolog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "leasectl",
		Short:         "Lease temporal financial engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.DB.Path, _ = cmd.Flags().GetString("db")
			}
			a.cfg = cfg
			a.log = config.NewLogger(cfg)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: ./config.toml if present)")
	root.PersistentFlags().String("db", "", "SQLite database path, overrides db.path")

	root.AddCommand(
		serveCmd(a),
		auditCmd(a),
		loanCmd(a),
	)
	return root
}

func (a *app) openStore() (*sqlite.Store, error) {
	store, err := sqlite.New(a.cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", a.cfg.DB.Path, err)
	}
	return store, nil
}
