package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/yurifrl/reembolso/pkg/config"
	"github.com/yurifrl/reembolso/pkg/importer"
	"github.com/yurifrl/reembolso/pkg/parser"
	"github.com/yurifrl/reembolso/pkg/reconcile"
	"github.com/yurifrl/reembolso/pkg/service"
	"github.com/yurifrl/reembolso/pkg/store"
)

var (
	cliFilters filters
	cfgFile    string
)

// app holds what every subcommand needs once config is loaded.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	store  *store.Store
}

var current app

func (a *app) importer() *importer.Importer {
	return importer.New(a.store, a.logger, a.cfg.Import.Concurrency)
}

func (a *app) matcher() *reconcile.Matcher {
	return reconcile.NewMatcher(a.store, a.logger)
}

func (a *app) processor(profile string) (*service.Processor, error) {
	p, err := parser.ParseProfile(profile)
	if err != nil {
		return nil, err
	}
	return service.NewProcessor(parser.New(a.logger).WithProfile(p), a.importer(), a.logger), nil
}

var rootCmd = &cobra.Command{
	Use:           "reembolso-cli",
	Short:         "Import statements, read receipts and reconcile expenses",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Build(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		current.cfg = cfg
		current.logger = log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			Prefix:          "reembolso-cli",
			Level:           cfg.Level(),
		})

		if cmd.Annotations["store"] == "none" {
			return nil
		}
		st, err := store.Open(cmd.Context(), cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database %s: %w", cfg.DBPath, err)
		}
		current.store = st
		return nil
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		if current.store != nil {
			return current.store.Close()
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

// noStore marks commands that never touch the database.
var noStore = map[string]string{"store": "none"}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path")
	rootCmd.PersistentFlags().String("company", "", "Active company id")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		importCmd, planCmd, receiptCmd,
		listCmd, candidatesCmd, linkCmd, unlinkCmd, editCmd, deleteCmd, sumCmd,
		reportsCmd, exportCmd, ynabImportCmd,
	)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
