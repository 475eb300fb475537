package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/yurifrl/reembolso/pkg/config"
	"github.com/yurifrl/reembolso/pkg/server"
	"github.com/yurifrl/reembolso/pkg/store"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Prefix:          "reembolso",
	})

	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	cfgFile := flags.StringP("config", "c", "", "Config file (default is config.yaml)")
	flags.String("addr", "", "Listen address (default 0.0.0.0:3000)")
	flags.String("db", "", "SQLite database path")
	flags.String("company", "", "Default active company id")
	flags.String("log-level", "", "Log level")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Build(*cfgFile, flags)
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}
	logger.SetLevel(cfg.Level())

	st, err := store.Open(context.Background(), cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open database", "path", cfg.DBPath, "err", err)
	}
	defer st.Close()

	srv, err := server.New(cfg, logger, st)
	if err != nil {
		logger.Fatal("failed to create server", "err", err)
	}
	logger.Info("starting server", "addr", cfg.Server.Addr, "db", cfg.DBPath)
	if err := srv.Start(cfg.Server.Addr); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
