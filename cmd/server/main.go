// Package main is the entry point for the inkwell server.
//
// main stays minimal: parse flags, load configuration, build the logger,
// start the server. Everything else lives in internal/.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/inkwell/internal/config"
	"github.com/sakif/inkwell/internal/server"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inkwell",
		Short: "Blogging platform API server",
		Long: `inkwell serves the blogging REST API and, optionally, the built frontend.

Every flag can also be set through the environment variable shown in its
description, or through a .env file in the working directory.`,
		SilenceUsage: true,
		RunE:         run,
	}

	flags := cmd.Flags()
	flags.Int("port", 8080, "HTTP port (PORT)")
	flags.String("db-driver", config.DriverSQLite, "database driver: sqlite or postgres (DB_DRIVER)")
	flags.String("db-path", "data/inkwell.db", "sqlite database file (DB_PATH)")
	flags.String("database-url", "", "postgres connection string (DATABASE_URL)")
	flags.String("static-dir", "", "directory with the built frontend (STATIC_DIR)")
	flags.String("log-level", "info", "debug, info, warn or error (LOG_LEVEL)")

	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	logger := cfg.Logger(os.Stdout)

	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// blocks until SIGINT/SIGTERM
	return srv.Start()
}
