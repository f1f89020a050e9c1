// Package main provides the bank API server, the scheduler worker and their one shot jobs.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/go-petr/sca-bank/configs/db/migration"
	"github.com/go-petr/sca-bank/internal/middleware"
	"github.com/go-petr/sca-bank/pkg/configpkg"
	"github.com/go-petr/sca-bank/pkg/dbpkg"

	_ "github.com/lib/pq"
)

var configPath string

// app holds what every subcommand needs.
type app struct {
	config configpkg.Config
	logger zerolog.Logger
	db     *sql.DB
}

func setup(migrate bool) (*app, func(), error) {
	config, err := configpkg.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot load config: %w", err)
	}

	logger := middleware.CreateLogger(config)

	db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot connect to database: %w", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("cannot close database")
		}
	}

	if migrate {
		if err := dbpkg.Migrate(db, migration.FS); err != nil {
			cleanup()
			return nil, nil, err
		}

		logger.Info().Msg("database migrated")
	}

	return &app{config: config, logger: logger, db: db}, cleanup, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "bank",
		Short:         "SCA bank: TAN confirmed transfers and standing orders",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./configs", "directory holding app.env")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewWorkerCmd())
	rootCmd.AddCommand(NewMigrateCmd())
	rootCmd.AddCommand(NewRunStandingOrdersCmd())
	rootCmd.AddCommand(NewSweepChallengesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
