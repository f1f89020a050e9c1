package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/go-petr/sca-bank/cmd/httpserver"
	"github.com/go-petr/sca-bank/internal/scheduler"
	"github.com/go-petr/sca-bank/pkg/configpkg"
)

const shutdownTimeout = 10 * time.Second

func newScheduler(a *app) *scheduler.Scheduler {
	services := httpserver.NewServices(a.db, a.config)
	return scheduler.New(services.StandingOrders, services.TAN, a.logger, a.config)
}

// NewServeCmd returns the command running the HTTP API.
func NewServeCmd() *cobra.Command {
	var migrate, withWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := setup(migrate)
			if err != nil {
				return err
			}
			defer cleanup()

			if a.config.Environement != configpkg.EnvDevelopment {
				gin.SetMode(gin.ReleaseMode)
			}

			server, err := httpserver.New(a.db, a.logger, a.config)
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			if withWorker {
				s := scheduler.New(server.Services.StandingOrders, server.Services.TAN, a.logger, a.config)
				go s.Run(ctx)
			}

			srv := &http.Server{
				Addr:              a.config.ServerAddress,
				Handler:           server,
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)

			go func() {
				a.logger.Info().Str("addr", srv.Addr).Msg("BANK API SERVER HAS STARTED")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("cannot start server: %w", err)
				}

				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			a.logger.Info().Msg("shutting down")

			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving")
	cmd.Flags().BoolVar(&withWorker, "with-worker", false, "run the scheduler in the same process")

	return cmd
}

// NewWorkerCmd returns the command running the periodic jobs until interrupted.
func NewWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run due standing orders and expire stale challenges periodically",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := setup(false)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signalContext()
			defer stop()

			newScheduler(a).Run(ctx)

			return nil
		},
	}
}

// NewMigrateCmd returns the command applying the embedded migrations.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cleanup, err := setup(true)
			if err != nil {
				return err
			}

			cleanup()

			return nil
		},
	}
}

// NewRunStandingOrdersCmd returns the command executing the standing orders due on a date once.
func NewRunStandingOrdersCmd() *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "run-standing-orders",
		Short: "Execute the standing orders due today or on --as-of",
		RunE: func(cmd *cobra.Command, args []string) error {
			date := time.Now()

			if asOf != "" {
				var err error

				date, err = time.Parse(time.DateOnly, asOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of %q: %w", asOf, err)
				}
			}

			a, cleanup, err := setup(false)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signalContext()
			defer stop()

			summary, err := newScheduler(a).RunStandingOrdersAsOf(ctx, date)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "due=%d completed=%d failed=%d skipped=%d lapsed=%d errored=%d\n",
				summary.Due, summary.Completed, summary.Failed, summary.Skipped, summary.Lapsed, summary.Errored)

			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "run date in YYYY-MM-DD")

	return cmd
}

// NewSweepChallengesCmd returns the command expiring stale challenges once.
func NewSweepChallengesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-challenges",
		Short: "Expire PENDING challenges past their expiry",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := setup(false)
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := newScheduler(a).SweepChallenges(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "expired=%d\n", n)

			return nil
		},
	}
}
