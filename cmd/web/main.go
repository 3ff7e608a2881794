package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"seatpool_backend/internal/app"
	"seatpool_backend/internal/logger"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "web",
		Short:         "Seat pool and subscription renewal service",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runServe,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run HTTP API and status synchronizer",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update database tables",
			RunE:  runMigrate,
		},
		&cobra.Command{
			Use:   "sweep",
			Short: "Run one status synchronizer sweep and exit",
			RunE:  runSweep,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)
	return root
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, db, err := app.Bootstrap()
	if err != nil {
		return err
	}
	if err := app.Serve(ctx, cfg, db); err != nil {
		logger.Error("Server stopped with error", "error", err)
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	_, db, err := app.Bootstrap()
	if err != nil {
		return err
	}
	return app.Migrate(db)
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, db, err := app.Bootstrap()
	if err != nil {
		return err
	}
	result, err := app.Sweep(ctx, cfg, db)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pools_expired=%d subscriptions_marked_overdue=%d failures=%d\n",
		result.PoolsExpired, result.SubscriptionsMarkedOverdue, result.Failures)
	return nil
}
