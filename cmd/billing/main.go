package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"circletel_billing/internal/app"
	"circletel_billing/internal/config"
	"circletel_billing/internal/logger"
)

// setupFunc builds the wired service for one command invocation.
type setupFunc func(ctx context.Context) (*app.Container, *logger.Logger, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(setupFromConfig).ExecuteContext(ctx); err != nil {
		logger.L.Errorw("[cli] command failed", "err", err)
		stop()
		os.Exit(1)
	}
}

func setupFromConfig(ctx context.Context) (*app.Container, *logger.Logger, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	c, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return c, log, nil
}

func newRootCmd(setup setupFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "billing",
		Short: "Operator commands for the CircleTel billing core",
		Long: `billing runs the scheduled jobs of the billing core against the configured store.

Configuration is read the same way as the API: config.yaml when present, then
environment variables (e.g. STORE_DRIVER, DATABASE_URL, NETCASH_SERVICE_KEY).`,
		SilenceUsage: true,
	}
	root.AddCommand(
		newRunCmd(setup),
		newSweepOverdueCmd(setup),
		newReconcileCmd(setup),
	)
	return root
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
