package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	corehealth "github.com/shipward/shipward/internal/core/health"
	"github.com/shipward/shipward/internal/shell/health"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Poll the health endpoint without deploying",
	Long: `Run only the bounded-retry health check against the configured
endpoint. Useful for verifying a deployment by hand or from another
pipeline.

Example:
  shipward health -c shipward.yaml
  SHIPWARD_DEPLOY_PORT=8080 shipward health`,
	RunE:         runHealth,
	SilenceUsage: true,
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := SetupLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poller := health.NewPoller(
		cfg.HealthURL(),
		corehealth.Budget{MaxRetries: cfg.Health.MaxRetries, Delay: cfg.Health.RetryDelay},
		cfg.Health.ProbeTimeout,
		logger,
	)

	_, err = poller.Poll(ctx)
	return err
}
