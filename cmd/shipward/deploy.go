package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	corehealth "github.com/shipward/shipward/internal/core/health"
	"github.com/shipward/shipward/internal/shell/cmdrun"
	"github.com/shipward/shipward/internal/shell/compose"
	"github.com/shipward/shipward/internal/shell/docker"
	"github.com/shipward/shipward/internal/shell/git"
	"github.com/shipward/shipward/internal/shell/health"
	"github.com/shipward/shipward/internal/shell/runner"
	"github.com/shipward/shipward/internal/shell/store"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Run the deployment pipeline",
	Long: `Run the full pipeline: update the manifest with the target image,
commit and push the change, redeploy the stack, and poll the health
endpoint until it answers 2xx or the retry budget is exhausted.

The process exits 0 only when every stage succeeds. A failed stage
aborts the remainder and exits with a stage-specific code.

Example:
  shipward deploy -c shipward.yaml
  SHIPWARD_DEPLOY_IMAGE=registry.example.com/app:v42 shipward deploy`,
	RunE:         runDeploy,
	SilenceUsage: true,
}

func runDeploy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateForDeploy(); err != nil {
		return err
	}

	logger := SetupLogger(cfg)
	logger.Info("starting deployment",
		"version", Version,
		"image", cfg.Deploy.Image,
		"manifest", cfg.Deploy.Manifest,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run := cmdrun.NewExecRunner()
	gitClient := git.NewClient(run, cfg.Deploy.ProjectDir, logger)
	composeClient := compose.NewClient(run, cfg.Deploy.ProjectDir, cfg.Deploy.Manifest, logger)

	var verifier runner.ContainerVerifier
	if cfg.Deploy.Verify {
		v, err := docker.NewVerifier(cfg.Deploy.DockerHost, logger)
		if err != nil {
			logger.Warn("docker unavailable, skipping container verification", "error", err)
		} else {
			defer v.Close()
			verifier = v
		}
	}

	poller := health.NewPoller(
		cfg.HealthURL(),
		corehealth.Budget{MaxRetries: cfg.Health.MaxRetries, Delay: cfg.Health.RetryDelay},
		cfg.Health.ProbeTimeout,
		logger,
	)

	var journal store.Store
	if cfg.Journal.Enabled {
		s, err := store.NewSQLiteStore(cfg.Journal.DSN)
		if err != nil {
			logger.Warn("journal unavailable, continuing without it", "error", err)
		} else {
			defer s.Close()
			journal = s
		}
	}

	pipe := runner.New(runner.Config{
		Image:         cfg.Deploy.Image,
		Manifest:      cfg.Deploy.Manifest,
		Placeholder:   cfg.Deploy.Placeholder,
		RepoDir:       cfg.Deploy.ProjectDir,
		GitName:       cfg.Git.Name,
		GitEmail:      cfg.Git.Email,
		Remote:        cfg.Git.CredentialedRemote(),
		Branch:        cfg.Git.Branch,
		CommitMessage: cfg.Git.Message,
		Container:     cfg.Deploy.Container,
		Port:          cfg.Deploy.Port,
		DeployEnv:     cfg.Deploy.Env,
	}, gitClient, composeClient, verifier, poller, journal, logger)

	return pipe.Run(ctx)
}
