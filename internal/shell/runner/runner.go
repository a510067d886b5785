// Package runner executes the deployment pipeline: an explicit ordered
// list of stage functions, each returning an error that short-circuits
// the remaining sequence. All collaborators arrive as interfaces so the
// sequencing can be tested without git, docker, or a network.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shipward/shipward/internal/core/manifest"
	"github.com/shipward/shipward/internal/core/pipeline"
	"github.com/shipward/shipward/internal/shell/health"
	"github.com/shipward/shipward/internal/shell/store"
)

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// GitClient is the version-control surface the pipeline needs.
type GitClient interface {
	ConfigureIdentity(ctx context.Context, name, email string) error
	Stage(ctx context.Context, file string) error
	HasChanges(ctx context.Context) (bool, error)
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context, remote, ref string) error
}

// ComposeClient is the orchestration-tool surface the pipeline needs.
type ComposeClient interface {
	Down(ctx context.Context, removeOrphans bool) error
	Pull(ctx context.Context) error
	Up(ctx context.Context, detached bool, env map[string]string) error
}

// ContainerVerifier checks the deployed container after up.
type ContainerVerifier interface {
	VerifyContainer(ctx context.Context, name string, port int) error
}

// HealthPoller runs the bounded-retry health check.
type HealthPoller interface {
	Poll(ctx context.Context) (health.Report, error)
}

// =============================================================================
// Config
// =============================================================================

// Config is the immutable per-run pipeline configuration. It is passed
// to every stage; there is no ambient global state.
type Config struct {
	// Image is the target image reference written into the manifest.
	Image string
	// Manifest is the compose file path, relative to RepoDir.
	Manifest string
	// Placeholder is the sentinel image reference to replace.
	Placeholder string
	// RepoDir is the git working tree and compose project directory.
	RepoDir string

	// Git settings for the commit-push stage.
	GitName       string
	GitEmail      string
	Remote        string
	Branch        string
	CommitMessage string

	// Container and port for post-deploy verification.
	Container string
	Port      int

	// DeployEnv is handed to the compose process on up.
	DeployEnv map[string]string
}

// =============================================================================
// Pipeline
// =============================================================================

// Pipeline wires the stages to their collaborators.
type Pipeline struct {
	cfg      Config
	git      GitClient
	compose  ComposeClient
	verifier ContainerVerifier // optional
	poller   HealthPoller
	journal  store.Store // optional
	logger   *slog.Logger

	// changed carries the manifest-update outcome into commit-push.
	changed bool
	// healthAttempts carries the poll count into the journal record.
	healthAttempts int
}

// New creates a pipeline. verifier and journal may be nil.
func New(cfg Config, git GitClient, compose ComposeClient, verifier ContainerVerifier, poller HealthPoller, journal store.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:      cfg,
		git:      git,
		compose:  compose,
		verifier: verifier,
		poller:   poller,
		journal:  journal,
		logger:   logger.With("component", "pipeline"),
	}
}

// Run executes the stages in order. The first failure halts everything
// after it and is returned wrapped in a *pipeline.StageError carrying
// the stage's failure sentinel. Journal writes are best-effort and never
// change the outcome.
func (p *Pipeline) Run(ctx context.Context) error {
	run := &pipeline.Run{
		ID:        uuid.NewString(),
		Image:     p.cfg.Image,
		Status:    pipeline.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	p.record(ctx, func(c context.Context) error { return p.journal.CreateRun(c, run) })

	stages := []struct {
		name pipeline.Stage
		fn   func(context.Context) error
	}{
		{pipeline.StageManifestUpdate, p.updateManifest},
		{pipeline.StageCommitPush, p.commitPush},
		{pipeline.StageDeploy, p.deploy},
		{pipeline.StageHealthCheck, p.healthCheck},
	}

	var failure error
	for _, stage := range stages {
		p.logger.Info("stage starting", "stage", stage.name)
		if err := stage.fn(ctx); err != nil {
			failure = wrapStageError(stage.name, err)
			p.logger.Error("stage failed", "stage", stage.name, "error", err)
			break
		}
		p.logger.Info("stage complete", "stage", stage.name)
	}

	run.HealthAttempts = p.healthAttempts
	if failure != nil {
		var stageErr *pipeline.StageError
		run.Status = pipeline.RunStatusFailed
		if errors.As(failure, &stageErr) {
			run.FailedStage = string(stageErr.Stage)
		}
		run.Message = failure.Error()
	} else {
		run.Status = pipeline.RunStatusSucceeded
		p.logger.Info("pipeline succeeded", "image", p.cfg.Image, "health_attempts", p.healthAttempts)
	}
	p.record(ctx, func(c context.Context) error { return p.journal.FinishRun(c, run) })

	return failure
}

// record runs a journal write if a journal is configured, logging but
// swallowing failures.
func (p *Pipeline) record(ctx context.Context, write func(context.Context) error) {
	if p.journal == nil {
		return
	}
	// Journal writes should survive pipeline cancellation.
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := write(jctx); err != nil {
		p.logger.Warn("journal write failed", "error", err)
	}
}

// wrapStageError attaches the stage and its classification sentinel.
// Cancellation is kept distinct from stage failure.
func wrapStageError(stage pipeline.Stage, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return pipeline.NewStageError(stage, err.Error(), pipeline.ErrCancelled)
	}
	return pipeline.NewStageError(stage, err.Error(), pipeline.Sentinel(stage))
}

// =============================================================================
// Stages
// =============================================================================

// updateManifest rewrites the placeholder image reference in the
// manifest. An absent placeholder is a clean no-op; the commit-push
// stage will then skip on the empty change-set.
func (p *Pipeline) updateManifest(ctx context.Context) error {
	path := p.manifestPath()

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	out, changed, err := manifest.Substitute(string(raw), p.cfg.Placeholder, p.cfg.Image)
	if err != nil {
		return err
	}
	p.changed = changed

	if !changed {
		p.logger.Info("manifest already current", "manifest", p.cfg.Manifest)
		return nil
	}

	if err := manifest.Validate(out, p.cfg.Image); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat manifest: %w", err)
	}
	if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	p.logger.Info("manifest updated", "manifest", p.cfg.Manifest, "image", p.cfg.Image)
	return nil
}

// commitPush commits and pushes the manifest change, skipping cleanly
// when the change-set is empty.
func (p *Pipeline) commitPush(ctx context.Context) error {
	if err := p.git.ConfigureIdentity(ctx, p.cfg.GitName, p.cfg.GitEmail); err != nil {
		return err
	}
	if err := p.git.Stage(ctx, p.cfg.Manifest); err != nil {
		return err
	}

	dirty, err := p.git.HasChanges(ctx)
	if err != nil {
		return err
	}
	if !pipeline.ShouldCommit(dirty) {
		p.logger.Info("no manifest changes, skipping commit and push")
		return nil
	}

	// Plain substitution: the template may legitimately contain other
	// percent signs, so no printf-style expansion.
	message := strings.ReplaceAll(p.cfg.CommitMessage, "%s", p.cfg.Image)
	if err := p.git.Commit(ctx, message); err != nil {
		return err
	}
	return p.git.Push(ctx, p.cfg.Remote, p.cfg.Branch)
}

// deploy tears down the previous stack, pulls images, and brings the
// stack up. The down result is ignorable: on a fresh host there is
// nothing to remove, and the failed-run case is cleaned up by the next
// run's down.
func (p *Pipeline) deploy(ctx context.Context) error {
	if err := p.compose.Down(ctx, true); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		p.logger.Warn("compose down failed, continuing", "error", err)
	}
	if err := p.compose.Pull(ctx); err != nil {
		return err
	}
	if err := p.compose.Up(ctx, true, p.cfg.DeployEnv); err != nil {
		return err
	}

	if p.verifier != nil && p.cfg.Container != "" {
		if err := p.verifier.VerifyContainer(ctx, p.cfg.Container, p.cfg.Port); err != nil {
			return err
		}
	}
	return nil
}

// healthCheck polls the endpoint until 2xx or exhaustion.
func (p *Pipeline) healthCheck(ctx context.Context) error {
	report, err := p.poller.Poll(ctx)
	p.healthAttempts = report.Probes
	return err
}

// manifestPath returns the manifest location on disk.
func (p *Pipeline) manifestPath() string {
	if p.cfg.RepoDir == "" {
		return p.cfg.Manifest
	}
	return filepath.Join(p.cfg.RepoDir, p.cfg.Manifest)
}
