// Package pipeline contains the pure stage model for the deployment
// pipeline. This is part of the Functional Core - no I/O happens here;
// the shell executes stages and reports their outcomes in these terms.
package pipeline

import (
	"errors"
	"time"
)

// =============================================================================
// Stages
// =============================================================================

// Stage identifies one step of the linear deployment pipeline.
type Stage string

const (
	StageManifestUpdate Stage = "manifest-update"
	StageCommitPush     Stage = "commit-push"
	StageDeploy         Stage = "deploy"
	StageHealthCheck    Stage = "health-check"
)

// Order returns the pipeline stages in execution order. The pipeline is
// strictly linear: the first failing stage halts everything after it.
func Order() []Stage {
	return []Stage{
		StageManifestUpdate,
		StageCommitPush,
		StageDeploy,
		StageHealthCheck,
	}
}

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess       = 0
	ExitConfigError   = 1
	ExitManifestError = 2
	ExitGitError      = 3
	ExitDeployError   = 4
	ExitHealthError   = 5
	ExitCancelled     = 6
)

// ExitCode maps a pipeline failure to the process exit code contract.
// A nil error maps to ExitSuccess.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	switch {
	case errors.Is(err, ErrManifestUpdateFailed):
		return ExitManifestError
	case errors.Is(err, ErrVersionControlFailed):
		return ExitGitError
	case errors.Is(err, ErrDeploymentFailed):
		return ExitDeployError
	case errors.Is(err, ErrHealthCheckExhausted):
		return ExitHealthError
	case errors.Is(err, ErrCancelled):
		return ExitCancelled
	}
	return ExitConfigError
}

// Sentinel returns the stage failure sentinel for a stage. The shell wraps
// whatever a stage's collaborator returned so callers can classify failures
// with errors.Is regardless of which tool produced them.
func Sentinel(stage Stage) error {
	switch stage {
	case StageManifestUpdate:
		return ErrManifestUpdateFailed
	case StageCommitPush:
		return ErrVersionControlFailed
	case StageDeploy:
		return ErrDeploymentFailed
	case StageHealthCheck:
		return ErrHealthCheckExhausted
	}
	return nil
}

// =============================================================================
// Commit Decision
// =============================================================================

// ShouldCommit decides whether the commit-push stage has anything to do.
// The substitution being a no-op is not enough on its own: the decision
// follows the version-control view of the staged change-set, so a manifest
// already carrying the target image skips the stage cleanly.
func ShouldCommit(dirty bool) bool {
	return dirty
}

// =============================================================================
// Run Journal Types
// =============================================================================

// RunStatus is the terminal status of a recorded pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded pipeline execution.
type Run struct {
	ID             string     `db:"id"`
	Image          string     `db:"image"`
	Status         RunStatus  `db:"status"`
	FailedStage    string     `db:"failed_stage"`
	HealthAttempts int        `db:"health_attempts"`
	Message        string     `db:"message"`
	StartedAt      time.Time  `db:"started_at"`
	FinishedAt     *time.Time `db:"finished_at"`
}
