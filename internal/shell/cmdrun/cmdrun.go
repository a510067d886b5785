// Package cmdrun runs external command-line tools for the shell. The
// pipeline treats git and the compose tool as opaque executables; this
// package is the single place that actually spawns them, behind a Runner
// interface so the callers can be tested with a fake.
package cmdrun

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
)

// =============================================================================
// Runner Interface
// =============================================================================

// Runner executes one external command to completion.
type Runner interface {
	// Run executes name with args in dir (empty dir means the process
	// working directory), with extraEnv appended to the inherited
	// environment. It returns captured stdout and stderr; a non-zero
	// exit or a spawn failure is reported through err, with stderr
	// still populated for diagnostics.
	Run(ctx context.Context, dir string, extraEnv []string, name string, args ...string) (stdout, stderr string, err error)
}

// =============================================================================
// Exec Implementation
// =============================================================================

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewExecRunner creates a new ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, dir string, extraEnv []string, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	return strings.TrimRight(outBuf.String(), "\n"), strings.TrimRight(errBuf.String(), "\n"), err
}
