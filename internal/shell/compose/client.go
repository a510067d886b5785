// Package compose drives the docker compose command-line tool for the
// deploy stage. The compose tool is an opaque collaborator: the pipeline
// only invokes down, pull, and up, and consumes exit codes.
package compose

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// Runner is the subset of cmdrun.Runner this package needs.
type Runner interface {
	Run(ctx context.Context, dir string, extraEnv []string, name string, args ...string) (stdout, stderr string, err error)
}

// =============================================================================
// Client
// =============================================================================

// Client runs docker compose against a single compose file.
type Client struct {
	run        Runner
	projectDir string
	file       string
	logger     *slog.Logger
}

// NewClient creates a compose client for the given project directory and
// compose file.
func NewClient(run Runner, projectDir, file string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		run:        run,
		projectDir: projectDir,
		file:       file,
		logger:     logger.With("component", "compose"),
	}
}

// Down stops and removes the running stack. Callers may ignore the error:
// on a fresh host there is nothing to tear down and the next run's down
// is the cleanup for whatever this run leaves behind.
func (c *Client) Down(ctx context.Context, removeOrphans bool) error {
	args := []string{"compose", "-f", c.file, "down"}
	if removeOrphans {
		args = append(args, "--remove-orphans")
	}
	if _, stderr, err := c.run.Run(ctx, c.projectDir, nil, "docker", args...); err != nil {
		return NewComposeError("down", stderr, ErrCommandFailed)
	}
	return nil
}

// Pull fetches the images referenced by the compose file.
func (c *Client) Pull(ctx context.Context) error {
	if _, stderr, err := c.run.Run(ctx, c.projectDir, nil, "docker", "compose", "-f", c.file, "pull"); err != nil {
		return NewComposeError("pull", stderr, ErrCommandFailed)
	}
	c.logger.Info("pulled images", "file", c.file)
	return nil
}

// Up starts the stack. The env map is handed to the compose process
// environment for interpolation in the compose file.
func (c *Client) Up(ctx context.Context, detached bool, env map[string]string) error {
	args := []string{"compose", "-f", c.file, "up"}
	if detached {
		args = append(args, "-d")
	}
	if _, stderr, err := c.run.Run(ctx, c.projectDir, flatten(env), "docker", args...); err != nil {
		return NewComposeError("up", stderr, ErrCommandFailed)
	}
	c.logger.Info("stack up", "file", c.file, "detached", detached)
	return nil
}

// flatten converts an env map to KEY=VALUE form, sorted for stable
// command construction.
func flatten(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(out)
	return out
}
