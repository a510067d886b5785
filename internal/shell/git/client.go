// Package git drives the git command-line client for the commit-push
// stage. It shells out rather than reimplementing any git plumbing; the
// pipeline only needs identity setup, staging, a "staged changes?"
// predicate, commit, and push.
package git

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/shipward/shipward/internal/shell/cmdrun"
)

// =============================================================================
// Client
// =============================================================================

// Client runs git commands in a single working tree.
type Client struct {
	run    cmdrun.Runner
	dir    string
	logger *slog.Logger
}

// NewClient creates a git client rooted at dir.
func NewClient(run cmdrun.Runner, dir string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		run:    run,
		dir:    dir,
		logger: logger.With("component", "git"),
	}
}

// ConfigureIdentity sets the committer identity for this working tree.
func (c *Client) ConfigureIdentity(ctx context.Context, name, email string) error {
	if _, stderr, err := c.run.Run(ctx, c.dir, nil, "git", "config", "user.name", name); err != nil {
		return NewGitError("config", stderr, ErrCommandFailed)
	}
	if _, stderr, err := c.run.Run(ctx, c.dir, nil, "git", "config", "user.email", email); err != nil {
		return NewGitError("config", stderr, ErrCommandFailed)
	}
	return nil
}

// Stage adds a file to the index.
func (c *Client) Stage(ctx context.Context, file string) error {
	if _, stderr, err := c.run.Run(ctx, c.dir, nil, "git", "add", file); err != nil {
		return NewGitError("stage", stderr, ErrCommandFailed)
	}
	return nil
}

// HasChanges reports whether the index holds any staged changes. The
// predicate reads only the staged set: untracked workspace artifacts
// (build logs, fetched assets) must not push an otherwise no-op run
// into a doomed commit. A manifest that already carried the target
// image stages nothing, and the commit-push stage is skipped on the
// strength of this predicate.
func (c *Client) HasChanges(ctx context.Context) (bool, error) {
	stdout, stderr, err := c.run.Run(ctx, c.dir, nil, "git", "diff", "--cached", "--name-only")
	if err != nil {
		return false, NewGitError("diff", stderr, ErrCommandFailed)
	}
	return strings.TrimSpace(stdout) != "", nil
}

// Commit records the staged changes with the given message.
func (c *Client) Commit(ctx context.Context, message string) error {
	if _, stderr, err := c.run.Run(ctx, c.dir, nil, "git", "commit", "-m", message); err != nil {
		return NewGitError("commit", Redact(stderr), ErrCommandFailed)
	}
	c.logger.Info("committed manifest change", "message", message)
	return nil
}

// Push pushes ref to remote. The remote URL may embed credentials; they
// never reach logs or error messages.
func (c *Client) Push(ctx context.Context, remote, ref string) error {
	if remote == "" {
		return NewGitError("push", "remote URL is empty", ErrNoRemote)
	}
	if _, stderr, err := c.run.Run(ctx, c.dir, nil, "git", "push", remote, ref); err != nil {
		return NewGitError("push", Redact(stderr), ErrCommandFailed)
	}
	c.logger.Info("pushed manifest change", "remote", Redact(remote), "ref", ref)
	return nil
}

// =============================================================================
// Credential Redaction
// =============================================================================

// Redact strips userinfo from any URL embedded in s, so credentialed
// remotes can appear in logs and error messages.
func Redact(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		if !strings.Contains(f, "://") || !strings.Contains(f, "@") {
			continue
		}
		u, err := url.Parse(f)
		if err != nil || u.User == nil {
			continue
		}
		u.User = url.User("***")
		fields[i] = u.String()
	}
	return strings.Join(fields, " ")
}
