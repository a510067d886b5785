package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corehealth "github.com/shipward/shipward/internal/core/health"
	"github.com/shipward/shipward/internal/core/pipeline"
	"github.com/shipward/shipward/internal/shell/health"
)

const testManifest = `services:
  app:
    image: __IMAGE__
    ports:
      - "5000:5000"
`

// =============================================================================
// Fakes
// =============================================================================

type fakeGit struct {
	ops     []string
	dirty   bool
	failOp  string
	commits []string
	pushes  []string
}

func (f *fakeGit) ConfigureIdentity(ctx context.Context, name, email string) error {
	return f.op("config")
}

func (f *fakeGit) Stage(ctx context.Context, file string) error {
	return f.op("stage")
}

func (f *fakeGit) HasChanges(ctx context.Context) (bool, error) {
	if err := f.op("diff"); err != nil {
		return false, err
	}
	return f.dirty, nil
}

func (f *fakeGit) Commit(ctx context.Context, message string) error {
	f.commits = append(f.commits, message)
	return f.op("commit")
}

func (f *fakeGit) Push(ctx context.Context, remote, ref string) error {
	f.pushes = append(f.pushes, remote+" "+ref)
	return f.op("push")
}

func (f *fakeGit) op(name string) error {
	f.ops = append(f.ops, name)
	if name == f.failOp {
		return errors.New(name + " blew up")
	}
	return nil
}

type fakeCompose struct {
	ops    []string
	failOp string
	env    map[string]string
}

func (f *fakeCompose) Down(ctx context.Context, removeOrphans bool) error {
	return f.op("down")
}

func (f *fakeCompose) Pull(ctx context.Context) error {
	return f.op("pull")
}

func (f *fakeCompose) Up(ctx context.Context, detached bool, env map[string]string) error {
	f.env = env
	return f.op("up")
}

func (f *fakeCompose) op(name string) error {
	f.ops = append(f.ops, name)
	if name == f.failOp {
		return errors.New(name + " blew up")
	}
	return nil
}

type fakeVerifier struct {
	called bool
	err    error
}

func (f *fakeVerifier) VerifyContainer(ctx context.Context, name string, port int) error {
	f.called = true
	return f.err
}

type fakePoller struct {
	report health.Report
	err    error
	called bool
}

func (f *fakePoller) Poll(ctx context.Context) (health.Report, error) {
	f.called = true
	return f.report, f.err
}

type fakeJournal struct {
	created  []*pipeline.Run
	finished []*pipeline.Run
	err      error
}

func (f *fakeJournal) CreateRun(ctx context.Context, run *pipeline.Run) error {
	f.created = append(f.created, run)
	return f.err
}

func (f *fakeJournal) FinishRun(ctx context.Context, run *pipeline.Run) error {
	f.finished = append(f.finished, run)
	return f.err
}

func (f *fakeJournal) GetRun(ctx context.Context, id string) (*pipeline.Run, error) {
	return nil, nil
}

func (f *fakeJournal) ListRuns(ctx context.Context, limit int) ([]pipeline.Run, error) {
	return nil, nil
}

func (f *fakeJournal) Close() error { return nil }

// =============================================================================
// Harness
// =============================================================================

type harness struct {
	pipe    *Pipeline
	git     *fakeGit
	compose *fakeCompose
	verify  *fakeVerifier
	poller  *fakePoller
	journal *fakeJournal
	path    string
}

func newHarness(t *testing.T, content string) *harness {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "docker-compose.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	h := &harness{
		git:     &fakeGit{dirty: true},
		compose: &fakeCompose{},
		verify:  &fakeVerifier{},
		poller: &fakePoller{report: health.Report{
			Healthy: true,
			Probes:  1,
			Attempts: []corehealth.Attempt{
				{Seq: 1, Healthy: true, StatusCode: 200},
			},
		}},
		journal: &fakeJournal{},
		path:    path,
	}

	h.pipe = New(Config{
		Image:         "registry.example.com/app:v42",
		Manifest:      "docker-compose.yml",
		Placeholder:   "__IMAGE__",
		RepoDir:       dir,
		GitName:       "ci-bot",
		GitEmail:      "ci@example.com",
		Remote:        "https://token@git.example.com/org/repo.git",
		Branch:        "main",
		CommitMessage: "deploy: update image to %s",
		Container:     "app",
		Port:          5000,
		DeployEnv:     map[string]string{"PORT": "5000"},
	}, h.git, h.compose, h.verify, h.poller, h.journal, nil)

	return h
}

// =============================================================================
// Happy Path
// =============================================================================

func TestRun_AllStagesSucceed(t *testing.T) {
	h := newHarness(t, testManifest)

	err := h.pipe.Run(context.Background())
	require.NoError(t, err)

	// Manifest rewritten in place.
	raw, err := os.ReadFile(h.path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "image: registry.example.com/app:v42")
	assert.NotContains(t, string(raw), "__IMAGE__")

	// Git saw the full sequence with a formatted commit message.
	assert.Equal(t, []string{"config", "stage", "diff", "commit", "push"}, h.git.ops)
	require.Len(t, h.git.commits, 1)
	assert.Equal(t, "deploy: update image to registry.example.com/app:v42", h.git.commits[0])
	assert.Equal(t, []string{"https://token@git.example.com/org/repo.git main"}, h.git.pushes)

	// Compose ran down, pull, up with the deploy env.
	assert.Equal(t, []string{"down", "pull", "up"}, h.compose.ops)
	assert.Equal(t, map[string]string{"PORT": "5000"}, h.compose.env)

	assert.True(t, h.verify.called)
	assert.True(t, h.poller.called)

	// Journal saw start and a succeeded finish.
	require.Len(t, h.journal.created, 1)
	require.Len(t, h.journal.finished, 1)
	assert.Equal(t, pipeline.RunStatusSucceeded, h.journal.finished[0].Status)
	assert.Equal(t, 1, h.journal.finished[0].HealthAttempts)
}

func TestRun_CommitMessageKeepsLiteralPercents(t *testing.T) {
	h := newHarness(t, testManifest)
	h.pipe.cfg.CommitMessage = "deploy %s at 100% rollout [skip ci] %d"

	err := h.pipe.Run(context.Background())
	require.NoError(t, err)

	// Only the %s placeholder expands; other percent signs pass through
	// verbatim instead of turning into printf noise.
	require.Len(t, h.git.commits, 1)
	assert.Equal(t,
		"deploy registry.example.com/app:v42 at 100% rollout [skip ci] %d",
		h.git.commits[0],
	)
}

func TestRun_PlaceholderAbsentSkipsCommitPush(t *testing.T) {
	current := `services:
  app:
    image: registry.example.com/app:v42
`
	h := newHarness(t, current)
	h.git.dirty = false

	err := h.pipe.Run(context.Background())
	require.NoError(t, err)

	// Substitution was a no-op, the change-set is empty, so no commit
	// and no push - but identity, staging, and the staged-set check still ran.
	assert.Equal(t, []string{"config", "stage", "diff"}, h.git.ops)
	assert.Empty(t, h.git.commits)
	assert.Empty(t, h.git.pushes)

	// Deployment continues regardless.
	assert.Equal(t, []string{"down", "pull", "up"}, h.compose.ops)
}

// =============================================================================
// Short-Circuiting
// =============================================================================

func TestRun_ManifestFailureHaltsEverything(t *testing.T) {
	h := newHarness(t, "   ")

	err := h.pipe.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrManifestUpdateFailed)
	assert.Empty(t, h.git.ops)
	assert.Empty(t, h.compose.ops)
	assert.False(t, h.poller.called)

	var stageErr *pipeline.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, pipeline.StageManifestUpdate, stageErr.Stage)

	require.Len(t, h.journal.finished, 1)
	assert.Equal(t, pipeline.RunStatusFailed, h.journal.finished[0].Status)
	assert.Equal(t, string(pipeline.StageManifestUpdate), h.journal.finished[0].FailedStage)
}

func TestRun_PushFailureHaltsDeploy(t *testing.T) {
	h := newHarness(t, testManifest)
	h.git.failOp = "push"

	err := h.pipe.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrVersionControlFailed)
	assert.Empty(t, h.compose.ops)
	assert.False(t, h.poller.called)
}

func TestRun_PullFailureHaltsHealthCheck(t *testing.T) {
	h := newHarness(t, testManifest)
	h.compose.failOp = "pull"

	err := h.pipe.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrDeploymentFailed)
	assert.Equal(t, []string{"down", "pull"}, h.compose.ops)
	assert.False(t, h.poller.called)
}

func TestRun_DownFailureIsIgnored(t *testing.T) {
	h := newHarness(t, testManifest)
	h.compose.failOp = "down"

	err := h.pipe.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"down", "pull", "up"}, h.compose.ops)
}

func TestRun_VerifyFailureIsDeploymentFailure(t *testing.T) {
	h := newHarness(t, testManifest)
	h.verify.err = errors.New("container app is not running")

	err := h.pipe.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrDeploymentFailed)
	assert.False(t, h.poller.called)
}

func TestRun_HealthExhaustionFailsPipeline(t *testing.T) {
	h := newHarness(t, testManifest)
	h.poller.report = health.Report{Probes: 15}
	h.poller.err = &health.ExhaustedError{Attempts: 15}

	err := h.pipe.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrHealthCheckExhausted)

	var stageErr *pipeline.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, pipeline.StageHealthCheck, stageErr.Stage)
	assert.Contains(t, stageErr.Message, "15 attempts")

	require.Len(t, h.journal.finished, 1)
	assert.Equal(t, 15, h.journal.finished[0].HealthAttempts)
}

// =============================================================================
// Cancellation and Journal
// =============================================================================

func TestRun_CancellationIsNotAStageFailure(t *testing.T) {
	h := newHarness(t, testManifest)
	h.poller.err = context.Canceled

	err := h.pipe.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrCancelled)
	assert.False(t, errors.Is(err, pipeline.ErrHealthCheckExhausted))
}

func TestRun_JournalFailureDoesNotFailPipeline(t *testing.T) {
	h := newHarness(t, testManifest)
	h.journal.err = errors.New("database is locked")

	err := h.pipe.Run(context.Background())

	require.NoError(t, err)
}

func TestRun_NilJournalAndVerifier(t *testing.T) {
	h := newHarness(t, testManifest)
	h.pipe = New(h.pipe.cfg, h.git, h.compose, nil, h.poller, nil, nil)

	err := h.pipe.Run(context.Background())

	require.NoError(t, err)
	assert.False(t, h.verify.called)
}
