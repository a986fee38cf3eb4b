package verify

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ohmree/bindsync/config"
	"github.com/ohmree/bindsync/errors"
	"github.com/ohmree/bindsync/internal/generate"
)

// recordingRunner remembers where it ran and what candidate content it saw
// at relPath inside the workdir.
type recordingRunner struct {
	relPath string
	fail    bool

	mu      sync.Mutex
	ran     bool
	seen    string
	content []byte
}

func (r *recordingRunner) Run(ctx context.Context, workdir string) error {
	r.mu.Lock()
	r.ran = true
	r.seen = workdir
	if r.relPath != "" {
		r.content, _ = os.ReadFile(filepath.Join(workdir, r.relPath))
	}
	r.mu.Unlock()
	if r.fail {
		return errors.New("2 tests failed")
	}
	return nil
}

func candidate() *generate.Artifact {
	return &generate.Artifact{
		Platform: "linux",
		Revision: "4a5b6c7d8e9f",
		Bytes:    []byte("package miniaudio\n"),
	}
}

const linuxRelPath = "bindings/linux/miniaudio.go"

func TestGatePasses(t *testing.T) {
	repo := t.TempDir()
	runner := &recordingRunner{relPath: linuxRelPath}
	gate := NewGate(config.VerifyConfig{Typecheck: false}, repo, runner, zap.NewNop().Sugar())

	err := gate.Verify(context.Background(), candidate(), linuxRelPath)
	require.NoError(t, err)
	assert.True(t, runner.ran)

	// The suite runs against a scratch copy holding the candidate, never
	// against the publish worktree itself
	assert.NotEqual(t, repo, runner.seen)
	assert.Equal(t, candidate().Bytes, runner.content)
}

func TestGateFailureIsVerificationError(t *testing.T) {
	repo := t.TempDir()
	runner := &recordingRunner{fail: true}
	gate := NewGate(config.VerifyConfig{Typecheck: false}, repo, runner, zap.NewNop().Sugar())

	err := gate.Verify(context.Background(), candidate(), linuxRelPath)
	require.Error(t, err)
	assert.True(t, errors.IsVerificationError(err))
}

func TestGateLeavesPublishedArtifactUntouched(t *testing.T) {
	repo := t.TempDir()
	artifactPath := filepath.Join(repo, "bindings", "linux", "miniaudio.go")
	require.NoError(t, os.MkdirAll(filepath.Dir(artifactPath), 0755))
	require.NoError(t, os.WriteFile(artifactPath, []byte("package miniaudio // published\n"), 0644))

	runner := &recordingRunner{relPath: linuxRelPath, fail: true}
	gate := NewGate(config.VerifyConfig{Typecheck: false}, repo, runner, zap.NewNop().Sugar())

	_ = gate.Verify(context.Background(), candidate(), linuxRelPath)

	// The worktree is never modified, pass or fail; only the scratch copy
	// carried the candidate
	content, err := os.ReadFile(artifactPath)
	require.NoError(t, err)
	assert.Equal(t, "package miniaudio // published\n", string(content))
	assert.Equal(t, candidate().Bytes, runner.content)
}

func TestGateCreatesNothingInWorktree(t *testing.T) {
	repo := t.TempDir()
	runner := &recordingRunner{}
	gate := NewGate(config.VerifyConfig{Typecheck: false}, repo, runner, zap.NewNop().Sugar())

	require.NoError(t, gate.Verify(context.Background(), candidate(), linuxRelPath))

	_, err := os.Stat(filepath.Join(repo, "bindings"))
	assert.True(t, os.IsNotExist(err))
}

func TestGateRemovesScratchCopy(t *testing.T) {
	repo := t.TempDir()
	runner := &recordingRunner{}
	gate := NewGate(config.VerifyConfig{Typecheck: false}, repo, runner, zap.NewNop().Sugar())

	require.NoError(t, gate.Verify(context.Background(), candidate(), linuxRelPath))

	require.NotEmpty(t, runner.seen)
	_, err := os.Stat(runner.seen)
	assert.True(t, os.IsNotExist(err))
}

func TestGateConcurrentSessionsAreIsolated(t *testing.T) {
	// Two sessions verifying against the same repo path at once: each
	// scratch copy holds only its own platform's candidate
	repo := t.TempDir()

	linuxRunner := &recordingRunner{relPath: linuxRelPath}
	windowsRunner := &recordingRunner{relPath: "bindings/windows/miniaudio.go"}

	linuxGate := NewGate(config.VerifyConfig{}, repo, linuxRunner, zap.NewNop().Sugar())
	windowsGate := NewGate(config.VerifyConfig{}, repo, windowsRunner, zap.NewNop().Sugar())

	linuxArtifact := candidate()
	windowsArtifact := &generate.Artifact{
		Platform: "windows",
		Revision: "4a5b6c7d8e9f",
		Bytes:    []byte("package miniaudio // windows\n"),
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = linuxGate.Verify(context.Background(), linuxArtifact, linuxRelPath)
	}()
	go func() {
		defer wg.Done()
		errs[1] = windowsGate.Verify(context.Background(), windowsArtifact, "bindings/windows/miniaudio.go")
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	assert.NotEqual(t, linuxRunner.seen, windowsRunner.seen)
	assert.Equal(t, linuxArtifact.Bytes, linuxRunner.content)
	assert.Equal(t, windowsArtifact.Bytes, windowsRunner.content)
}

func TestGateTypecheckRejectsBrokenCandidate(t *testing.T) {
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("no go toolchain available for packages.Load")
	}

	repo := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repo, "go.mod"), []byte("module testmod\n\ngo 1.24\n"), 0644))

	broken := &generate.Artifact{
		Platform: "linux",
		Revision: "4a5b6c7d8e9f",
		Bytes:    []byte("package miniaudio\n\nfunc Broken() int { return }\n"),
	}

	runner := &recordingRunner{}
	gate := NewGate(config.VerifyConfig{Typecheck: true}, repo, runner, zap.NewNop().Sugar())

	err := gate.Verify(context.Background(), broken, linuxRelPath)
	require.Error(t, err)
	assert.True(t, errors.IsVerificationError(err))
	assert.False(t, runner.ran, "typecheck failure must fail fast before the suite runs")
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test uses sh")
	}

	dir := t.TempDir()

	ok := NewExecRunner(config.VerifyConfig{Command: "true", TimeoutSeconds: 10}, zap.NewNop().Sugar())
	assert.NoError(t, ok.Run(context.Background(), dir))

	failing := NewExecRunner(config.VerifyConfig{Command: "false", TimeoutSeconds: 10}, zap.NewNop().Sugar())
	assert.Error(t, failing.Run(context.Background(), dir))
}
