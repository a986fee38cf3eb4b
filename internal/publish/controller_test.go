package publish

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ohmree/bindsync/config"
	"github.com/ohmree/bindsync/errors"
	"github.com/ohmree/bindsync/internal/generate"
)

// fakeRemote is an in-memory versioned store: an append-only commit history
// of path->content snapshots guarded by a mutex, with a CAS push.
type fakeRemote struct {
	mu      sync.Mutex
	history []fakeCommit

	// beforePush runs under the lock just before the CAS check, letting
	// tests inject a sibling commit between fetch and push.
	beforePush func(r *fakeRemote)
}

type fakeCommit struct {
	id    CommitID
	files map[string][]byte
}

func newFakeRemote(seed map[string][]byte) *fakeRemote {
	files := map[string][]byte{}
	for path, content := range seed {
		files[path] = content
	}
	return &fakeRemote{history: []fakeCommit{{id: "c0", files: files}}}
}

func (r *fakeRemote) tipLocked() fakeCommit {
	return r.history[len(r.history)-1]
}

func (r *fakeRemote) Fetch(ctx context.Context) (CommitID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tipLocked().id, nil
}

func (r *fakeRemote) Artifact(ctx context.Context, tip CommitID, path string) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, commit := range r.history {
		if commit.id == tip {
			content, ok := commit.files[path]
			return content, ok, nil
		}
	}
	return nil, false, errors.Newf("unknown commit %s", tip)
}

func (r *fakeRemote) Push(ctx context.Context, base CommitID, change Change) (CommitID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.beforePush != nil {
		hook := r.beforePush
		r.beforePush = nil
		hook(r)
	}

	if r.tipLocked().id != base {
		return "", ErrTipMoved
	}

	r.appendLocked(change)
	return r.tipLocked().id, nil
}

// appendLocked lands a change on the current tip without a CAS check.
func (r *fakeRemote) appendLocked(change Change) {
	files := map[string][]byte{}
	for path, content := range r.tipLocked().files {
		files[path] = content
	}
	files[change.Path] = change.Content
	r.history = append(r.history, fakeCommit{
		id:    CommitID(fmt.Sprintf("c%d", len(r.history))),
		files: files,
	})
}

func (r *fakeRemote) commitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history) - 1 // seed commit excluded
}

func (r *fakeRemote) fileAtTip(path string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	content, ok := r.tipLocked().files[path]
	return content, ok
}

func newController(remote Remote, budget int) *Controller {
	return NewController(config.PublishConfig{RetryBudget: budget}, remote, zap.NewNop().Sugar())
}

func linuxArtifact(content string) *generate.Artifact {
	return &generate.Artifact{Platform: "linux", Revision: "4a5b6c7d8e9f0a1b", Bytes: []byte(content)}
}

const linuxPath = "bindings/linux/miniaudio.go"
const windowsPath = "bindings/windows/miniaudio.go"

func TestPublishNoOpWhenUnchanged(t *testing.T) {
	// Scenario: revision unchanged, current artifact identical to candidate
	remote := newFakeRemote(map[string][]byte{linuxPath: []byte("X")})
	ctrl := newController(remote, 5)

	result, err := ctrl.Publish(context.Background(), linuxArtifact("X"), linuxPath)
	require.NoError(t, err)

	assert.Equal(t, StageDone, result.Stage)
	assert.True(t, result.NoOp)
	assert.Equal(t, 0, remote.commitCount(), "no-op must not create a commit")
}

func TestPublishCreatesExactlyOneCommit(t *testing.T) {
	// Scenario: generator output Y differs from published X
	remote := newFakeRemote(map[string][]byte{
		linuxPath:   []byte("X"),
		windowsPath: []byte("W"),
	})
	ctrl := newController(remote, 5)

	result, err := ctrl.Publish(context.Background(), linuxArtifact("Y"), linuxPath)
	require.NoError(t, err)

	assert.Equal(t, StageDone, result.Stage)
	assert.False(t, result.NoOp)
	assert.Equal(t, 1, remote.commitCount())

	content, ok := remote.fileAtTip(linuxPath)
	require.True(t, ok)
	assert.Equal(t, []byte("Y"), content)

	// Disjointness: windows' artifact path is untouched
	windows, ok := remote.fileAtTip(windowsPath)
	require.True(t, ok)
	assert.Equal(t, []byte("W"), windows)
}

func TestPublishIdempotence(t *testing.T) {
	// Running the controller twice with no source change yields one commit total
	remote := newFakeRemote(map[string][]byte{linuxPath: []byte("X")})
	ctrl := newController(remote, 5)

	first, err := ctrl.Publish(context.Background(), linuxArtifact("Y"), linuxPath)
	require.NoError(t, err)
	assert.False(t, first.NoOp)

	second, err := ctrl.Publish(context.Background(), linuxArtifact("Y"), linuxPath)
	require.NoError(t, err)
	assert.True(t, second.NoOp)

	assert.Equal(t, 1, remote.commitCount())
}

func TestPublishRetriesAfterTipMove(t *testing.T) {
	// A sibling session lands a commit on a disjoint path between our fetch
	// and push. The first push is rejected; the retry succeeds and the
	// sibling's commit survives.
	remote := newFakeRemote(map[string][]byte{
		linuxPath:   []byte("X"),
		windowsPath: []byte("W"),
	})
	remote.beforePush = func(r *fakeRemote) {
		r.appendLocked(Change{Path: windowsPath, Content: []byte("W2"), Message: "bindings(windows)"})
	}

	ctrl := newController(remote, 5)

	result, err := ctrl.Publish(context.Background(), linuxArtifact("Y"), linuxPath)
	require.NoError(t, err)

	assert.Equal(t, StageDone, result.Stage)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 2, remote.commitCount(), "sibling commit plus ours")

	windows, _ := remote.fileAtTip(windowsPath)
	assert.Equal(t, []byte("W2"), windows, "retry must not discard the sibling's publish")
	linux, _ := remote.fileAtTip(linuxPath)
	assert.Equal(t, []byte("Y"), linux)
}

func TestPublishBudgetExhaustedIsIntegrationConflict(t *testing.T) {
	remote := newFakeRemote(map[string][]byte{linuxPath: []byte("X")})

	// The tip moves before every push attempt
	var rearm func(r *fakeRemote)
	rearm = func(r *fakeRemote) {
		r.appendLocked(Change{Path: windowsPath, Content: []byte(fmt.Sprintf("W%d", len(r.history)))})
		r.beforePush = rearm
	}
	remote.beforePush = rearm

	ctrl := newController(remote, 3)

	result, err := ctrl.Publish(context.Background(), linuxArtifact("Y"), linuxPath)
	require.Error(t, err)

	assert.Equal(t, StageFailed, result.Stage)
	assert.Equal(t, 3, result.Attempts)
	assert.True(t, errors.IsIntegrationConflictError(err))

	_, published := remote.fileAtTip(linuxPath)
	require.True(t, published)
	content, _ := remote.fileAtTip(linuxPath)
	assert.Equal(t, []byte("X"), content, "nothing must land when the budget runs out")
}

func TestPublishContentConflictIsHardError(t *testing.T) {
	// Something rewrote OUR artifact path behind our back. This breaks the
	// disjointness invariant and must fail loudly, not be auto-resolved.
	remote := newFakeRemote(map[string][]byte{linuxPath: []byte("X")})
	remote.beforePush = func(r *fakeRemote) {
		r.appendLocked(Change{Path: linuxPath, Content: []byte("Z"), Message: "rogue edit"})
	}

	ctrl := newController(remote, 5)

	result, err := ctrl.Publish(context.Background(), linuxArtifact("Y"), linuxPath)
	require.Error(t, err)

	assert.Equal(t, StageFailed, result.Stage)
	assert.True(t, errors.IsContentConflictError(err))
}

func TestPublishRaceLandingIdenticalContentIsNoOp(t *testing.T) {
	// A concurrent run of the same pipeline already published exactly our
	// candidate. The retry detects it and terminates as a no-op.
	remote := newFakeRemote(map[string][]byte{linuxPath: []byte("X")})
	remote.beforePush = func(r *fakeRemote) {
		r.appendLocked(Change{Path: linuxPath, Content: []byte("Y"), Message: "bindings(linux)"})
	}

	ctrl := newController(remote, 5)

	result, err := ctrl.Publish(context.Background(), linuxArtifact("Y"), linuxPath)
	require.NoError(t, err)

	assert.Equal(t, StageDone, result.Stage)
	assert.True(t, result.NoOp)
	assert.Equal(t, 1, remote.commitCount())
}

func TestPublishConcurrentPlatformsBothLand(t *testing.T) {
	// Scenario: linux and windows publish changed artifacts concurrently.
	// Both commits land (order unspecified), each touching only its own
	// path, with zero content conflicts.
	remote := newFakeRemote(map[string][]byte{
		linuxPath:   []byte("X"),
		windowsPath: []byte("W"),
	})

	linuxCtrl := newController(remote, 10)
	windowsCtrl := newController(remote, 10)

	windowsArtifact := &generate.Artifact{Platform: "windows", Revision: "4a5b6c7d8e9f0a1b", Bytes: []byte("W2")}

	var wg sync.WaitGroup
	var linuxResult, windowsResult *Result
	var linuxErr, windowsErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		linuxResult, linuxErr = linuxCtrl.Publish(context.Background(), linuxArtifact("Y"), linuxPath)
	}()
	go func() {
		defer wg.Done()
		windowsResult, windowsErr = windowsCtrl.Publish(context.Background(), windowsArtifact, windowsPath)
	}()
	wg.Wait()

	require.NoError(t, linuxErr)
	require.NoError(t, windowsErr)
	assert.Equal(t, StageDone, linuxResult.Stage)
	assert.Equal(t, StageDone, windowsResult.Stage)
	assert.Equal(t, 2, remote.commitCount())

	linux, _ := remote.fileAtTip(linuxPath)
	windows, _ := remote.fileAtTip(windowsPath)
	assert.True(t, bytes.Equal(linux, []byte("Y")))
	assert.True(t, bytes.Equal(windows, []byte("W2")))
}

func TestStageTerminal(t *testing.T) {
	assert.True(t, StageDone.Terminal())
	assert.True(t, StageFailed.Terminal())
	assert.False(t, StageDiffing.Terminal())
	assert.False(t, StageRetrying.Terminal())
}
