package ledger

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohmree/bindsync/internal/pipeline"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "ledger.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleResults(runID string) []*pipeline.Result {
	return []*pipeline.Result{
		{
			RunID:     runID,
			Platform:  "linux",
			Revision:  "4a5b6c7d",
			Stage:     pipeline.StageDone,
			Published: true,
			CommitID:  "c0ffee01",
			Duration:  1200 * time.Millisecond,
		},
		{
			RunID:    runID,
			Platform: "darwin",
			Revision: "4a5b6c7d",
			Stage:    pipeline.StageDone,
			NoOp:     true,
			Duration: 300 * time.Millisecond,
		},
		{
			RunID:    runID,
			Platform: "windows",
			Revision: "4a5b6c7d",
			Stage:    pipeline.StageVerifying,
			Err:      assert.AnError,
			Error:    assert.AnError.Error(),
			Kind:     "verification",
			Duration: 2500 * time.Millisecond,
		},
	}
}

func TestRecordRunAndHistory(t *testing.T) {
	store := setupTestStore(t)

	started := time.Now().Add(-time.Minute)
	require.NoError(t, store.RecordRun("4a5b6c7d", started, sampleResults("run-1")))

	history, err := store.History(10)
	require.NoError(t, err)
	require.Len(t, history, 1)

	run := history[0]
	assert.Equal(t, "run-1", run.RunID)
	assert.Equal(t, "4a5b6c7d", run.Revision)
	assert.Equal(t, 1, run.Published)
	assert.Equal(t, 1, run.NoOps)
	assert.Equal(t, 1, run.Failed)
}

func TestHistoryNewestFirst(t *testing.T) {
	store := setupTestStore(t)

	base := time.Now().Add(-time.Hour)
	require.NoError(t, store.RecordRun("aaaa1111", base, sampleResults("run-old")))
	require.NoError(t, store.RecordRun("bbbb2222", base.Add(30*time.Minute), sampleResults("run-new")))

	history, err := store.History(10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "run-new", history[0].RunID)
	assert.Equal(t, "run-old", history[1].RunID)

	limited, err := store.History(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "run-new", limited[0].RunID)
}

func TestSessionsForRun(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.RecordRun("4a5b6c7d", time.Now(), sampleResults("run-1")))

	sessions, err := store.SessionsForRun("run-1")
	require.NoError(t, err)
	require.Len(t, sessions, 3)

	byPlatform := map[string]SessionRecord{}
	for _, s := range sessions {
		byPlatform[s.Platform] = s
	}

	linux := byPlatform["linux"]
	assert.True(t, linux.Published)
	assert.Equal(t, "c0ffee01", linux.CommitID)
	assert.Equal(t, int64(1200), linux.DurationMS)

	darwin := byPlatform["darwin"]
	assert.True(t, darwin.NoOp)
	assert.False(t, darwin.Published)

	windows := byPlatform["windows"]
	assert.Equal(t, "verification", windows.ErrorKind)
	assert.Equal(t, pipeline.StageVerifying, windows.Stage)
	assert.NotEmpty(t, windows.Error)
}

func TestLastPublished(t *testing.T) {
	store := setupTestStore(t)

	// No publishes yet
	rec, err := store.LastPublished("linux")
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, store.RecordRun("4a5b6c7d", time.Now(), sampleResults("run-1")))

	rec, err = store.LastPublished("linux")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "c0ffee01", rec.CommitID)
	assert.Equal(t, "4a5b6c7d", rec.Revision)

	// Failed platform never published
	rec, err = store.LastPublished("windows")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRecordRunEmptyResultsIsNoOp(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.RecordRun("4a5b6c7d", time.Now(), nil))

	history, err := store.History(10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRecordRunRollsBackOnSessionFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO runs").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectPrepare("INSERT INTO sessions").
		ExpectExec().
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	store := NewStore(db, nil)
	err = store.RecordRun("4a5b6c7d", time.Now(), sampleResults("run-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record session")

	assert.NoError(t, mock.ExpectationsWereMet())
}
