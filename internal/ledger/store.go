// Package ledger persists run history so operators can audit which
// revisions were published for which platforms, and when.
package ledger

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ohmree/bindsync/errors"
	"github.com/ohmree/bindsync/internal/pipeline"
)

// Store records matrix runs and their per-platform sessions in SQLite.
type Store struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// RunRecord is one matrix run as persisted.
type RunRecord struct {
	RunID     string    `json:"run_id"`
	Revision  string    `json:"revision"`
	StartedAt time.Time `json:"started_at"`
	Published int       `json:"published"`
	NoOps     int       `json:"no_ops"`
	Failed    int       `json:"failed"`
}

// SessionRecord is one platform session within a run.
type SessionRecord struct {
	RunID      string `json:"run_id"`
	Platform   string `json:"platform"`
	Revision   string `json:"revision"`
	Stage      string `json:"stage"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Error      string `json:"error,omitempty"`
	CommitID   string `json:"commit_id,omitempty"`
	Published  bool   `json:"published"`
	NoOp       bool   `json:"no_op"`
	DurationMS int64  `json:"duration_ms"`
}

// Open opens (or creates) the ledger database at path with the pragmas the
// rest of the tool expects and ensures the schema exists.
func Open(path string, log *zap.SugaredLogger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open ledger database at %s", path)
	}

	// WAL mode keeps history readable while a run is being recorded
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to set busy timeout")
	}

	store := &Store{db: db, log: log}
	if err := store.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	if log != nil {
		log.Debugw("Ledger opened", "path", path)
	}
	return store, nil
}

// NewStore wraps an already-open database. The caller owns schema setup;
// used by tests and embedders.
func NewStore(db *sql.DB, log *zap.SugaredLogger) *Store {
	return &Store{db: db, log: log}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		revision TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		published INTEGER NOT NULL DEFAULT 0,
		no_ops INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(run_id),
		platform TEXT NOT NULL,
		revision TEXT NOT NULL,
		stage TEXT NOT NULL,
		error_kind TEXT,
		error TEXT,
		commit_id TEXT,
		published BOOLEAN NOT NULL DEFAULT 0,
		no_op BOOLEAN NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_run ON sessions(run_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_platform ON sessions(platform, created_at)`

	if _, err := s.db.Exec(schema); err != nil {
		return errors.Wrap(err, "failed to create ledger schema")
	}
	return nil
}

// RecordRun persists a completed matrix run and all of its session results
// in a single transaction. Partial runs are recorded like any other; the
// summary counters make mixed outcomes visible at a glance.
func (s *Store) RecordRun(revision string, startedAt time.Time, results []*pipeline.Result) error {
	if len(results) == 0 {
		return nil
	}
	summary := pipeline.Summarize(results)

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin ledger transaction")
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (run_id, revision, started_at, published, no_ops, failed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		results[0].RunID, revision, startedAt.UTC(),
		len(summary.Published), len(summary.NoOps), len(summary.Failed),
	)
	if err != nil {
		return errors.Wrap(err, "failed to record run")
	}

	stmt, err := tx.Prepare(
		`INSERT INTO sessions (run_id, platform, revision, stage, error_kind, error, commit_id, published, no_op, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare session insert")
	}
	defer stmt.Close()

	for _, r := range results {
		_, err = stmt.Exec(
			r.RunID, r.Platform, r.Revision, r.Stage,
			r.Kind, r.Error, r.CommitID,
			r.Published, r.NoOp, r.Duration.Milliseconds(),
		)
		if err != nil {
			return errors.Wrapf(err, "failed to record session for %s", r.Platform)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit ledger transaction")
	}

	if s.log != nil {
		s.log.Debugw("Run recorded",
			"run_id", results[0].RunID,
			"sessions", len(results))
	}
	return nil
}

// History returns the most recent runs, newest first.
func (s *Store) History(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT run_id, revision, started_at, published, no_ops, failed
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query run history")
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.RunID, &rec.Revision, &rec.StartedAt,
			&rec.Published, &rec.NoOps, &rec.Failed); err != nil {
			return nil, errors.Wrap(err, "failed to scan run record")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SessionsForRun returns the per-platform outcomes of one run.
func (s *Store) SessionsForRun(runID string) ([]SessionRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, platform, revision, stage, error_kind, error, commit_id, published, no_op, duration_ms
		 FROM sessions WHERE run_id = ? ORDER BY platform`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query sessions for run %s", runID)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var kind, errMsg, commit sql.NullString
		if err := rows.Scan(&rec.RunID, &rec.Platform, &rec.Revision, &rec.Stage,
			&kind, &errMsg, &commit, &rec.Published, &rec.NoOp, &rec.DurationMS); err != nil {
			return nil, errors.Wrap(err, "failed to scan session record")
		}
		rec.ErrorKind = kind.String
		rec.Error = errMsg.String
		rec.CommitID = commit.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LastPublished returns the most recent successful publish for a platform,
// or nil when the platform has never published.
func (s *Store) LastPublished(platform string) (*SessionRecord, error) {
	row := s.db.QueryRow(
		`SELECT run_id, platform, revision, stage, commit_id, duration_ms
		 FROM sessions
		 WHERE platform = ? AND published = 1
		 ORDER BY created_at DESC LIMIT 1`, platform)

	var rec SessionRecord
	var commit sql.NullString
	err := row.Scan(&rec.RunID, &rec.Platform, &rec.Revision, &rec.Stage, &commit, &rec.DurationMS)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query last publish for %s", platform)
	}
	rec.Published = true
	rec.CommitID = commit.String
	return &rec, nil
}
