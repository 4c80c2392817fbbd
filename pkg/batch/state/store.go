// Package state persists batch jobs in a SQLite database so that
// interrupted runs can be inspected, resumed or cancelled from another
// process.
package state

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danmuget/danmuget/pkg/batch"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	title      TEXT NOT NULL,
	template   TEXT NOT NULL,
	movie      INTEGER NOT NULL,
	convert    INTEGER NOT NULL,
	next       INTEGER NOT NULL,
	cancelled  INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tasks (
	job_id      TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
	seq_no      INTEGER NOT NULL,
	episode_id  INTEGER NOT NULL,
	title       TEXT NOT NULL,
	clean_title TEXT NOT NULL,
	task_seq    INTEGER NOT NULL,
	name        TEXT NOT NULL,
	PRIMARY KEY (job_id, seq_no)
);
CREATE TABLE IF NOT EXISTS artifacts (
	job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
	seq_no INTEGER NOT NULL,
	name   TEXT NOT NULL,
	data   BLOB NOT NULL,
	PRIMARY KEY (job_id, seq_no)
);
CREATE TABLE IF NOT EXISTS log_lines (
	job_id  TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
	seq_no  INTEGER NOT NULL,
	at      TEXT NOT NULL,
	message TEXT NOT NULL,
	PRIMARY KEY (job_id, seq_no)
);`

// Store implements batch.Store on SQLite. A single file holds every job
// together with its tasks, artifacts and transcript.
type Store struct {
	db   *sql.DB
	path string
}

var _ batch.Store = (*Store)(nil)

// Open initializes or connects to the job database, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure state directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put writes the full job state, replacing any previous revision.
func (s *Store) Put(job *batch.Job) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`INSERT OR REPLACE INTO jobs
		(id, state, title, template, movie, convert, next, cancelled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, string(job.State), job.Title, job.Template,
		boolInt(job.Movie), boolInt(job.Convert), job.Next, boolInt(job.Cancelled),
		job.CreatedAt.Format(time.RFC3339Nano), job.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write job: %w", err)
	}

	for _, table := range []string{"tasks", "artifacts", "log_lines"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE job_id = ?", job.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for i, t := range job.Tasks {
		name := ""
		if i < len(job.Names) {
			name = job.Names[i]
		}
		if _, err := tx.Exec(`INSERT INTO tasks
			(job_id, seq_no, episode_id, title, clean_title, task_seq, name)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			job.ID, i, t.EpisodeID, t.Title, t.CleanTitle, t.Seq, name); err != nil {
			return fmt.Errorf("write task %d: %w", i, err)
		}
	}
	for i, a := range job.Artifacts {
		if _, err := tx.Exec(`INSERT INTO artifacts (job_id, seq_no, name, data)
			VALUES (?, ?, ?, ?)`, job.ID, i, a.Name, a.Data); err != nil {
			return fmt.Errorf("write artifact %d: %w", i, err)
		}
	}
	for i, l := range job.Log {
		if _, err := tx.Exec(`INSERT INTO log_lines (job_id, seq_no, at, message)
			VALUES (?, ?, ?, ?)`, job.ID, i, l.At.Format(time.RFC3339Nano), l.Message); err != nil {
			return fmt.Errorf("write log line %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Get loads a job by id. An unknown id returns (nil, nil).
func (s *Store) Get(id string) (*batch.Job, error) {
	job := &batch.Job{ID: id}
	var state string
	var movie, convert, cancelled int
	var created, updated string
	err := s.db.QueryRow(`SELECT state, title, template, movie, convert, next, cancelled, created_at, updated_at
		FROM jobs WHERE id = ?`, id).
		Scan(&state, &job.Title, &job.Template, &movie, &convert, &job.Next, &cancelled, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read job: %w", err)
	}
	job.State = batch.State(state)
	job.Movie = movie != 0
	job.Convert = convert != 0
	job.Cancelled = cancelled != 0
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	if err := s.loadTasks(job); err != nil {
		return nil, err
	}
	if err := s.loadArtifacts(job); err != nil {
		return nil, err
	}
	if err := s.loadLog(job); err != nil {
		return nil, err
	}
	return job, nil
}

// Delete removes a job and its dependent rows.
func (s *Store) Delete(id string) error {
	if _, err := s.db.Exec("DELETE FROM jobs WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

// SetCancelled flags a job for cancellation. The orchestrator picks the
// flag up at its next task boundary.
func (s *Store) SetCancelled(id string) error {
	res, err := s.db.Exec("UPDATE jobs SET cancelled = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("flag cancel: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s not found", id)
	}
	return nil
}

// Summary is the listing view of a job.
type Summary struct {
	ID        string
	State     batch.State
	Title     string
	Done      int
	Total     int
	UpdatedAt time.Time
}

// List returns a summary per job, most recently updated first.
func (s *Store) List() ([]Summary, error) {
	rows, err := s.db.Query(`SELECT j.id, j.state, j.title, j.next, j.updated_at,
			(SELECT COUNT(1) FROM tasks t WHERE t.job_id = j.id)
		FROM jobs j ORDER BY j.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var state, updated string
		if err := rows.Scan(&sum.ID, &state, &sum.Title, &sum.Done, &updated, &sum.Total); err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		sum.State = batch.State(state)
		if sum.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *Store) loadTasks(job *batch.Job) error {
	rows, err := s.db.Query(`SELECT episode_id, title, clean_title, task_seq, name
		FROM tasks WHERE job_id = ? ORDER BY seq_no`, job.ID)
	if err != nil {
		return fmt.Errorf("read tasks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t batch.Task
		var name string
		if err := rows.Scan(&t.EpisodeID, &t.Title, &t.CleanTitle, &t.Seq, &name); err != nil {
			return fmt.Errorf("scan task: %w", err)
		}
		job.Tasks = append(job.Tasks, t)
		job.Names = append(job.Names, name)
	}
	return rows.Err()
}

func (s *Store) loadArtifacts(job *batch.Job) error {
	rows, err := s.db.Query(`SELECT name, data FROM artifacts WHERE job_id = ? ORDER BY seq_no`, job.ID)
	if err != nil {
		return fmt.Errorf("read artifacts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a batch.Artifact
		if err := rows.Scan(&a.Name, &a.Data); err != nil {
			return fmt.Errorf("scan artifact: %w", err)
		}
		job.Artifacts = append(job.Artifacts, a)
	}
	return rows.Err()
}

func (s *Store) loadLog(job *batch.Job) error {
	rows, err := s.db.Query(`SELECT at, message FROM log_lines WHERE job_id = ? ORDER BY seq_no`, job.ID)
	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l batch.LogLine
		var at string
		if err := rows.Scan(&at, &l.Message); err != nil {
			return fmt.Errorf("scan log line: %w", err)
		}
		if l.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return fmt.Errorf("parse log time: %w", err)
		}
		job.Log = append(job.Log, l)
	}
	return rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
