package resultstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/farmaudit/farmaudit/internal/domain"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed run history. It is an audit log only:
// failures here never influence classification or archival.
type Store struct {
	db *sql.DB
}

// Run is one recorded batch run.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Accounts    int
	Proxies     int
	Concurrency int
}

// Outcome is one account's recorded terminal classification.
type Outcome struct {
	RunID      string
	AccountID  string
	Status     domain.Status
	Error      string
	FinishedAt time.Time
}

// New opens (or creates) the history database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun records the beginning of a batch run.
func (s *Store) StartRun(id string, accounts, proxies, concurrency int, startedAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, started_at, accounts, proxies, concurrency)
		VALUES (?, ?, ?, ?, ?)
	`, id, startedAt, accounts, proxies, concurrency)
	return err
}

// FinishRun stamps a run's completion time.
func (s *Store) FinishRun(id string, finishedAt time.Time) error {
	_, err := s.db.Exec(`UPDATE runs SET finished_at = ? WHERE id = ?`, finishedAt, id)
	return err
}

// RecordOutcome appends one account's terminal classification to a run.
func (s *Store) RecordOutcome(runID, accountID string, status domain.Status, errMsg string) error {
	_, err := s.db.Exec(`
		INSERT INTO outcomes (run_id, account_id, status, error, finished_at)
		VALUES (?, ?, ?, ?, ?)
	`, runID, accountID, string(status), errMsg, time.Now())
	return err
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, accounts, proxies, concurrency
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &r.Accounts, &r.Proxies, &r.Concurrency); err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// Outcomes returns a run's recorded outcomes in completion order.
func (s *Store) Outcomes(runID string) ([]*Outcome, error) {
	rows, err := s.db.Query(`
		SELECT run_id, account_id, status, error, finished_at
		FROM outcomes WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []*Outcome
	for rows.Next() {
		var o Outcome
		var status string
		var errMsg sql.NullString
		if err := rows.Scan(&o.RunID, &o.AccountID, &status, &errMsg, &o.FinishedAt); err != nil {
			return nil, err
		}
		o.Status = domain.Status(status)
		if errMsg.Valid {
			o.Error = errMsg.String
		}
		outcomes = append(outcomes, &o)
	}
	return outcomes, rows.Err()
}

// StatusCounts aggregates a run's outcomes per terminal status.
func (s *Store) StatusCounts(runID string) (map[domain.Status]int, error) {
	rows, err := s.db.Query(`
		SELECT status, COUNT(*) FROM outcomes WHERE run_id = ? GROUP BY status
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.Status(status)] = n
	}
	return counts, rows.Err()
}
