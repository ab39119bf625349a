package timesheet

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"
)

const (
	createTimesheetsTableSQL = `
  CREATE TABLE IF NOT EXISTS timesheets (
  id TEXT PRIMARY KEY,
  wnum TEXT NOT NULL DEFAULT '',
  grp TEXT NOT NULL DEFAULT '',
  period_start TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at DATETIME NOT NULL
  )`

	createTimesheetsWNumIndexSQL = `CREATE INDEX IF NOT EXISTS timesheets_wnum ON timesheets (wnum)`

	saveTimesheetSQL = `INSERT OR REPLACE INTO timesheets (id, wnum, grp, period_start, data, created_at)
  VALUES (?, ?, ?, ?, ?, ?)`
	getTimesheetSQL    = `SELECT data FROM timesheets WHERE id = ?`
	listTimesheetsSQL  = `SELECT data FROM timesheets ORDER BY created_at, id`
	deleteTimesheetSQL = `DELETE FROM timesheets WHERE id = ?`
)

// SQLiteDB implements the DB interface using SQLite
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens (and migrates) a SQLite database at path
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}

	for _, stmt := range []string{createTimesheetsTableSQL, createTimesheetsWNumIndexSQL} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return &SQLiteDB{db: db}, nil
}

// SaveSubmission inserts or replaces a submission
func (s *SQLiteDB) SaveSubmission(sub *Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshaling submission: %w", err)
	}
	_, err = s.db.Exec(saveTimesheetSQL,
		sub.ID,
		sub.Record.WNum,
		sub.Record.Group,
		sub.Record.PayPeriodStartDate.String(),
		string(data),
		sub.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving submission: %w", err)
	}
	return nil
}

// GetSubmission retrieves a submission by ID
func (s *SQLiteDB) GetSubmission(id string) (*Submission, error) {
	var data string
	err := s.db.QueryRow(getTimesheetSQL, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying submission: %w", err)
	}

	var sub Submission
	if err := json.Unmarshal([]byte(data), &sub); err != nil {
		return nil, fmt.Errorf("unmarshaling submission: %w", err)
	}
	return &sub, nil
}

// ListSubmissions returns all submissions in creation order
func (s *SQLiteDB) ListSubmissions() ([]*Submission, error) {
	rows, err := s.db.Query(listTimesheetsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	defer rows.Close()

	subs := make([]*Submission, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		var sub Submission
		if err := json.Unmarshal([]byte(data), &sub); err != nil {
			return nil, fmt.Errorf("unmarshaling submission: %w", err)
		}
		subs = append(subs, &sub)
	}
	return subs, rows.Err()
}

// DeleteSubmission removes a submission
func (s *SQLiteDB) DeleteSubmission(id string) error {
	if _, err := s.db.Exec(deleteTimesheetSQL, id); err != nil {
		return fmt.Errorf("deleting submission: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
