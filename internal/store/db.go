package store

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"health-data-pipeline/internal/model"
)

var db *sql.DB

// ErrNotInitialized is returned by read queries when InitDB was never called.
var ErrNotInitialized = errors.New("run store not initialized")

// InitDB opens the run-tracking database and creates tables if needed.
// The store is optional: when InitDB has not been called, every Save/
// Update function is a no-op so the pipeline can run without a
// persistence layer (unit tests, one-shot CLI runs).
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			dataset TEXT,
			status TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS run_errors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			error_message TEXT,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS run_countries (
			run_id TEXT,
			country TEXT,
			outcome TEXT,
			error_message TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS run_verdicts (
			run_id TEXT,
			country TEXT,
			date TEXT,
			metric TEXT,
			status TEXT,
			violation TEXT,
			reason TEXT
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Ready reports whether the store has been initialized.
func Ready() bool { return db != nil }

// SaveRun stores a new pipeline run.
func SaveRun(runID, dataset string) error {
	if db == nil {
		return nil
	}
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO runs (id, dataset, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		runID, dataset, "pending", now, now)
	return err
}

// UpdateRunStatus updates a run's status.
func UpdateRunStatus(runID, status string) error {
	if db == nil {
		return nil
	}
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, status, now, runID)
	return err
}

// SaveRunError records an error for a run.
func SaveRunError(runID string, runErr error) error {
	if db == nil || runErr == nil {
		return nil
	}
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
		runID, runErr.Error(), now)
	return err
}

// SaveReport persists a finalized run report: per-country outcomes plus
// every exempted and rejected verdict.
func SaveReport(report *model.RunReport) error {
	if db == nil {
		return nil
	}

	report.Mutex.RLock()
	defer report.Mutex.RUnlock()

	for _, country := range report.Fetched {
		outcome := model.CountrySucceeded
		for _, v := range report.Rejected {
			if v.Country == country {
				outcome = model.CountryPartial
				break
			}
		}
		if _, err := db.Exec(`INSERT INTO run_countries (run_id, country, outcome, error_message) VALUES (?, ?, ?, ?)`,
			report.RunID, country, outcome, ""); err != nil {
			return err
		}
	}
	for country, msg := range report.FetchFails {
		if _, err := db.Exec(`INSERT INTO run_countries (run_id, country, outcome, error_message) VALUES (?, ?, ?, ?)`,
			report.RunID, country, model.CountryFailed, msg); err != nil {
			return err
		}
	}

	verdicts := append(append([]model.Verdict{}, report.Exempted...), report.Rejected...)
	for _, v := range verdicts {
		if _, err := db.Exec(`INSERT INTO run_verdicts (run_id, country, date, metric, status, violation, reason) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			report.RunID, v.Country, v.Date, v.Metric, string(v.Status), string(v.Violation), v.Reason); err != nil {
			return err
		}
	}
	return nil
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID        string    `json:"id"`
	Dataset   string    `json:"dataset"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListRuns returns all runs, newest first.
func ListRuns() ([]RunSummary, error) {
	if db == nil {
		return nil, ErrNotInitialized
	}
	rows, err := db.Query(`SELECT id, dataset, status, created_at, updated_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Dataset, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun fetches one run by ID.
func GetRun(runID string) (*RunSummary, error) {
	if db == nil {
		return nil, ErrNotInitialized
	}
	var r RunSummary
	err := db.QueryRow(`SELECT id, dataset, status, created_at, updated_at FROM runs WHERE id = ?`, runID).
		Scan(&r.ID, &r.Dataset, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetVerdicts returns the persisted verdicts for one run.
func GetVerdicts(runID string) ([]model.Verdict, error) {
	if db == nil {
		return nil, ErrNotInitialized
	}
	rows, err := db.Query(`SELECT country, date, metric, status, violation, reason FROM run_verdicts WHERE run_id = ? ORDER BY country, date, metric`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var verdicts []model.Verdict
	for rows.Next() {
		var v model.Verdict
		var status, violation string
		if err := rows.Scan(&v.Country, &v.Date, &v.Metric, &status, &violation, &v.Reason); err != nil {
			return nil, err
		}
		v.Status = model.VerdictStatus(status)
		v.Violation = model.ViolationKind(violation)
		verdicts = append(verdicts, v)
	}
	return verdicts, rows.Err()
}
