// Package sninfo persists per-transient cleaning results in a small
// SQLite database: one row per cleaned (transient, filter) unit per
// run, plus the per-cut flag counts that make data-quality issues
// visible after the fact.
package sninfo

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/atlas-clean/atclean/internal/clean"
	"github.com/atlas-clean/atclean/internal/lightcurve"
)

// Store wraps the SQLite transient-info database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sninfo database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sninfo database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS cleaning_runs (
		run_id     TEXT    NOT NULL,
		tnsname    TEXT    NOT NULL,
		filter     TEXT    NOT NULL,
		mjd0       REAL,
		points     INTEGER NOT NULL,
		uncert_est_required INTEGER NOT NULL DEFAULT 0,
		uncert_est_applied  INTEGER NOT NULL DEFAULT 0,
		uncert_est_factor   REAL    NOT NULL DEFAULT 1.0,
		created_at TEXT    NOT NULL,
		PRIMARY KEY (run_id, tnsname, filter)
	);
	CREATE TABLE IF NOT EXISTS cut_counts (
		run_id   TEXT    NOT NULL,
		tnsname  TEXT    NOT NULL,
		filter   TEXT    NOT NULL,
		cut_name TEXT    NOT NULL,
		flagged  INTEGER NOT NULL,
		PRIMARY KEY (run_id, tnsname, filter, cut_name)
	);`)
	if err != nil {
		return fmt.Errorf("failed to create sninfo schema: %w", err)
	}
	return nil
}

// RecordSummary writes one cleaned unit's outcome. The whole unit is
// written in a transaction so a failure leaves no partial record.
func (s *Store) RecordSummary(runID string, t *lightcurve.Transient, summary *clean.Summary) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	mjd0 := sql.NullFloat64{Float64: t.MJD0, Valid: !math.IsNaN(t.MJD0)}
	_, err = tx.Exec(`INSERT OR REPLACE INTO cleaning_runs
		(run_id, tnsname, filter, mjd0, points, uncert_est_required, uncert_est_applied, uncert_est_factor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, t.TNSName, t.Filter, mjd0, summary.Points,
		summary.UncertEst.Required, summary.UncertEst.Applied, summary.UncertEst.Factor,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record cleaning run: %w", err)
	}

	for _, count := range summary.CutCounts {
		_, err = tx.Exec(`INSERT OR REPLACE INTO cut_counts
			(run_id, tnsname, filter, cut_name, flagged) VALUES (?, ?, ?, ?, ?)`,
			runID, t.TNSName, t.Filter, count.Name, count.Flagged)
		if err != nil {
			return fmt.Errorf("failed to record cut count for %q: %w", count.Name, err)
		}
	}

	return tx.Commit()
}

// CutCounts returns the recorded per-cut flag counts for one unit.
func (s *Store) CutCounts(runID, tnsname, filter string) ([]clean.CutCount, error) {
	rows, err := s.db.Query(`SELECT cut_name, flagged FROM cut_counts
		WHERE run_id = ? AND tnsname = ? AND filter = ? ORDER BY cut_name`,
		runID, tnsname, filter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []clean.CutCount
	for rows.Next() {
		var c clean.CutCount
		if err := rows.Scan(&c.Name, &c.Flagged); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
