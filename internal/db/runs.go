package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lp-analyzer/internal/engine"
)

// RunRecord is one stored analysis run.
type RunRecord struct {
	ID            string          `json:"id"`
	Timestamp     string          `json:"timestamp"`
	CorporationID int32           `json:"corporation_id"`
	OfferCount    int             `json:"offer_count"`
	EligibleCount int             `json:"eligible_count"`
	ResultCount   int             `json:"result_count"`
	TopRatio      float64         `json:"top_ratio"`
	DurationMs    int64           `json:"duration_ms"`
	Notice        string          `json:"notice,omitempty"`
	Params        json.RawMessage `json:"params"`
}

const runColumns = `id, timestamp, corporation_id, offer_count, eligible_count, result_count,
	top_ratio, duration_ms, notice, params_json`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (RunRecord, error) {
	var r RunRecord
	var params string
	err := s.Scan(&r.ID, &r.Timestamp, &r.CorporationID, &r.OfferCount, &r.EligibleCount,
		&r.ResultCount, &r.TopRatio, &r.DurationMs, &r.Notice, &params)
	r.Params = json.RawMessage(params)
	return r, err
}

// SaveReport stores the run summary and every computed row in one transaction.
// params is stored as JSON alongside the run (usually the effective config).
func (d *DB) SaveReport(report *engine.Report, params any) error {
	if report == nil || report.ID == "" {
		return errors.New("save report: missing run id")
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("save report: encode params: %w", err)
	}

	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("save report: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO lp_runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.FinishedAt.UTC().Format(time.RFC3339), report.CorporationID,
		report.OfferCount, report.EligibleOfferCount, len(report.Results),
		report.TopRatio(), report.Duration().Milliseconds(), report.Notice, string(paramsJSON),
	)
	if err != nil {
		return fmt.Errorf("save report: insert run: %w", err)
	}

	if err := insertResults(tx, report.ID, report.Results); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save report: commit: %w", err)
	}
	return nil
}

// GetRuns returns the last N runs (newest first).
func (d *DB) GetRuns(limit int) []RunRecord {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.Query(`SELECT `+runColumns+` FROM lp_runs ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return []RunRecord{}
	}
	defer rows.Close()

	records := []RunRecord{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			continue
		}
		records = append(records, r)
	}
	return records
}

// CountRuns returns the number of stored runs.
func (d *DB) CountRuns() int {
	var n int
	d.sql.QueryRow("SELECT COUNT(*) FROM lp_runs").Scan(&n)
	return n
}

// GetRunByID returns a single run, or nil when it does not exist.
func (d *DB) GetRunByID(id string) *RunRecord {
	r, err := scanRun(d.sql.QueryRow(`SELECT `+runColumns+` FROM lp_runs WHERE id = ?`, id))
	if err != nil {
		return nil
	}
	return &r
}

// DeleteRun deletes a run and its result rows.
func (d *DB) DeleteRun(id string) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM lp_results WHERE run_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM lp_runs WHERE id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

// ClearRuns deletes runs older than the given number of days.
func (d *DB) ClearRuns(olderThanDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays).Format(time.RFC3339)

	tx, err := d.sql.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"DELETE FROM lp_results WHERE run_id IN (SELECT id FROM lp_runs WHERE timestamp < ?)", cutoff,
	); err != nil {
		return 0, err
	}
	result, err := tx.Exec("DELETE FROM lp_runs WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	n, _ := result.RowsAffected()
	return n, nil
}
