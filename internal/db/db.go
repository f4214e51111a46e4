package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"lp-analyzer/internal/logger"
)

// DB wraps a SQLite database connection.
type DB struct {
	sql *sql.DB
}

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("Opened %s", path))
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	version := 0
	// missing table on a fresh file leaves version at 0
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS lp_runs (
				seq            INTEGER PRIMARY KEY AUTOINCREMENT,
				id             TEXT NOT NULL UNIQUE,
				timestamp      TEXT NOT NULL,
				corporation_id INTEGER NOT NULL,
				offer_count    INTEGER NOT NULL,
				eligible_count INTEGER NOT NULL,
				result_count   INTEGER NOT NULL,
				top_ratio      REAL NOT NULL,
				duration_ms    INTEGER NOT NULL DEFAULT 0,
				notice         TEXT NOT NULL DEFAULT '',
				params_json    TEXT NOT NULL DEFAULT '{}'
			);
			CREATE INDEX IF NOT EXISTS idx_lp_runs_ts ON lp_runs(timestamp);

			CREATE TABLE IF NOT EXISTS lp_results (
				id                  INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id              TEXT NOT NULL REFERENCES lp_runs(id),
				position            INTEGER NOT NULL,
				type_id             INTEGER,
				item_name           TEXT,
				region_name         TEXT,
				quantity            INTEGER,
				point_cost          INTEGER,
				currency_cost       REAL,
				currency_cost_total REAL,
				average_price       REAL,
				lowest_price        REAL,
				current_price       REAL,
				effective_price     REAL,
				revenue             REAL,
				profit              REAL,
				ratio               REAL,
				profit_current      REAL,
				ratio_current       REAL,
				recent_volume       INTEGER
			);
			CREATE INDEX IF NOT EXISTS idx_lp_results_run ON lp_results(run_id);
			CREATE INDEX IF NOT EXISTS idx_lp_results_type ON lp_results(type_id);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "Applied migration v1 (run history)")
	}

	return nil
}
