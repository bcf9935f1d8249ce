package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "parsed file cache",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS parsed_files (
    dataset TEXT NOT NULL,
    path TEXT NOT NULL,
    source_mtime INTEGER NOT NULL,
    stored_at INTEGER NOT NULL,
    payload BLOB NOT NULL,
    PRIMARY KEY (dataset, path)
);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "run reports",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS run_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT UNIQUE NOT NULL,
    dataset TEXT NOT NULL,
    dir TEXT,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    file_count INTEGER DEFAULT 0,
    record_count INTEGER DEFAULT 0,
    skipped_count INTEGER DEFAULT 0,
    report_json TEXT NOT NULL,
    markdown TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_run_reports_dataset ON run_reports(dataset, finished_at);
`)
			return err
		},
	},
	{
		Version:     3,
		Description: "extractor variant on parsed files",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`ALTER TABLE parsed_files ADD COLUMN variant TEXT NOT NULL DEFAULT ''`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
