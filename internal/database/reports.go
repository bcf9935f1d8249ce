package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wupmaz/labordash/internal/dataset"
)

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// RunReport is a persisted processing report.
type RunReport struct {
	ID       int64
	RunID    string
	Dataset  dataset.Kind
	Dir      string
	Started  time.Time
	Finished time.Time
	Files    int
	Records  int
	Skipped  int
	Markdown string
}

// Report decodes the full report stored alongside the summary columns.
func (db *DB) Report(ctx context.Context, runID string) (*dataset.Report, error) {
	var raw string
	err := db.conn.QueryRowContext(ctx,
		"SELECT report_json FROM run_reports WHERE run_id = ?", runID,
	).Scan(&raw)
	if err != nil {
		return nil, err
	}
	var r dataset.Report
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", runID, err)
	}
	return &r, nil
}

// InsertRunReport persists a processing report.
func (db *DB) InsertRunReport(ctx context.Context, r *dataset.Report) (int64, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return 0, fmt.Errorf("encoding report: %w", err)
	}
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO run_reports
		(run_id, dataset, dir, started_at, finished_at, file_count, record_count, skipped_count, report_json, markdown)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, string(r.Dataset), r.Dir,
		r.Started.UTC().Format(timeLayout), r.Finished.UTC().Format(timeLayout),
		len(r.Files), r.Records(), r.FailedFiles(), string(raw), r.Markdown(),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run report: %w", err)
	}
	return result.LastInsertId()
}

// LatestRunReports returns the most recent report of each dataset, in
// dataset display order.
func (db *DB) LatestRunReports(ctx context.Context) ([]RunReport, error) {
	var out []RunReport
	for _, kind := range dataset.Kinds {
		reports, err := db.RunReports(ctx, kind, 1)
		if err != nil {
			return nil, err
		}
		out = append(out, reports...)
	}
	return out, nil
}

// RunReports returns up to limit reports for a dataset, newest first.
func (db *DB) RunReports(ctx context.Context, kind dataset.Kind, limit int) ([]RunReport, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, run_id, dataset, dir, started_at, finished_at, file_count, record_count, skipped_count, markdown
		FROM run_reports WHERE dataset = ? ORDER BY finished_at DESC, id DESC LIMIT ?`,
		string(kind), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []RunReport
	for rows.Next() {
		var (
			r                 RunReport
			kindStr           string
			started, finished string
		)
		if err := rows.Scan(&r.ID, &r.RunID, &kindStr, &r.Dir, &started, &finished,
			&r.Files, &r.Records, &r.Skipped, &r.Markdown); err != nil {
			return nil, err
		}
		r.Dataset = dataset.Kind(kindStr)
		r.Started, _ = time.Parse(timeLayout, started)
		r.Finished, _ = time.Parse(timeLayout, finished)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
