package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wupmaz/labordash/internal/dataset"
)

// LoadParsed returns the cached payload for a source file. The entry is only
// valid while it was written by the same extractor variant, its recorded
// source mtime equals modTime and it was stored after that mtime.
func (db *DB) LoadParsed(ctx context.Context, kind dataset.Kind, variant, path string, modTime time.Time) ([]byte, bool, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT variant, source_mtime, stored_at, payload FROM parsed_files WHERE dataset = ? AND path = ?`,
		string(kind), path,
	)

	var (
		storedVariant         string
		sourceMtime, storedAt int64
		payload               []byte
	)
	if err := row.Scan(&storedVariant, &sourceMtime, &storedAt, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("loading parsed %s: %w", path, err)
	}

	mt := modTime.UnixNano()
	if storedVariant != variant || sourceMtime != mt || storedAt <= mt {
		return nil, false, nil
	}
	return payload, true, nil
}

// StoreParsed records the parsed payload of a source file, replacing any
// earlier entry.
func (db *DB) StoreParsed(ctx context.Context, kind dataset.Kind, variant, path string, modTime time.Time, payload []byte) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO parsed_files (dataset, path, variant, source_mtime, stored_at, payload)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(kind), path, variant, modTime.UnixNano(), time.Now().UnixNano(), payload,
	)
	if err != nil {
		return fmt.Errorf("storing parsed %s: %w", path, err)
	}
	return nil
}

// ClearParsed removes every cached file and returns how many were removed.
func (db *DB) ClearParsed(ctx context.Context) (int64, error) {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM parsed_files")
	if err != nil {
		return 0, fmt.Errorf("clearing parsed files: %w", err)
	}
	return res.RowsAffected()
}

// ParsedCounts returns the number of cached files per dataset.
func (db *DB) ParsedCounts(ctx context.Context) (map[dataset.Kind]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT dataset, COUNT(*) FROM parsed_files GROUP BY dataset",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[dataset.Kind]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[dataset.Kind(kind)] = n
	}
	return counts, rows.Err()
}
