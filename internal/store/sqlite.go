package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS pricing_cache (
	path       TEXT PRIMARY KEY,
	geometry   TEXT NOT NULL,
	settings   TEXT NOT NULL,
	result     TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

// SQLiteStore is a PricingCache persisted in a SQLite database file
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the database at path and ensures the schema
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open pricing cache: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create pricing cache table: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, path string) (Entry, error) {
	var (
		geometry, settings, result string
		updated                    int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT geometry, settings, result, updated_at FROM pricing_cache WHERE path = ?`, path,
	).Scan(&geometry, &settings, &result, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read pricing cache: %w", err)
	}
	return decodeEntry(path, geometry, settings, result, updated)
}

func (s *SQLiteStore) Put(ctx context.Context, entry Entry) error {
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = s.now()
	}
	geometry, err := json.Marshal(entry.Geometry)
	if err != nil {
		return err
	}
	settings, err := json.Marshal(entry.Settings)
	if err != nil {
		return err
	}
	result, err := json.Marshal(entry.Result)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO pricing_cache (path, geometry, settings, result, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			geometry = excluded.geometry,
			settings = excluded.settings,
			result = excluded.result,
			updated_at = excluded.updated_at`,
		entry.Path, string(geometry), string(settings), string(result), entry.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to write pricing cache: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pricing_cache WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete from pricing cache: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, geometry, settings, result, updated_at FROM pricing_cache`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pricing cache: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			path, geometry, settings, result string
			updated                          int64
		)
		if err := rows.Scan(&path, &geometry, &settings, &result, &updated); err != nil {
			return nil, err
		}
		e, err := decodeEntry(path, geometry, settings, result, updated)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortEntries(out)
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decodeEntry(path, geometry, settings, result string, updated int64) (Entry, error) {
	e := Entry{Path: path, UpdatedAt: time.Unix(0, updated)}
	if err := json.Unmarshal([]byte(geometry), &e.Geometry); err != nil {
		return Entry{}, fmt.Errorf("corrupt geometry for %s: %w", path, err)
	}
	if err := json.Unmarshal([]byte(settings), &e.Settings); err != nil {
		return Entry{}, fmt.Errorf("corrupt settings for %s: %w", path, err)
	}
	if err := json.Unmarshal([]byte(result), &e.Result); err != nil {
		return Entry{}, fmt.Errorf("corrupt result for %s: %w", path, err)
	}
	return e, nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
}
