package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/anatolykoptev/go_ytsum/internal/engine"

	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

func openSQLite(ctx context.Context, path string) (*sqliteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("archive: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSQLiteSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: init schema: %w", err)
	}
	slog.Info("archive: sqlite opened", slog.String("path", path))
	return &sqliteStore{db: db}, nil
}

// createdLayout is fixed-width so created_at sorts lexically.
const createdLayout = "2006-01-02T15:04:05.000000Z07:00"

func initSQLiteSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS summaries (
		id               TEXT PRIMARY KEY,
		video_id         TEXT NOT NULL DEFAULT '',
		source_url       TEXT NOT NULL DEFAULT '',
		model            TEXT NOT NULL,
		summary          TEXT NOT NULL,
		truncated        INTEGER NOT NULL DEFAULT 0,
		transcript_chars INTEGER NOT NULL DEFAULT 0,
		created_at       TEXT NOT NULL
	)`); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_summaries_created ON summaries(created_at DESC)`)
	return err
}

func (s *sqliteStore) Save(ctx context.Context, e Entry) (Entry, error) {
	e = prepare(e)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries (id, video_id, source_url, model, summary, truncated, transcript_chars, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.VideoID, e.SourceURL, e.Model, e.Summary, boolToInt(e.Truncated), e.TranscriptChars,
		e.CreatedAt.Format(createdLayout))
	if err != nil {
		return Entry{}, fmt.Errorf("archive: insert: %w", err)
	}
	engine.IncrArchiveWrites()
	return e, nil
}

func (s *sqliteStore) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, video_id, source_url, model, summary, truncated, transcript_chars, created_at
		 FROM summaries WHERE id = ?`, id)
	e, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

func (s *sqliteStore) List(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, video_id, source_url, model, summary, truncated, transcript_chars, created_at
		 FROM summaries ORDER BY created_at DESC, rowid DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLite(r rowScanner) (Entry, error) {
	var e Entry
	var created string
	var truncated int64
	if err := r.Scan(&e.ID, &e.VideoID, &e.SourceURL, &e.Model, &e.Summary, &truncated, &e.TranscriptChars, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("archive: scan: %w", err)
	}
	e.Truncated = truncated != 0
	t, err := time.Parse(createdLayout, created)
	if err != nil {
		return Entry{}, fmt.Errorf("archive: parse created_at %q: %w", created, err)
	}
	e.CreatedAt = t
	return e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
