package archive

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema/*.sql
var schemaFS embed.FS

type pgStore struct {
	pool *pgxpool.Pool
}

func openPostgres(ctx context.Context, dsn string) (*pgStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: parse DSN: %w", err)
	}
	config.MaxConns = 5
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("archive: create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: ping postgres: %w", err)
	}

	s := &pgStore{pool: pool}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: run migrations: %w", err)
	}
	slog.Info("archive: postgres connected", slog.String("addr", config.ConnConfig.Host))
	return s, nil
}

func (s *pgStore) runMigrations(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Release()

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := conn.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("execute %s: %w", entry.Name(), err)
		}
		slog.Debug("archive: migration applied", slog.String("file", entry.Name()))
	}
	return nil
}

func (s *pgStore) Save(ctx context.Context, e Entry) (Entry, error) {
	e = prepare(e)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO summaries (id, video_id, source_url, model, summary, truncated, transcript_chars, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.VideoID, e.SourceURL, e.Model, e.Summary, e.Truncated, e.TranscriptChars, e.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("archive: insert: %w", err)
	}
	engine.IncrArchiveWrites()
	return e, nil
}

func (s *pgStore) Get(ctx context.Context, id string) (Entry, error) {
	e, err := scanPostgres(s.pool.QueryRow(ctx,
		`SELECT id, video_id, source_url, model, summary, truncated, transcript_chars, created_at
		 FROM summaries WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("archive: get: %w", err)
	}
	return e, nil
}

func (s *pgStore) List(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, video_id, source_url, model, summary, truncated, transcript_chars, created_at
		 FROM summaries ORDER BY created_at DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanPostgres(rows)
		if err != nil {
			return nil, fmt.Errorf("archive: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *pgStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPostgres(r pgx.Row) (Entry, error) {
	var e Entry
	err := r.Scan(&e.ID, &e.VideoID, &e.SourceURL, &e.Model, &e.Summary, &e.Truncated, &e.TranscriptChars, &e.CreatedAt)
	if err != nil {
		return Entry{}, err
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}
