// Package archive persists produced summaries so they can be listed and downloaded later.
package archive

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("archive: summary not found")

// Entry is one archived summary.
type Entry struct {
	ID              string    `json:"id"`
	VideoID         string    `json:"video_id,omitempty"`
	SourceURL       string    `json:"source_url,omitempty"`
	Model           string    `json:"model"`
	Summary         string    `json:"summary"`
	Truncated       bool      `json:"truncated,omitempty"`
	TranscriptChars int       `json:"transcript_chars"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store is implemented by the SQLite and PostgreSQL backends.
type Store interface {
	// Save assigns ID and CreatedAt when empty and returns the stored entry.
	Save(ctx context.Context, e Entry) (Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
	// List returns the newest entries first.
	List(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// Open selects a backend from dsn: postgres:// or postgresql:// URLs use pgx,
// anything else is a SQLite file path.
func Open(ctx context.Context, dsn string) (Store, error) {
	if dsn == "" {
		return nil, errors.New("archive: empty DSN")
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return openPostgres(ctx, dsn)
	}
	return openSQLite(ctx, dsn)
}

// prepare fills generated fields before insert.
func prepare(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.CreatedAt = e.CreatedAt.UTC().Truncate(time.Microsecond)
	return e
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	}
	return limit
}
