// Package store persists conversation transcripts keyed by session id.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/Protocol-Lattice/cursor-agent/src/logging"
	"github.com/Protocol-Lattice/cursor-agent/src/models"
)

// Store keeps the ordered messages of each session.
type Store interface {
	// Append adds msgs to the end of the session transcript.
	Append(ctx context.Context, sessionID string, msgs ...models.Message) error
	// Load returns the session transcript, oldest first. Unknown sessions
	// yield an empty slice.
	Load(ctx context.Context, sessionID string) ([]models.Message, error)
	// Clear drops the session transcript.
	Clear(ctx context.Context, sessionID string) error
	Close() error
}

// Open picks a backend from dsn:
//
//	""  or "memory"                      in-process map
//	"postgres://..." / "postgresql://..." Postgres
//	"sqlite:<path>" or any other value   SQLite file (":memory:" allowed)
func Open(ctx context.Context, dsn string, log *logging.Logger) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "" || dsn == "memory":
		return NewMemory(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(ctx, dsn, log)
	default:
		return OpenSQLite(strings.TrimPrefix(dsn, "sqlite:"), log)
	}
}

// prepare strips image bytes, which are never persisted, and validates the
// session id.
func prepare(sessionID string, msgs []models.Message) ([]models.Message, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session id is empty")
	}
	out := make([]models.Message, len(msgs))
	for i, m := range msgs {
		if len(m.Images) > 0 {
			imgs := make([]models.Image, len(m.Images))
			for j, img := range m.Images {
				imgs[j] = models.Image{Name: img.Name, MIME: img.MIME}
			}
			m.Images = imgs
		}
		out[i] = m
	}
	return out, nil
}
