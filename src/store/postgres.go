package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Protocol-Lattice/cursor-agent/src/logging"
	"github.com/Protocol-Lattice/cursor-agent/src/models"
)

// Postgres stores transcripts in a Postgres database.
type Postgres struct {
	DB  *pgxpool.Pool
	log *logging.Logger
}

// OpenPostgres connects using connStr and applies pending migrations.
func OpenPostgres(ctx context.Context, connStr string, log *logging.Logger) (*Postgres, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	ps := &Postgres{DB: db, log: log.Sub("store.postgres")}
	if err := ps.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return ps, nil
}

func (ps *Postgres) migrate(ctx context.Context) error {
	if _, err := ps.DB.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}
	for _, m := range postgresMigrations {
		err := pgx.BeginFunc(ctx, ps.DB, func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING", m.Version)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return nil
			}
			ps.log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")
			_, err = tx.Exec(ctx, m.SQL)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func (ps *Postgres) Append(ctx context.Context, sessionID string, msgs ...models.Message) error {
	clean, err := prepare(sessionID, msgs)
	if err != nil || len(clean) == 0 {
		return err
	}
	batch := &pgx.Batch{}
	for _, m := range clean {
		payload, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
		batch.Queue("INSERT INTO transcript_messages (session_id, role, payload) VALUES ($1, $2, $3::jsonb)", sessionID, string(m.Role), string(payload))
	}
	return pgx.BeginFunc(ctx, ps.DB, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (ps *Postgres) Load(ctx context.Context, sessionID string) ([]models.Message, error) {
	rows, err := ps.DB.Query(ctx, "SELECT payload::text FROM transcript_messages WHERE session_id = $1 ORDER BY id", sessionID)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	out := make([]models.Message, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var m models.Message
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (ps *Postgres) Clear(ctx context.Context, sessionID string) error {
	_, err := ps.DB.Exec(ctx, "DELETE FROM transcript_messages WHERE session_id = $1", sessionID)
	return err
}

func (ps *Postgres) Close() error {
	ps.DB.Close()
	return nil
}
