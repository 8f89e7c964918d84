package store

// migration is one schema step, applied once and recorded in
// schema_migrations.
type migration struct {
	Version int
	Name    string
	SQL     string
}

var sqliteMigrations = []migration{
	{
		Version: 1,
		Name:    "create transcript messages",
		SQL: `
			CREATE TABLE transcript_messages (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id  TEXT NOT NULL,
				role        TEXT NOT NULL,
				payload     TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_transcript_session ON transcript_messages (session_id, id);
		`,
	},
}

var postgresMigrations = []migration{
	{
		Version: 1,
		Name:    "create transcript messages",
		SQL: `
			CREATE TABLE IF NOT EXISTS transcript_messages (
				id          BIGSERIAL PRIMARY KEY,
				session_id  TEXT NOT NULL,
				role        TEXT NOT NULL,
				payload     JSONB NOT NULL,
				created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
			);

			CREATE INDEX IF NOT EXISTS idx_transcript_session ON transcript_messages (session_id, id);
		`,
	},
}
