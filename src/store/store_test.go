package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Protocol-Lattice/cursor-agent/src/logging"
	"github.com/Protocol-Lattice/cursor-agent/src/models"
)

func transcript() []models.Message {
	return []models.Message{
		{Role: models.RoleUser, Content: "what is in this picture?", Images: []models.Image{{Name: "cat.png", MIME: "image/png", Data: []byte{1, 2, 3}}}},
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{{ID: "call_1", Name: "read_file", Arguments: map[string]any{"target_file": "a.go"}}}},
		{Role: models.RoleTool, ToolCallID: "call_1", ToolName: "read_file", Content: "package a", IsError: false},
		{Role: models.RoleAssistant, Content: "A cat."},
	}
}

// exercise runs the shared contract against any backend.
func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	empty, err := s.Load(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)

	msgs := transcript()
	require.NoError(t, s.Append(ctx, "s1", msgs[:2]...))
	require.NoError(t, s.Append(ctx, "s1", msgs[2:]...))
	require.NoError(t, s.Append(ctx, "s2", models.Message{Role: models.RoleUser, Content: "other"}))

	got, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "what is in this picture?", got[0].Content)
	require.Len(t, got[0].Images, 1)
	assert.Equal(t, "cat.png", got[0].Images[0].Name)
	assert.Empty(t, got[0].Images[0].Data, "image bytes are not persisted")
	assert.Equal(t, "read_file", got[1].ToolCalls[0].Name)
	assert.Equal(t, "a.go", got[1].ToolCalls[0].Arguments["target_file"])
	assert.Equal(t, "call_1", got[2].ToolCallID)
	assert.Equal(t, "A cat.", got[3].Content)

	// the caller's slice keeps its image bytes
	assert.Equal(t, []byte{1, 2, 3}, msgs[0].Images[0].Data)

	require.NoError(t, s.Clear(ctx, "s1"))
	got, err = s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got)

	other, err := s.Load(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, other, 1)

	assert.Error(t, s.Append(ctx, " ", msgs[0]))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	exercise(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "transcripts.db"), logging.Nop())
	require.NoError(t, err)
	defer s.Close()
	exercise(t, s)
}

func TestSQLiteMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.db")
	s, err := OpenSQLite(path, logging.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), "s", models.Message{Role: models.RoleUser, Content: "hi"}))
	require.NoError(t, s.migrate())
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path, logging.Nop())
	require.NoError(t, err)
	defer s.Close()

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, len(sqliteMigrations), count)

	got, err := s.Load(context.Background(), "s")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "", nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, "sqlite::memory:", nil)
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &SQLite{}, s)
	exercise(t, s)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("CURSOR_AGENT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CURSOR_AGENT_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn, logging.Nop())
	require.NoError(t, err)
	defer s.Close()

	pg := s.(*Postgres)
	for _, id := range []string{"nobody", "s1", "s2"} {
		require.NoError(t, pg.Clear(ctx, id))
	}
	exercise(t, s)
	require.NoError(t, pg.Clear(ctx, "s2"))
}
