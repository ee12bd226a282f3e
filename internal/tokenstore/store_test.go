package tokenstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, "first"))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	require.NoError(t, s.Save(ctx, "second"))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	require.NoError(t, s.Clear(ctx))
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	// Clearing twice is fine.
	require.NoError(t, s.Clear(ctx))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "token.db"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "abc.def.ghi"))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", got)
}

func TestSQLiteStoreOwnsMigrationsTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, uint(1), s.SchemaVersion())

	var tables []string
	rows, err := s.db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE '%migrations' ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		tables = append(tables, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"tokenstore_schema_migrations"}, tables)

	// Reopening an up-to-date file is a no-op.
	again, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer again.Close()
	assert.Equal(t, uint(1), again.SchemaVersion())
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Kind: KindMemory}, false},
		{"sqlite", Config{Kind: KindSQLite, Path: filepath.Join(t.TempDir(), "t.db")}, false},
		{"sqlite without path", Config{Kind: KindSQLite}, true},
		{"unknown kind", Config{Kind: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, s.Close())
		})
	}
}
