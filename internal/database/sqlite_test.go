package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDB_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "turns.db")

	db, err := InitDB(path)
	require.NoError(t, err)
	defer db.Close()

	var name string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='turns'").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "turns", name)
}

func TestInitDB_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turns.db")

	first, err := InitDB(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := InitDB(path)
	require.NoError(t, err)
	defer second.Close()

	_, err = second.Exec(`INSERT INTO turns (id, role, mode, status, started_at) VALUES ('t', 'child', 'streamed', 'ok', CURRENT_TIMESTAMP)`)
	assert.NoError(t, err)
}
