package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableNames(t *testing.T, d *DB) []string {
	t.Helper()
	rows, err := d.Query(`SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestOpenMemorySharesOneDatabase(t *testing.T) {
	d, err := OpenMemory()
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, ":memory:", d.Path())
	assert.Subset(t, tableNames(t, d), []string{"chatbot_lookups", "kv", "visitors"})

	_, err = d.Exec(`INSERT INTO kv (key, value, updated_at) VALUES ('k', 'v', '2024-01-01 00:00:00')`)
	require.NoError(t, err)
	var v string
	require.NoError(t, d.QueryRow(`SELECT value FROM kv WHERE key = 'k'`).Scan(&v))
	assert.Equal(t, "v", v)
}

func TestOpenCreatesDirectoryAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "folio.db")

	d, err := Open(path)
	require.NoError(t, err)
	_, err = d.Exec(`INSERT INTO kv (key, value, updated_at) VALUES ('theme', 'dark', '2024-01-01 00:00:00')`)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	again, err := Open(path)
	require.NoError(t, err)
	defer again.Close()

	var v string
	require.NoError(t, again.QueryRow(`SELECT value FROM kv WHERE key = 'theme'`).Scan(&v))
	assert.Equal(t, "dark", v)
}
