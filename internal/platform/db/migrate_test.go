package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"002_appointments.sql": "CREATE TABLE appointments (id UUID PRIMARY KEY);",
		"001_users.sql":        "CREATE TABLE users (id UUID PRIMARY KEY);",
		"notes.txt":            "not a migration",
		"README.sql":           "no numeric prefix",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	require.NoError(t, err)

	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "001_users.sql", migrations[0].Name)
	assert.Equal(t, 2, migrations[1].Version)
	assert.Contains(t, migrations[1].SQL, "appointments")
}

func TestLoadMigrationsMissingDir(t *testing.T) {
	m := NewMigrator(nil, "/does/not/exist")
	_, err := m.LoadMigrations()
	assert.Error(t, err)
}
