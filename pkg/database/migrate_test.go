package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNames(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_schema.sql", names[0])
}

func TestSchemaCoversTables(t *testing.T) {
	sql, err := migrationsFS.ReadFile("migrations/001_schema.sql")
	require.NoError(t, err)
	for _, table := range []string{"admins", "registrants", "settings", "broadcast_logs"} {
		assert.Contains(t, string(sql), "CREATE TABLE IF NOT EXISTS "+table)
	}
}
