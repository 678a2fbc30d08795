package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMigrator_Validation(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("fails with nil database", func(t *testing.T) {
		migrator, err := NewMigrator(nil, "/some/path", logger)
		assert.Nil(t, migrator)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database is required")
	})

	t.Run("fails with nil pool", func(t *testing.T) {
		migrator, err := NewMigrator(&DB{}, "/some/path", logger)
		assert.Nil(t, migrator)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database pool not initialized")
	})

	t.Run("fails with missing directory", func(t *testing.T) {
		db := setupTestDB(t)
		migrator, err := NewMigrator(db, filepath.Join(t.TempDir(), "absent"), logger)
		assert.Nil(t, migrator)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "migrations path validation failed")
	})
}

func TestMigrator_UpDown(t *testing.T) {
	db := setupTestDB(t)
	migrator, err := NewMigrator(db, getMigrationsPath(t), zerolog.Nop())
	require.NoError(t, err)
	defer migrator.Close()

	require.NoError(t, migrator.Up())
	// A second Up is a no-op.
	require.NoError(t, migrator.Up())

	st, err := migrator.Status()
	require.NoError(t, err)
	assert.False(t, st.Dirty)
	assert.Equal(t, uint(2), st.Version)

	require.NoError(t, migrator.Steps(-1))
	v, _, err := migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	require.NoError(t, migrator.Steps(1))
	// Stepping past the last file is a no-op.
	require.NoError(t, migrator.Steps(1))
}

// getMigrationsPath returns the path to the repository's migrations directory.
func getMigrationsPath(t *testing.T) string {
	t.Helper()

	cwd, err := os.Getwd()
	require.NoError(t, err)

	// internal/database -> internal -> project root
	migrationsPath := filepath.Join(cwd, "..", "..", "migrations")
	if _, err := os.Stat(migrationsPath); os.IsNotExist(err) {
		t.Skipf("Skipping test: migrations directory not found at %s", migrationsPath)
	}
	return migrationsPath
}
