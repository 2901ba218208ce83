package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	t.Run("Invalid Connection", func(t *testing.T) {
		cfg := Config{
			Driver:         DriverMySQL,
			Host:           "localhost",
			Port:           9999, // Unused port
			User:           "root",
			Password:       "wrongpassword",
			Name:           "chunk_mender",
			TimeoutSeconds: 1,
		}

		db, err := Connect(cfg)
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("Disabled", func(t *testing.T) {
		for _, driver := range []string{"", DriverNone} {
			db, err := Connect(Config{Driver: driver})
			assert.ErrorIs(t, err, ErrDisabled)
			assert.Nil(t, db)
		}
	})

	t.Run("UnknownDriver", func(t *testing.T) {
		db, err := Connect(Config{Driver: "postgres"})
		assert.ErrorContains(t, err, "unsupported database driver")
		assert.Nil(t, db)
	})

	t.Run("SQLiteMemory", func(t *testing.T) {
		db, err := Connect(Config{Driver: DriverSQLite, Path: ":memory:"})
		require.NoError(t, err)
		assert.Equal(t, "sqlite", db.Dialector.Name())
		assert.NoError(t, Close(db))
	})

	t.Run("SQLiteFile", func(t *testing.T) {
		db, err := Connect(Config{Driver: DriverSQLite, Path: t.TempDir() + "/journal.db"})
		require.NoError(t, err)
		assert.NoError(t, Close(db))
	})
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.False(t, Config{Driver: DriverNone}.Enabled())
	assert.True(t, Config{Driver: DriverSQLite}.Enabled())
	assert.True(t, Config{Driver: DriverMySQL}.Enabled())
}
