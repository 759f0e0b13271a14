package database_test

import (
	"path/filepath"
	"testing"

	"github.com/Kyz7/console/internal/audit"
	"github.com/Kyz7/console/internal/config"
	"github.com/Kyz7/console/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	t.Run("Success - SQLite file database migrates", func(t *testing.T) {
		cfg := &config.Config{DBDriver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "console.db")}

		db, err := database.Connect(cfg)
		require.NoError(t, err)
		require.NoError(t, database.Migrate(db))
		assert.True(t, db.Migrator().HasTable(&audit.Entry{}))
	})

	t.Run("Error - Unsupported driver", func(t *testing.T) {
		_, err := database.Connect(&config.Config{DBDriver: "oracle"})
		assert.Error(t, err)
	})
}
