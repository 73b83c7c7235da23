package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/mangaslayer/internal/entities"
)

func TestNewDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := NewQuietDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()

	t.Run("migrates all tables", func(t *testing.T) {
		for _, model := range Models() {
			assert.True(t, db.DB.Migrator().HasTable(model))
		}
	})

	t.Run("ping succeeds on open database", func(t *testing.T) {
		assert.NoError(t, db.Ping())
	})

	t.Run("reopen keeps data", func(t *testing.T) {
		require.NoError(t, db.DB.Create(&entities.Setting{Key: "k", Value: "v"}).Error)
		require.NoError(t, db.Close())

		reopened, err := NewQuietDatabase(dbPath)
		require.NoError(t, err)
		defer reopened.Close()

		var setting entities.Setting
		require.NoError(t, reopened.DB.Where("key = ?", "k").First(&setting).Error)
		assert.Equal(t, "v", setting.Value)
	})
}

func TestDatabase_PingAfterClose(t *testing.T) {
	db, err := NewQuietDatabase(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	assert.Error(t, db.Ping())
}
