package settings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/mangaslayer/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	dbPath := filepath.Join(t.TempDir(), "settings.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Setting{})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	return NewRepository(db)
}

func TestRepository_SetSetting(t *testing.T) {
	repo := setupTestDB(t)

	t.Run("creates new key", func(t *testing.T) {
		require.NoError(t, repo.SetSetting(entities.SettingKeyConnectivityOnline, "true"))

		setting, err := repo.GetSetting(entities.SettingKeyConnectivityOnline)
		require.NoError(t, err)
		assert.Equal(t, "true", setting.Value)
	})

	t.Run("updates existing key", func(t *testing.T) {
		require.NoError(t, repo.SetSetting(entities.SettingKeyConnectivityOnline, "false"))

		setting, err := repo.GetSetting(entities.SettingKeyConnectivityOnline)
		require.NoError(t, err)
		assert.Equal(t, "false", setting.Value)
	})
}

func TestRepository_GetSetting_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.GetSetting("nonexistent")

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_DeleteSetting(t *testing.T) {
	repo := setupTestDB(t)

	require.NoError(t, repo.SetSetting("to-delete", "value"))
	require.NoError(t, repo.DeleteSetting("to-delete"))

	_, err := repo.GetSetting("to-delete")
	assert.Error(t, err)

	// Deleting a missing key is not an error
	assert.NoError(t, repo.DeleteSetting("nonexistent"))
}

func TestRepository_JSON(t *testing.T) {
	repo := setupTestDB(t)

	type snapshot struct {
		Language string `json:"language"`
		Speed    int    `json:"speed"`
	}

	t.Run("missing key reports not found", func(t *testing.T) {
		var dst snapshot
		found, err := repo.GetJSON(entities.SettingKeyPreferencesSnapshot, &dst)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, repo.SetJSON(entities.SettingKeyPreferencesSnapshot, snapshot{Language: "ar", Speed: 7}))

		var dst snapshot
		found, err := repo.GetJSON(entities.SettingKeyPreferencesSnapshot, &dst)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, snapshot{Language: "ar", Speed: 7}, dst)
	})

	t.Run("corrupt value is an error", func(t *testing.T) {
		require.NoError(t, repo.SetSetting("broken", "{not json"))

		var dst snapshot
		_, err := repo.GetJSON("broken", &dst)
		assert.Error(t, err)
	})
}
