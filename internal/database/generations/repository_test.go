package generations

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/mangaslayer/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "generations.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.CacheGeneration{}))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return NewRepository(db), db
}

func seed(t *testing.T, db *gorm.DB, ids ...string) {
	for i, id := range ids {
		require.NoError(t, db.Create(&entities.CacheGeneration{
			ID:          id,
			PinnedCount: 4,
			InstalledAt: time.Now().Add(time.Duration(i) * time.Second),
		}).Error)
	}
}

func TestRepository_GetActive_NoneYet(t *testing.T) {
	repo, db := setupTestDB(t)
	seed(t, db, "manga-slayer-v1")

	active, err := repo.GetActive(context.Background())
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestRepository_SetActive(t *testing.T) {
	ctx := context.Background()
	repo, db := setupTestDB(t)
	seed(t, db, "manga-slayer-v0", "manga-slayer-v1")

	t.Run("activates installed generation", func(t *testing.T) {
		require.NoError(t, repo.SetActive(ctx, "manga-slayer-v0", time.Now()))

		active, err := repo.GetActive(ctx)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, "manga-slayer-v0", active.ID)
		assert.NotNil(t, active.ActivatedAt)
	})

	t.Run("moving the flag deactivates the previous generation", func(t *testing.T) {
		require.NoError(t, repo.SetActive(ctx, "manga-slayer-v1", time.Now()))

		active, err := repo.GetActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, "manga-slayer-v1", active.ID)

		old, err := repo.Get(ctx, "manga-slayer-v0")
		require.NoError(t, err)
		assert.False(t, old.Active)
	})

	t.Run("unknown generation is rejected", func(t *testing.T) {
		err := repo.SetActive(ctx, "manga-slayer-v9", time.Now())
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

		active, err := repo.GetActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, "manga-slayer-v1", active.ID)
	})
}

func TestRepository_List(t *testing.T) {
	repo, db := setupTestDB(t)
	seed(t, db, "a", "b")

	gens, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, gens, 2)
	assert.Equal(t, "b", gens[0].ID)
}
