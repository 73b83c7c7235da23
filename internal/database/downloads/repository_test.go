package downloads

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/mangaslayer/internal/database"
	"github.com/mrlokans/mangaslayer/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	db, err := gorm.Open(sqlite.Open(database.DSN(filepath.Join(t.TempDir(), "downloads.db"))), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.DownloadTask{}))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return NewRepository(db)
}

func TestRepository_Create(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)

	first, created, err := repo.Create(ctx, entities.DownloadKindChapter, "ch-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, entities.DownloadStatusPending, first.Status)

	t.Run("same pending target is reused", func(t *testing.T) {
		again, created, err := repo.Create(ctx, entities.DownloadKindChapter, "ch-1")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, again.ID)
	})

	t.Run("other kind with same id is a new task", func(t *testing.T) {
		manga, created, err := repo.Create(ctx, entities.DownloadKindManga, "ch-1")
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, first.ID, manga.ID)
	})

	t.Run("accepted target gets a fresh task", func(t *testing.T) {
		ok, err := repo.MarkAccepted(ctx, first.ID, "remote-1")
		require.NoError(t, err)
		require.True(t, ok)

		fresh, created, err := repo.Create(ctx, entities.DownloadKindChapter, "ch-1")
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, first.ID, fresh.ID)
	})
}

func TestRepository_Create_ConcurrentSameTarget(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)

	const callers = 16
	ids := make([]string, callers)
	errs := make([]error, callers)
	var createdCount int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task, created, err := repo.Create(ctx, entities.DownloadKindManga, "one-piece")
			errs[i] = err
			if err != nil {
				return
			}
			ids[i] = task.ID
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, 1, createdCount)

	pending, err := repo.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestDownloadTask_OnePendingPerTarget(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)
	now := time.Now()

	insert := func(id string, status entities.DownloadStatus) error {
		return repo.db.WithContext(ctx).Create(&entities.DownloadTask{
			ID: id, Kind: entities.DownloadKindChapter, TargetID: "ch-7",
			Status: status, CreatedAt: now, UpdatedAt: now,
		}).Error
	}

	require.NoError(t, insert("a", entities.DownloadStatusPending))
	assert.Error(t, insert("b", entities.DownloadStatusPending))
	assert.NoError(t, insert("c", entities.DownloadStatusAccepted))
	assert.NoError(t, insert("d", entities.DownloadStatusFailed))
}

func TestRepository_MarkAccepted_Once(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)

	task, _, err := repo.Create(ctx, entities.DownloadKindManga, "m-1")
	require.NoError(t, err)

	ok, err := repo.MarkAccepted(ctx, task.ID, "job-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkAccepted(ctx, task.ID, "job-2")
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.DownloadStatusAccepted, stored.Status)
	assert.Equal(t, "job-1", stored.RemoteID)
	assert.NotNil(t, stored.AcceptedAt)

	pending, err := repo.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRepository_RecordFailure(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)

	task, _, err := repo.Create(ctx, entities.DownloadKindChapter, "ch-9")
	require.NoError(t, err)

	updated, err := repo.RecordFailure(ctx, task.ID, errors.New("connection refused"), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Attempts)
	assert.Equal(t, entities.DownloadStatusPending, updated.Status)
	assert.Equal(t, "connection refused", updated.LastError)

	updated, err = repo.RecordFailure(ctx, task.ID, errors.New("timeout"), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Attempts)
	assert.Equal(t, entities.DownloadStatusFailed, updated.Status)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[entities.DownloadStatusFailed])
	assert.Equal(t, int64(0), stats[entities.DownloadStatusPending])
}

func TestRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)

	for _, id := range []string{"a", "b", "c"} {
		_, _, err := repo.Create(ctx, entities.DownloadKindChapter, id)
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := repo.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
