package bgsync

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/mangaslayer/internal/database"
	"github.com/mrlokans/mangaslayer/internal/database/downloads"
	"github.com/mrlokans/mangaslayer/internal/entities"
	"github.com/mrlokans/mangaslayer/internal/remoteapi"
)

type fakeOrchestrator struct {
	mu       sync.Mutex
	requests map[string]int // task id -> times requested
	fail     map[string]error
}

func newFakeOrchestrator() *fakeOrchestrator {
	return &fakeOrchestrator{requests: map[string]int{}, fail: map[string]error{}}
}

func (o *fakeOrchestrator) RequestDownload(_ context.Context, kind entities.DownloadKind, targetID, taskID string) (*remoteapi.DownloadAck, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests[taskID]++
	if err := o.fail[targetID]; err != nil {
		return nil, err
	}
	return &remoteapi.DownloadAck{Message: "Download started", ChapterID: targetID}, nil
}

func (o *fakeOrchestrator) count(taskID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.requests[taskID]
}

func setupDownloads(t *testing.T) *downloads.Repository {
	t.Helper()
	db, err := database.NewQuietDatabase(filepath.Join(t.TempDir(), "downloads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return downloads.NewRepository(db.DB)
}

func TestDownloadResumer_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := setupDownloads(t)
	orchestrator := newFakeOrchestrator()
	resumer := NewDownloadResumer(repo, orchestrator, 5)

	first, _, err := repo.Create(ctx, entities.DownloadKindChapter, "ch-1")
	require.NoError(t, err)
	second, _, err := repo.Create(ctx, entities.DownloadKindChapter, "ch-2")
	require.NoError(t, err)

	orchestrator.fail["ch-2"] = &remoteapi.StatusError{StatusCode: 503}

	err = resumer.Sync(ctx)
	require.Error(t, err, "pending work asks for redelivery")
	assert.Equal(t, 1, orchestrator.count(first.ID))
	assert.Equal(t, 1, orchestrator.count(second.ID))

	// Redelivery: ch-1 was accepted and must not be requested again.
	delete(orchestrator.fail, "ch-2")
	require.NoError(t, resumer.Sync(ctx))
	assert.Equal(t, 1, orchestrator.count(first.ID))
	assert.Equal(t, 2, orchestrator.count(second.ID))

	// A third delivery has nothing to do.
	require.NoError(t, resumer.Sync(ctx))
	assert.Equal(t, 1, orchestrator.count(first.ID))
	assert.Equal(t, 2, orchestrator.count(second.ID))

	stored, err := repo.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.DownloadStatusAccepted, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
}

func TestDownloadResumer_PermanentFailureIsDropped(t *testing.T) {
	ctx := context.Background()
	repo := setupDownloads(t)
	orchestrator := newFakeOrchestrator()
	orchestrator.fail["gone"] = remoteapi.ErrNotFound
	resumer := NewDownloadResumer(repo, orchestrator, 5)

	task, _, err := repo.Create(ctx, entities.DownloadKindChapter, "gone")
	require.NoError(t, err)

	require.NoError(t, resumer.Sync(ctx))

	stored, err := repo.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.DownloadStatusFailed, stored.Status)
}

func TestDownloadResumer_GivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	repo := setupDownloads(t)
	orchestrator := newFakeOrchestrator()
	orchestrator.fail["m-1"] = &remoteapi.StatusError{StatusCode: 502}
	resumer := NewDownloadResumer(repo, orchestrator, 2)

	task, _, err := repo.Create(ctx, entities.DownloadKindManga, "m-1")
	require.NoError(t, err)

	assert.Error(t, resumer.Sync(ctx))
	assert.NoError(t, resumer.Sync(ctx), "second failure reaches the limit")
	assert.NoError(t, resumer.Sync(ctx))
	assert.Equal(t, 2, orchestrator.count(task.ID))
}

func TestDownloadResumer_ThroughDispatcher(t *testing.T) {
	ctx := context.Background()
	repo := setupDownloads(t)
	orchestrator := newFakeOrchestrator()

	d := NewDispatcher()
	d.Register(DownloadMangaTag, NewDownloadResumer(repo, orchestrator, 5))

	task, _, err := repo.Create(ctx, entities.DownloadKindManga, "m-7")
	require.NoError(t, err)

	require.NoError(t, d.Dispatch(ctx, DownloadMangaTag))
	assert.Equal(t, 1, orchestrator.count(task.ID))
}
