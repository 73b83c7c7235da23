package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/mangaslayer/internal/bgsync"
	"github.com/mrlokans/mangaslayer/internal/remoteapi"
)

func TestDBPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "manga-slayer-tasks.db"), DBPath(filepath.Join("data", "manga-slayer.db")))
}

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	require.NotNil(t, client)

	_, err = os.Stat(filepath.Join(tmpDir, "test-tasks.db"))
	assert.NoError(t, err, "tasks database should be created")

	assert.NoError(t, client.Close())
}

func TestClientStartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"), cfg)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.Start(ctx)
	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()

	assert.True(t, client.Stop(stopCtx), "stop should succeed gracefully")
}

type recordingDispatcher struct {
	tags chan string
	err  error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, tag string) error {
	d.tags <- tag
	return d.err
}

func TestSyncEventQueue_DeliversToDispatcher(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"), cfg)
	require.NoError(t, err)
	defer client.Close()

	dispatcher := &recordingDispatcher{tags: make(chan string, 1)}
	client.Register(NewSyncEventQueue(dispatcher))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	id, err := client.Enqueue(SyncEventTask{Tag: bgsync.DownloadMangaTag, Reason: "test"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case tag := <-dispatcher.tags:
		assert.Equal(t, bgsync.DownloadMangaTag, tag)
	case <-time.After(5 * time.Second):
		t.Fatal("sync event was not delivered within timeout")
	}
}

func TestSyncEventProcessor(t *testing.T) {
	ctx := context.Background()

	t.Run("handler failure asks for redelivery", func(t *testing.T) {
		d := &recordingDispatcher{tags: make(chan string, 1), err: errors.New("still offline")}
		err := SyncEventProcessor(d)(ctx, SyncEventTask{Tag: bgsync.DownloadMangaTag})
		assert.Error(t, err)
	})

	t.Run("unknown tag is dropped", func(t *testing.T) {
		err := SyncEventProcessor(bgsync.NewDispatcher())(ctx, SyncEventTask{Tag: "nope"})
		assert.NoError(t, err)
	})

	t.Run("missing dispatcher", func(t *testing.T) {
		assert.Error(t, SyncEventProcessor(nil)(ctx, SyncEventTask{Tag: "x"}))
	})
}

func TestSyncEventTaskConfig(t *testing.T) {
	cfg := SyncEventTask{}.Config()

	assert.Equal(t, "sync_event", cfg.Name)
	assert.Equal(t, deliveryPolicy.MaxRetries, cfg.MaxAttempts)
	assert.Equal(t, deliveryPolicy.TaskTimeout, cfg.Timeout)
	assert.NotNil(t, cfg.Retention)
}

type fakeReporter struct {
	got []remoteapi.Progress
	err error
}

func (f *fakeReporter) UpdateReadingProgress(_ context.Context, p remoteapi.Progress) error {
	f.got = append(f.got, p)
	return f.err
}

func TestReportProgressProcessor(t *testing.T) {
	reporter := &fakeReporter{}
	err := ReportProgressProcessor(reporter)(context.Background(), ReportProgressTask{MangaID: "m", ChapterID: "c", Page: 3})
	require.NoError(t, err)
	assert.Equal(t, []remoteapi.Progress{{MangaID: "m", ChapterID: "c", Page: 3}}, reporter.got)

	reporter.err = errors.New("offline")
	assert.Error(t, ReportProgressProcessor(reporter)(context.Background(), ReportProgressTask{ChapterID: "c"}))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "pending", StatusString(backlite.TaskStatusPending))
	assert.Equal(t, "success", StatusString(backlite.TaskStatusSuccess))
	assert.Equal(t, "not_found", StatusString(backlite.TaskStatusNotFound))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, time.Minute, cfg.RetryDelay)
	assert.Equal(t, 5*time.Minute, cfg.TaskTimeout)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 24*time.Hour, cfg.RetentionDuration)
}
