package http

import (
	"context"
	"net/http"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/mangaslayer/internal/auth"
	"github.com/mrlokans/mangaslayer/internal/bgsync"
	"github.com/mrlokans/mangaslayer/internal/database"
	"github.com/mrlokans/mangaslayer/internal/entities"
	"github.com/mrlokans/mangaslayer/internal/intercept"
	"github.com/mrlokans/mangaslayer/internal/notify"
	"github.com/mrlokans/mangaslayer/internal/offline"
	"github.com/mrlokans/mangaslayer/internal/preferences"
	"github.com/mrlokans/mangaslayer/internal/reader"
	"github.com/mrlokans/mangaslayer/internal/scheduler"
)

// CacheLifecycle installs and activates cache generations.
type CacheLifecycle interface {
	Ready() bool
	Status(ctx context.Context) (*offline.Status, error)
	Install(ctx context.Context, generationID string, pinned []string) error
	Activate(ctx context.Context, generationID string) (*offline.ActivationReport, error)
	Deploy(ctx context.Context, generationID string, pinned []string) (*offline.ActivationReport, error)
}

// Fetcher serves app resources cache-first.
type Fetcher interface {
	Fetch(req *http.Request) (*intercept.Response, error)
}

// TagRegistry lists the sync tags that have a handler.
type TagRegistry interface {
	Tags() []string
}

type PushHandler interface {
	HandlePush(ctx context.Context, payload []byte) notify.Notification
}

type PreferenceService interface {
	Get(ctx context.Context) (preferences.PreferenceSet, preferences.Source)
	Update(ctx context.Context, mutate func(*preferences.PreferenceSet) error) (preferences.PreferenceSet, error)
}

type DownloadStore interface {
	Create(ctx context.Context, kind entities.DownloadKind, targetID string) (*entities.DownloadTask, bool, error)
	List(ctx context.Context, limit int) ([]entities.DownloadTask, error)
	Stats(ctx context.Context) (map[entities.DownloadStatus]int64, error)
}

type ReaderSessions interface {
	Open(ctx context.Context, owner, chapterID string) (*reader.Session, error)
	Get(id string) (*reader.Session, error)
	Close(id string) error
}

type TaskStatusReader interface {
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

type ConnectivityReporter interface {
	Status() scheduler.ConnectivityStatus
	RunNow()
}

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. Optional dependencies may be nil; their
// routes are then not registered.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Version  string

	// Offline cache
	Cache           CacheLifecycle
	Fetcher         Fetcher
	CacheGeneration string
	PinnedResources []string

	// Background sync
	Trigger      bgsync.Trigger
	Tags         TagRegistry
	Connectivity ConnectivityReporter
	TaskStatus   TaskStatusReader

	// Notifications
	Push PushHandler
	Hub  *notify.Hub

	// Reader
	Preferences PreferenceService
	Downloads   DownloadStore
	Sessions    ReaderSessions

	// Browser sessions and CSRF
	SessionManager *auth.SessionManager
	CSRFSecret     []byte
	SecureCookies  bool
	APIToken       string
}
