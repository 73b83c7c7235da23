package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/mangaslayer/internal/bgsync"
	"github.com/mrlokans/mangaslayer/internal/cachestore"
	"github.com/mrlokans/mangaslayer/internal/database/downloads"
	"github.com/mrlokans/mangaslayer/internal/database/generations"
	"github.com/mrlokans/mangaslayer/internal/database/settings"
	"github.com/mrlokans/mangaslayer/internal/http"
	"github.com/mrlokans/mangaslayer/internal/intercept"
	"github.com/mrlokans/mangaslayer/internal/notify"
	"github.com/mrlokans/mangaslayer/internal/offline"
	"github.com/mrlokans/mangaslayer/internal/preferences"
	"github.com/mrlokans/mangaslayer/internal/reader"
	"github.com/mrlokans/mangaslayer/internal/remoteapi"
	"github.com/mrlokans/mangaslayer/internal/scheduler"
	"github.com/mrlokans/mangaslayer/internal/tasks"
	"github.com/mrlokans/mangaslayer/internal/upstream"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ offline.Storage = (*cachestore.Store)(nil)
var _ offline.Registry = (*generations.Repository)(nil)
var _ intercept.Writer = (*cachestore.Store)(nil)

var _ http.DownloadStore = (*downloads.Repository)(nil)
var _ bgsync.DownloadStore = (*downloads.Repository)(nil)

var _ preferences.SnapshotStore = (*settings.Repository)(nil)
var _ scheduler.StateStore = (*settings.Repository)(nil)

// =============================================================================
// External Services
// =============================================================================

var _ offline.Network = (*upstream.Client)(nil)
var _ intercept.Network = (*upstream.Client)(nil)

var _ preferences.RemoteStore = (*remoteapi.Client)(nil)
var _ reader.ChapterSource = (*remoteapi.Client)(nil)
var _ bgsync.Orchestrator = (*remoteapi.Client)(nil)
var _ tasks.ProgressReporter = (*remoteapi.Client)(nil)
var _ scheduler.Prober = (*remoteapi.Client)(nil)

// =============================================================================
// Cache and Interception
// =============================================================================

var _ intercept.Generations = (*offline.Manager)(nil)
var _ http.CacheLifecycle = (*offline.Manager)(nil)
var _ http.Fetcher = (*intercept.Router)(nil)

// =============================================================================
// Background Sync
// =============================================================================

var _ bgsync.Handler = (*bgsync.DownloadResumer)(nil)
var _ bgsync.Trigger = (*bgsync.DirectTrigger)(nil)
var _ bgsync.Trigger = (*tasks.SyncTrigger)(nil)
var _ tasks.SyncDispatcher = (*bgsync.Dispatcher)(nil)
var _ http.TagRegistry = (*bgsync.Dispatcher)(nil)
var _ http.TaskStatusReader = (*tasks.Client)(nil)
var _ http.ConnectivityReporter = (*scheduler.ConnectivityMonitor)(nil)

// =============================================================================
// Notifications, Preferences, Playback
// =============================================================================

var _ notify.Renderer = (*notify.Hub)(nil)
var _ http.PushHandler = (*notify.Emitter)(nil)

var _ reader.PreferenceSource = (*preferences.Service)(nil)
var _ http.PreferenceService = (*preferences.Service)(nil)

var _ reader.ProgressSink = (*tasks.ProgressQueue)(nil)
var _ http.ReaderSessions = (*reader.Manager)(nil)
