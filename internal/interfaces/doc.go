// Package interfaces documents the core abstractions used throughout the daemon.
//
// This package consolidates interface documentation to help contributors find
// extension points and see which concrete types satisfy them.
//
// # Interface Categories
//
// ## Storage Interfaces
//
//   - offline.Storage: Named cache stores (internal/cachestore)
//   - offline.Registry: Installed and active generations (internal/database/generations)
//   - intercept.Writer: Write-back target for network responses (internal/cachestore)
//   - bgsync.DownloadStore: Deferred download tasks (internal/database/downloads)
//   - preferences.SnapshotStore: Last known preferences (internal/database/settings)
//
// ## External Service Interfaces
//
//   - offline.Network / intercept.Network: The reader app origin (internal/upstream)
//   - preferences.RemoteStore: Preference document on the remote API (internal/remoteapi)
//   - reader.ChapterSource: Chapter page lists (internal/remoteapi)
//   - bgsync.Orchestrator: Download requests (internal/remoteapi)
//   - scheduler.Prober: Connectivity probe (internal/remoteapi)
//
// ## Background Work Interfaces
//
//   - bgsync.Handler: Work run when connectivity returns for a tag
//   - bgsync.Trigger: Raises a sync event (durable via internal/tasks, or direct)
//   - notify.Renderer: Displays a notification (websocket hub, log)
//   - reader.ProgressSink: Records page changes (internal/tasks progress queue)
//
// # Adding a New Sync Tag
//
// To run new work when the remote API becomes reachable again:
//
//  1. Implement bgsync.Handler
//
//     type ProgressFlusher struct {
//     store ProgressStore
//     }
//
//     func (f *ProgressFlusher) Sync(ctx context.Context) error
//
//     var _ bgsync.Handler = (*ProgressFlusher)(nil)
//
//  2. Register it in entrypoint.go
//
//     dispatcher.Register("flush-progress", flusher)
//
//  3. Add the tag to CONNECTIVITY_SYNC_TAGS so the monitor raises it
//
// # Adding a New Notification Renderer
//
//  1. Implement notify.Renderer; errors and panics are logged and swallowed
//
//     func (d *DesktopRenderer) Render(ctx context.Context, n notify.Notification) error
//
//  2. Pass it to notify.NewEmitter in entrypoint.go
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
