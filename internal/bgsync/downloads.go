package bgsync

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mrlokans/mangaslayer/internal/entities"
	"github.com/mrlokans/mangaslayer/internal/remoteapi"
)

// DownloadStore tracks deferred download tasks.
type DownloadStore interface {
	ListPending(ctx context.Context) ([]entities.DownloadTask, error)
	MarkAccepted(ctx context.Context, id, remoteID string) (bool, error)
	RecordFailure(ctx context.Context, id string, cause error, maxAttempts int) (*entities.DownloadTask, error)
}

// Orchestrator starts downloads on the backend.
type Orchestrator interface {
	RequestDownload(ctx context.Context, kind entities.DownloadKind, targetID, taskID string) (*remoteapi.DownloadAck, error)
}

// DownloadResumer replays pending download tasks. Each task is sent at most
// until the orchestrator accepts it; accepted tasks are never sent again,
// so redelivering the event does not request a finished chapter twice.
type DownloadResumer struct {
	store        DownloadStore
	orchestrator Orchestrator
	maxAttempts  int
}

func NewDownloadResumer(store DownloadStore, orchestrator Orchestrator, maxAttempts int) *DownloadResumer {
	return &DownloadResumer{store: store, orchestrator: orchestrator, maxAttempts: maxAttempts}
}

func (r *DownloadResumer) Sync(ctx context.Context) error {
	pending, err := r.store.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("list pending downloads: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	var (
		errs     []error
		accepted int
		dropped  int
	)
	for _, task := range pending {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if task.IsAccepted() {
			continue
		}

		ack, err := r.orchestrator.RequestDownload(ctx, task.Kind, task.TargetID, task.ID)
		if err != nil {
			limit := r.maxAttempts
			if permanent(err) {
				limit = 1
			}
			updated, recErr := r.store.RecordFailure(ctx, task.ID, err, limit)
			if recErr != nil {
				errs = append(errs, fmt.Errorf("record failure of %s: %w", task.ID, recErr))
				continue
			}
			if updated.Status == entities.DownloadStatusFailed {
				log.Printf("[SYNC] Giving up on %s download %s after %d attempts: %v",
					task.Kind, task.TargetID, updated.Attempts, err)
				dropped++
				continue
			}
			errs = append(errs, fmt.Errorf("%s %s: %w", task.Kind, task.TargetID, err))
			continue
		}

		if _, err := r.store.MarkAccepted(ctx, task.ID, ack.RemoteID()); err != nil {
			errs = append(errs, fmt.Errorf("mark %s accepted: %w", task.ID, err))
			continue
		}
		accepted++
	}

	log.Printf("[SYNC] Downloads resumed: %d accepted, %d dropped, %d pending", accepted, dropped, len(errs))
	return errors.Join(errs...)
}

// permanent reports whether retrying the request can never succeed.
func permanent(err error) bool {
	if errors.Is(err, remoteapi.ErrNotFound) {
		return true
	}
	var statusErr *remoteapi.StatusError
	return errors.As(err, &statusErr) && !statusErr.Transient()
}
