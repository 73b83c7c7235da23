package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/mangaslayer/internal/bgsync"
)

// deliveryPolicy controls how sync events are retried. It is set from the
// daemon configuration before queues are registered.
var deliveryPolicy = DefaultConfig()

// SetDeliveryPolicy applies retry settings to sync event delivery.
// Must be called before NewSyncEventQueue.
func SetDeliveryPolicy(cfg Config) {
	if cfg.MaxRetries > 0 {
		deliveryPolicy.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryDelay > 0 {
		deliveryPolicy.RetryDelay = cfg.RetryDelay
	}
	if cfg.TaskTimeout > 0 {
		deliveryPolicy.TaskTimeout = cfg.TaskTimeout
	}
	if cfg.RetentionDuration > 0 {
		deliveryPolicy.RetentionDuration = cfg.RetentionDuration
	}
}

// SyncDispatcher runs the handler registered for a sync tag.
type SyncDispatcher interface {
	Dispatch(ctx context.Context, tag string) error
}

// SyncEventTask is a connectivity-regained event for one tag. The task
// timeout is the event lifetime; a failed delivery is retried by the queue.
type SyncEventTask struct {
	Tag    string `json:"tag"`
	Reason string `json:"reason,omitempty"`
}

// Config returns the queue configuration for sync events.
func (t SyncEventTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "sync_event",
		MaxAttempts: deliveryPolicy.MaxRetries,
		Backoff:     deliveryPolicy.RetryDelay,
		Timeout:     deliveryPolicy.TaskTimeout,
		Retention: &backlite.Retention{
			Duration:   deliveryPolicy.RetentionDuration,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SyncEventProcessor creates a processor function for SyncEventTask.
func SyncEventProcessor(dispatcher SyncDispatcher) backlite.QueueProcessor[SyncEventTask] {
	return func(ctx context.Context, task SyncEventTask) error {
		if dispatcher == nil {
			return fmt.Errorf("sync dispatcher not configured")
		}

		start := time.Now()
		err := dispatcher.Dispatch(ctx, task.Tag)
		if errors.Is(err, bgsync.ErrUnknownTag) {
			log.Printf("[TASK] Dropping sync event for unknown tag %q", task.Tag)
			return nil
		}
		if err != nil {
			return fmt.Errorf("sync %s: %w", task.Tag, err)
		}

		log.Printf("[TASK] Sync %s (%s) completed in %s", task.Tag, task.Reason, time.Since(start))
		return nil
	}
}

// NewSyncEventQueue creates a backlite queue for sync events.
func NewSyncEventQueue(dispatcher SyncDispatcher) backlite.Queue {
	return backlite.NewQueue(SyncEventProcessor(dispatcher))
}
