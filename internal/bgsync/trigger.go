package bgsync

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// Trigger raises a connectivity-regained event for a tag and returns an
// id for the event.
type Trigger interface {
	Trigger(ctx context.Context, tag, reason string) (string, error)
}

// DirectTrigger dispatches in the background without durable delivery.
// It is used when the task queue is disabled; a failed run is not retried.
type DirectTrigger struct {
	Dispatcher *Dispatcher
	Lifetime   time.Duration
}

func (t *DirectTrigger) Trigger(_ context.Context, tag, reason string) (string, error) {
	id := uuid.NewString()
	lifetime := t.Lifetime
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), lifetime)
		defer cancel()
		if err := t.Dispatcher.Dispatch(ctx, tag); err != nil {
			log.Printf("[SYNC] Event %s for %s (%s) failed: %v", id, tag, reason, err)
		}
	}()
	return id, nil
}
