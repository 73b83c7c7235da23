package tasks

import (
	"context"
)

// SyncTrigger raises sync events through the durable queue.
type SyncTrigger struct {
	client *Client
}

func NewSyncTrigger(client *Client) *SyncTrigger {
	return &SyncTrigger{client: client}
}

func (t *SyncTrigger) Trigger(_ context.Context, tag, reason string) (string, error) {
	return t.client.Enqueue(SyncEventTask{Tag: tag, Reason: reason})
}
