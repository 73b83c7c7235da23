package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/mangaslayer/internal/remoteapi"
)

// ProgressReporter stores reading progress on the remote API.
type ProgressReporter interface {
	UpdateReadingProgress(ctx context.Context, p remoteapi.Progress) error
}

// ReportProgressTask delivers one reading position. Positions recorded
// while offline wait in the queue until the remote API is reachable.
type ReportProgressTask struct {
	MangaID   string `json:"manga_id"`
	ChapterID string `json:"chapter_id"`
	Page      int    `json:"page"`
}

// Config returns the queue configuration for progress reports.
func (t ReportProgressTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "report_progress",
		MaxAttempts: 20,
		Backoff:     30 * time.Second,
		Timeout:     30 * time.Second,
		Retention: &backlite.Retention{
			Duration:   time.Hour,
			OnlyFailed: true,
		},
	}
}

// ReportProgressProcessor creates a processor function for ReportProgressTask.
func ReportProgressProcessor(reporter ProgressReporter) backlite.QueueProcessor[ReportProgressTask] {
	return func(ctx context.Context, task ReportProgressTask) error {
		if reporter == nil {
			return fmt.Errorf("progress reporter not configured")
		}
		err := reporter.UpdateReadingProgress(ctx, remoteapi.Progress{
			MangaID:   task.MangaID,
			ChapterID: task.ChapterID,
			Page:      task.Page,
		})
		if err != nil {
			return fmt.Errorf("report progress for %s: %w", task.ChapterID, err)
		}
		return nil
	}
}

// NewReportProgressQueue creates a backlite queue for progress reports.
func NewReportProgressQueue(reporter ProgressReporter) backlite.Queue {
	return backlite.NewQueue(ReportProgressProcessor(reporter))
}

// ProgressQueue records reading positions through the durable queue.
type ProgressQueue struct {
	client *Client
}

func NewProgressQueue(client *Client) *ProgressQueue {
	return &ProgressQueue{client: client}
}

func (q *ProgressQueue) RecordProgress(p remoteapi.Progress) error {
	_, err := q.client.Enqueue(ReportProgressTask{
		MangaID:   p.MangaID,
		ChapterID: p.ChapterID,
		Page:      p.Page,
	})
	return err
}
