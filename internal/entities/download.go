package entities

import (
	"time"
)

type DownloadKind string

const (
	DownloadKindManga   DownloadKind = "manga"
	DownloadKindChapter DownloadKind = "chapter"
)

type DownloadStatus string

const (
	DownloadStatusPending  DownloadStatus = "pending"
	DownloadStatusAccepted DownloadStatus = "accepted"
	DownloadStatusFailed   DownloadStatus = "failed"
)

// DownloadTask is a download the reader asked for while the orchestrator may
// be unreachable. The ID is the idempotency key used when the task is resumed.
// At most one task per target is pending at a time.
type DownloadTask struct {
	ID         string         `gorm:"primaryKey;size:36" json:"id"`
	Kind       DownloadKind   `gorm:"size:16;index:idx_download_target;uniqueIndex:idx_download_pending,where:status = 'pending'" json:"kind"`
	TargetID   string         `gorm:"size:255;index:idx_download_target;uniqueIndex:idx_download_pending,where:status = 'pending'" json:"target_id"`
	Status     DownloadStatus `gorm:"size:16;index" json:"status"`
	Attempts   int            `json:"attempts"`
	LastError  string         `gorm:"type:text" json:"last_error,omitempty"`
	RemoteID   string         `gorm:"size:255" json:"remote_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	AcceptedAt *time.Time     `json:"accepted_at,omitempty"`
}

func (DownloadTask) TableName() string {
	return "download_tasks"
}

func (t *DownloadTask) IsAccepted() bool {
	return t.Status == DownloadStatusAccepted
}
