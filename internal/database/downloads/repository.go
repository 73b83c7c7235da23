// Package downloads provides database operations for deferred download tasks.
//
// Tasks are recorded while the orchestrator may be unreachable and are
// replayed by the background sync dispatcher. The task ID is the
// idempotency key: a task that was accepted once is never sent again.
package downloads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/mangaslayer/internal/entities"
)

const createAttempts = 3

// Repository handles download task database operations.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository creates a new downloads repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Create records a pending task for the target. When a pending task for the
// same target already exists it is returned instead and created is false.
// The insert and the conflict check are one statement, so concurrent calls
// for one target all get the same task.
func (r *Repository) Create(ctx context.Context, kind entities.DownloadKind, targetID string) (task *entities.DownloadTask, created bool, err error) {
	for attempt := 0; attempt < createAttempts; attempt++ {
		now := r.now()
		candidate := &entities.DownloadTask{
			ID:        uuid.NewString(),
			Kind:      kind,
			TargetID:  targetID,
			Status:    entities.DownloadStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(candidate)
		if res.Error != nil {
			return nil, false, res.Error
		}
		if res.RowsAffected > 0 {
			return candidate, true, nil
		}

		var existing entities.DownloadTask
		err := r.db.WithContext(ctx).
			Where("kind = ? AND target_id = ? AND status = ?", kind, targetID, entities.DownloadStatusPending).
			First(&existing).Error
		if err == nil {
			return &existing, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
		// settled between the insert and the lookup
	}
	return nil, false, fmt.Errorf("create download task for %s %s: pending task kept changing", kind, targetID)
}

// Get returns a task by id or gorm.ErrRecordNotFound.
func (r *Repository) Get(ctx context.Context, id string) (*entities.DownloadTask, error) {
	var task entities.DownloadTask
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List returns the most recent tasks.
func (r *Repository) List(ctx context.Context, limit int) ([]entities.DownloadTask, error) {
	var tasks []entities.DownloadTask
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&tasks).Error
	return tasks, err
}

// ListPending returns tasks still waiting for the orchestrator, oldest first.
func (r *Repository) ListPending(ctx context.Context) ([]entities.DownloadTask, error) {
	var tasks []entities.DownloadTask
	err := r.db.WithContext(ctx).
		Where("status = ?", entities.DownloadStatusPending).
		Order("created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

// MarkAccepted records the orchestrator acknowledgement. Only pending tasks
// transition; the returned bool is false when the task was already settled.
func (r *Repository) MarkAccepted(ctx context.Context, id, remoteID string) (bool, error) {
	now := r.now()
	res := r.db.WithContext(ctx).Model(&entities.DownloadTask{}).
		Where("id = ? AND status = ?", id, entities.DownloadStatusPending).
		Updates(map[string]interface{}{
			"status":      entities.DownloadStatusAccepted,
			"remote_id":   remoteID,
			"accepted_at": now,
			"updated_at":  now,
			"last_error":  "",
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RecordFailure increments the attempt counter. Once maxAttempts is reached
// the task is marked failed and is no longer replayed. maxAttempts <= 0
// means unlimited.
func (r *Repository) RecordFailure(ctx context.Context, id string, cause error, maxAttempts int) (*entities.DownloadTask, error) {
	var task entities.DownloadTask
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&task).Error; err != nil {
			return err
		}
		if task.Status != entities.DownloadStatusPending {
			return nil
		}
		task.Attempts++
		if cause != nil {
			task.LastError = cause.Error()
		}
		if maxAttempts > 0 && task.Attempts >= maxAttempts {
			task.Status = entities.DownloadStatusFailed
		}
		task.UpdatedAt = r.now()
		return tx.Save(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Stats counts tasks per status.
func (r *Repository) Stats(ctx context.Context) (map[entities.DownloadStatus]int64, error) {
	var rows []struct {
		Status entities.DownloadStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&entities.DownloadTask{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := map[entities.DownloadStatus]int64{
		entities.DownloadStatusPending:  0,
		entities.DownloadStatusAccepted: 0,
		entities.DownloadStatusFailed:   0,
	}
	for _, row := range rows {
		stats[row.Status] = row.Count
	}
	return stats, nil
}
