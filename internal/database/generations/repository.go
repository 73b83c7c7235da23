// Package generations provides database operations for the offline cache
// generation registry.
//
// A generation row is written by the cache store in the same transaction as
// the generation's entries, so a row here always means "fully installed".
// This repository only reads the registry and moves the active flag.
package generations

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/mangaslayer/internal/entities"
)

// Repository handles cache generation database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new generations repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns an installed generation or gorm.ErrRecordNotFound.
func (r *Repository) Get(ctx context.Context, id string) (*entities.CacheGeneration, error) {
	var gen entities.CacheGeneration
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&gen).Error; err != nil {
		return nil, err
	}
	return &gen, nil
}

// GetActive returns the active generation, or nil when nothing was activated yet.
func (r *Repository) GetActive(ctx context.Context) (*entities.CacheGeneration, error) {
	var gen entities.CacheGeneration
	err := r.db.WithContext(ctx).Where("active = ?", true).First(&gen).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &gen, nil
}

// List returns all installed generations, newest first.
func (r *Repository) List(ctx context.Context) ([]entities.CacheGeneration, error) {
	var gens []entities.CacheGeneration
	err := r.db.WithContext(ctx).Order("installed_at DESC").Find(&gens).Error
	return gens, err
}

// SetActive marks id as the only active generation.
// Returns gorm.ErrRecordNotFound when id is not installed.
func (r *Repository) SetActive(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entities.CacheGeneration{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{"active": true, "activated_at": at})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&entities.CacheGeneration{}).
			Where("id <> ? AND active = ?", id, true).
			Update("active", false).Error
	})
}
