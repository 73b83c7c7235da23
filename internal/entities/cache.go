package entities

import (
	"time"
)

// CacheGeneration is a named, versioned set of pinned app resources.
// A row exists only once every pinned resource of the generation was stored.
type CacheGeneration struct {
	ID          string     `gorm:"primaryKey;size:128" json:"id"`
	Active      bool       `gorm:"index" json:"active"`
	PinnedCount int        `json:"pinned_count"`
	InstalledAt time.Time  `json:"installed_at"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
}

func (CacheGeneration) TableName() string {
	return "cache_generations"
}

// CacheEntry is one stored response inside a generation. Entries are
// immutable and have no expiry; they go away only with their generation.
type CacheEntry struct {
	GenerationID string    `gorm:"primaryKey;size:128" json:"generation_id"`
	ResourceKey  string    `gorm:"primaryKey;size:1024" json:"resource_key"`
	Status       int       `json:"status"`
	Header       string    `gorm:"type:text" json:"-"`
	Body         []byte    `json:"-"`
	Size         int64     `json:"size"`
	Digest       string    `gorm:"size:64" json:"digest"`
	CreatedAt    time.Time `json:"created_at"`
}

func (CacheEntry) TableName() string {
	return "cache_entries"
}
