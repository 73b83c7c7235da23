// Package cachestore is the durable named key/value store that holds offline
// cache generations.
//
// Each store is named after its generation. Entries are written in batches
// that become visible atomically together with the generation registry row,
// so a registered generation is always complete. Bodies are zstd-compressed
// at rest and verified against a blake2b digest on read.
package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/mangaslayer/internal/entities"
)

var (
	ErrNotFound     = errors.New("cache entry not found")
	ErrCorruptEntry = errors.New("cache entry is corrupt")
	ErrRegistered   = errors.New("cache store already registered")
)

// Entry is one stored response.
type Entry struct {
	Key      string
	Status   int
	Header   http.Header
	Body     []byte
	Digest   string
	StoredAt time.Time
}

// Store manages named buckets on top of the daemon database.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open returns a handle to the named store. Nothing is written until PutAll.
func (s *Store) Open(name string) *Bucket {
	return &Bucket{store: s, name: name}
}

// Names lists every store that has a registry row or any entries.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Raw(
		"SELECT id FROM cache_generations UNION SELECT DISTINCT generation_id FROM cache_entries",
	).Scan(&names).Error
	if err != nil {
		return nil, fmt.Errorf("list cache stores: %w", err)
	}
	return names, nil
}

// Delete removes a store and everything in it. The returned bool reports
// whether anything existed under that name.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	var existed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entries := tx.Where("generation_id = ?", name).Delete(&entities.CacheEntry{})
		if entries.Error != nil {
			return entries.Error
		}
		gen := tx.Where("id = ?", name).Delete(&entities.CacheGeneration{})
		if gen.Error != nil {
			return gen.Error
		}
		existed = entries.RowsAffected > 0 || gen.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete cache store %s: %w", name, err)
	}
	return existed, nil
}

// Bucket is a handle to one named store.
type Bucket struct {
	store *Store
	name  string
}

func (b *Bucket) Name() string {
	return b.name
}

// Match returns the entry stored under key, ErrNotFound on a miss, or
// ErrCorruptEntry when the stored bytes fail verification.
func (b *Bucket) Match(ctx context.Context, key string) (*Entry, error) {
	var row entities.CacheEntry
	err := b.store.db.WithContext(ctx).
		Where("generation_id = ? AND resource_key = ?", b.name, key).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("match %s in %s: %w", key, b.name, err)
	}

	body, err := decompress(row.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptEntry, key, err)
	}
	if Digest(body) != row.Digest {
		return nil, fmt.Errorf("%w: %s: digest mismatch", ErrCorruptEntry, key)
	}

	header := http.Header{}
	if row.Header != "" {
		if err := json.Unmarshal([]byte(row.Header), &header); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptEntry, key, err)
		}
	}
	if header == nil {
		header = http.Header{}
	}

	return &Entry{
		Key:      row.ResourceKey,
		Status:   row.Status,
		Header:   header,
		Body:     body,
		Digest:   row.Digest,
		StoredAt: row.CreatedAt,
	}, nil
}

// Put stores a single entry without touching the generation registry.
// An entry already stored under the same key is left as it is.
func (b *Bucket) Put(ctx context.Context, entry Entry) error {
	row, err := b.toRow(entry)
	if err != nil {
		return err
	}
	return b.store.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

// PutAll writes every entry and registers the generation in one transaction.
// Either all of it becomes visible or none of it does. A registered store is
// never written again: PutAll returns ErrRegistered. Unregistered leftovers
// under the same name are replaced.
func (b *Bucket) PutAll(ctx context.Context, entries []Entry) error {
	rows := make([]entities.CacheEntry, 0, len(entries))
	for _, e := range entries {
		row, err := b.toRow(e)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	now := b.store.now()
	return b.store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var registered int64
		if err := tx.Model(&entities.CacheGeneration{}).Where("id = ?", b.name).Count(&registered).Error; err != nil {
			return fmt.Errorf("look up generation %s: %w", b.name, err)
		}
		if registered > 0 {
			return fmt.Errorf("%w: %s", ErrRegistered, b.name)
		}
		if err := tx.Where("generation_id = ?", b.name).Delete(&entities.CacheEntry{}).Error; err != nil {
			return fmt.Errorf("clear leftovers in %s: %w", b.name, err)
		}

		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("write entries to %s: %w", b.name, err)
			}
		}
		gen := entities.CacheGeneration{
			ID:          b.name,
			PinnedCount: len(rows),
			InstalledAt: now,
		}
		if err := tx.Create(&gen).Error; err != nil {
			return fmt.Errorf("register generation %s: %w", b.name, err)
		}
		return nil
	})
}

// Keys lists resource keys stored in the bucket.
func (b *Bucket) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := b.store.db.WithContext(ctx).Model(&entities.CacheEntry{}).
		Where("generation_id = ?", b.name).
		Order("resource_key").
		Pluck("resource_key", &keys).Error
	return keys, err
}

// Usage reports entry count and total uncompressed size of the bucket.
func (b *Bucket) Usage(ctx context.Context) (count int64, size int64, err error) {
	var row struct {
		Count int64
		Size  int64
	}
	err = b.store.db.WithContext(ctx).Model(&entities.CacheEntry{}).
		Select("COUNT(*) AS count, COALESCE(SUM(size), 0) AS size").
		Where("generation_id = ?", b.name).
		Scan(&row).Error
	return row.Count, row.Size, err
}

func (b *Bucket) toRow(e Entry) (entities.CacheEntry, error) {
	header, err := json.Marshal(e.Header)
	if err != nil {
		return entities.CacheEntry{}, fmt.Errorf("encode header for %s: %w", e.Key, err)
	}
	status := e.Status
	if status == 0 {
		status = http.StatusOK
	}
	return entities.CacheEntry{
		GenerationID: b.name,
		ResourceKey:  e.Key,
		Status:       status,
		Header:       string(header),
		Body:         compress(e.Body),
		Size:         int64(len(e.Body)),
		Digest:       Digest(e.Body),
		CreatedAt:    b.store.now(),
	}, nil
}
