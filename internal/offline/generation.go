package offline

import (
	"context"
	"time"

	"github.com/mrlokans/mangaslayer/internal/cachestore"
)

// Matcher looks up stored responses by resource key.
type Matcher interface {
	Match(ctx context.Context, key string) (*cachestore.Entry, error)
}

// Generation is a read handle to an activated generation.
type Generation struct {
	ID          string
	PinnedCount int
	InstalledAt time.Time
	ActivatedAt time.Time

	bucket Matcher
}

// NewGeneration builds a handle over an arbitrary matcher.
func NewGeneration(id string, m Matcher) *Generation {
	return &Generation{ID: id, bucket: m}
}

func (g *Generation) Match(ctx context.Context, key string) (*cachestore.Entry, error) {
	return g.bucket.Match(ctx, key)
}
