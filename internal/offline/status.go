package offline

import (
	"context"
	"fmt"
	"time"
)

type GenerationStatus struct {
	ID          string     `json:"id"`
	Active      bool       `json:"active"`
	PinnedCount int        `json:"pinned_count"`
	Entries     int64      `json:"entries"`
	Bytes       int64      `json:"bytes"`
	InstalledAt time.Time  `json:"installed_at"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
}

type Status struct {
	Ready       bool               `json:"ready"`
	Active      string             `json:"active,omitempty"`
	Generations []GenerationStatus `json:"generations"`
	Stray       []string           `json:"stray,omitempty"`
}

// Status summarizes installed generations and any stores left behind by
// failed deletions or interrupted writes.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	gens, err := m.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	names, err := m.store.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate cache stores: %w", err)
	}

	status := &Status{Generations: make([]GenerationStatus, 0, len(gens))}
	if active := m.Active(); active != nil {
		status.Ready = true
		status.Active = active.ID
	}

	registered := make(map[string]bool, len(gens))
	for _, gen := range gens {
		registered[gen.ID] = true
		count, size, err := m.store.Open(gen.ID).Usage(ctx)
		if err != nil {
			return nil, fmt.Errorf("usage of %s: %w", gen.ID, err)
		}
		status.Generations = append(status.Generations, GenerationStatus{
			ID:          gen.ID,
			Active:      gen.Active,
			PinnedCount: gen.PinnedCount,
			Entries:     count,
			Bytes:       size,
			InstalledAt: gen.InstalledAt,
			ActivatedAt: gen.ActivatedAt,
		})
	}
	for _, name := range names {
		if !registered[name] {
			status.Stray = append(status.Stray, name)
		}
	}
	return status, nil
}
