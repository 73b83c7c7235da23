package preferences

import (
	"context"
	"fmt"
	"log"

	"github.com/mrlokans/mangaslayer/internal/entities"
)

type Source string

const (
	SourceRemote   Source = "remote"
	SourceSnapshot Source = "snapshot"
	SourceDefault  Source = "default"
)

// RemoteStore is the authoritative preference store behind the remote API.
type RemoteStore interface {
	GetPreferences(ctx context.Context) (*PreferenceSet, error)
	SavePreferences(ctx context.Context, prefs PreferenceSet) error
}

// SnapshotStore keeps the last preference document seen locally.
type SnapshotStore interface {
	GetJSON(key string, dst interface{}) (bool, error)
	SetJSON(key string, value interface{}) error
}

// Service resolves preferences with priority: remote store > local snapshot > defaults.
type Service struct {
	remote   RemoteStore
	snapshot SnapshotStore
}

func NewService(remote RemoteStore, snapshot SnapshotStore) *Service {
	return &Service{remote: remote, snapshot: snapshot}
}

// Get returns the current preferences and where they came from.
// It never fails: when nothing else is available the defaults are returned.
func (s *Service) Get(ctx context.Context) (PreferenceSet, Source) {
	prefs, err := s.remote.GetPreferences(ctx)
	if err == nil {
		prefs.Normalize()
		s.remember(*prefs)
		return *prefs, SourceRemote
	}
	log.Printf("[PREFS] Remote preferences unavailable: %v", err)

	var cached PreferenceSet
	found, err := s.snapshot.GetJSON(entities.SettingKeyPreferencesSnapshot, &cached)
	if err != nil {
		log.Printf("[PREFS] Failed to read preferences snapshot: %v", err)
	}
	if found {
		cached.Normalize()
		return cached, SourceSnapshot
	}
	return Defaults(), SourceDefault
}

// Save writes prefs to the remote store and refreshes the local snapshot.
func (s *Service) Save(ctx context.Context, prefs PreferenceSet) error {
	prefs.Normalize()
	if err := s.remote.SavePreferences(ctx, prefs); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	s.remember(prefs)
	return nil
}

// Update applies mutate to the current preferences and saves the result.
func (s *Service) Update(ctx context.Context, mutate func(*PreferenceSet) error) (PreferenceSet, error) {
	prefs, _ := s.Get(ctx)
	if err := mutate(&prefs); err != nil {
		return prefs, err
	}
	if err := s.Save(ctx, prefs); err != nil {
		return prefs, err
	}
	return prefs, nil
}

func (s *Service) remember(prefs PreferenceSet) {
	if err := s.snapshot.SetJSON(entities.SettingKeyPreferencesSnapshot, prefs); err != nil {
		log.Printf("[PREFS] Failed to store preferences snapshot: %v", err)
	}
}
