package reader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/mrlokans/mangaslayer/internal/preferences"
	"github.com/mrlokans/mangaslayer/internal/remoteapi"
)

var (
	ErrSessionNotFound = errors.New("reader session not found")
	ErrNoPages         = errors.New("chapter has no pages")
)

// ChapterSource fetches chapter page lists.
type ChapterSource interface {
	GetChapter(ctx context.Context, chapterID string) (*remoteapi.Chapter, error)
}

// PreferenceSource resolves the reader's auto-scroll settings.
type PreferenceSource interface {
	Get(ctx context.Context) (preferences.PreferenceSet, preferences.Source)
}

// ProgressSink records that the reader reached a page.
type ProgressSink interface {
	RecordProgress(p remoteapi.Progress) error
}

// Manager owns the open playback sessions. Each owner (a browser session)
// holds at most one: opening a new chapter discards the previous one.
type Manager struct {
	chapters ChapterSource
	prefs    PreferenceSource
	progress ProgressSink
	clock    Clock

	mu       sync.Mutex
	sessions map[string]*Session
	owners   map[string]string
}

type ManagerOption func(*Manager)

// WithProgressSink reports every page change to sink.
func WithProgressSink(sink ProgressSink) ManagerOption {
	return func(m *Manager) { m.progress = sink }
}

func WithManagerClock(clock Clock) ManagerOption {
	return func(m *Manager) { m.clock = clock }
}

func NewManager(chapters ChapterSource, prefs PreferenceSource, opts ...ManagerOption) *Manager {
	m := &Manager{
		chapters: chapters,
		prefs:    prefs,
		clock:    SystemClock(),
		sessions: make(map[string]*Session),
		owners:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open starts a session for chapterID on behalf of owner.
func (m *Manager) Open(ctx context.Context, owner, chapterID string) (*Session, error) {
	chapter, err := m.chapters.GetChapter(ctx, chapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chapter %s: %w", chapterID, err)
	}
	if len(chapter.Pages) == 0 {
		return nil, fmt.Errorf("chapter %s: %w", chapterID, ErrNoPages)
	}

	prefs, source := m.prefs.Get(ctx)

	s := NewSession(SessionOptions{
		ID:         uuid.NewString(),
		MangaID:    chapter.MangaID,
		ChapterID:  chapter.ID,
		Pages:      chapter.Pages,
		AutoScroll: prefs.AutoScroll,
		Direction:  prefs.ReadingDirection,
		Clock:      m.clock,
		OnPage:     m.pageChanged,
	})

	m.mu.Lock()
	var previous *Session
	if owner != "" {
		if prevID, ok := m.owners[owner]; ok {
			previous = m.sessions[prevID]
			delete(m.sessions, prevID)
		}
		m.owners[owner] = s.ID()
	}
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	if previous != nil {
		previous.Close()
	}

	log.Printf("[READER] Opened session %s for chapter %s (%d pages, preferences from %s)",
		s.ID(), chapter.ID, len(chapter.Pages), source)
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close discards a session and cancels its timers.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		for owner, sid := range m.owners {
			if sid == id {
				delete(m.owners, owner)
			}
		}
	}
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	log.Printf("[READER] Closed session %s", id)
	return nil
}

// CloseAll discards every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.owners = make(map[string]string)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) pageChanged(snap Snapshot) {
	if m.progress == nil {
		return
	}
	err := m.progress.RecordProgress(remoteapi.Progress{
		MangaID:   snap.MangaID,
		ChapterID: snap.ChapterID,
		Page:      snap.Page,
	})
	if err != nil {
		log.Printf("[READER] Failed to record progress for session %s: %v", snap.ID, err)
	}
}
