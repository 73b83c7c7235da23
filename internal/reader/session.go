// Package reader runs playback sessions: timer-driven auto-advance through a
// chapter's pages, tap handling and manual paging.
package reader

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mrlokans/mangaslayer/internal/preferences"
)

// PauseDuration is how long a tap suspends auto-scroll.
const PauseDuration = 2000 * time.Millisecond

var ErrSessionClosed = errors.New("reader session closed")

type State int

const (
	StateManual State = iota
	StateAutoScrolling
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateAutoScrolling:
		return "auto_scrolling"
	case StatePaused:
		return "paused"
	default:
		return "manual"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "manual":
		*s = StateManual
	case "auto_scrolling":
		*s = StateAutoScrolling
	case "paused":
		*s = StatePaused
	default:
		return fmt.Errorf("unknown reader state %q", text)
	}
	return nil
}

// Interval returns the auto-scroll tick period for speed.
func Interval(speed int) time.Duration {
	return time.Duration(3000-200*preferences.ClampSpeed(speed)) * time.Millisecond
}

// Snapshot is a point-in-time copy of a session's state.
type Snapshot struct {
	ID         string     `json:"id"`
	MangaID    string     `json:"manga_id"`
	ChapterID  string     `json:"chapter_id"`
	State      State      `json:"state"`
	Page       int        `json:"page"`
	PageCount  int        `json:"page_count"`
	PageURL    string     `json:"page_url,omitempty"`
	Speed      int        `json:"speed"`
	PauseOnTap bool       `json:"pause_on_tap"`
	Direction  string     `json:"reading_direction"`
	Fullscreen bool       `json:"fullscreen"`
	ResumeAt   *time.Time `json:"resume_at,omitempty"`
}

// PageObserver is told about every page change. It runs outside the
// session lock and may call back into the session, except for Close.
// Nothing is delivered once the session is closed.
type PageObserver func(Snapshot)

// SessionOptions seeds a new session.
type SessionOptions struct {
	ID         string
	MangaID    string
	ChapterID  string
	Pages      []string
	AutoScroll preferences.AutoScroll
	Direction  string
	Clock      Clock
	OnPage     PageObserver
}

// Session is one open chapter. Ticks, taps and setting changes are
// serialized behind mu. Every scheduled callback carries the token that was
// current when it was scheduled; bumping the token revokes it.
type Session struct {
	mu sync.Mutex
	// notifyMu orders page callbacks and lets Close wait for one in flight.
	notifyMu sync.Mutex

	id        string
	mangaID   string
	chapterID string
	clock     Clock
	onPage    PageObserver

	pages      []string
	index      int
	state      State
	speed      int
	pauseOnTap bool
	direction  string
	fullscreen bool
	resumeAt   time.Time

	token  uint64
	timer  Timer
	closed bool
}

// NewSession opens a session in Manual and starts auto-scroll when the
// stored preference asks for it.
func NewSession(opts SessionOptions) *Session {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	direction := opts.Direction
	if direction != preferences.DirectionLTR {
		direction = preferences.DirectionRTL
	}

	s := &Session{
		id:         opts.ID,
		mangaID:    opts.MangaID,
		chapterID:  opts.ChapterID,
		clock:      clock,
		onPage:     opts.OnPage,
		pages:      append([]string(nil), opts.Pages...),
		state:      StateManual,
		speed:      preferences.ClampSpeed(opts.AutoScroll.Speed),
		pauseOnTap: opts.AutoScroll.PauseOnTap,
		direction:  direction,
	}

	if opts.AutoScroll.Enabled {
		s.mu.Lock()
		s.startAutoScroll()
		s.mu.Unlock()
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// SetAutoScroll turns auto-advance on or off. Enabling while already
// scrolling or paused changes nothing.
func (s *Session) SetAutoScroll(enabled bool) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrSessionClosed
	}

	switch {
	case enabled && s.state == StateManual:
		s.startAutoScroll()
	case !enabled && s.state != StateManual:
		s.stopAutoScroll()
	}
	return s.snapshot(), nil
}

// SetSpeed clamps speed into range. A running tick is replaced with one at
// the new interval; the current page does not move.
func (s *Session) SetSpeed(speed int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrSessionClosed
	}

	s.speed = preferences.ClampSpeed(speed)
	if s.state == StateAutoScrolling {
		s.schedule(Interval(s.speed), s.tick)
	}
	return s.snapshot(), nil
}

func (s *Session) SetPauseOnTap(pause bool) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrSessionClosed
	}
	s.pauseOnTap = pause
	return s.snapshot(), nil
}

func (s *Session) SetFullscreen(on bool) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrSessionClosed
	}
	s.fullscreen = on
	return s.snapshot(), nil
}

func (s *Session) ToggleFullscreen() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrSessionClosed
	}
	s.fullscreen = !s.fullscreen
	return s.snapshot(), nil
}

// SetPages replaces the page list, clamping the current page into it.
func (s *Session) SetPages(pages []string) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, ErrSessionClosed
	}

	before := s.index
	s.pages = append([]string(nil), pages...)
	s.clampIndex()
	snap := s.snapshot()
	s.mu.Unlock()

	if snap.Page != before {
		s.notify(snap)
	}
	return snap, nil
}

// Tap handles a tap at horizontal position x on a surface width wide.
// While auto-scrolling with pause-on-tap the tap pauses; while paused it
// restarts the countdown. Any other tap pages by screen third.
func (s *Session) Tap(x, width float64) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, ErrSessionClosed
	}

	before := s.index
	switch {
	case s.state == StateAutoScrolling && s.pauseOnTap, s.state == StatePaused:
		s.pause()
	default:
		s.page(x, width)
	}
	snap := s.snapshot()
	s.mu.Unlock()

	if snap.Page != before {
		s.notify(snap)
	}
	return snap, nil
}

// Close cancels any pending timer. No callback runs after Close returns:
// a page callback already running is waited for, so OnPage must not call
// Close on its own session.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cancel()
	s.mu.Unlock()

	// wait out a callback in flight
	s.notifyMu.Lock()
	s.notifyMu.Unlock() //nolint:staticcheck
}

func (s *Session) startAutoScroll() {
	s.state = StateAutoScrolling
	s.resumeAt = time.Time{}
	s.schedule(Interval(s.speed), s.tick)
}

func (s *Session) stopAutoScroll() {
	s.cancel()
	s.state = StateManual
	s.resumeAt = time.Time{}
}

func (s *Session) pause() {
	s.state = StatePaused
	s.resumeAt = s.clock.Now().Add(PauseDuration)
	s.schedule(PauseDuration, s.resume)
}

func (s *Session) page(x, width float64) {
	if width <= 0 || len(s.pages) == 0 {
		return
	}

	forward, backward := x >= width*2/3, x < width/3
	if s.direction == preferences.DirectionLTR {
		forward, backward = backward, forward
	}
	switch {
	case forward && s.index+1 < len(s.pages):
		s.index++
	case backward && s.index > 0:
		s.index--
	}
}

// tick runs with mu held and reports whether the page moved.
func (s *Session) tick() bool {
	if s.index+1 >= len(s.pages) {
		s.stopAutoScroll()
		return false
	}
	s.index++
	s.schedule(Interval(s.speed), s.tick)
	return true
}

func (s *Session) resume() bool {
	s.startAutoScroll()
	return false
}

// schedule replaces the pending timer with fn after d.
func (s *Session) schedule(d time.Duration, fn func() bool) {
	s.cancel()
	token := s.token
	s.timer = s.clock.AfterFunc(d, func() { s.fire(token, fn) })
}

func (s *Session) cancel() {
	s.token++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) fire(token uint64, fn func() bool) {
	s.mu.Lock()
	if s.closed || token != s.token {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	moved := fn()
	snap := s.snapshot()
	s.mu.Unlock()

	if moved {
		s.notify(snap)
	}
}

func (s *Session) notify(snap Snapshot) {
	if s.onPage == nil {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	s.onPage(snap)
}

func (s *Session) clampIndex() {
	switch {
	case len(s.pages) == 0:
		s.index = 0
	case s.index >= len(s.pages):
		s.index = len(s.pages) - 1
	case s.index < 0:
		s.index = 0
	}
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		ID:         s.id,
		MangaID:    s.mangaID,
		ChapterID:  s.chapterID,
		State:      s.state,
		Page:       s.index,
		PageCount:  len(s.pages),
		Speed:      s.speed,
		PauseOnTap: s.pauseOnTap,
		Direction:  s.direction,
		Fullscreen: s.fullscreen,
	}
	if s.index < len(s.pages) {
		snap.PageURL = s.pages[s.index]
	}
	if s.state == StatePaused {
		at := s.resumeAt
		snap.ResumeAt = &at
	}
	return snap
}
