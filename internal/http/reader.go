package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/mangaslayer/internal/auth"
	"github.com/mrlokans/mangaslayer/internal/reader"
	"github.com/mrlokans/mangaslayer/internal/remoteapi"
)

// ReaderController drives playback sessions for the reader UI.
type ReaderController struct {
	sessions ReaderSessions
	sm       *auth.SessionManager
}

func NewReaderController(sessions ReaderSessions, sm *auth.SessionManager) *ReaderController {
	return &ReaderController{sessions: sessions, sm: sm}
}

type OpenSessionRequest struct {
	ChapterID string `json:"chapter_id" binding:"required"`
}

type TapRequest struct {
	X     float64 `json:"x"`
	Width float64 `json:"width" binding:"required,gt=0"`
}

type SpeedRequest struct {
	Speed *int `json:"speed"`
}

type ToggleRequest struct {
	Enabled *bool `json:"enabled"`
}

// Open handles POST /api/reader/sessions
// A browser holds one session; opening another chapter discards the old one.
func (rc *ReaderController) Open(c *gin.Context) {
	var req OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "chapter_id is required")
		return
	}

	owner := ""
	if rc.sm != nil {
		owner = rc.sm.ReaderID(c.Request)
	}

	s, err := rc.sessions.Open(c.Request.Context(), owner, req.ChapterID)
	switch {
	case errors.Is(err, remoteapi.ErrNotFound):
		respondNotFound(c, "chapter "+req.ChapterID)
	case errors.Is(err, reader.ErrNoPages):
		respondError(c, http.StatusUnprocessableEntity, "chapter has no pages", "no_pages")
	case err != nil:
		respondUpstreamError(c, err, "load chapter")
	default:
		respondCreated(c, s.Snapshot())
	}
}

// Get handles GET /api/reader/sessions/:id
func (rc *ReaderController) Get(c *gin.Context) {
	s, ok := rc.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// Tap handles POST /api/reader/sessions/:id/tap
func (rc *ReaderController) Tap(c *gin.Context) {
	var req TapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "width must be positive")
		return
	}
	rc.apply(c, func(s *reader.Session) (reader.Snapshot, error) {
		return s.Tap(req.X, req.Width)
	})
}

// Speed handles POST /api/reader/sessions/:id/speed
// Out of range speeds are clamped.
func (rc *ReaderController) Speed(c *gin.Context) {
	var req SpeedRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Speed == nil {
		respondBadRequest(c, "speed is required")
		return
	}
	rc.apply(c, func(s *reader.Session) (reader.Snapshot, error) {
		return s.SetSpeed(*req.Speed)
	})
}

// AutoScroll handles POST /api/reader/sessions/:id/auto-scroll
func (rc *ReaderController) AutoScroll(c *gin.Context) {
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		respondBadRequest(c, "enabled is required")
		return
	}
	rc.apply(c, func(s *reader.Session) (reader.Snapshot, error) {
		return s.SetAutoScroll(*req.Enabled)
	})
}

// Fullscreen handles POST /api/reader/sessions/:id/fullscreen
// Without a body the flag is toggled.
func (rc *ReaderController) Fullscreen(c *gin.Context) {
	var req ToggleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body")
			return
		}
	}
	rc.apply(c, func(s *reader.Session) (reader.Snapshot, error) {
		if req.Enabled == nil {
			return s.ToggleFullscreen()
		}
		return s.SetFullscreen(*req.Enabled)
	})
}

// Close handles DELETE /api/reader/sessions/:id
func (rc *ReaderController) Close(c *gin.Context) {
	if err := rc.sessions.Close(c.Param("id")); err != nil {
		respondNotFound(c, "reader session")
		return
	}
	c.Status(http.StatusNoContent)
}

func (rc *ReaderController) session(c *gin.Context) (*reader.Session, bool) {
	s, err := rc.sessions.Get(c.Param("id"))
	if err != nil {
		respondNotFound(c, "reader session")
		return nil, false
	}
	return s, true
}

func (rc *ReaderController) apply(c *gin.Context, op func(*reader.Session) (reader.Snapshot, error)) {
	s, ok := rc.session(c)
	if !ok {
		return
	}
	snap, err := op(s)
	if errors.Is(err, reader.ErrSessionClosed) {
		respondError(c, http.StatusGone, "reader session closed", "closed")
		return
	}
	if err != nil {
		respondInternalError(c, err, "reader session")
		return
	}
	c.JSON(http.StatusOK, snap)
}
