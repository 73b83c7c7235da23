package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/mangaslayer/internal/preferences"
)

// PreferencesController reads and edits the reader preference document.
type PreferencesController struct {
	prefs PreferenceService
}

func NewPreferencesController(prefs PreferenceService) *PreferencesController {
	return &PreferencesController{prefs: prefs}
}

type PreferencesResponse struct {
	Preferences preferences.PreferenceSet `json:"preferences"`
	Source      preferences.Source        `json:"source"`
}

// Get handles GET /api/preferences
func (pc *PreferencesController) Get(c *gin.Context) {
	prefs, source := pc.prefs.Get(c.Request.Context())
	c.JSON(http.StatusOK, PreferencesResponse{Preferences: prefs, Source: source})
}

// Replace handles POST /api/preferences with a full document.
func (pc *PreferencesController) Replace(c *gin.Context) {
	var prefs preferences.PreferenceSet
	if err := c.ShouldBindJSON(&prefs); err != nil {
		respondBadRequest(c, "invalid preferences document")
		return
	}

	updated, err := pc.prefs.Update(c.Request.Context(), func(p *preferences.PreferenceSet) error {
		p.SetAutoScrollEnabled(prefs.AutoScroll.Enabled)
		p.SetAutoScrollSpeed(prefs.AutoScroll.Speed)
		p.SetPauseOnTap(prefs.AutoScroll.PauseOnTap)
		if err := p.SetLanguage(prefs.Language); err != nil {
			return err
		}
		if err := p.SetReadingDirection(prefs.ReadingDirection); err != nil {
			return err
		}
		p.SetAutoTranslate(prefs.AutoTranslate)
		return nil
	})
	pc.respond(c, updated, err)
}

// AutoScrollPatch carries optional auto-scroll fields.
type AutoScrollPatch struct {
	Enabled    *bool `json:"enabled"`
	Speed      *int  `json:"speed"`
	PauseOnTap *bool `json:"pause_on_tap"`
}

// PatchAutoScroll handles PATCH /api/preferences/auto-scroll
func (pc *PreferencesController) PatchAutoScroll(c *gin.Context) {
	var patch AutoScrollPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	updated, err := pc.prefs.Update(c.Request.Context(), func(p *preferences.PreferenceSet) error {
		if patch.Enabled != nil {
			p.SetAutoScrollEnabled(*patch.Enabled)
		}
		if patch.Speed != nil {
			p.SetAutoScrollSpeed(*patch.Speed)
		}
		if patch.PauseOnTap != nil {
			p.SetPauseOnTap(*patch.PauseOnTap)
		}
		return nil
	})
	pc.respond(c, updated, err)
}

// ReadingPatch carries optional language and layout fields.
type ReadingPatch struct {
	Language         *string `json:"language"`
	ReadingDirection *string `json:"reading_direction"`
	AutoTranslate    *bool   `json:"auto_translate"`
}

// PatchReading handles PATCH /api/preferences/reading
func (pc *PreferencesController) PatchReading(c *gin.Context) {
	var patch ReadingPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	updated, err := pc.prefs.Update(c.Request.Context(), func(p *preferences.PreferenceSet) error {
		if patch.Language != nil {
			if err := p.SetLanguage(*patch.Language); err != nil {
				return err
			}
		}
		if patch.ReadingDirection != nil {
			if err := p.SetReadingDirection(*patch.ReadingDirection); err != nil {
				return err
			}
		}
		if patch.AutoTranslate != nil {
			p.SetAutoTranslate(*patch.AutoTranslate)
		}
		return nil
	})
	pc.respond(c, updated, err)
}

func (pc *PreferencesController) respond(c *gin.Context, prefs preferences.PreferenceSet, err error) {
	switch {
	case errors.Is(err, preferences.ErrInvalidDirection), errors.Is(err, preferences.ErrInvalidLanguage):
		respondError(c, http.StatusBadRequest, err.Error(), "invalid_preference")
	case err != nil:
		respondUpstreamError(c, err, "save preferences")
	default:
		c.JSON(http.StatusOK, PreferencesResponse{Preferences: prefs, Source: preferences.SourceRemote})
	}
}
