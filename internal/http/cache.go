package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/mangaslayer/internal/offline"
)

// CacheController exposes the offline cache lifecycle.
type CacheController struct {
	cache      CacheLifecycle
	generation string
	pinned     []string
}

func NewCacheController(cache CacheLifecycle, generation string, pinned []string) *CacheController {
	return &CacheController{cache: cache, generation: generation, pinned: pinned}
}

// CacheRequest names a generation and, for installs, its manifest. Empty
// fields fall back to the configured generation and manifest.
type CacheRequest struct {
	Generation string   `json:"generation"`
	Pinned     []string `json:"pinned"`
}

func (cc *CacheController) bind(c *gin.Context) (CacheRequest, bool) {
	var req CacheRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body")
			return req, false
		}
	}
	if req.Generation == "" {
		req.Generation = cc.generation
	}
	if len(req.Pinned) == 0 {
		req.Pinned = cc.pinned
	}
	return req, true
}

// Status handles GET /api/cache/status
func (cc *CacheController) Status(c *gin.Context) {
	status, err := cc.cache.Status(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "cache status")
		return
	}
	c.JSON(http.StatusOK, status)
}

// Install handles POST /api/cache/install
// The previous generation keeps serving when the install fails.
func (cc *CacheController) Install(c *gin.Context) {
	req, ok := cc.bind(c)
	if !ok {
		return
	}

	if err := cc.cache.Install(c.Request.Context(), req.Generation, req.Pinned); err != nil {
		if errors.Is(err, offline.ErrGenerationExists) {
			respondError(c, http.StatusConflict, "generation "+req.Generation+" already installed", "exists")
			return
		}
		if errors.Is(err, offline.ErrInstallFailed) {
			respondUpstreamError(c, err, "cache install")
			return
		}
		respondInternalError(c, err, "cache install")
		return
	}

	respondCreated(c, gin.H{
		"generation": req.Generation,
		"pinned":     len(req.Pinned),
	})
}

// Activate handles POST /api/cache/activate
func (cc *CacheController) Activate(c *gin.Context) {
	req, ok := cc.bind(c)
	if !ok {
		return
	}

	report, err := cc.cache.Activate(c.Request.Context(), req.Generation)
	if err != nil {
		if errors.Is(err, offline.ErrNotInstalled) {
			respondNotFound(c, "generation "+req.Generation)
			return
		}
		respondInternalError(c, err, "cache activate")
		return
	}
	respondSuccess(c, "generation activated", report)
}

// Deploy handles POST /api/cache/deploy: install then activate in one step.
func (cc *CacheController) Deploy(c *gin.Context) {
	req, ok := cc.bind(c)
	if !ok {
		return
	}

	report, err := cc.cache.Deploy(c.Request.Context(), req.Generation, req.Pinned)
	if err != nil {
		if errors.Is(err, offline.ErrInstallFailed) {
			respondUpstreamError(c, err, "cache deploy")
			return
		}
		respondInternalError(c, err, "cache deploy")
		return
	}
	respondSuccess(c, "generation deployed", report)
}
