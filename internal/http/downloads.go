package http

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/mangaslayer/internal/bgsync"
	"github.com/mrlokans/mangaslayer/internal/entities"
)

// DownloadsController queues manga and chapter downloads. Requests are
// stored locally first and handed to the orchestrator by the download-manga
// sync handler, so they survive being offline.
type DownloadsController struct {
	store   DownloadStore
	trigger bgsync.Trigger
}

func NewDownloadsController(store DownloadStore, trigger bgsync.Trigger) *DownloadsController {
	return &DownloadsController{store: store, trigger: trigger}
}

type DownloadRequest struct {
	Kind     string `json:"kind" form:"kind"`
	TargetID string `json:"target_id" form:"target_id"`
}

type DownloadResponse struct {
	Task    *entities.DownloadTask `json:"task"`
	Created bool                   `json:"created"`
	EventID string                 `json:"event_id,omitempty"`
}

// Create handles POST /api/downloads
func (dc *DownloadsController) Create(c *gin.Context) {
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	dc.create(c, req.Kind, req.TargetID)
}

// CreateForKind handles POST /api/downloads/:kind/:id
func (dc *DownloadsController) CreateForKind(c *gin.Context) {
	dc.create(c, c.Param("kind"), c.Param("id"))
}

func (dc *DownloadsController) create(c *gin.Context, rawKind, targetID string) {
	kind := entities.DownloadKind(strings.ToLower(rawKind))
	if kind != entities.DownloadKindManga && kind != entities.DownloadKindChapter {
		respondBadRequest(c, "kind must be manga or chapter")
		return
	}
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		respondBadRequest(c, "target_id is required")
		return
	}

	ctx := c.Request.Context()
	task, created, err := dc.store.Create(ctx, kind, targetID)
	if err != nil {
		respondInternalError(c, err, "create download")
		return
	}

	resp := DownloadResponse{Task: task, Created: created}
	if !task.IsAccepted() {
		id, err := dc.trigger.Trigger(ctx, bgsync.DownloadMangaTag, "download requested")
		if err != nil {
			// the task is stored; the next connectivity event picks it up
			log.Printf("[SYNC] Failed to raise %s for task %s: %v", bgsync.DownloadMangaTag, task.ID, err)
		}
		resp.EventID = id
	}

	c.JSON(http.StatusAccepted, resp)
}

// List handles GET /api/downloads
func (dc *DownloadsController) List(c *gin.Context) {
	limit, ok := parseLimitQuery(c, 50, 500)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	tasks, err := dc.store.List(ctx, limit)
	if err != nil {
		respondInternalError(c, err, "list downloads")
		return
	}
	stats, err := dc.store.Stats(ctx)
	if err != nil {
		respondInternalError(c, err, "download stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"stats": stats,
	})
}
