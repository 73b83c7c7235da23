package http

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/mangaslayer/internal/bgsync"
)

// SyncController raises background sync events by hand.
type SyncController struct {
	trigger      bgsync.Trigger
	tags         TagRegistry
	connectivity ConnectivityReporter
}

func NewSyncController(trigger bgsync.Trigger, tags TagRegistry, connectivity ConnectivityReporter) *SyncController {
	return &SyncController{trigger: trigger, tags: tags, connectivity: connectivity}
}

// ListTags handles GET /api/sync
func (sc *SyncController) ListTags(c *gin.Context) {
	resp := gin.H{"tags": sc.tags.Tags()}
	if sc.connectivity != nil {
		resp["connectivity"] = sc.connectivity.Status()
	}
	c.JSON(http.StatusOK, resp)
}

// Trigger handles POST /api/sync/:tag
func (sc *SyncController) Trigger(c *gin.Context) {
	tag := c.Param("tag")
	if !slices.Contains(sc.tags.Tags(), tag) {
		respondNotFound(c, "sync tag "+tag)
		return
	}

	id, err := sc.trigger.Trigger(c.Request.Context(), tag, "manual")
	if err != nil {
		respondInternalError(c, err, "trigger sync")
		return
	}
	respondAccepted(c, "sync event raised", gin.H{"event_id": id, "tag": tag})
}

// Probe handles POST /api/connectivity/probe: check connectivity now.
func (sc *SyncController) Probe(c *gin.Context) {
	if sc.connectivity == nil {
		respondError(c, http.StatusServiceUnavailable, "connectivity monitor disabled", "disabled")
		return
	}
	sc.connectivity.RunNow()
	respondAccepted(c, "connectivity probe started", nil)
}
