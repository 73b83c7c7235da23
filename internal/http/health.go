package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/mangaslayer/internal/database"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// HealthController reports the daemon's health. Only the database decides
// healthy vs unhealthy; the cache and the remote API are informational
// because the reader keeps working without them.
type HealthController struct {
	db           *database.Database
	cache        CacheLifecycle
	connectivity ConnectivityReporter
	version      string
}

func NewHealthController(db *database.Database, cache CacheLifecycle, connectivity ConnectivityReporter, version string) *HealthController {
	return &HealthController{
		db:           db,
		cache:        cache,
		connectivity: connectivity,
		version:      version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	switch {
	case h.cache == nil:
		checks["cache"] = "not configured"
	case h.cache.Ready():
		checks["cache"] = "ready"
	default:
		checks["cache"] = "not installed"
	}

	if h.connectivity != nil {
		conn := h.connectivity.Status()
		switch {
		case !conn.Known:
			checks["remote_api"] = "unknown"
		case conn.Online:
			checks["remote_api"] = "online"
		default:
			checks["remote_api"] = "offline"
		}
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}

// Ping is a liveness probe.
func (h *HealthController) Ping(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}
