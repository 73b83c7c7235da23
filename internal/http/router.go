// Package http is the daemon's local HTTP surface: the JSON API used by the
// reader UI and the cache-first handler for everything else.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/mangaslayer/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies; routes whose dependency is
// nil are left out.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.APIToken))
	}
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	health := NewHealthController(cfg.Database, cfg.Cache, cfg.Connectivity, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	if cfg.Hub != nil {
		router.GET("/ws/notifications", cfg.Hub.Handler)
	}

	api := router.Group("/api")
	api.Use(auth.SecurityHeadersMiddleware())

	if cfg.SessionManager != nil {
		sessions := NewSessionController(cfg.SessionManager)
		api.GET("/session", sessions.Get)
		api.DELETE("/session", sessions.Reset)
	}

	if cfg.Cache != nil {
		cache := NewCacheController(cfg.Cache, cfg.CacheGeneration, cfg.PinnedResources)
		api.GET("/cache/status", cache.Status)
		api.POST("/cache/install", cache.Install)
		api.POST("/cache/activate", cache.Activate)
		api.POST("/cache/deploy", cache.Deploy)
	}

	if cfg.Trigger != nil && cfg.Tags != nil {
		sync := NewSyncController(cfg.Trigger, cfg.Tags, cfg.Connectivity)
		api.GET("/sync", sync.ListTags)
		api.POST("/sync/:tag", sync.Trigger)
		api.POST("/connectivity/probe", sync.Probe)
	}

	if cfg.Push != nil {
		push := NewPushController(cfg.Push)
		api.POST("/push", push.Push)
	}

	if cfg.Preferences != nil {
		prefs := NewPreferencesController(cfg.Preferences)
		api.GET("/preferences", prefs.Get)
		api.POST("/preferences", prefs.Replace)
		api.PATCH("/preferences/auto-scroll", prefs.PatchAutoScroll)
		api.PATCH("/preferences/reading", prefs.PatchReading)
	}

	if cfg.Downloads != nil && cfg.Trigger != nil {
		downloads := NewDownloadsController(cfg.Downloads, cfg.Trigger)
		api.POST("/downloads", downloads.Create)
		api.POST("/downloads/:kind/:id", downloads.CreateForKind)
		api.GET("/downloads", downloads.List)
	}

	if cfg.Sessions != nil {
		rc := NewReaderController(cfg.Sessions, cfg.SessionManager)
		sessions := api.Group("/reader/sessions")
		sessions.POST("", rc.Open)
		sessions.GET("/:id", rc.Get)
		sessions.POST("/:id/tap", rc.Tap)
		sessions.POST("/:id/speed", rc.Speed)
		sessions.POST("/:id/auto-scroll", rc.AutoScroll)
		sessions.POST("/:id/fullscreen", rc.Fullscreen)
		sessions.DELETE("/:id", rc.Close)
	}

	if cfg.TaskStatus != nil {
		tc := NewTasksController(cfg.TaskStatus)
		api.GET("/tasks/types", tc.ListTaskTypes)
		api.GET("/tasks/:id", tc.GetTaskStatus)
	}

	if cfg.Fetcher != nil {
		router.NoRoute(NewInterceptController(cfg.Fetcher).Serve)
	}

	return router
}
