package entrypoint

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/mangaslayer/internal/auth"
	"github.com/mrlokans/mangaslayer/internal/bgsync"
	"github.com/mrlokans/mangaslayer/internal/cachestore"
	"github.com/mrlokans/mangaslayer/internal/config"
	"github.com/mrlokans/mangaslayer/internal/database"
	"github.com/mrlokans/mangaslayer/internal/database/downloads"
	"github.com/mrlokans/mangaslayer/internal/database/generations"
	"github.com/mrlokans/mangaslayer/internal/database/settings"
	http_controllers "github.com/mrlokans/mangaslayer/internal/http"
	"github.com/mrlokans/mangaslayer/internal/intercept"
	"github.com/mrlokans/mangaslayer/internal/notify"
	"github.com/mrlokans/mangaslayer/internal/offline"
	"github.com/mrlokans/mangaslayer/internal/preferences"
	"github.com/mrlokans/mangaslayer/internal/reader"
	"github.com/mrlokans/mangaslayer/internal/remoteapi"
	"github.com/mrlokans/mangaslayer/internal/scheduler"
	"github.com/mrlokans/mangaslayer/internal/tasks"
	"github.com/mrlokans/mangaslayer/internal/upstream"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// SIGKILL cannot be caught
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work first so nothing new is queued while draining
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Manga Slayer companion v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	settingsRepo := settings.NewRepository(db.DB)
	downloadsRepo := downloads.NewRepository(db.DB)

	// Offline cache
	origin, err := upstream.NewClient(upstream.Options{
		BaseURL:        cfg.Origin.BaseURL,
		Timeout:        cfg.Origin.Timeout,
		RequestsPerSec: cfg.Origin.RequestsPerSec,
		Burst:          cfg.Origin.Burst,
		UserAgent:      cfg.Origin.UserAgent,
	})
	if err != nil {
		log.Fatalf("Failed to configure origin: %v", err)
	}

	store := cachestore.New(db.DB)
	cacheManager := offline.NewManager(
		store,
		generations.NewRepository(db.DB),
		origin,
		offline.WithConcurrency(cfg.Cache.InstallConcurrency),
	)

	startCtx, startCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := cacheManager.Restore(startCtx); err != nil {
		log.Printf("[CACHE] Failed to restore active generation: %v", err)
	}
	if cfg.Cache.DeployOnStart {
		if _, err := cacheManager.Deploy(startCtx, cfg.Cache.Generation, cfg.Cache.Pinned); err != nil {
			log.Printf("[CACHE] Startup deploy of %s failed, previous generation keeps serving: %v", cfg.Cache.Generation, err)
		}
	}
	startCancel()

	var interceptOpts []intercept.Option
	if cfg.Cache.WriteBack {
		log.Printf("[CACHE] Write-back enabled: network responses are stored in the active generation")
		interceptOpts = append(interceptOpts, intercept.WithWriteBack(store))
	}
	fetcher := intercept.NewRouter(cacheManager, origin, interceptOpts...)

	// Remote API and preferences
	remote := remoteapi.NewClient(cfg.RemoteAPI.BaseURL, cfg.RemoteAPI.Timeout)
	prefs := preferences.NewService(remote, settingsRepo)

	// Background sync
	dispatcher := bgsync.NewDispatcher()
	dispatcher.Register(bgsync.DownloadMangaTag,
		bgsync.NewDownloadResumer(downloadsRepo, remote, cfg.Reader.DownloadMaxAttempts))

	var (
		taskClient    *tasks.Client
		taskCtxCancel context.CancelFunc
		trigger       bgsync.Trigger
		readerOpts    []reader.ManagerOption
	)
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			MaxRetries:        cfg.Tasks.MaxRetries,
			RetryDelay:        cfg.Tasks.RetryDelay,
			TaskTimeout:       cfg.Tasks.TaskTimeout,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}
		tasks.SetDeliveryPolicy(taskCfg)

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewSyncEventQueue(dispatcher),
			tasks.NewReportProgressQueue(remote),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		trigger = tasks.NewSyncTrigger(taskClient)
		if cfg.Reader.ReportProgress {
			readerOpts = append(readerOpts, reader.WithProgressSink(tasks.NewProgressQueue(taskClient)))
		}
	} else {
		log.Printf("[TASK] Task queue disabled: sync events are dispatched once without retry")
		trigger = &bgsync.DirectTrigger{Dispatcher: dispatcher, Lifetime: cfg.Tasks.TaskTimeout}
	}

	// Playback
	sessions := reader.NewManager(remote, prefs, readerOpts...)

	// Notifications
	hub := notify.NewHub()
	emitter := notify.NewEmitter(hub, notify.LogRenderer())
	var subscriber *notify.Subscriber
	if cfg.Push.NATSURL != "" {
		subscriber, err = notify.Subscribe(cfg.Push.NATSURL, cfg.Push.NATSSubject, emitter)
		if err != nil {
			log.Printf("[PUSH] NATS unavailable, only local pushes will be shown: %v", err)
		}
	}

	// Connectivity
	var monitor *scheduler.ConnectivityMonitor
	if cfg.Connectivity.Enabled {
		monitor = scheduler.NewConnectivityMonitor(cfg.Connectivity, remote, settingsRepo, trigger)
		if err := monitor.Start(context.Background()); err != nil {
			log.Printf("[SYNC] Failed to start connectivity monitor: %v", err)
			monitor = nil
		}
	}

	// Browser sessions
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Session)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	var csrfSecret []byte
	if cfg.Session.CSRFEnabled {
		csrfSecret, err = loadCSRFSecret(cfg.Session.CSRFSecret)
		if err != nil {
			log.Fatalf("Failed to prepare CSRF secret: %v", err)
		}
	}

	routerCfg := http_controllers.RouterConfig{
		Database:        db,
		Version:         version,
		Cache:           cacheManager,
		Fetcher:         fetcher,
		CacheGeneration: cfg.Cache.Generation,
		PinnedResources: cfg.Cache.Pinned,
		Trigger:         trigger,
		Tags:            dispatcher,
		Push:            emitter,
		Hub:             hub,
		Preferences:     prefs,
		Downloads:       downloadsRepo,
		Sessions:        sessions,
		SessionManager:  sessionManager,
		CSRFSecret:      csrfSecret,
		SecureCookies:   cfg.Session.SecureCookies,
		APIToken:        cfg.Session.APIToken,
	}
	if taskClient != nil {
		routerCfg.TaskStatus = taskClient
	}
	if monitor != nil {
		routerCfg.Connectivity = monitor
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if monitor != nil {
			monitor.Stop()
		}
		if subscriber != nil {
			if err := subscriber.Close(); err != nil {
				log.Printf("[PUSH] Error closing NATS subscription: %v", err)
			}
		}
		sessions.CloseAll()
		hub.Close()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}

// loadCSRFSecret accepts a hex or raw secret, or generates one for this run.
func loadCSRFSecret(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		return []byte(configured), nil
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	log.Printf("Generated CSRF secret (set CSRF_SECRET to persist)")
	return secret, nil
}
