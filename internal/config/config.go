package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Origin
		RemoteAPI
		Cache
		Tasks
		Connectivity
		Push
		Session
		Reader
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	// Origin is the upstream that serves the reader app resources.
	Origin struct {
		BaseURL        string
		Timeout        time.Duration
		RequestsPerSec float64
		Burst          int
		UserAgent      string
	}
	RemoteAPI struct {
		BaseURL string
		Timeout time.Duration
	}
	Cache struct {
		Generation         string
		Pinned             []string
		InstallConcurrency int
		DeployOnStart      bool
		WriteBack          bool // Store network responses for misses (off: pinned manifest only)
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Connectivity struct {
		Enabled      bool
		Schedule     string // Cron format: "*/1 * * * *" = every minute
		ProbeTimeout time.Duration
		SyncTags     []string
	}
	Push struct {
		NATSURL     string
		NATSSubject string
	}
	Session struct {
		Lifetime      time.Duration
		SecureCookies bool // Set to false for local dev without HTTPS
		CSRFEnabled   bool
		CSRFSecret    string
		APIToken      string // Bearer token that lets non-browser clients skip CSRF
	}
	Reader struct {
		ReportProgress      bool
		DownloadMaxAttempts int
	}
)

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	v.SetDefault("origin_url", "http://localhost:3000")
	v.SetDefault("origin_timeout", "15s")
	v.SetDefault("origin_rps", 20.0)
	v.SetDefault("origin_burst", 8)
	v.SetDefault("origin_user_agent", DefaultUserAgent)

	v.SetDefault("remote_api_url", "http://localhost:8001")
	v.SetDefault("remote_api_timeout", "10s")

	v.SetDefault("cache_generation", DefaultCacheGeneration)
	v.SetDefault("cache_pinned", strings.Join(DefaultPinnedResources, ","))
	v.SetDefault("cache_install_concurrency", 4)
	v.SetDefault("cache_deploy_on_start", true)
	v.SetDefault("cache_write_back", false)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 5)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	v.SetDefault("connectivity_enabled", true)
	v.SetDefault("connectivity_schedule", "*/1 * * * *")
	v.SetDefault("connectivity_probe_timeout", "5s")
	v.SetDefault("connectivity_sync_tags", DefaultSyncTag)

	v.SetDefault("push_nats_url", "")
	v.SetDefault("push_nats_subject", "manga.push")

	v.SetDefault("session_lifetime", "24h")
	v.SetDefault("session_secure_cookies", false) // Local daemon, plain HTTP
	v.SetDefault("csrf_enabled", false)
	v.SetDefault("csrf_secret", "") // Auto-generated if empty

	v.SetDefault("reader_report_progress", true)
	v.SetDefault("download_max_attempts", 10)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Origin: Origin{
			BaseURL:        v.GetString("ORIGIN_URL"),
			Timeout:        v.GetDuration("ORIGIN_TIMEOUT"),
			RequestsPerSec: v.GetFloat64("ORIGIN_RPS"),
			Burst:          v.GetInt("ORIGIN_BURST"),
			UserAgent:      v.GetString("ORIGIN_USER_AGENT"),
		},
		RemoteAPI: RemoteAPI{
			BaseURL: v.GetString("REMOTE_API_URL"),
			Timeout: v.GetDuration("REMOTE_API_TIMEOUT"),
		},
		Cache: Cache{
			Generation:         v.GetString("CACHE_GENERATION"),
			Pinned:             splitList(v.GetString("CACHE_PINNED")),
			InstallConcurrency: v.GetInt("CACHE_INSTALL_CONCURRENCY"),
			DeployOnStart:      v.GetBool("CACHE_DEPLOY_ON_START"),
			WriteBack:          v.GetBool("CACHE_WRITE_BACK"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Connectivity: Connectivity{
			Enabled:      v.GetBool("CONNECTIVITY_ENABLED"),
			Schedule:     v.GetString("CONNECTIVITY_SCHEDULE"),
			ProbeTimeout: v.GetDuration("CONNECTIVITY_PROBE_TIMEOUT"),
			SyncTags:     splitList(v.GetString("CONNECTIVITY_SYNC_TAGS")),
		},
		Push: Push{
			NATSURL:     v.GetString("PUSH_NATS_URL"),
			NATSSubject: v.GetString("PUSH_NATS_SUBJECT"),
		},
		Session: Session{
			Lifetime:      v.GetDuration("SESSION_LIFETIME"),
			SecureCookies: v.GetBool("SESSION_SECURE_COOKIES"),
			CSRFEnabled:   v.GetBool("CSRF_ENABLED"),
			CSRFSecret:    v.GetString("CSRF_SECRET"),
			APIToken:      v.GetString("SESSION_API_TOKEN"),
		},
		Reader: Reader{
			ReportProgress:      v.GetBool("READER_REPORT_PROGRESS"),
			DownloadMaxAttempts: v.GetInt("DOWNLOAD_MAX_ATTEMPTS"),
		},
	}
}
