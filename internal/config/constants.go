package config

const (
	// DefaultDatabasePath is the default path for the daemon database
	DefaultDatabasePath = "./manga-slayer.db"

	// DefaultCacheGeneration names the offline cache generation shipped with this build.
	DefaultCacheGeneration = "manga-slayer-v1"

	DefaultSyncTag = "download-manga"

	DefaultUserAgent = "MangaSlayer/1.0 (offline companion)"
)

// DefaultPinnedResources is the install manifest of the app shell.
var DefaultPinnedResources = []string{
	"/",
	"/static/js/bundle.js",
	"/static/css/main.css",
	"/manifest.json",
}
