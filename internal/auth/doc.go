// Package auth ties browser requests to a reader identity and guards the
// local API.
//
// Every browser gets a cookie-backed scs session stored in SQLite. The
// session carries a reader id which owns at most one playback session at a
// time.
//
// # Configuration
//
//	SESSION_LIFETIME=720h          # Session duration
//	SESSION_SECURE_COOKIES=false   # HTTPS-only cookies
//	CSRF_ENABLED=false             # Require CSRF tokens on unsafe methods
//	CSRF_SECRET=<32 bytes>         # Key for CSRF tokens
//	SESSION_API_TOKEN=<token>      # Bearer token that skips CSRF
//
// # Usage
//
//	sm, err := auth.NewSessionManager(sqlDB, cfg.Session)
//	router.Use(sm.SessionLoadSave())
//
// Extract the reader in handlers:
//
//	readerID := sm.ReaderID(c.Request)
package auth
