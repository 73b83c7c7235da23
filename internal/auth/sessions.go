package auth

import (
	"database/sql"
	"encoding/gob"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"

	"github.com/mrlokans/mangaslayer/internal/config"
)

// Session data keys
const (
	SessionKeyReaderID  = "reader_id"
	SessionKeyCreatedAt = "created_at"
)

const defaultSessionLifetime = 30 * 24 * time.Hour

func init() {
	gob.Register(time.Time{})
}

// SessionManager wraps scs.SessionManager with reader identity helpers.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a configured session manager.
// The sqlDB parameter should be the underlying *sql.DB from GORM.
func NewSessionManager(sqlDB *sql.DB, cfg config.Session) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	lifetime := cfg.Lifetime
	if lifetime <= 0 {
		lifetime = defaultSessionLifetime
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)
	sm.Lifetime = lifetime
	sm.IdleTimeout = lifetime / 2

	sm.Cookie.Name = "reader_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// ReaderID returns the reader bound to the request's session, assigning a
// new one on first use.
func (sm *SessionManager) ReaderID(r *http.Request) string {
	ctx := r.Context()
	if id := sm.GetString(ctx, SessionKeyReaderID); id != "" {
		return id
	}
	id := uuid.NewString()
	sm.Put(ctx, SessionKeyReaderID, id)
	sm.Put(ctx, SessionKeyCreatedAt, time.Now())
	return id
}

// PeekReaderID returns the bound reader without creating one.
func (sm *SessionManager) PeekReaderID(r *http.Request) string {
	return sm.GetString(r.Context(), SessionKeyReaderID)
}

// SessionCreatedAt reports when the reader was first seen.
func (sm *SessionManager) SessionCreatedAt(r *http.Request) time.Time {
	at, _ := sm.Get(r.Context(), SessionKeyCreatedAt).(time.Time)
	return at
}

// Forget drops the session so the next request starts as a new reader.
func (sm *SessionManager) Forget(r *http.Request) error {
	return sm.Destroy(r.Context())
}
