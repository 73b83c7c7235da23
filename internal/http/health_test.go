package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/mangaslayer/internal/database"
	"github.com/mrlokans/mangaslayer/internal/offline"
	"github.com/mrlokans/mangaslayer/internal/scheduler"
)

func setupHealthTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.NewQuietDatabase(filepath.Join(t.TempDir(), "health.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type stubCache struct {
	ready     bool
	status    *offline.Status
	installed []string
	err       error
	report    *offline.ActivationReport
}

func (s *stubCache) Ready() bool { return s.ready }

func (s *stubCache) Status(context.Context) (*offline.Status, error) {
	return s.status, s.err
}

func (s *stubCache) Install(_ context.Context, id string, pinned []string) error {
	if s.err != nil {
		return s.err
	}
	s.installed = append(s.installed, id)
	return nil
}

func (s *stubCache) Activate(_ context.Context, id string) (*offline.ActivationReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

func (s *stubCache) Deploy(ctx context.Context, id string, pinned []string) (*offline.ActivationReport, error) {
	if err := s.Install(ctx, id, pinned); err != nil {
		return nil, err
	}
	return s.Activate(ctx, id)
}

type stubConnectivity struct {
	status scheduler.ConnectivityStatus
	runs   int
}

func (s *stubConnectivity) Status() scheduler.ConnectivityStatus { return s.status }
func (s *stubConnectivity) RunNow()                              { s.runs++ }

func getHealth(t *testing.T, controller *HealthController) (int, HealthResponse) {
	t.Helper()
	router := gin.New()
	router.GET("/health", controller.Status)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return w.Code, response
}

func TestHealthController_Status(t *testing.T) {
	t.Run("returns healthy when database is connected", func(t *testing.T) {
		db := setupHealthTestDB(t)
		controller := NewHealthController(db, &stubCache{ready: true}, nil, "1.0.0")

		code, response := getHealth(t, controller)

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "1.0.0", response.Version)
		assert.Equal(t, "ok", response.Checks["database"])
		assert.Equal(t, "ready", response.Checks["cache"])
		assert.Contains(t, response.Time, "T")
	})

	t.Run("missing cache is informational", func(t *testing.T) {
		db := setupHealthTestDB(t)
		controller := NewHealthController(db, &stubCache{}, nil, "1.0.0")

		code, response := getHealth(t, controller)

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "not installed", response.Checks["cache"])
	})

	t.Run("reports remote api connectivity", func(t *testing.T) {
		conn := &stubConnectivity{}
		controller := NewHealthController(nil, nil, conn, "")

		_, response := getHealth(t, controller)
		assert.Equal(t, "unknown", response.Checks["remote_api"])

		conn.status = scheduler.ConnectivityStatus{Known: true, Online: false}
		_, response = getHealth(t, controller)
		assert.Equal(t, "offline", response.Checks["remote_api"])

		conn.status.Online = true
		_, response = getHealth(t, controller)
		assert.Equal(t, "online", response.Checks["remote_api"])
	})

	t.Run("nil dependencies are not configured", func(t *testing.T) {
		controller := NewHealthController(nil, nil, nil, "1.0.0")

		code, response := getHealth(t, controller)

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "not configured", response.Checks["database"])
		assert.Equal(t, "not configured", response.Checks["cache"])
		assert.NotContains(t, response.Checks, "remote_api")
	})

	t.Run("returns unhealthy when database connection is closed", func(t *testing.T) {
		db := setupHealthTestDB(t)
		require.NoError(t, db.Close())

		controller := NewHealthController(db, nil, nil, "1.0.0")
		code, response := getHealth(t, controller)

		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unhealthy", response.Status)
		assert.Contains(t, response.Checks["database"], "error")
	})
}

func TestHealthController_Ping(t *testing.T) {
	router := gin.New()
	router.GET("/ping", NewHealthController(nil, nil, nil, "").Ping)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}
