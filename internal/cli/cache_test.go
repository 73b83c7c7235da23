package cli

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/mangaslayer/internal/offline"
)

func newOrigin(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>reader</html>"))
		case "/manifest.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"Manga Slayer"}`))
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCacheCommands_InstallStatusActivate(t *testing.T) {
	origin := newOrigin(t)
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	common := []string{"-db", dbPath, "-origin", origin.URL}

	var out bytes.Buffer
	install := NewCacheInstallCommand()
	install.Out = &out
	require.NoError(t, install.ParseFlags(append(common, "-generation", "manga-slayer-v1", "-pinned", "/,/manifest.json")))
	require.NoError(t, install.Run())
	assert.Contains(t, out.String(), "Installed and activated manga-slayer-v1")

	out.Reset()
	second := NewCacheInstallCommand()
	second.Out = &out
	require.NoError(t, second.ParseFlags(append(common, "-generation", "manga-slayer-v2", "-pinned", "/", "-activate=false")))
	require.NoError(t, second.Run())
	assert.Contains(t, out.String(), "Installed manga-slayer-v2")

	out.Reset()
	status := NewCacheStatusCommand()
	status.Out = &out
	require.NoError(t, status.ParseFlags(append(common, "-no-color")))
	require.NoError(t, status.Run())
	assert.Contains(t, out.String(), "manga-slayer-v1")
	assert.Contains(t, out.String(), "manga-slayer-v2")
	assert.Contains(t, out.String(), "active")

	out.Reset()
	activate := NewCacheActivateCommand()
	activate.Out = &out
	require.NoError(t, activate.ParseFlags(append(common, "-generation", "manga-slayer-v2")))
	require.NoError(t, activate.Run())
	assert.Contains(t, out.String(), "Deleted: manga-slayer-v1")
}

func TestCacheInstall_FailureStoresNothing(t *testing.T) {
	origin := newOrigin(t)
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	install := NewCacheInstallCommand()
	install.Out = &bytes.Buffer{}
	require.NoError(t, install.ParseFlags([]string{
		"-db", dbPath, "-origin", origin.URL,
		"-generation", "manga-slayer-v1", "-pinned", "/,/missing.js",
	}))
	err := install.Run()
	require.Error(t, err)
	assert.True(t, errors.Is(err, offline.ErrInstallFailed))

	var out bytes.Buffer
	status := NewCacheStatusCommand()
	status.Out = &out
	require.NoError(t, status.ParseFlags([]string{"-db", dbPath, "-origin", origin.URL, "-no-color"}))
	require.NoError(t, status.Run())
	assert.Contains(t, out.String(), "No cache generation installed")
}

func TestCacheActivate_UnknownGeneration(t *testing.T) {
	origin := newOrigin(t)

	activate := NewCacheActivateCommand()
	activate.Out = &bytes.Buffer{}
	require.NoError(t, activate.ParseFlags([]string{
		"-db", filepath.Join(t.TempDir(), "cli.db"), "-origin", origin.URL,
		"-generation", "manga-slayer-v9",
	}))
	err := activate.Run()
	assert.True(t, errors.Is(err, offline.ErrNotInstalled))
}

func TestWriteCacheStatus(t *testing.T) {
	activated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	status := &offline.Status{
		Ready:  true,
		Active: "manga-slayer-v1",
		Generations: []offline.GenerationStatus{{
			ID:          "manga-slayer-v1",
			Active:      true,
			PinnedCount: 4,
			Entries:     4,
			Bytes:       3 << 20,
			InstalledAt: activated.Add(-time.Minute),
			ActivatedAt: &activated,
		}},
		Stray: []string{"manga-slayer-v0"},
	}

	var out bytes.Buffer
	require.NoError(t, writeCacheStatus(&out, status, false))
	assert.Contains(t, out.String(), "3.0 MiB")
	assert.Contains(t, out.String(), "2026-03-01 12:00:00")
	assert.Contains(t, out.String(), "Stray stores: manga-slayer-v0")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 << 30, "5.0 GiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatBytes(tt.in))
	}
}
