package preferences

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/mangaslayer/internal/database"
	"github.com/mrlokans/mangaslayer/internal/database/settings"
	"github.com/mrlokans/mangaslayer/internal/entities"
)

type fakeRemote struct {
	prefs   *PreferenceSet
	err     error
	saved   []PreferenceSet
	saveErr error
}

func (f *fakeRemote) GetPreferences(context.Context) (*PreferenceSet, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := *f.prefs
	return &p, nil
}

func (f *fakeRemote) SavePreferences(_ context.Context, prefs PreferenceSet) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, prefs)
	return nil
}

func setupSnapshot(t *testing.T) *settings.Repository {
	t.Helper()
	db, err := database.NewQuietDatabase(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return settings.NewRepository(db.DB)
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("returns remote value and refreshes snapshot", func(t *testing.T) {
		snapshot := setupSnapshot(t)
		remote := Defaults()
		remote.SetAutoScrollSpeed(8)
		svc := NewService(&fakeRemote{prefs: &remote}, snapshot)

		prefs, source := svc.Get(ctx)
		assert.Equal(t, SourceRemote, source)
		assert.Equal(t, 8, prefs.AutoScroll.Speed)

		var stored PreferenceSet
		found, err := snapshot.GetJSON(entities.SettingKeyPreferencesSnapshot, &stored)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, 8, stored.AutoScroll.Speed)
	})

	t.Run("falls back to snapshot when remote is down", func(t *testing.T) {
		snapshot := setupSnapshot(t)
		last := Defaults()
		last.SetAutoScrollEnabled(true)
		require.NoError(t, snapshot.SetJSON(entities.SettingKeyPreferencesSnapshot, last))

		svc := NewService(&fakeRemote{err: errors.New("offline")}, snapshot)
		prefs, source := svc.Get(ctx)
		assert.Equal(t, SourceSnapshot, source)
		assert.True(t, prefs.AutoScroll.Enabled)
	})

	t.Run("falls back to defaults when nothing is known", func(t *testing.T) {
		svc := NewService(&fakeRemote{err: errors.New("offline")}, setupSnapshot(t))
		prefs, source := svc.Get(ctx)
		assert.Equal(t, SourceDefault, source)
		assert.Equal(t, Defaults(), prefs)
	})

	t.Run("remote values out of range are clamped", func(t *testing.T) {
		remote := Defaults()
		remote.AutoScroll.Speed = 25
		svc := NewService(&fakeRemote{prefs: &remote}, setupSnapshot(t))
		prefs, _ := svc.Get(ctx)
		assert.Equal(t, 10, prefs.AutoScroll.Speed)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	remotePrefs := Defaults()
	remote := &fakeRemote{prefs: &remotePrefs}
	svc := NewService(remote, setupSnapshot(t))

	prefs, err := svc.Update(ctx, func(p *PreferenceSet) error {
		p.SetAutoScrollSpeed(0)
		p.SetAutoScrollEnabled(true)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, prefs.AutoScroll.Speed)
	require.Len(t, remote.saved, 1)
	assert.True(t, remote.saved[0].AutoScroll.Enabled)

	t.Run("mutation error skips save", func(t *testing.T) {
		_, err := svc.Update(ctx, func(p *PreferenceSet) error {
			return p.SetReadingDirection("up")
		})
		assert.ErrorIs(t, err, ErrInvalidDirection)
		assert.Len(t, remote.saved, 1)
	})

	t.Run("remote save failure is reported", func(t *testing.T) {
		remote.saveErr = errors.New("503")
		_, err := svc.Update(ctx, func(p *PreferenceSet) error {
			p.SetAutoTranslate(false)
			return nil
		})
		assert.Error(t, err)
	})
}
