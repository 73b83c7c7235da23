package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRenderer struct {
	got []Notification
}

func (r *recordingRenderer) Render(_ context.Context, n Notification) error {
	r.got = append(r.got, n)
	return nil
}

func TestHandlePush_DefaultBody(t *testing.T) {
	rec := &recordingRenderer{}
	e := NewEmitter(rec)

	for _, payload := range [][]byte{nil, {}} {
		n := e.HandlePush(context.Background(), payload)
		assert.Equal(t, "مانغا سلاير", n.Title)
		assert.Equal(t, "فصل جديد متاح!", n.Body)
	}
	assert.Len(t, rec.got, 2)
}

func TestHandlePush_Payload(t *testing.T) {
	rec := &recordingRenderer{}
	e := NewEmitter(rec)
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	n := e.HandlePush(context.Background(), []byte("الفصل 12 من ون بيس"))

	assert.Equal(t, "الفصل 12 من ون بيس", n.Body)
	assert.Equal(t, "/logo192.png", n.Icon)
	assert.Equal(t, "/logo192.png", n.Badge)
	assert.Equal(t, "rtl", n.Dir)
	assert.Equal(t, "ar", n.Lang)
	assert.Equal(t, fixed, n.Received)
	require.Len(t, rec.got, 1)
	assert.Equal(t, n, rec.got[0])
}

func TestHandlePush_InvalidUTF8(t *testing.T) {
	e := NewEmitter()
	n := e.HandlePush(context.Background(), []byte{'o', 'k', 0xff, 0xfe, '!'})
	assert.Equal(t, "ok�!", n.Body)
}

func TestHandlePush_RendererFailuresSwallowed(t *testing.T) {
	rec := &recordingRenderer{}
	failing := RendererFunc(func(context.Context, Notification) error {
		return errors.New("display unavailable")
	})
	panicking := RendererFunc(func(context.Context, Notification) error {
		panic("boom")
	})
	e := NewEmitter(failing, panicking, rec)

	assert.NotPanics(t, func() {
		e.HandlePush(context.Background(), []byte("hello"))
	})
	require.Len(t, rec.got, 1)
	assert.Equal(t, "hello", rec.got[0].Body)
}

func TestPrinter_Fallback(t *testing.T) {
	assert.Equal(t, "New chapter available!", printer("en-GB").Sprintf(keyDefaultBody))
	assert.Equal(t, "Manga Slayer", printer("en").Sprintf(keyAppTitle))
	assert.Equal(t, "مانغا سلاير", printer("not a tag!").Sprintf(keyAppTitle))
}
