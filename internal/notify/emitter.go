// Package notify turns incoming push payloads into localized alerts and
// hands them to whatever renders them for the reader.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

const (
	DefaultIcon = "/logo192.png"
	DefaultDir  = "rtl"
	DefaultLang = "ar"
)

// Notification is one user-visible alert.
type Notification struct {
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Icon     string    `json:"icon"`
	Badge    string    `json:"badge"`
	Dir      string    `json:"dir"`
	Lang     string    `json:"lang"`
	Received time.Time `json:"received"`
}

// Renderer displays a notification. Errors are logged by the emitter and
// never reach the push sender.
type Renderer interface {
	Render(ctx context.Context, n Notification) error
}

type RendererFunc func(ctx context.Context, n Notification) error

func (f RendererFunc) Render(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

type Emitter struct {
	lang      string
	renderers []Renderer
	now       func() time.Time
}

func NewEmitter(renderers ...Renderer) *Emitter {
	return &Emitter{lang: DefaultLang, renderers: renderers, now: time.Now}
}

// Build converts a push payload into a notification. An absent payload
// yields the localized default body; otherwise the payload is read as
// UTF-8 text with invalid sequences replaced.
func (e *Emitter) Build(payload []byte) Notification {
	p := printer(e.lang)

	body := p.Sprintf(keyDefaultBody)
	if len(payload) > 0 {
		body = strings.ToValidUTF8(string(payload), "�")
	}

	return Notification{
		Title:    p.Sprintf(keyAppTitle),
		Body:     body,
		Icon:     DefaultIcon,
		Badge:    DefaultIcon,
		Dir:      DefaultDir,
		Lang:     e.lang,
		Received: e.now(),
	}
}

// HandlePush builds the notification and renders it everywhere. It never
// fails: render errors and panics are logged and swallowed.
func (e *Emitter) HandlePush(ctx context.Context, payload []byte) Notification {
	n := e.Build(payload)
	for _, r := range e.renderers {
		if err := safeRender(ctx, r, n); err != nil {
			log.Printf("[PUSH] Failed to render notification: %v", err)
		}
	}
	return n
}

func safeRender(ctx context.Context, r Renderer, n Notification) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("renderer panicked: %v", rec)
		}
	}()
	return r.Render(ctx, n)
}

// LogRenderer writes notifications to the daemon log.
func LogRenderer() Renderer {
	return RendererFunc(func(_ context.Context, n Notification) error {
		log.Printf("[PUSH] %s: %s", n.Title, n.Body)
		return nil
	})
}
