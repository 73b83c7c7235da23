// Package bgsync runs deferred work when connectivity comes back.
//
// Handlers are registered per tag. A dispatch of a tag that is already
// running joins the live run instead of starting another one, so there is at
// most one live task per tag. Dispatch never touches cache generations.
package bgsync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DownloadMangaTag is the tag raised when queued manga downloads should resume.
const DownloadMangaTag = "download-manga"

var ErrUnknownTag = errors.New("no handler registered for sync tag")

// Handler performs the deferred work for one tag. Returning an error asks
// for the event to be delivered again later.
type Handler interface {
	Sync(ctx context.Context) error
}

type HandlerFunc func(ctx context.Context) error

func (f HandlerFunc) Sync(ctx context.Context) error {
	return f(ctx)
}

type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	inflight singleflight.Group
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// Register binds a handler to tag, replacing any previous one.
func (d *Dispatcher) Register(tag string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[tag] = h
}

// Tags returns the registered tags in sorted order.
func (d *Dispatcher) Tags() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tags := make([]string, 0, len(d.handlers))
	for tag := range d.handlers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Dispatch runs the handler for tag within ctx, whose deadline is the
// event lifetime. Concurrent dispatches of one tag share a single run.
func (d *Dispatcher) Dispatch(ctx context.Context, tag string) error {
	d.mu.RLock()
	h, ok := d.handlers[tag]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}

	ch := d.inflight.DoChan(tag, func() (interface{}, error) {
		start := time.Now()
		log.Printf("[SYNC] Running %s", tag)
		err := h.Sync(ctx)
		if err != nil {
			log.Printf("[SYNC] %s incomplete after %s: %v", tag, time.Since(start), err)
		} else {
			log.Printf("[SYNC] %s finished in %s", tag, time.Since(start))
		}
		return nil, err
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}
