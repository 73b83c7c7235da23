// Package intercept answers resource requests from the active offline cache
// generation and falls back to the network on a miss.
package intercept

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/mrlokans/mangaslayer/internal/cachestore"
	"github.com/mrlokans/mangaslayer/internal/offline"
)

type Source string

const (
	SourceCache   Source = "cache"
	SourceNetwork Source = "network"
)

// Response is what the router hands back to the caller. The caller must
// close Body.
type Response struct {
	Status int
	Header http.Header
	Body   io.ReadCloser
	Source Source
	Key    string
}

// Generations exposes the generation currently serving requests.
type Generations interface {
	Active() *offline.Generation
}

type Network interface {
	Do(req *http.Request) (*http.Response, error)
}

// Writer stores network responses into a generation.
type Writer interface {
	Open(name string) *cachestore.Bucket
}

type Option func(*Router)

// WithWriteBack stores successful network responses for GET misses in the
// active generation. Without it the cache only ever holds the pinned manifest.
func WithWriteBack(w Writer) Option {
	return func(r *Router) {
		r.writer = w
	}
}

type Router struct {
	generations Generations
	network     Network
	writer      Writer
}

func NewRouter(generations Generations, network Network, opts ...Option) *Router {
	r := &Router{generations: generations, network: network}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cacheable reports whether a request is eligible for cache lookup.
func Cacheable(req *http.Request) bool {
	return req.Method == http.MethodGet || req.Method == http.MethodHead
}

// Fetch resolves req. A cache hit never touches the network. Lookup failures
// fall through to the network; a network error on a miss is returned as is.
func (r *Router) Fetch(req *http.Request) (*Response, error) {
	if !Cacheable(req) {
		return r.forward(req, "")
	}

	ctx := req.Context()
	key := cachestore.ResourceKey(req.URL)
	gen := r.generations.Active()
	if gen == nil {
		return r.forward(req, key)
	}

	entry, err := gen.Match(ctx, key)
	switch {
	case err == nil:
		return hit(req, key, entry), nil
	case errors.Is(err, cachestore.ErrNotFound):
	default:
		log.Printf("[CACHE] Lookup of %s in %s failed, using network: %v", key, gen.ID, err)
	}

	resp, err := r.forward(req, key)
	if err != nil {
		return nil, err
	}
	if r.writer != nil && req.Method == http.MethodGet && resp.Status >= 200 && resp.Status < 300 {
		return r.writeBack(ctx, gen.ID, resp)
	}
	return resp, nil
}

func (r *Router) forward(req *http.Request, key string) (*Response, error) {
	resp, err := r.network.Do(req)
	if err != nil {
		return nil, err
	}
	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   resp.Body,
		Source: SourceNetwork,
		Key:    key,
	}, nil
}

func (r *Router) writeBack(ctx context.Context, generation string, resp *Response) (*Response, error) {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	entry := cachestore.Entry{Key: resp.Key, Status: resp.Status, Header: resp.Header.Clone(), Body: body}
	if err := r.writer.Open(generation).Put(ctx, entry); err != nil {
		log.Printf("[CACHE] Write-back of %s failed: %v", resp.Key, err)
	}
	return resp, nil
}

func hit(req *http.Request, key string, entry *cachestore.Entry) *Response {
	header := entry.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	if header.Get("Content-Length") == "" {
		header.Set("Content-Length", strconv.Itoa(len(entry.Body)))
	}

	body := entry.Body
	if req.Method == http.MethodHead {
		body = nil
	}
	return &Response{
		Status: entry.Status,
		Header: header,
		Body:   io.NopCloser(bytes.NewReader(body)),
		Source: SourceCache,
		Key:    key,
	}
}
