// Package remoteapi is the client for the manga backend: preferences,
// chapters, the download orchestrator and reading progress.
package remoteapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mrlokans/mangaslayer/internal/entities"
	"github.com/mrlokans/mangaslayer/internal/preferences"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512

	// IdempotencyHeader carries the local download task id so the
	// orchestrator can drop duplicate requests.
	IdempotencyHeader = "Idempotency-Key"
)

type Chapter struct {
	ID            string   `json:"id"`
	MangaID       string   `json:"manga_id"`
	ChapterNumber float64  `json:"chapter_number"`
	Title         string   `json:"title"`
	TitleAr       string   `json:"title_ar"`
	Pages         []string `json:"pages"`
}

type DownloadAck struct {
	Message   string `json:"message"`
	Status    string `json:"status,omitempty"`
	MangaID   string `json:"manga_id,omitempty"`
	ChapterID string `json:"chapter_id,omitempty"`
}

// RemoteID returns whatever identifier the orchestrator echoed back.
func (a *DownloadAck) RemoteID() string {
	if a.ChapterID != "" {
		return a.ChapterID
	}
	return a.MangaID
}

type Progress struct {
	MangaID   string `json:"manga_id"`
	ChapterID string `json:"chapter_id"`
	Page      int    `json:"page"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: "MangaSlayer/1.0",
	}
}

// Health checks that the remote API answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil, nil)
}

func (c *Client) GetPreferences(ctx context.Context) (*preferences.PreferenceSet, error) {
	var prefs preferences.PreferenceSet
	if err := c.do(ctx, http.MethodGet, "/api/preferences", nil, nil, &prefs); err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return &prefs, nil
}

func (c *Client) SavePreferences(ctx context.Context, prefs preferences.PreferenceSet) error {
	if err := c.do(ctx, http.MethodPost, "/api/preferences", nil, prefs, nil); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

func (c *Client) GetChapter(ctx context.Context, chapterID string) (*Chapter, error) {
	var chapter Chapter
	path := "/api/chapter/" + url.PathEscape(chapterID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &chapter); err != nil {
		return nil, fmt.Errorf("get chapter %s: %w", chapterID, err)
	}
	return &chapter, nil
}

// RequestDownload asks the orchestrator to start a download. taskID is
// sent as the idempotency key.
func (c *Client) RequestDownload(ctx context.Context, kind entities.DownloadKind, targetID, taskID string) (*DownloadAck, error) {
	path := fmt.Sprintf("/api/download/%s/%s", kind, url.PathEscape(targetID))
	headers := http.Header{}
	headers.Set(IdempotencyHeader, taskID)

	var ack DownloadAck
	if err := c.do(ctx, http.MethodPost, path, headers, nil, &ack); err != nil {
		return nil, fmt.Errorf("request %s download %s: %w", kind, targetID, err)
	}
	return &ack, nil
}

func (c *Client) UpdateReadingProgress(ctx context.Context, p Progress) error {
	q := url.Values{}
	q.Set("manga_id", p.MangaID)
	q.Set("chapter_id", p.ChapterID)
	q.Set("page", strconv.Itoa(p.Page))
	if err := c.do(ctx, http.MethodPost, "/api/reading-progress?"+q.Encode(), nil, nil, nil); err != nil {
		return fmt.Errorf("update reading progress: %w", err)
	}
	return nil
}

func (c *Client) GetReadingProgress(ctx context.Context, mangaID string) (*Progress, error) {
	var raw struct {
		MangaID   string  `json:"manga_id"`
		ChapterID *string `json:"chapter_id"`
		Page      int     `json:"page"`
	}
	path := "/api/reading-progress/" + url.PathEscape(mangaID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("get reading progress: %w", err)
	}
	p := &Progress{MangaID: raw.MangaID, Page: raw.Page}
	if raw.ChapterID != nil {
		p.ChapterID = *raw.ChapterID
	}
	return p, nil
}

func (c *Client) do(ctx context.Context, method, path string, headers http.Header, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
