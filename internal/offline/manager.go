// Package offline manages the lifecycle of offline cache generations.
//
// A generation is installed by fetching every pinned resource and committing
// them in one batch, then activated, which deletes every other generation and
// makes the new one the source for request interception. Install and Activate
// are serialized; readers of the active generation never block.
package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/mrlokans/mangaslayer/internal/cachestore"
	"github.com/mrlokans/mangaslayer/internal/entities"
)

var (
	ErrInstallFailed    = errors.New("cache install failed")
	ErrNotInstalled     = errors.New("cache generation not installed")
	ErrGenerationExists = errors.New("cache generation already installed")
)

const defaultConcurrency = 4

// Network fetches resources from the origin.
type Network interface {
	Do(req *http.Request) (*http.Response, error)
}

// Storage is the named store backing generations.
type Storage interface {
	Open(name string) *cachestore.Bucket
	Names(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) (bool, error)
}

// Registry persists which generations are installed and which one is active.
type Registry interface {
	Get(ctx context.Context, id string) (*entities.CacheGeneration, error)
	GetActive(ctx context.Context) (*entities.CacheGeneration, error)
	List(ctx context.Context) ([]entities.CacheGeneration, error)
	SetActive(ctx context.Context, id string, at time.Time) error
}

// ActivationReport describes what Activate removed.
type ActivationReport struct {
	Generation string   `json:"generation"`
	Deleted    []string `json:"deleted"`
	Orphaned   []string `json:"orphaned,omitempty"`
}

type Option func(*Manager)

// WithConcurrency bounds how many pinned resources are fetched at once.
func WithConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

type Manager struct {
	mu          sync.Mutex
	store       Storage
	registry    Registry
	network     Network
	concurrency int
	now         func() time.Time

	active atomic.Pointer[Generation]
}

func NewManager(store Storage, registry Registry, network Network, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		registry:    registry,
		network:     network,
		concurrency: defaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Active returns the generation currently serving requests, or nil.
func (m *Manager) Active() *Generation {
	return m.active.Load()
}

// Ready reports whether a generation has been activated.
func (m *Manager) Ready() bool {
	return m.active.Load() != nil
}

// Restore loads the persisted active generation so interception works
// immediately after a restart.
func (m *Manager) Restore(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	gen, err := m.registry.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("load active generation: %w", err)
	}
	if gen == nil {
		log.Printf("[CACHE] No active generation yet")
		return nil
	}

	m.active.Store(m.handle(gen))
	log.Printf("[CACHE] Restored active generation %s", gen.ID)
	return nil
}

// Install fetches every pinned resource and stores them as generationID.
// Nothing is written unless every fetch succeeds. Install never deletes.
// Generation ids are single-use: installing an id that is already
// registered returns ErrGenerationExists and fetches nothing.
func (m *Manager) Install(ctx context.Context, generationID string, pinned []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.install(ctx, generationID, pinned)
}

func (m *Manager) install(ctx context.Context, generationID string, pinned []string) error {
	keys, err := manifestKeys(pinned)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInstallFailed, generationID, err)
	}

	installed, err := m.installed(ctx, generationID)
	if err != nil {
		return err
	}
	if installed {
		return fmt.Errorf("%w: %s", ErrGenerationExists, generationID)
	}

	log.Printf("[CACHE] Installing generation %s (%d resources)", generationID, len(keys))
	start := m.now()

	entries := make([]cachestore.Entry, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			entry, err := m.fetch(gctx, key)
			if err != nil {
				return err
			}
			entries[i] = *entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("[CACHE] Install of %s failed: %v", generationID, err)
		return fmt.Errorf("%w: %s: %w", ErrInstallFailed, generationID, err)
	}

	if err := m.store.Open(generationID).PutAll(ctx, entries); err != nil {
		if errors.Is(err, cachestore.ErrRegistered) {
			return fmt.Errorf("%w: %s", ErrGenerationExists, generationID)
		}
		log.Printf("[CACHE] Install of %s failed to commit: %v", generationID, err)
		return fmt.Errorf("%w: %s: %w", ErrInstallFailed, generationID, err)
	}

	log.Printf("[CACHE] Installed generation %s in %s", generationID, m.now().Sub(start))
	return nil
}

// Activate deletes every store other than generationID, waits for all
// deletions, and then makes generationID the active generation.
// Deletion failures are logged and reported as orphaned; they do not
// block activation.
func (m *Manager) Activate(ctx context.Context, generationID string) (*ActivationReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activate(ctx, generationID)
}

func (m *Manager) activate(ctx context.Context, generationID string) (*ActivationReport, error) {
	gen, err := m.registry.Get(ctx, generationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotInstalled, generationID)
	}
	if err != nil {
		return nil, fmt.Errorf("look up generation %s: %w", generationID, err)
	}

	names, err := m.store.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate cache stores: %w", err)
	}

	report := &ActivationReport{Generation: generationID, Deleted: []string{}}
	var reportMu sync.Mutex

	var g errgroup.Group
	for _, name := range names {
		if name == generationID {
			continue
		}
		g.Go(func() error {
			_, err := m.store.Delete(ctx, name)
			reportMu.Lock()
			defer reportMu.Unlock()
			if err != nil {
				log.Printf("[CACHE] Failed to delete stale generation %s: %v", name, err)
				report.Orphaned = append(report.Orphaned, name)
				return nil
			}
			report.Deleted = append(report.Deleted, name)
			return nil
		})
	}
	_ = g.Wait()

	activatedAt := m.now()
	if err := m.registry.SetActive(ctx, generationID, activatedAt); err != nil {
		return nil, fmt.Errorf("mark %s active: %w", generationID, err)
	}
	gen.Active = true
	gen.ActivatedAt = &activatedAt
	m.active.Store(m.handle(gen))

	log.Printf("[CACHE] Activated generation %s (deleted %d, orphaned %d)",
		generationID, len(report.Deleted), len(report.Orphaned))
	return report, nil
}

// Deploy installs and activates generationID unless it is already active.
// An installed but inactive generation is activated as it is.
// Both steps run under one lock so a concurrent deploy cannot delete the
// generation between its install and activation. When the install fails
// the previous generation keeps serving.
func (m *Manager) Deploy(ctx context.Context, generationID string, pinned []string) (*ActivationReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current := m.Active(); current != nil && current.ID == generationID {
		return &ActivationReport{Generation: generationID, Deleted: []string{}}, nil
	}
	installed, err := m.installed(ctx, generationID)
	if err != nil {
		return nil, err
	}
	if !installed {
		if err := m.install(ctx, generationID, pinned); err != nil {
			return nil, err
		}
	}
	return m.activate(ctx, generationID)
}

func (m *Manager) installed(ctx context.Context, generationID string) (bool, error) {
	_, err := m.registry.Get(ctx, generationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up generation %s: %w", generationID, err)
	}
	return true, nil
}

func (m *Manager) handle(gen *entities.CacheGeneration) *Generation {
	h := &Generation{
		ID:          gen.ID,
		PinnedCount: gen.PinnedCount,
		InstalledAt: gen.InstalledAt,
		bucket:      m.store.Open(gen.ID),
	}
	if gen.ActivatedAt != nil {
		h.ActivatedAt = *gen.ActivatedAt
	}
	return h
}

func (m *Manager) fetch(ctx context.Context, key string) (*cachestore.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", key, err)
	}

	resp, err := m.network.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", key, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	return &cachestore.Entry{
		Key:    key,
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	}, nil
}

func manifestKeys(pinned []string) ([]string, error) {
	seen := make(map[string]bool, len(pinned))
	keys := make([]string, 0, len(pinned))
	for _, raw := range pinned {
		key, err := cachestore.ParseResourceKey(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid pinned resource %q: %w", raw, err)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys, nil
}
