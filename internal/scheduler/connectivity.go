// Package scheduler runs periodic background jobs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/mrlokans/mangaslayer/internal/bgsync"
	"github.com/mrlokans/mangaslayer/internal/config"
	"github.com/mrlokans/mangaslayer/internal/entities"
)

// Prober reports whether the remote API is reachable.
type Prober interface {
	Health(ctx context.Context) error
}

// StateStore persists the last observed connectivity.
type StateStore interface {
	GetSetting(key string) (*entities.Setting, error)
	SetSetting(key, value string) error
}

// ConnectivityStatus is the last probe outcome.
type ConnectivityStatus struct {
	Online    bool       `json:"online"`
	Known     bool       `json:"known"`
	CheckedAt *time.Time `json:"checked_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// ConnectivityMonitor probes the remote API on a schedule and raises a sync
// event for every configured tag when it comes back online. An unknown
// previous state counts as offline, so pending work also resumes after a
// restart.
type ConnectivityMonitor struct {
	cfg     config.Connectivity
	prober  Prober
	store   StateStore
	trigger bgsync.Trigger
	now     func() time.Time

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc

	checkMu sync.Mutex
	status  ConnectivityStatus
}

func NewConnectivityMonitor(cfg config.Connectivity, prober Prober, store StateStore, trigger bgsync.Trigger) *ConnectivityMonitor {
	if len(cfg.SyncTags) == 0 {
		cfg.SyncTags = []string{bgsync.DownloadMangaTag}
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	return &ConnectivityMonitor{
		cfg:     cfg,
		prober:  prober,
		store:   store,
		trigger: trigger,
		now:     time.Now,
		cron:    cron.New(cron.WithParser(cronParser)),
	}
}

// Start begins probing if the monitor is enabled.
func (m *ConnectivityMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return nil
	}

	if !m.cfg.Enabled {
		log.Printf("[SYNC] Connectivity monitor: disabled")
		return nil
	}

	if err := ValidateCronSchedule(m.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", m.cfg.Schedule, err)
	}

	var cancelCtx context.Context
	cancelCtx, m.cancelFunc = context.WithCancel(ctx)

	entryID, err := m.cron.AddFunc(m.cfg.Schedule, func() {
		m.runCheck(cancelCtx)
	})
	if err != nil {
		m.cancelFunc()
		return fmt.Errorf("failed to schedule connectivity probe: %w", err)
	}
	m.entryID = entryID

	m.cron.Start()
	m.isRunning = true

	nextRun, _ := NextRunTime(m.cfg.Schedule, m.now())
	log.Printf("[SYNC] Connectivity monitor: started with schedule '%s' (%s). Next run: %v",
		m.cfg.Schedule, CronDescription(m.cfg.Schedule), nextRun)

	go func() {
		<-cancelCtx.Done()
		m.Stop()
	}()

	return nil
}

// Stop waits for a running probe and stops the schedule.
func (m *ConnectivityMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning {
		return
	}

	ctx := m.cron.Stop()
	<-ctx.Done()
	m.cron.Remove(m.entryID)

	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.isRunning = false
	m.cancelFunc = nil

	log.Printf("[SYNC] Connectivity monitor: stopped")
}

// RunNow triggers an immediate probe in the background.
func (m *ConnectivityMonitor) RunNow() {
	go m.runCheck(context.Background())
}

func (m *ConnectivityMonitor) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isRunning
}

// GetNextRunTime returns when the next probe will occur.
func (m *ConnectivityMonitor) GetNextRunTime() *time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.isRunning {
		return nil
	}
	for _, entry := range m.cron.Entries() {
		if entry.ID == m.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// Status returns the last probe outcome.
func (m *ConnectivityMonitor) Status() ConnectivityStatus {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()
	return m.status
}

func (m *ConnectivityMonitor) runCheck(ctx context.Context) {
	if _, err := m.Check(ctx); err != nil {
		log.Printf("[SYNC] Connectivity check: %v", err)
	}
}

// Check probes once, records the result and raises sync events on an
// offline to online transition. It returns the triggered event ids.
func (m *ConnectivityMonitor) Check(ctx context.Context) ([]string, error) {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	wasOnline := m.previousOnline()

	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	probeErr := m.prober.Health(probeCtx)
	cancel()

	checkedAt := m.now()
	m.status = ConnectivityStatus{Online: probeErr == nil, Known: true, CheckedAt: &checkedAt}
	if probeErr != nil {
		m.status.LastError = probeErr.Error()
	}

	var errs []error
	if err := m.store.SetSetting(entities.SettingKeyConnectivityOnline, strconv.FormatBool(probeErr == nil)); err != nil {
		errs = append(errs, fmt.Errorf("failed to save connectivity state: %w", err))
	}
	if err := m.store.SetSetting(entities.SettingKeyConnectivityCheckedAt, checkedAt.UTC().Format(time.RFC3339)); err != nil {
		errs = append(errs, fmt.Errorf("failed to save connectivity check time: %w", err))
	}

	if probeErr != nil {
		if wasOnline {
			log.Printf("[SYNC] Remote API went offline: %v", probeErr)
		}
		return nil, errors.Join(errs...)
	}
	if wasOnline {
		return nil, errors.Join(errs...)
	}

	log.Printf("[SYNC] Remote API is reachable, resuming %d sync tags", len(m.cfg.SyncTags))
	var ids []string
	for _, tag := range m.cfg.SyncTags {
		id, err := m.trigger.Trigger(ctx, tag, "connectivity regained")
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to trigger %s: %w", tag, err))
			continue
		}
		ids = append(ids, id)
	}
	return ids, errors.Join(errs...)
}

func (m *ConnectivityMonitor) previousOnline() bool {
	if m.status.Known {
		return m.status.Online
	}
	setting, err := m.store.GetSetting(entities.SettingKeyConnectivityOnline)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[SYNC] Failed to load connectivity state: %v", err)
		}
		return false
	}
	online, _ := strconv.ParseBool(setting.Value)
	return online
}
