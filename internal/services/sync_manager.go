package services

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	app_errors "woo-sync/internal/errors"
	"woo-sync/internal/httpclient"
	"woo-sync/internal/models"
	"woo-sync/internal/store"
	"woo-sync/internal/types"
	"woo-sync/internal/utils"
	"woo-sync/internal/woocommerce"

	"github.com/sirupsen/logrus"
)

const (
	syncStatusKeyPrefix = "sync:status:"
	syncStatusChannel   = "sync.status"
)

// Tick outcome statuses.
const (
	TickCompleted = "completed"
	TickSkipped   = "skipped"
	TickFailed    = "failed"
)

// TickOutcome is the tagged result of one tick. Missing configuration
// yields Skipped, any fetch or storage error yields Failed; neither ever
// escapes as a panic or crashes the timer.
type TickOutcome struct {
	Platform    string    `json:"platform"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	Imported    int       `json:"imported"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	WindowStart time.Time `json:"window_start,omitempty"`
	WindowEnd   time.Time `json:"window_end,omitempty"`
	FinishedAt  time.Time `json:"finished_at"`

	Err error `json:"-"`
}

// ImportResult summarizes a manual date-range import.
type ImportResult struct {
	RunID    string `json:"run_id"`
	Imported int    `json:"imported"`
	Updated  int    `json:"updated"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
}

// PlatformStatus is the read-side view returned to the web layer.
type PlatformStatus struct {
	Platform    string               `json:"platform"`
	Scheduled   bool                 `json:"scheduled"`
	IsRunning   bool                 `json:"is_running"`
	Settings    *models.SyncSettings `json:"settings"`
	LastOutcome *TickOutcome         `json:"last_outcome,omitempty"`
}

// orderFetcher is what a tick needs from the WooCommerce client.
type orderFetcher interface {
	FetchOrders(ctx context.Context, after, before time.Time) ([]woocommerce.Order, error)
}

type platformTimer struct {
	interval time.Duration
	stopCh   chan struct{}
	running  atomic.Bool
}

// SyncManager owns one recurring timer per platform and executes the sync
// tick: compute window, fetch pages, dedup, resolve locations, persist,
// advance timestamps. Timers live in an instance-owned registry, never in
// package state.
type SyncManager struct {
	settingsService   *SettingsService
	credentialService *CredentialService
	orderService      *OrderService
	locationService   *LocationService
	runService        *RunService
	clientManager     *httpclient.Manager
	store             store.Store
	configManager     types.ConfigManager

	// replaced in tests
	newFetcher func(cred woocommerce.Credentials) orderFetcher

	timerMu sync.Mutex
	timers  map[string]*platformTimer
	wg      sync.WaitGroup
}

// NewSyncManager assembles the sync manager from its collaborators.
func NewSyncManager(
	settingsService *SettingsService,
	credentialService *CredentialService,
	orderService *OrderService,
	locationService *LocationService,
	runService *RunService,
	clientManager *httpclient.Manager,
	storeInst store.Store,
	configManager types.ConfigManager,
) *SyncManager {
	m := &SyncManager{
		settingsService:   settingsService,
		credentialService: credentialService,
		orderService:      orderService,
		locationService:   locationService,
		runService:        runService,
		clientManager:     clientManager,
		store:             storeInst,
		configManager:     configManager,
		timers:            make(map[string]*platformTimer),
	}
	m.newFetcher = func(cred woocommerce.Credentials) orderFetcher {
		syncConfig := configManager.GetSyncConfig()
		timeout := time.Duration(syncConfig.RequestTimeoutSeconds) * time.Second
		httpClient := clientManager.GetClient(httpclient.DefaultConfig(timeout))
		return woocommerce.NewClient(cred, syncConfig, httpClient)
	}
	return m
}

// Start arms the recurring timer for a platform and runs one tick
// synchronously so enabling sync gives immediate feedback. Calling Start
// for an already-scheduled platform is a no-op.
func (m *SyncManager) Start(platform string) error {
	m.timerMu.Lock()
	if _, exists := m.timers[platform]; exists {
		m.timerMu.Unlock()
		return nil
	}

	settings, err := m.settingsService.Get(platform)
	if err != nil {
		m.timerMu.Unlock()
		return app_errors.ParseDBError(err)
	}
	if settings == nil {
		m.timerMu.Unlock()
		return app_errors.NewAPIError(app_errors.ErrResourceNotFound, "no sync settings for platform "+platform)
	}
	if !settings.IsActive {
		m.timerMu.Unlock()
		return app_errors.ErrSyncDisabled
	}

	timer := &platformTimer{
		interval: time.Duration(settings.IntervalMinutes) * time.Minute,
		stopCh:   make(chan struct{}),
	}
	m.timers[platform] = timer
	m.timerMu.Unlock()

	logrus.WithFields(logrus.Fields{
		"platform": platform,
		"interval": timer.interval,
	}).Info("Starting sync timer")

	m.RunTick(platform, models.RunSourcePoll)

	m.wg.Add(1)
	go m.loop(platform, timer)
	return nil
}

// Stop disarms the platform's timer and clears its persisted schedule.
// An in-flight tick runs to completion; only future fires are cancelled.
func (m *SyncManager) Stop(platform string) error {
	m.timerMu.Lock()
	timer, exists := m.timers[platform]
	if exists {
		close(timer.stopCh)
		delete(m.timers, platform)
	}
	m.timerMu.Unlock()

	if exists {
		logrus.WithField("platform", platform).Info("Stopped sync timer")
	}
	return m.settingsService.ClearSchedule(platform)
}

// Restart is Stop followed by Start.
func (m *SyncManager) Restart(platform string) error {
	if err := m.Stop(platform); err != nil {
		return err
	}
	return m.Start(platform)
}

// GetStatus reports the in-memory scheduling state together with the
// persisted settings snapshot and the last published tick outcome.
func (m *SyncManager) GetStatus(platform string) (*PlatformStatus, error) {
	settings, err := m.settingsService.Get(platform)
	if err != nil {
		return nil, app_errors.ParseDBError(err)
	}

	status := &PlatformStatus{Platform: platform, Settings: settings}

	m.timerMu.Lock()
	if timer, exists := m.timers[platform]; exists {
		status.Scheduled = true
		status.IsRunning = timer.running.Load()
	}
	m.timerMu.Unlock()

	if data, err := m.store.Get(syncStatusKeyPrefix + platform); err == nil {
		var outcome TickOutcome
		if json.Unmarshal(data, &outcome) == nil {
			status.LastOutcome = &outcome
		}
	}
	return status, nil
}

// ResumeActive re-arms timers for every platform whose settings are active.
// Called once at startup so schedules survive restarts.
func (m *SyncManager) ResumeActive() error {
	settings, err := m.settingsService.List()
	if err != nil {
		return err
	}
	for _, s := range settings {
		if !s.IsActive {
			continue
		}
		platform := s.Platform
		go func() {
			if err := m.Start(platform); err != nil {
				logrus.WithField("platform", platform).Errorf("Failed to resume sync: %v", err)
			}
		}()
	}
	return nil
}

// Shutdown disarms every timer and waits for in-flight ticks, bounded by
// the context deadline.
func (m *SyncManager) Shutdown(ctx context.Context) error {
	m.timerMu.Lock()
	platforms := make([]string, 0, len(m.timers))
	for platform, timer := range m.timers {
		close(timer.stopCh)
		platforms = append(platforms, platform)
	}
	m.timers = make(map[string]*platformTimer)
	m.timerMu.Unlock()

	for _, platform := range platforms {
		if err := m.settingsService.ClearSchedule(platform); err != nil {
			logrus.WithField("platform", platform).Errorf("Failed to clear schedule: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logrus.Info("Sync manager stopped gracefully")
		return nil
	case <-ctx.Done():
		logrus.Warn("Sync manager shutdown timed out")
		return ctx.Err()
	}
}

func (m *SyncManager) loop(platform string, timer *platformTimer) {
	defer m.wg.Done()

	ticker := time.NewTicker(timer.interval)
	defer ticker.Stop()

	for {
		select {
		case <-timer.stopCh:
			return
		case <-ticker.C:
			m.RunTick(platform, models.RunSourcePoll)
		}
	}
}

// RunTick executes one sync pass for a platform. It never panics past the
// tick boundary; the outcome tag tells callers what happened.
func (m *SyncManager) RunTick(platform, source string) TickOutcome {
	m.timerMu.Lock()
	timer := m.timers[platform]
	m.timerMu.Unlock()
	if timer != nil {
		timer.running.Store(true)
		defer timer.running.Store(false)
	}

	outcome := m.executeTick(platform, source)
	outcome.Platform = platform
	outcome.FinishedAt = time.Now()
	m.publishOutcome(&outcome)

	logrus.WithFields(logrus.Fields{
		"platform": platform,
		"status":   outcome.Status,
		"imported": outcome.Imported,
		"skipped":  outcome.Skipped,
		"failed":   outcome.Failed,
	}).Info("Sync tick finished")
	return outcome
}

// storageOutcome classifies a settings or run persistence error. Lock
// contention and timeouts skip the cycle so the next timer fire retries it;
// anything else fails the tick.
func storageOutcome(err error, reason string) TickOutcome {
	if utils.IsTransientDBError(err) {
		return TickOutcome{Status: TickSkipped, Err: err, Reason: reason + ": transient database contention"}
	}
	return TickOutcome{Status: TickFailed, Err: err, Reason: reason}
}

func (m *SyncManager) executeTick(platform, source string) TickOutcome {
	settings, err := m.settingsService.Get(platform)
	if err != nil {
		return storageOutcome(err, "failed to load settings")
	}
	if settings == nil {
		return TickOutcome{Status: TickSkipped, Reason: "no sync settings"}
	}

	if err := m.settingsService.SetRunning(platform, true); err != nil {
		return storageOutcome(err, "failed to mark running")
	}

	credentials, err := m.credentialService.Resolve(platform)
	if err != nil {
		_ = m.settingsService.FailTick(platform)
		return TickOutcome{Status: TickFailed, Err: err, Reason: "failed to load credentials"}
	}
	if credentials == nil {
		// Not an error: the platform simply is not configured yet.
		logrus.WithField("platform", platform).Warn("Skipping sync tick, credentials missing or incomplete")
		_ = m.settingsService.FailTick(platform)
		return TickOutcome{Status: TickSkipped, Reason: "missing credentials"}
	}

	now := time.Now()
	since, until := computeWindow(settings.LastSyncAt, now, m.configManager.GetSyncConfig())

	run, err := m.runService.Begin(platform, source, since, until)
	if err != nil {
		_ = m.settingsService.FailTick(platform)
		return storageOutcome(err, "failed to record run")
	}

	orders, err := m.newFetcher(*credentials).FetchOrders(context.Background(), since, until)
	if err != nil {
		_ = m.settingsService.FailTick(platform)
		_ = m.runService.Finish(run, models.RunOutcomeFailed, 0, 0, 0, 0, err)
		return TickOutcome{
			Status: TickFailed, Err: err, Reason: "fetch failed",
			WindowStart: since, WindowEnd: until,
		}
	}

	imported, skipped, failed := 0, 0, 0
	for i := range orders {
		created, err := m.importOrder(platform, &orders[i])
		if err != nil {
			// A malformed order must not sink the rest of the page.
			logrus.WithFields(logrus.Fields{
				"platform": platform,
				"order_id": orders[i].ID,
			}).Warnf("Failed to import order: %v", err)
			failed++
			continue
		}
		if created {
			imported++
		} else {
			skipped++
		}
	}

	interval := time.Duration(settings.IntervalMinutes) * time.Minute
	if err := m.settingsService.CompleteTick(platform, now, now.Add(interval), imported); err != nil {
		_ = m.settingsService.FailTick(platform)
		_ = m.runService.Finish(run, models.RunOutcomeFailed, imported, 0, skipped, failed, err)
		return storageOutcome(err, "failed to persist settings")
	}
	_ = m.runService.Finish(run, models.RunOutcomeCompleted, imported, 0, skipped, failed, nil)

	return TickOutcome{
		Status:      TickCompleted,
		Imported:    imported,
		Skipped:     skipped,
		Failed:      failed,
		WindowStart: since,
		WindowEnd:   until,
	}
}

// importOrder persists a single fetched order unless its external id is
// already stored. Returns created=false for dedup skips.
func (m *SyncManager) importOrder(platform string, src *woocommerce.Order) (bool, error) {
	externalID := strconv.FormatInt(src.ID, 10)
	exists, err := m.orderService.ExistsByExternalID(platform, externalID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	location, err := m.locationService.FindOrCreate(LocationHint(src))
	if err != nil {
		return false, err
	}

	order, err := MapOrder(platform, src, location.ID)
	if err != nil {
		return false, err
	}
	return m.orderService.Insert(order)
}

// ManualImport fetches a caller-chosen date range and upserts the result.
// Unlike the polling tick it refreshes existing rows and never advances
// lastSyncAt.
func (m *SyncManager) ManualImport(platform string, from, to time.Time) (*ImportResult, error) {
	settings, err := m.settingsService.Get(platform)
	if err != nil {
		return nil, app_errors.ParseDBError(err)
	}
	if settings != nil && settings.IsRunning {
		return nil, app_errors.ErrSyncInProgress
	}

	credentials, err := m.credentialService.Resolve(platform)
	if err != nil {
		return nil, app_errors.NewAPIError(app_errors.ErrInternalServer, "failed to load credentials")
	}
	if credentials == nil {
		return nil, app_errors.ErrMissingCredential
	}

	run, err := m.runService.Begin(platform, models.RunSourceManual, from, to)
	if err != nil {
		return nil, app_errors.ParseDBError(err)
	}

	orders, err := m.newFetcher(*credentials).FetchOrders(context.Background(), from, to)
	if err != nil {
		_ = m.runService.Finish(run, models.RunOutcomeFailed, 0, 0, 0, 0, err)
		return nil, app_errors.NewAPIError(app_errors.ErrBadGateway, "order fetch failed: "+err.Error())
	}

	result := &ImportResult{RunID: run.ID}
	for i := range orders {
		src := &orders[i]
		location, err := m.locationService.FindOrCreate(LocationHint(src))
		if err != nil {
			result.Failed++
			continue
		}
		order, mapErr := MapOrder(platform, src, location.ID)
		if mapErr != nil {
			result.Failed++
			continue
		}
		created, err := m.orderService.UpsertByExternalID(order)
		if err != nil {
			result.Failed++
			continue
		}
		if created {
			result.Imported++
		} else {
			result.Updated++
		}
	}

	_ = m.runService.Finish(run, models.RunOutcomeCompleted,
		result.Imported, result.Updated, result.Skipped, result.Failed, nil)
	return result, nil
}

func (m *SyncManager) publishOutcome(outcome *TickOutcome) {
	data, err := json.Marshal(outcome)
	if err != nil {
		return
	}
	if err := m.store.Set(syncStatusKeyPrefix+outcome.Platform, data, 0); err != nil {
		logrus.Debugf("Failed to store sync status: %v", err)
	}
	if err := m.store.Publish(syncStatusChannel, data); err != nil {
		logrus.Debugf("Failed to publish sync status: %v", err)
	}
}

// computeWindow derives the fetch window for a tick. With a previous
// successful sync the window starts a buffer before it, tolerating clock
// skew and upstream read lag; a first run looks back a fixed number of
// hours instead.
func computeWindow(lastSyncAt *time.Time, now time.Time, syncConfig types.SyncConfig) (time.Time, time.Time) {
	if lastSyncAt != nil {
		return lastSyncAt.Add(-time.Duration(syncConfig.BufferMinutes) * time.Minute), now
	}
	return now.Add(-time.Duration(syncConfig.FirstRunLookbackHours) * time.Hour), now
}
