package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"woo-sync/internal/encryption"
	app_errors "woo-sync/internal/errors"
	"woo-sync/internal/httpclient"
	"woo-sync/internal/models"
	"woo-sync/internal/store"
	"woo-sync/internal/types"
	"woo-sync/internal/woocommerce"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubConfig struct {
	sync types.SyncConfig
	fee  types.FeeConfig
}

func newStubConfig() *stubConfig {
	return &stubConfig{
		sync: types.SyncConfig{
			PageSize:              100,
			MaxPageRetries:        3,
			RetryBackoffSeconds:   0,
			RequestTimeoutSeconds: 30,
			BufferMinutes:         60,
			FirstRunLookbackHours: 48,
		},
		fee: types.FeeConfig{PercentRate: 0.029, FixedCents: 30},
	}
}

func (c *stubConfig) GetAuthConfig() types.AuthConfig               { return types.AuthConfig{Key: "test"} }
func (c *stubConfig) GetCORSConfig() types.CORSConfig               { return types.CORSConfig{} }
func (c *stubConfig) GetPerformanceConfig() types.PerformanceConfig { return types.PerformanceConfig{} }
func (c *stubConfig) GetLogConfig() types.LogConfig                 { return types.LogConfig{Level: "error"} }
func (c *stubConfig) GetDatabaseConfig() types.DatabaseConfig       { return types.DatabaseConfig{} }
func (c *stubConfig) GetSyncConfig() types.SyncConfig               { return c.sync }
func (c *stubConfig) GetFeeConfig() types.FeeConfig                 { return c.fee }
func (c *stubConfig) GetEncryptionKey() string                      { return "" }
func (c *stubConfig) GetEffectiveServerConfig() types.ServerConfig  { return types.ServerConfig{} }
func (c *stubConfig) GetRedisDSN() string                           { return "" }
func (c *stubConfig) Validate() error                               { return nil }
func (c *stubConfig) DisplayServerConfig()                          {}
func (c *stubConfig) ReloadConfig() error                           { return nil }

type fakeFetcher struct {
	orders     []woocommerce.Order
	err        error
	calls      int
	lastAfter  time.Time
	lastBefore time.Time
}

func (f *fakeFetcher) FetchOrders(_ context.Context, after, before time.Time) ([]woocommerce.Order, error) {
	f.calls++
	f.lastAfter = after
	f.lastBefore = before
	if f.err != nil {
		return nil, f.err
	}
	return f.orders, nil
}

type managerFixture struct {
	db       *gorm.DB
	manager  *SyncManager
	settings *SettingsService
	creds    *CredentialService
	fetcher  *fakeFetcher
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()

	db := newTestDB(t)
	encSvc, err := encryption.NewService("")
	require.NoError(t, err)

	memStore := store.NewMemoryStore()
	t.Cleanup(func() { memStore.Close() })

	settings := NewSettingsService(db)
	creds := NewCredentialService(db, encSvc)
	fetcher := &fakeFetcher{}

	manager := NewSyncManager(
		settings,
		creds,
		NewOrderService(db),
		NewLocationService(db),
		NewRunService(db),
		httpclient.NewManager(),
		memStore,
		newStubConfig(),
	)
	manager.newFetcher = func(woocommerce.Credentials) orderFetcher { return fetcher }

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		manager.Shutdown(ctx)
	})

	return &managerFixture{db: db, manager: manager, settings: settings, creds: creds, fetcher: fetcher}
}

func (f *managerFixture) configure(t *testing.T, platform string, active bool) {
	t.Helper()
	_, err := f.settings.Upsert(platform, active, 15)
	require.NoError(t, err)
	_, err = f.creds.Upsert(platform, "https://shop.example.com", "ck_test", "cs_test")
	require.NoError(t, err)
}

func fetchedOrder(id int64, location string) woocommerce.Order {
	return woocommerce.Order{
		ID:             id,
		Status:         models.OrderStatusCompleted,
		Total:          "10.00",
		DateCreatedGMT: "2026-08-20T12:00:00",
		Billing: woocommerce.Address{
			FirstName: "Ada", LastName: "Lovelace",
			Email: "ada@example.com", City: "Columbus", State: "OH",
		},
		Shipping: woocommerce.Address{City: "Columbus", State: "OH"},
		Raw:      []byte(`{"meta_data": [{"key": "_store_location", "value": "` + location + `"}]}`),
	}
}

func TestComputeWindow(t *testing.T) {
	cfg := newStubConfig().sync
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	t.Run("WithLastSync", func(t *testing.T) {
		last := now.Add(-15 * time.Minute)
		since, until := computeWindow(&last, now, cfg)
		assert.Equal(t, last.Add(-time.Hour), since)
		assert.Equal(t, now, until)
	})

	t.Run("FirstRun", func(t *testing.T) {
		since, until := computeWindow(nil, now, cfg)
		assert.Equal(t, now.Add(-48*time.Hour), since)
		assert.Equal(t, now, until)
	})
}

func TestTickImportsAndSecondPassSkipsAll(t *testing.T) {
	f := newManagerFixture(t)
	f.configure(t, "downtown", true)
	f.fetcher.orders = []woocommerce.Order{
		fetchedOrder(1, "Easton Town Center"),
		fetchedOrder(2, "Easton Town Center"),
	}

	first := f.manager.RunTick("downtown", models.RunSourcePoll)
	assert.Equal(t, TickCompleted, first.Status)
	assert.Equal(t, 2, first.Imported)
	assert.Equal(t, 0, first.Skipped)

	// Same window, same remote data: everything dedups, nothing new lands.
	second := f.manager.RunTick("downtown", models.RunSourcePoll)
	assert.Equal(t, TickCompleted, second.Status)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 2, second.Skipped)

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestTickCompletionAdvancesSettings(t *testing.T) {
	f := newManagerFixture(t)
	f.configure(t, "downtown", true)
	f.fetcher.orders = []woocommerce.Order{fetchedOrder(1, "Easton Town Center")}

	before := time.Now()
	outcome := f.manager.RunTick("downtown", models.RunSourcePoll)
	require.Equal(t, TickCompleted, outcome.Status)

	settings, err := f.settings.Get("downtown")
	require.NoError(t, err)
	require.NotNil(t, settings.LastSyncAt)
	require.NotNil(t, settings.NextSyncAt)
	assert.False(t, settings.IsRunning)
	assert.Equal(t, 1, settings.LastOrderCount)
	assert.WithinDuration(t, before.Add(15*time.Minute), *settings.NextSyncAt, 5*time.Second)
}

func TestTickFailureDoesNotAdvanceLastSync(t *testing.T) {
	f := newManagerFixture(t)
	f.configure(t, "downtown", true)

	lastSync := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	require.NoError(t, f.settings.CompleteTick("downtown", lastSync, lastSync.Add(15*time.Minute), 0))

	f.fetcher.err = errors.New("upstream down")
	outcome := f.manager.RunTick("downtown", models.RunSourcePoll)
	assert.Equal(t, TickFailed, outcome.Status)
	assert.Error(t, outcome.Err)

	settings, err := f.settings.Get("downtown")
	require.NoError(t, err)
	require.NotNil(t, settings.LastSyncAt)
	assert.True(t, settings.LastSyncAt.Equal(lastSync), "failed tick must not advance lastSyncAt")
	assert.False(t, settings.IsRunning)
}

func TestTickFailedWindowOverlapsPreviousAttempt(t *testing.T) {
	f := newManagerFixture(t)
	f.configure(t, "downtown", true)

	lastSync := time.Now().Add(-30 * time.Minute)
	require.NoError(t, f.settings.CompleteTick("downtown", lastSync, lastSync, 0))

	f.fetcher.err = errors.New("boom")
	f.manager.RunTick("downtown", models.RunSourcePoll)

	// Next tick recomputes the window from the untouched lastSyncAt.
	f.fetcher.err = nil
	f.manager.RunTick("downtown", models.RunSourcePoll)
	assert.WithinDuration(t, lastSync.Add(-time.Hour), f.fetcher.lastAfter, time.Second)
}

func TestTickSkippedWithoutCredentials(t *testing.T) {
	f := newManagerFixture(t)
	_, err := f.settings.Upsert("downtown", true, 15)
	require.NoError(t, err)

	outcome := f.manager.RunTick("downtown", models.RunSourcePoll)
	assert.Equal(t, TickSkipped, outcome.Status)
	assert.Equal(t, "missing credentials", outcome.Reason)
	assert.Equal(t, 0, f.fetcher.calls)
}

func TestTickSkippedWithoutSettings(t *testing.T) {
	f := newManagerFixture(t)

	outcome := f.manager.RunTick("ghost", models.RunSourcePoll)
	assert.Equal(t, TickSkipped, outcome.Status)
	assert.Equal(t, "no sync settings", outcome.Reason)
}

func TestTickCountsMalformedOrdersAsFailed(t *testing.T) {
	f := newManagerFixture(t)
	f.configure(t, "downtown", true)

	bad := fetchedOrder(1, "Easton Town Center")
	bad.Total = "free"
	f.fetcher.orders = []woocommerce.Order{bad, fetchedOrder(2, "Easton Town Center")}

	outcome := f.manager.RunTick("downtown", models.RunSourcePoll)
	assert.Equal(t, TickCompleted, outcome.Status)
	assert.Equal(t, 1, outcome.Imported)
	assert.Equal(t, 1, outcome.Failed)
}

func TestStartLifecycle(t *testing.T) {
	f := newManagerFixture(t)
	f.configure(t, "downtown", true)

	require.NoError(t, f.manager.Start("downtown"))
	assert.Equal(t, 1, f.fetcher.calls, "start runs one tick immediately")

	// Second start without an intervening stop is a no-op.
	require.NoError(t, f.manager.Start("downtown"))
	f.manager.timerMu.Lock()
	assert.Len(t, f.manager.timers, 1)
	f.manager.timerMu.Unlock()
	assert.Equal(t, 1, f.fetcher.calls)

	status, err := f.manager.GetStatus("downtown")
	require.NoError(t, err)
	assert.True(t, status.Scheduled)
	require.NotNil(t, status.LastOutcome)
	assert.Equal(t, TickCompleted, status.LastOutcome.Status)

	require.NoError(t, f.manager.Stop("downtown"))
	status, err = f.manager.GetStatus("downtown")
	require.NoError(t, err)
	assert.False(t, status.Scheduled)
	assert.False(t, status.IsRunning)
	assert.Nil(t, status.Settings.NextSyncAt)
}

func TestStartRefusesDisabledPlatform(t *testing.T) {
	f := newManagerFixture(t)
	f.configure(t, "downtown", false)

	err := f.manager.Start("downtown")
	assert.ErrorIs(t, err, app_errors.ErrSyncDisabled)
}

func TestStartUnknownPlatform(t *testing.T) {
	f := newManagerFixture(t)

	err := f.manager.Start("ghost")
	require.Error(t, err)
	var apiErr *app_errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, app_errors.ErrResourceNotFound.Code, apiErr.Code)
}

func TestRestart(t *testing.T) {
	f := newManagerFixture(t)
	f.configure(t, "downtown", true)

	require.NoError(t, f.manager.Start("downtown"))
	require.NoError(t, f.manager.Restart("downtown"))

	f.manager.timerMu.Lock()
	assert.Len(t, f.manager.timers, 1)
	f.manager.timerMu.Unlock()
	assert.Equal(t, 2, f.fetcher.calls, "restart runs a fresh immediate tick")
}

func TestManualImportUpdatesExistingRows(t *testing.T) {
	f := newManagerFixture(t)
	f.configure(t, "downtown", true)

	f.fetcher.orders = []woocommerce.Order{fetchedOrder(1, "Easton Town Center")}
	require.Equal(t, TickCompleted, f.manager.RunTick("downtown", models.RunSourcePoll).Status)

	settingsBefore, err := f.settings.Get("downtown")
	require.NoError(t, err)

	refreshed := fetchedOrder(1, "Easton Town Center")
	refreshed.Status = models.OrderStatusRefunded
	f.fetcher.orders = []woocommerce.Order{refreshed, fetchedOrder(2, "Easton Town Center")}

	from := time.Now().Add(-24 * time.Hour)
	result, err := f.manager.ManualImport("downtown", from, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Updated)
	assert.NotEmpty(t, result.RunID)

	var stored models.Order
	require.NoError(t, f.db.Where("external_order_id = ?", "1").First(&stored).Error)
	assert.Equal(t, models.OrderStatusRefunded, stored.Status)

	// Manual imports never touch the polling cursor.
	settingsAfter, err := f.settings.Get("downtown")
	require.NoError(t, err)
	assert.True(t, settingsAfter.LastSyncAt.Equal(*settingsBefore.LastSyncAt))
}

func TestManualImportWithoutCredentials(t *testing.T) {
	f := newManagerFixture(t)

	_, err := f.manager.ManualImport("downtown", time.Now().Add(-time.Hour), time.Now())
	assert.ErrorIs(t, err, app_errors.ErrMissingCredential)
}

func TestManualImportWhileTickRunning(t *testing.T) {
	f := newManagerFixture(t)
	f.configure(t, "downtown", true)
	require.NoError(t, f.settings.SetRunning("downtown", true))

	_, err := f.manager.ManualImport("downtown", time.Now().Add(-time.Hour), time.Now())
	assert.ErrorIs(t, err, app_errors.ErrSyncInProgress)
}

func TestRunRecordsPersisted(t *testing.T) {
	f := newManagerFixture(t)
	f.configure(t, "downtown", true)
	f.fetcher.orders = []woocommerce.Order{fetchedOrder(1, "Easton Town Center")}

	f.manager.RunTick("downtown", models.RunSourcePoll)

	runs, err := NewRunService(f.db).List("downtown", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunSourcePoll, runs[0].Source)
	assert.Equal(t, models.RunOutcomeCompleted, runs[0].Outcome)
	assert.Equal(t, 1, runs[0].Imported)
	require.NotNil(t, runs[0].FinishedAt)
}

func TestStorageOutcomeClassification(t *testing.T) {
	locked := storageOutcome(errors.New("database is locked"), "failed to load settings")
	assert.Equal(t, TickSkipped, locked.Status, "lock contention skips the cycle")
	assert.Contains(t, locked.Reason, "transient")

	timeout := storageOutcome(context.DeadlineExceeded, "failed to persist settings")
	assert.Equal(t, TickSkipped, timeout.Status)

	hard := storageOutcome(errors.New("no such table: sync_settings"), "failed to load settings")
	assert.Equal(t, TickFailed, hard.Status, "schema errors will not heal on the next fire")
	assert.Equal(t, "failed to load settings", hard.Reason)
}
