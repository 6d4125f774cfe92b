package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"woo-sync/internal/config"
	"woo-sync/internal/encryption"
	"woo-sync/internal/handler"
	"woo-sync/internal/httpclient"
	"woo-sync/internal/models"
	"woo-sync/internal/services"
	"woo-sync/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testAuthKey = "sk-router-test"

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	t.Setenv("AUTH_KEY", testAuthKey)
	configManager, err := config.NewManager()
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.SyncSettings{},
		&models.PlatformCredential{},
		&models.Location{},
		&models.Order{},
		&models.ImportRun{},
	))

	encSvc, err := encryption.NewService("")
	require.NoError(t, err)

	memStore := store.NewMemoryStore()
	t.Cleanup(func() { memStore.Close() })

	settingsService := services.NewSettingsService(db)
	credentialService := services.NewCredentialService(db, encSvc)
	orderService := services.NewOrderService(db)
	locationService := services.NewLocationService(db)
	runService := services.NewRunService(db)

	syncManager := services.NewSyncManager(
		settingsService, credentialService, orderService,
		locationService, runService,
		httpclient.NewManager(), memStore, configManager,
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		syncManager.Shutdown(ctx)
	})

	engine := NewRouter(
		handler.NewServer(db),
		handler.NewSyncHandler(syncManager, settingsService, credentialService, runService),
		handler.NewReportHandler(services.NewReportService(db, configManager), orderService, locationService),
		configManager,
	)
	return engine, db
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testAuthKey)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func envelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthIsPublic(t *testing.T) {
	engine, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIRequiresAuth(t *testing.T) {
	engine, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/locations", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	engine, _ := newTestRouter(t)

	active := true
	w := doJSON(t, engine, http.MethodPut, "/api/sync/downtown/settings", map[string]any{
		"is_active":        active,
		"interval_minutes": 30,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, engine, http.MethodGet, "/api/sync/downtown/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := envelope(t, w)
	data := body["data"].(map[string]any)
	settings := data["settings"].(map[string]any)
	assert.Equal(t, true, settings["is_active"])
	assert.Equal(t, float64(30), settings["interval_minutes"])
	assert.Equal(t, false, data["scheduled"])
}

func TestCredentialsNeverEchoSecret(t *testing.T) {
	engine, _ := newTestRouter(t)

	w := doJSON(t, engine, http.MethodPut, "/api/sync/downtown/credentials", map[string]any{
		"base_url":        "https://shop.example.com",
		"consumer_key":    "ck_live",
		"consumer_secret": "cs_super_secret",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "cs_super_secret")
}

func TestStartRefusesUnknownPlatform(t *testing.T) {
	engine, _ := newTestRouter(t)

	w := doJSON(t, engine, http.MethodPost, "/api/sync/ghost/start", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartRefusesDisabledPlatform(t *testing.T) {
	engine, _ := newTestRouter(t)

	w := doJSON(t, engine, http.MethodPut, "/api/sync/downtown/settings", map[string]any{
		"is_active":        false,
		"interval_minutes": 15,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, engine, http.MethodPost, "/api/sync/downtown/start", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "SYNC_DISABLED")
}

func TestImportValidation(t *testing.T) {
	engine, _ := newTestRouter(t)

	w := doJSON(t, engine, http.MethodPost, "/api/sync/downtown/import", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, engine, http.MethodPost, "/api/sync/downtown/import", map[string]any{
		"from": "2026-08-20T00:00:00Z",
		"to":   "2026-08-10T00:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_FAILED")
}

func TestImportWithoutCredentials(t *testing.T) {
	engine, _ := newTestRouter(t)

	w := doJSON(t, engine, http.MethodPost, "/api/sync/downtown/import", map[string]any{
		"from": "2026-08-10T00:00:00Z",
		"to":   "2026-08-20T00:00:00Z",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_CREDENTIAL")
}

func TestOrdersPaginationEnvelope(t *testing.T) {
	engine, db := newTestRouter(t)

	location := models.Location{Name: "Easton Town Center", Code: "easton-town-center"}
	require.NoError(t, db.Create(&location).Error)
	for i, externalID := range []string{"1", "2", "3"} {
		require.NoError(t, db.Create(&models.Order{
			Platform:        "downtown",
			ExternalOrderID: externalID,
			LocationID:      location.ID,
			Amount:          float64(10 * (i + 1)),
			Status:          models.OrderStatusCompleted,
			OrderDate:       time.Date(2026, 8, 20, 10+i, 0, 0, 0, time.UTC),
		}).Error)
	}

	w := doJSON(t, engine, http.MethodGet, "/api/orders?page=1&page_size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := envelope(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(3), data["total"])
	assert.Equal(t, float64(1), data["page"])
	assert.Len(t, data["items"], 2)

	// Newest first.
	items := data["items"].([]any)
	first := items[0].(map[string]any)
	assert.Equal(t, "3", first["external_order_id"])
}

func TestSummaryEndpoint(t *testing.T) {
	engine, db := newTestRouter(t)

	location := models.Location{Name: "Easton Town Center", Code: "easton-town-center"}
	require.NoError(t, db.Create(&location).Error)
	require.NoError(t, db.Create(&models.Order{
		Platform:        "downtown",
		ExternalOrderID: "1",
		LocationID:      location.ID,
		Amount:          100,
		Status:          models.OrderStatusCompleted,
		OrderDate:       time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
	}).Error)

	w := doJSON(t, engine, http.MethodGet, "/api/reports/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := envelope(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(1), data["order_count"])
	assert.InDelta(t, 100.0, data["gross_revenue"].(float64), 0.001)
	// 2.9% + 30 cents.
	assert.InDelta(t, 3.2, data["fees"].(float64), 0.001)

	w = doJSON(t, engine, http.MethodGet, "/api/reports/summary?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunsEndpointEmpty(t *testing.T) {
	engine, _ := newTestRouter(t)

	w := doJSON(t, engine, http.MethodGet, "/api/sync/downtown/runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), envelope(t, w)["code"])
}
