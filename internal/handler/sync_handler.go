package handler

import (
	"time"

	app_errors "woo-sync/internal/errors"
	"woo-sync/internal/response"
	"woo-sync/internal/services"

	"github.com/gin-gonic/gin"
)

// SyncHandler exposes the sync manager's control surface and the
// per-platform configuration endpoints.
type SyncHandler struct {
	syncManager       *services.SyncManager
	settingsService   *services.SettingsService
	credentialService *services.CredentialService
	runService        *services.RunService
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(
	syncManager *services.SyncManager,
	settingsService *services.SettingsService,
	credentialService *services.CredentialService,
	runService *services.RunService,
) *SyncHandler {
	return &SyncHandler{
		syncManager:       syncManager,
		settingsService:   settingsService,
		credentialService: credentialService,
		runService:        runService,
	}
}

func respondWithError(c *gin.Context, err error) {
	if apiErr, ok := err.(*app_errors.APIError); ok {
		response.Error(c, apiErr)
		return
	}
	response.Error(c, app_errors.ParseDBError(err))
}

// Start arms the polling timer for a platform.
// POST /api/sync/:platform/start
func (h *SyncHandler) Start(c *gin.Context) {
	platform := c.Param("platform")
	if err := h.syncManager.Start(platform); err != nil {
		respondWithError(c, err)
		return
	}
	status, err := h.syncManager.GetStatus(platform)
	if err != nil {
		respondWithError(c, err)
		return
	}
	response.Success(c, status)
}

// Stop disarms the polling timer.
// POST /api/sync/:platform/stop
func (h *SyncHandler) Stop(c *gin.Context) {
	platform := c.Param("platform")
	if err := h.syncManager.Stop(platform); err != nil {
		respondWithError(c, err)
		return
	}
	status, err := h.syncManager.GetStatus(platform)
	if err != nil {
		respondWithError(c, err)
		return
	}
	response.Success(c, status)
}

// Restart stops and re-arms the polling timer.
// POST /api/sync/:platform/restart
func (h *SyncHandler) Restart(c *gin.Context) {
	platform := c.Param("platform")
	if err := h.syncManager.Restart(platform); err != nil {
		respondWithError(c, err)
		return
	}
	status, err := h.syncManager.GetStatus(platform)
	if err != nil {
		respondWithError(c, err)
		return
	}
	response.Success(c, status)
}

// Status reports the scheduling state and settings snapshot.
// GET /api/sync/:platform/status
func (h *SyncHandler) Status(c *gin.Context) {
	status, err := h.syncManager.GetStatus(c.Param("platform"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	response.Success(c, status)
}

// ImportRequest is the payload for a manual date-range import.
type ImportRequest struct {
	From time.Time `json:"from" binding:"required"`
	To   time.Time `json:"to" binding:"required"`
}

// Import runs one synchronous historical import over a caller-chosen range.
// POST /api/sync/:platform/import
func (h *SyncHandler) Import(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}
	if !req.To.After(req.From) {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrValidation, "'to' must be after 'from'"))
		return
	}

	result, err := h.syncManager.ManualImport(c.Param("platform"), req.From, req.To)
	if err != nil {
		respondWithError(c, err)
		return
	}
	response.Success(c, result)
}

// Runs lists recent import runs for a platform.
// GET /api/sync/:platform/runs
func (h *SyncHandler) Runs(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 20)
	runs, err := h.runService.List(c.Param("platform"), limit)
	if err != nil {
		respondWithError(c, err)
		return
	}
	response.Success(c, runs)
}

// SettingsRequest is the payload for updating sync settings.
type SettingsRequest struct {
	IsActive        *bool `json:"is_active" binding:"required"`
	IntervalMinutes int   `json:"interval_minutes" binding:"required,min=1"`
}

// UpdateSettings upserts the per-platform sync configuration. Deactivating
// a scheduled platform also disarms its timer.
// PUT /api/sync/:platform/settings
func (h *SyncHandler) UpdateSettings(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}

	platform := c.Param("platform")
	settings, err := h.settingsService.Upsert(platform, *req.IsActive, req.IntervalMinutes)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if !*req.IsActive {
		if err := h.syncManager.Stop(platform); err != nil {
			respondWithError(c, err)
			return
		}
	}
	response.Success(c, settings)
}

// CredentialsRequest is the payload for storing platform API credentials.
type CredentialsRequest struct {
	BaseURL        string `json:"base_url" binding:"required,url"`
	ConsumerKey    string `json:"consumer_key" binding:"required"`
	ConsumerSecret string `json:"consumer_secret" binding:"required"`
}

// UpdateCredentials stores WooCommerce credentials for a platform.
// The secret is encrypted at rest and never echoed back.
// PUT /api/sync/:platform/credentials
func (h *SyncHandler) UpdateCredentials(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}

	credential, err := h.credentialService.Upsert(c.Param("platform"), req.BaseURL, req.ConsumerKey, req.ConsumerSecret)
	if err != nil {
		respondWithError(c, err)
		return
	}
	response.Success(c, credential)
}
