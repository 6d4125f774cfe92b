package services

import (
	"errors"
	"time"

	"woo-sync/internal/models"

	"gorm.io/gorm"
)

// SettingsService persists per-platform sync configuration and the
// timestamps the scheduler depends on across restarts.
type SettingsService struct {
	db *gorm.DB
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

// Get returns the settings row for a platform, or nil when none exists.
func (s *SettingsService) Get(platform string) (*models.SyncSettings, error) {
	var settings models.SyncSettings
	if err := s.db.Where("platform = ?", platform).First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

// List returns settings for every known platform.
func (s *SettingsService) List() ([]models.SyncSettings, error) {
	var settings []models.SyncSettings
	if err := s.db.Order("platform asc").Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

// Upsert creates or updates the configuration fields of a platform's
// settings row. Scheduler-owned fields (running flag, timestamps, counts)
// are left untouched on update.
func (s *SettingsService) Upsert(platform string, isActive bool, intervalMinutes int) (*models.SyncSettings, error) {
	existing, err := s.Get(platform)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		created := models.SyncSettings{
			Platform:        platform,
			IsActive:        isActive,
			IntervalMinutes: intervalMinutes,
		}
		if err := s.db.Create(&created).Error; err != nil {
			return nil, err
		}
		return &created, nil
	}

	updates := map[string]any{
		"is_active":        isActive,
		"interval_minutes": intervalMinutes,
	}
	if err := s.db.Model(existing).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.Get(platform)
}

// SetRunning persists the mid-tick running flag.
func (s *SettingsService) SetRunning(platform string, running bool) error {
	return s.db.Model(&models.SyncSettings{}).
		Where("platform = ?", platform).
		Update("is_running", running).Error
}

// CompleteTick records a successful tick: advances lastSyncAt, schedules
// the informational nextSyncAt, stores the import count, and clears the
// running flag.
func (s *SettingsService) CompleteTick(platform string, syncedAt, nextSyncAt time.Time, orderCount int) error {
	return s.db.Model(&models.SyncSettings{}).
		Where("platform = ?", platform).
		Updates(map[string]any{
			"is_running":       false,
			"last_sync_at":     syncedAt,
			"next_sync_at":     nextSyncAt,
			"last_order_count": orderCount,
		}).Error
}

// FailTick clears the running flag without advancing lastSyncAt, so the
// next timer fire retries the same window.
func (s *SettingsService) FailTick(platform string) error {
	return s.db.Model(&models.SyncSettings{}).
		Where("platform = ?", platform).
		Update("is_running", false).Error
}

// ClearSchedule resets the running flag and scheduled time when a
// platform's timer is stopped.
func (s *SettingsService) ClearSchedule(platform string) error {
	return s.db.Model(&models.SyncSettings{}).
		Where("platform = ?", platform).
		Updates(map[string]any{
			"is_running":   false,
			"next_sync_at": nil,
		}).Error
}
