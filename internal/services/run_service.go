package services

import (
	"time"

	"woo-sync/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RunService records import runs for auditing, one row per tick or manual
// import.
type RunService struct {
	db *gorm.DB
}

// NewRunService creates a new RunService.
func NewRunService(db *gorm.DB) *RunService {
	return &RunService{db: db}
}

// Begin inserts a new run row marked as started now.
func (s *RunService) Begin(platform, source string, windowStart, windowEnd time.Time) (*models.ImportRun, error) {
	run := models.ImportRun{
		ID:          uuid.NewString(),
		Platform:    platform,
		Source:      source,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		StartedAt:   time.Now(),
	}
	if err := s.db.Create(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// Finish closes a run with its outcome and counters.
func (s *RunService) Finish(run *models.ImportRun, outcome string, imported, updated, skipped, failed int, runErr error) error {
	now := time.Now()
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	return s.db.Model(run).Updates(map[string]any{
		"outcome":     outcome,
		"imported":    imported,
		"updated":     updated,
		"skipped":     skipped,
		"failed":      failed,
		"error":       errMsg,
		"finished_at": now,
	}).Error
}

// List returns the most recent runs for a platform, newest first.
func (s *RunService) List(platform string, limit int) ([]models.ImportRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var runs []models.ImportRun
	query := s.db.Order("started_at desc").Limit(limit)
	if platform != "" {
		query = query.Where("platform = ?", platform)
	}
	if err := query.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
