package services

import (
	"errors"

	"woo-sync/internal/models"
	"woo-sync/internal/utils"

	"gorm.io/gorm"
)

// LocationService resolves raw location strings from order payloads to
// canonical Location rows, creating them lazily.
type LocationService struct {
	db *gorm.DB
}

// NewLocationService creates a new LocationService.
func NewLocationService(db *gorm.DB) *LocationService {
	return &LocationService{db: db}
}

// GetByName looks up a location by its exact canonical name.
// Returns nil without error when absent.
func (s *LocationService) GetByName(name string) (*models.Location, error) {
	var location models.Location
	if err := s.db.Where("name = ?", name).First(&location).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &location, nil
}

// ListAll returns every location, ordered by name for stable output.
func (s *LocationService) ListAll() ([]models.Location, error) {
	var locations []models.Location
	if err := s.db.Order("name asc").Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}

// FindOrCreate resolves a raw location string to a Location row.
// It normalizes the name, tries an exact lookup, then a fuzzy match over
// all existing rows, and only then inserts a new row. The unique constraint
// on name backstops concurrent first-time inserts: a duplicate-key error is
// resolved by re-reading the winner.
func (s *LocationService) FindOrCreate(rawName string) (*models.Location, error) {
	name := NormalizeLocationName(rawName)
	if name == "" {
		name = "Unknown"
	}

	location, err := s.GetByName(name)
	if err != nil {
		return nil, err
	}
	if location != nil {
		return location, nil
	}

	candidates, err := s.ListAll()
	if err != nil {
		return nil, err
	}
	if match := FindSimilarLocation(name, candidates); match != nil {
		return match, nil
	}

	created := models.Location{
		Name: name,
		Code: utils.Slugify(name),
	}
	if err := s.db.Create(&created).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return s.GetByName(name)
		}
		return nil, err
	}
	return &created, nil
}
