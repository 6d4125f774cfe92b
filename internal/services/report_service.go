package services

import (
	"time"

	"woo-sync/internal/models"
	"woo-sync/internal/types"

	"gorm.io/gorm"
)

// SummaryFilter narrows the report query. Zero values mean "no filter".
type SummaryFilter struct {
	Platform   string
	LocationID uint
	Status     string
	From       *time.Time
	To         *time.Time
}

// LocationSummary aggregates orders for one location.
type LocationSummary struct {
	LocationID   uint    `json:"location_id"`
	LocationName string  `json:"location_name"`
	OrderCount   int64   `json:"order_count"`
	GrossRevenue float64 `json:"gross_revenue"`
	Fees         float64 `json:"fees"`
	NetRevenue   float64 `json:"net_revenue"`
}

// Summary is the full report: chain-wide totals plus a per-location split.
type Summary struct {
	OrderCount   int64             `json:"order_count"`
	GrossRevenue float64           `json:"gross_revenue"`
	Fees         float64           `json:"fees"`
	NetRevenue   float64           `json:"net_revenue"`
	Locations    []LocationSummary `json:"locations"`
}

// ReportService computes revenue and processing-fee summaries over stored
// orders.
type ReportService struct {
	db            *gorm.DB
	configManager types.ConfigManager
}

// NewReportService creates a new ReportService.
func NewReportService(db *gorm.DB, configManager types.ConfigManager) *ReportService {
	return &ReportService{db: db, configManager: configManager}
}

// Summarize aggregates matching orders per location and applies the
// configured payment-processing fee model (a percentage of each order plus
// a fixed per-order charge).
func (s *ReportService) Summarize(filter SummaryFilter) (*Summary, error) {
	type row struct {
		LocationID   uint
		LocationName string
		OrderCount   int64
		GrossRevenue float64
	}

	query := s.db.Model(&models.Order{}).
		Select("orders.location_id as location_id, locations.name as location_name, count(*) as order_count, sum(orders.amount) as gross_revenue").
		Joins("left join locations on locations.id = orders.location_id").
		Group("orders.location_id, locations.name").
		Order("gross_revenue desc")

	if filter.Platform != "" {
		query = query.Where("orders.platform = ?", filter.Platform)
	}
	if filter.LocationID != 0 {
		query = query.Where("orders.location_id = ?", filter.LocationID)
	}
	if filter.Status != "" {
		query = query.Where("orders.status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("orders.order_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("orders.order_date <= ?", *filter.To)
	}

	var rows []row
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	fee := s.configManager.GetFeeConfig()
	fixedFee := float64(fee.FixedCents) / 100

	summary := &Summary{Locations: make([]LocationSummary, 0, len(rows))}
	for _, r := range rows {
		fees := r.GrossRevenue*fee.PercentRate + float64(r.OrderCount)*fixedFee
		location := LocationSummary{
			LocationID:   r.LocationID,
			LocationName: r.LocationName,
			OrderCount:   r.OrderCount,
			GrossRevenue: r.GrossRevenue,
			Fees:         fees,
			NetRevenue:   r.GrossRevenue - fees,
		}
		summary.Locations = append(summary.Locations, location)
		summary.OrderCount += r.OrderCount
		summary.GrossRevenue += r.GrossRevenue
		summary.Fees += fees
	}
	summary.NetRevenue = summary.GrossRevenue - summary.Fees
	return summary, nil
}
