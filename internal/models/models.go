// Package models defines the persisted data model for the sync service.
package models

import (
	"time"

	"gorm.io/datatypes"
)

// Order status constants as reported by WooCommerce.
const (
	OrderStatusCompleted  = "completed"
	OrderStatusProcessing = "processing"
	OrderStatusOnHold     = "on-hold"
	OrderStatusRefunded   = "refunded"
	OrderStatusCancelled  = "cancelled"
)

// Import run source constants.
const (
	RunSourcePoll   = "poll"
	RunSourceManual = "manual"
)

// Import run outcome constants.
const (
	RunOutcomeCompleted = "completed"
	RunOutcomeSkipped   = "skipped"
	RunOutcomeFailed    = "failed"
)

// SyncSettings corresponds to the sync_settings table, one row per platform.
// Rows are upserted on first configuration write and mutated on every tick;
// they are deactivated via IsActive=false, never hard-deleted.
type SyncSettings struct {
	ID              uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Platform        string     `gorm:"type:varchar(64);not null;unique" json:"platform"`
	IsActive        bool       `gorm:"not null;default:false" json:"is_active"`
	IntervalMinutes int        `gorm:"not null;default:15" json:"interval_minutes"`
	IsRunning       bool       `gorm:"not null;default:false" json:"is_running"`
	LastSyncAt      *time.Time `json:"last_sync_at"`
	NextSyncAt      *time.Time `json:"next_sync_at"`
	LastOrderCount  int        `gorm:"not null;default:0" json:"last_order_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// PlatformCredential stores the WooCommerce REST API credentials for one platform.
// ConsumerSecret is encrypted at rest and never returned to clients.
type PlatformCredential struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Platform       string    `gorm:"type:varchar(64);not null;unique" json:"platform"`
	BaseURL        string    `gorm:"type:varchar(512);not null" json:"base_url"`
	ConsumerKey    string    `gorm:"type:varchar(255);not null" json:"consumer_key"`
	ConsumerSecret string    `gorm:"type:text;not null" json:"-"`
	SecretHash     string    `gorm:"type:varchar(64);not null;default:''" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Location is a canonical restaurant location. Name is unique after
// normalization; the fuzzy matcher exists to keep near-duplicates out.
type Location struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null;unique" json:"name"`
	Code      string    `gorm:"type:varchar(255);not null;index" json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Order is a normalized, platform-agnostic order row.
// (Platform, ExternalOrderID) is the dedup key: the polling sync treats an
// existing row as a strict skip; manual historical imports may update it.
type Order struct {
	ID              uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Platform        string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_orders_platform_external" json:"platform"`
	ExternalOrderID string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_orders_platform_external" json:"external_order_id"`
	LocationID      uint           `gorm:"not null;index" json:"location_id"`
	Amount          float64        `gorm:"not null;default:0" json:"amount"`
	Status          string         `gorm:"type:varchar(32);not null;index" json:"status"`
	OrderDate       time.Time      `gorm:"not null;index" json:"order_date"`
	CustomerName    string         `gorm:"type:varchar(255);not null;default:''" json:"customer_name"`
	CustomerEmail   string         `gorm:"type:varchar(255);not null;default:''" json:"customer_email"`
	BillingCity     string         `gorm:"type:varchar(128);not null;default:''" json:"billing_city"`
	BillingState    string         `gorm:"type:varchar(32);not null;default:''" json:"billing_state"`
	ShippingCity    string         `gorm:"type:varchar(128);not null;default:''" json:"shipping_city"`
	ShippingState   string         `gorm:"type:varchar(32);not null;default:''" json:"shipping_state"`
	RawPayload      datatypes.JSON `gorm:"type:json" json:"raw_payload,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ImportRun records one execution of the import pipeline, whether triggered
// by the polling timer or a manual date-range request.
type ImportRun struct {
	ID          string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Platform    string     `gorm:"type:varchar(64);not null;index" json:"platform"`
	Source      string     `gorm:"type:varchar(16);not null" json:"source"`
	WindowStart time.Time  `gorm:"not null" json:"window_start"`
	WindowEnd   time.Time  `gorm:"not null" json:"window_end"`
	Imported    int        `gorm:"not null;default:0" json:"imported"`
	Updated     int        `gorm:"not null;default:0" json:"updated"`
	Skipped     int        `gorm:"not null;default:0" json:"skipped"`
	Failed      int        `gorm:"not null;default:0" json:"failed"`
	Outcome     string     `gorm:"type:varchar(16);not null" json:"outcome"`
	Error       string     `gorm:"type:text;not null;default:''" json:"error,omitempty"`
	StartedAt   time.Time  `gorm:"not null;index" json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at"`
}
