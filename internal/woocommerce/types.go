package woocommerce

import (
	"encoding/json"
	"time"
)

// Statuses included in every order fetch. Draft and pending-payment orders
// never reach the dashboard.
const StatusFilter = "completed,processing,on-hold,refunded,cancelled"

// Address is the billing or shipping block of a WooCommerce order.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	City      string `json:"city"`
	State     string `json:"state"`
}

// Order is the subset of a WooCommerce REST order the sync pipeline reads.
// Raw preserves the full upstream document for meta_data extraction and
// archival.
type Order struct {
	ID             int64   `json:"id"`
	Status         string  `json:"status"`
	Total          string  `json:"total"`
	DateCreatedGMT string  `json:"date_created_gmt"`
	Billing        Address `json:"billing"`
	Shipping       Address `json:"shipping"`

	Raw json.RawMessage `json:"-"`
}

// CreatedAt parses the GMT creation timestamp. WooCommerce emits it
// without a zone designator; it is always UTC.
func (o *Order) CreatedAt() (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05", o.DateCreatedGMT)
}
