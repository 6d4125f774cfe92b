package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"woo-sync/internal/models"
	"woo-sync/internal/utils"
	"woo-sync/internal/woocommerce"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gorm.io/gorm"
)

// metaLocationKeys are the order meta_data keys checked, in priority order,
// for an explicit store-location hint.
var metaLocationKeys = map[string]struct{}{
	"_store_location":  {},
	"store_location":   {},
	"_pickup_location": {},
	"pickup_location":  {},
	"location":         {},
}

// OrderService persists normalized orders and answers dedup queries.
type OrderService struct {
	db *gorm.DB
}

// NewOrderService creates a new OrderService.
func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{db: db}
}

// ExistsByExternalID reports whether an order from the platform with the
// given external id is already stored.
func (s *OrderService) ExistsByExternalID(platform, externalOrderID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Order{}).
		Where("platform = ? AND external_order_id = ?", platform, externalOrderID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Insert stores a new order row. A duplicate-key error from a concurrent
// writer is reported as created=false rather than an error, so the caller
// counts it as a skip.
func (s *OrderService) Insert(order *models.Order) (created bool, err error) {
	if err := s.db.Create(order).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// UpsertByExternalID inserts the order or, when a row with the same
// (platform, external id) exists, overwrites its mutable fields. Used by
// manual historical imports, which unlike the polling sync are allowed to
// refresh existing rows.
func (s *OrderService) UpsertByExternalID(order *models.Order) (created bool, err error) {
	var existing models.Order
	err = s.db.Where("platform = ? AND external_order_id = ?", order.Platform, order.ExternalOrderID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.Insert(order)
	}
	if err != nil {
		return false, err
	}

	updates := map[string]any{
		"location_id":    order.LocationID,
		"amount":         order.Amount,
		"status":         order.Status,
		"order_date":     order.OrderDate,
		"customer_name":  order.CustomerName,
		"customer_email": order.CustomerEmail,
		"billing_city":   order.BillingCity,
		"billing_state":  order.BillingState,
		"shipping_city":  order.ShippingCity,
		"shipping_state": order.ShippingState,
		"raw_payload":    order.RawPayload,
	}
	if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
		return false, err
	}
	order.ID = existing.ID
	return false, nil
}

// OrderFilter narrows and paginates the order listing.
type OrderFilter struct {
	Platform   string
	LocationID uint
	Status     string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// List returns one page of orders matching the filter, newest first,
// along with the total match count.
func (s *OrderService) List(filter OrderFilter) ([]models.Order, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 200 {
		filter.PageSize = 50
	}

	query := s.db.Model(&models.Order{})
	if filter.Platform != "" {
		query = query.Where("platform = ?", filter.Platform)
	}
	if filter.LocationID != 0 {
		query = query.Where("location_id = ?", filter.LocationID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("order_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("order_date <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := query.Order("order_date desc").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// MapOrder converts a fetched WooCommerce order into the normalized row
// shape. The raw payload is archived with its HAL _links block stripped.
func MapOrder(platform string, src *woocommerce.Order, locationID uint) (*models.Order, error) {
	orderDate, err := src.CreatedAt()
	if err != nil {
		return nil, fmt.Errorf("invalid creation date %q: %w", src.DateCreatedGMT, err)
	}

	amount, err := strconv.ParseFloat(src.Total, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid total %q: %w", src.Total, err)
	}

	raw := src.Raw
	if len(raw) > 0 {
		if scrubbed, err := sjson.DeleteBytes(raw, "_links"); err == nil {
			raw = scrubbed
		}
	}

	return &models.Order{
		Platform:        platform,
		ExternalOrderID: strconv.FormatInt(src.ID, 10),
		LocationID:      locationID,
		Amount:          amount,
		Status:          src.Status,
		OrderDate:       orderDate,
		CustomerName:    strings.TrimSpace(src.Billing.FirstName + " " + src.Billing.LastName),
		CustomerEmail:   src.Billing.Email,
		BillingCity:     src.Billing.City,
		BillingState:    src.Billing.State,
		ShippingCity:    src.Shipping.City,
		ShippingState:   src.Shipping.State,
		RawPayload:      []byte(raw),
	}, nil
}

// LocationHint extracts the raw location string for an order. An explicit
// store-location entry in meta_data wins; otherwise the shipping address
// city is used, then billing, then a fixed fallback.
func LocationHint(src *woocommerce.Order) string {
	if len(src.Raw) > 0 {
		var hint string
		gjson.GetBytes(src.Raw, "meta_data").ForEach(func(_, item gjson.Result) bool {
			key := item.Get("key").String()
			if _, ok := metaLocationKeys[key]; ok {
				if value := item.Get("value").String(); value != "" {
					hint = value
					return false
				}
			}
			return true
		})
		if hint != "" {
			return hint
		}
	}

	if src.Shipping.City != "" {
		return joinCityState(src.Shipping.City, src.Shipping.State)
	}
	if src.Billing.City != "" {
		return joinCityState(src.Billing.City, src.Billing.State)
	}
	return "Unknown"
}

func joinCityState(city, state string) string {
	if state == "" {
		return city
	}
	return city + ", " + state
}
