package handler

import (
	"strconv"
	"time"

	app_errors "woo-sync/internal/errors"
	"woo-sync/internal/response"
	"woo-sync/internal/services"

	"github.com/gin-gonic/gin"
)

// ReportHandler serves the read side: summaries, orders and locations.
type ReportHandler struct {
	reportService   *services.ReportService
	orderService    *services.OrderService
	locationService *services.LocationService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(
	reportService *services.ReportService,
	orderService *services.OrderService,
	locationService *services.LocationService,
) *ReportHandler {
	return &ReportHandler{
		reportService:   reportService,
		orderService:    orderService,
		locationService: locationService,
	}
}

// Summary computes the revenue and fee report.
// GET /api/reports/summary
func (h *ReportHandler) Summary(c *gin.Context) {
	from, ok := parseTimeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseTimeQuery(c, "to")
	if !ok {
		return
	}

	filter := services.SummaryFilter{
		Platform:   c.Query("platform"),
		LocationID: uint(parseIntQuery(c, "location_id", 0)),
		Status:     c.Query("status"),
		From:       from,
		To:         to,
	}

	summary, err := h.reportService.Summarize(filter)
	if err != nil {
		respondWithError(c, err)
		return
	}
	response.Success(c, summary)
}

// OrderPage wraps one page of orders with its pagination envelope.
type OrderPage struct {
	Items    any   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// Orders lists stored orders with filters and pagination.
// GET /api/orders
func (h *ReportHandler) Orders(c *gin.Context) {
	from, ok := parseTimeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseTimeQuery(c, "to")
	if !ok {
		return
	}

	filter := services.OrderFilter{
		Platform:   c.Query("platform"),
		LocationID: uint(parseIntQuery(c, "location_id", 0)),
		Status:     c.Query("status"),
		From:       from,
		To:         to,
		Page:       parseIntQuery(c, "page", 1),
		PageSize:   parseIntQuery(c, "page_size", 50),
	}

	orders, total, err := h.orderService.List(filter)
	if err != nil {
		respondWithError(c, err)
		return
	}
	response.Success(c, OrderPage{
		Items:    orders,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
}

// Locations lists the canonical locations.
// GET /api/locations
func (h *ReportHandler) Locations(c *gin.Context) {
	locations, err := h.locationService.ListAll()
	if err != nil {
		respondWithError(c, err)
		return
	}
	response.Success(c, locations)
}

// parseIntQuery reads an integer query parameter with a fallback.
func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// parseTimeQuery reads an optional RFC 3339 timestamp query parameter.
// Reports false after writing a validation error for malformed input.
func parseTimeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrValidation, "invalid "+name+" timestamp, expected RFC 3339"))
		return nil, false
	}
	return &value, true
}
