// Package woocommerce implements a minimal WooCommerce REST API v3 client
// for paginated order retrieval.
package woocommerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"woo-sync/internal/types"
	"woo-sync/internal/utils"

	"github.com/sirupsen/logrus"
)

const ordersPath = "/wp-json/wc/v3/orders"

// Credentials identifies one WooCommerce store.
type Credentials struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
}

// Client fetches orders from a single WooCommerce store.
type Client struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	httpClient     *http.Client
	pageSize       int
	maxRetries     int
	backoff        time.Duration
}

// NewClient builds a client for one store. The HTTP client should come from
// the shared pool manager so stores with identical settings reuse connections.
func NewClient(cred Credentials, syncConfig types.SyncConfig, httpClient *http.Client) *Client {
	return &Client{
		baseURL:        strings.TrimRight(cred.BaseURL, "/"),
		consumerKey:    cred.ConsumerKey,
		consumerSecret: cred.ConsumerSecret,
		httpClient:     httpClient,
		pageSize:       syncConfig.PageSize,
		maxRetries:     syncConfig.MaxPageRetries,
		backoff:        time.Duration(syncConfig.RetryBackoffSeconds) * time.Second,
	}
}

// FetchOrders retrieves every order created inside (after, before],
// walking pages until a short page signals the end of the result set.
// A page that still fails after all retries aborts the whole fetch.
func (c *Client) FetchOrders(ctx context.Context, after, before time.Time) ([]Order, error) {
	var all []Order

	for page := 1; ; page++ {
		orders, err := c.fetchPageWithRetry(ctx, page, after, before)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		all = append(all, orders...)

		logrus.WithFields(logrus.Fields{
			"page":  page,
			"count": len(orders),
			"total": len(all),
		}).Debug("Fetched order page")

		if len(orders) < c.pageSize {
			return all, nil
		}
	}
}

// statusError carries the upstream HTTP status so the retry loop can tell
// deterministic client errors from transient server ones.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.status, e.body)
}

// retryable reports whether another attempt could plausibly succeed.
func (e *statusError) retryable() bool {
	return e.status >= http.StatusInternalServerError || e.status == http.StatusTooManyRequests
}

// fetchPageWithRetry attempts one page up to maxRetries times with a
// linearly growing delay between attempts. Deterministic upstream
// rejections (auth failures, bad requests) are not retried.
func (c *Client) fetchPageWithRetry(ctx context.Context, page int, after, before time.Time) ([]Order, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		orders, err := c.fetchPage(ctx, page, after, before)
		if err == nil {
			return orders, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var upstreamErr *statusError
		if errors.As(err, &upstreamErr) && !upstreamErr.retryable() {
			return nil, err
		}

		logrus.WithFields(logrus.Fields{
			"page":    page,
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("Order page fetch failed")

		if attempt < c.maxRetries {
			select {
			case <-time.After(time.Duration(attempt) * c.backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("giving up after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) fetchPage(ctx context.Context, page int, after, before time.Time) ([]Order, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(c.pageSize))
	query.Set("after", after.UTC().Format(time.RFC3339))
	query.Set("before", before.UTC().Format(time.RFC3339))
	query.Set("status", StatusFilter)
	query.Set("orderby", "date")
	query.Set("order", "desc")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+ordersPath+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{status: resp.StatusCode, body: utils.TruncateString(string(body), 256)}
	}

	// Keep each order's raw document alongside the typed fields so the
	// import pipeline can archive it and mine meta_data for location hints.
	var rawOrders []json.RawMessage
	if err := json.Unmarshal(body, &rawOrders); err != nil {
		return nil, fmt.Errorf("failed to parse order page: %w", err)
	}

	orders := make([]Order, 0, len(rawOrders))
	for _, raw := range rawOrders {
		var order Order
		if err := json.Unmarshal(raw, &order); err != nil {
			return nil, fmt.Errorf("failed to parse order: %w", err)
		}
		order.Raw = raw
		orders = append(orders, order)
	}
	return orders, nil
}
