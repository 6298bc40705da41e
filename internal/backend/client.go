// Package backend is the HTTP client for the anomaly-detection backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"chainscope.io/dashboard/internal/logging"
	"chainscope.io/dashboard/internal/metrics"
	"chainscope.io/dashboard/internal/models"
)

const (
	pathAnomalies        = "/api/v1/anomalies"
	pathTrips            = "/api/v1/trips"
	pathKPI              = "/api/v1/kpi"
	pathInventory        = "/api/v1/inventory"
	pathNodes            = "/api/v1/nodes"
	pathProductAnomalies = "/api/v1/product-anomalies"

	maxErrorBody = 512
)

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// StatusError is returned for non-2xx backend responses.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend %s: status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("backend %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	logger  *slog.Logger
	metrics *metrics.Collector
}

func NewClient(cfg Config, logger *slog.Logger, m *metrics.Collector) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL scheme %q", base.Scheme)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: base,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		logger:  logging.Component(logger, "backend_client"),
		metrics: m,
	}, nil
}

// Anomalies fetches one page of anomalous trips for a file.
func (c *Client) Anomalies(ctx context.Context, fileID string, limit int, cursor *models.Cursor) (models.TripPage, error) {
	return c.tripPage(ctx, "anomalies", pathAnomalies, fileID, limit, cursor)
}

// Trips fetches one page of all trips for a file.
func (c *Client) Trips(ctx context.Context, fileID string, limit int, cursor *models.Cursor) (models.TripPage, error) {
	return c.tripPage(ctx, "trips", pathTrips, fileID, limit, cursor)
}

func (c *Client) tripPage(ctx context.Context, endpoint, path, fileID string, limit int, cursor *models.Cursor) (models.TripPage, error) {
	query := url.Values{}
	query.Set("fileId", fileID)
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != nil {
		query.Set("cursor", cursor.String())
	}

	var page models.TripPage
	if err := c.getJSON(ctx, endpoint, path, query, &page); err != nil {
		return models.TripPage{}, err
	}
	if page.Data == nil {
		page.Data = []models.AnalyzedTrip{}
	}
	return page, nil
}

func (c *Client) KPI(ctx context.Context, fileID string) (*models.KPI, error) {
	var kpi models.KPI
	if err := c.getJSON(ctx, "kpi", pathKPI, fileQuery(fileID), &kpi); err != nil {
		return nil, err
	}
	return &kpi, nil
}

func (c *Client) Inventory(ctx context.Context, fileID string) ([]models.InventoryItem, error) {
	var body models.InventoryResponse
	if err := c.getJSON(ctx, "inventory", pathInventory, fileQuery(fileID), &body); err != nil {
		return nil, err
	}
	if body.InventoryDistribution == nil {
		return []models.InventoryItem{}, nil
	}
	return body.InventoryDistribution, nil
}

func (c *Client) Nodes(ctx context.Context) ([]models.LocationNode, error) {
	var nodes []models.LocationNode
	if err := c.getJSON(ctx, "nodes", pathNodes, nil, &nodes); err != nil {
		return nil, err
	}
	if nodes == nil {
		nodes = []models.LocationNode{}
	}
	return nodes, nil
}

func (c *Client) ProductAnomalies(ctx context.Context, fileID string) ([]models.ProductAnomalyCount, error) {
	var counts []models.ProductAnomalyCount
	if err := c.getJSON(ctx, "product_anomalies", pathProductAnomalies, fileQuery(fileID), &counts); err != nil {
		return nil, err
	}
	if counts == nil {
		counts = []models.ProductAnomalyCount{}
	}
	return counts, nil
}

func fileQuery(fileID string) url.Values {
	query := url.Values{}
	query.Set("fileId", fileID)
	return query
}

// getJSON issues a GET and decodes the body into out. An empty body leaves out untouched.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out any) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveBackend(endpoint, time.Since(start), err)
	}()

	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("backend %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend %s: %w", endpoint, err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, c.logger, "http_response_body")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("backend %s: reading body: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: snippet}
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("backend %s: decoding body: %w", endpoint, err)
	}
	return nil
}
