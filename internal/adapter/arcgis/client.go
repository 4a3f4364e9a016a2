// Package arcgis fetches incident features from an ArcGIS FeatureServer
// query endpoint returning GeoJSON.
package arcgis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/police-incident-etl/internal/domain"
	"github.com/tidwall/gjson"
)

// Client implements pipeline.Extractor against a feature query URL.
type Client struct {
	url             string
	httpClient      *http.Client
	maxElapsed      time.Duration
	initialInterval time.Duration
	logger          *slog.Logger
}

// NewClient creates a feed client. Transient failures are retried with
// exponential backoff for up to maxElapsed.
func NewClient(url string, timeout, maxElapsed time.Duration, logger *slog.Logger) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxElapsed:      maxElapsed,
		initialInterval: backoff.DefaultInitialInterval,
		logger:          logger,
	}
}

// Source identifies the feed in run records.
func (c *Client) Source() string { return c.url }

// Fetch downloads and decodes the feature collection, returning the raw
// payload alongside it.
func (c *Client) Fetch(ctx context.Context) (domain.FeatureCollection, []byte, error) {
	var body []byte
	attempt := 0
	operation := func() error {
		attempt++
		b, err := c.get(ctx)
		if err != nil {
			c.logger.Warn("feature fetch attempt failed", "attempt", attempt, "error", err)
			return err
		}
		body = b
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialInterval
	bo.MaxElapsedTime = c.maxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return domain.FeatureCollection{}, nil, fmt.Errorf("fetch features: %w", err)
	}

	var fc domain.FeatureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return domain.FeatureCollection{}, nil, fmt.Errorf("decode feature collection: %w", err)
	}
	c.logger.Debug("features fetched", "count", len(fc.Features), "bytes", len(body))
	return fc, body, nil
}

func (c *Client) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body)))
	}

	// ArcGIS reports query failures as 200 with an error envelope.
	if apiErr := gjson.GetBytes(body, "error"); apiErr.Exists() {
		code := apiErr.Get("code").Int()
		err := &APIError{Code: int(code), Message: apiErr.Get("message").String()}
		if code >= http.StatusInternalServerError {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}
	return body, nil
}

// APIError is an error envelope returned by the feature service.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("arcgis error %d: %s", e.Code, e.Message)
}

// IsAPIError reports whether err carries a feature service error envelope.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

func truncate(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
