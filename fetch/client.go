package fetch

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

	"go.uber.org/zap"

	"github.com/theoremus-urban-solutions/transit-coverage/config"
)

// ErrRateLimited is returned once every retry against HTTP 429 is exhausted.
// It is terminal for the single request, not for the batch.
var ErrRateLimited = errors.New("rate limited: retries exhausted")

// APIError is any non-429 HTTP error status. Waiting does not resolve these,
// so the request fails immediately without retry.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the isochrone provider. On HTTP 429 it sleeps and retries
// with an exponentially growing delay; the sleeps deliberately block the
// caller — serialization is how the pipeline stays under provider limits.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	accessToken   string
	maxRetries    int
	backoffFactor int
	logger        *zap.Logger

	// sleep is swappable so tests can count delays instead of waiting.
	sleep func(time.Duration)
}

// NewClient creates an isochrone API client from configuration. The access
// token comes from the environment, not from the config file.
func NewClient(cfg *config.APIConfig, accessToken string, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		accessToken:   accessToken,
		maxRetries:    cfg.MaxRetries,
		backoffFactor: cfg.BackoffFactor,
		logger:        logger,
		sleep:         time.Sleep,
	}
}

// Isochrone fetches the reachable-area polygons around one origin for a
// routing profile, bucketed at the given contour times in minutes.
func (c *Client) Isochrone(ctx context.Context, profile string, lon, lat float64, contoursMinutes []int) (json.RawMessage, error) {
	contours := make([]string, len(contoursMinutes))
	for i, m := range contoursMinutes {
		contours[i] = strconv.Itoa(m)
	}
	endpoint := fmt.Sprintf("%s/isochrone/v1/mapbox/%s/%f,%f", c.baseURL, profile, lon, lat)
	params := url.Values{}
	params.Set("contours_minutes", strings.Join(contours, ","))
	params.Set("polygons", "true")
	params.Set("access_token", c.accessToken)
	return c.getJSON(ctx, endpoint, params)
}

// getJSON issues a GET with retry on HTTP 429 only. The first delay is one
// second and each further attempt multiplies it by the backoff factor.
// Network errors, including timeouts, fail immediately.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	delay := 1 * time.Second
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			c.logger.Warn("rate limited, backing off",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay))
			c.sleep(delay)
			delay *= time.Duration(c.backoffFactor)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}
		if !json.Valid(body) {
			return nil, fmt.Errorf("invalid JSON in response body")
		}
		return json.RawMessage(body), nil
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrRateLimited, c.maxRetries)
}
