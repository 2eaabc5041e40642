package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// defaultFetchTimeout bounds a single snapshot fetch. The pipeline
// degrades the affected stage when this elapses, so it is kept short.
const defaultFetchTimeout = 3 * time.Second

// Config contains directory/catalog client settings.
type Config struct {
	// BaseURL is the root of the collaborator API
	// (e.g. "http://directory:8123/api").
	BaseURL string

	// Token is an optional bearer token sent with each request.
	Token string

	// Timeout bounds each fetch. Zero means the default (3s).
	Timeout time.Duration
}

// Client fetches entity, area, and service snapshots over HTTP.
//
// The client is stateless and safe for concurrent use. It makes no
// pagination assumptions: each endpoint returns a full snapshot that
// may be empty.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a snapshot client for the given collaborator.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// Entities fetches the current entity snapshot.
func (c *Client) Entities(ctx context.Context) ([]Entity, error) {
	var entities []Entity
	if err := c.get(ctx, "/states", &entities); err != nil {
		return nil, err
	}
	return entities, nil
}

// Areas fetches the current area registry snapshot.
func (c *Client) Areas(ctx context.Context) ([]Area, error) {
	var areas []Area
	if err := c.get(ctx, "/areas", &areas); err != nil {
		return nil, err
	}
	return areas, nil
}

// Services fetches the service catalog snapshot.
func (c *Client) Services(ctx context.Context) ([]Service, error) {
	var services []Service
	if err := c.get(ctx, "/services", &services); err != nil {
		return nil, err
	}
	return services, nil
}

// get performs a single best-effort GET and decodes the JSON body.
func (c *Client) get(ctx context.Context, path string, v any) error {
	if c.cfg.BaseURL == "" {
		return ErrNotConfigured
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best-effort close on read path

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d from %s", ErrBadResponse, resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decoding %s: %w", ErrBadResponse, path, err)
	}
	return nil
}
