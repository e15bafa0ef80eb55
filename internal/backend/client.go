// Package backend is the REST client for the environmental-monitoring API.
package backend

import (
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

	"github.com/mohammed-shakir/ecomap/internal/core/observability"
	"github.com/mohammed-shakir/ecomap/internal/layers"
)

// ErrStatus wraps every non-2xx response.
var ErrStatus = errors.New("backend status")

// StatusError carries the status code and a truncated body.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend status %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// StatusCode returns the backend status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

type Client struct {
	logger   *slog.Logger
	client   *http.Client
	base     *url.URL
	startNow func() time.Time
}

func New(logger *slog.Logger, client *http.Client, baseURL string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", baseURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{logger: logger, client: client, base: u, startNow: time.Now}, nil
}

// FetchLayer returns the raw dataset for lt, undecoded.
func (c *Client) FetchLayer(ctx context.Context, lt layers.LayerType) (json.RawMessage, error) {
	b, err := c.do(ctx, http.MethodGet, lt.Path(), nil, "layer")
	if err != nil {
		return nil, fmt.Errorf("fetch layer %s: %w", lt, err)
	}
	return json.RawMessage(b), nil
}

func (c *Client) RegionDetail(ctx context.Context, id string) (RegionDetail, error) {
	var out RegionDetail
	if err := c.getJSON(ctx, "/regions/"+url.PathEscape(id), nil, "regions", &out); err != nil {
		return RegionDetail{}, fmt.Errorf("region %s: %w", id, err)
	}
	return out, nil
}

func (c *Client) ListRegions(ctx context.Context) ([]Region, error) {
	var out []Region
	if err := c.getJSON(ctx, "/regions", nil, "regions", &out); err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	return out, nil
}

func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var out []SearchResult
	if err := c.getJSON(ctx, "/search", url.Values{"query": {query}}, "search", &out); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return out, nil
}

func (c *Client) Favorites(ctx context.Context, page, size int) (FavoritesPage, error) {
	q := url.Values{"page": {strconv.Itoa(page)}, "size": {strconv.Itoa(size)}}
	var out FavoritesPage
	if err := c.getJSON(ctx, "/favorite-regions", q, "favorites", &out); err != nil {
		return FavoritesPage{}, fmt.Errorf("favorites page %d: %w", page, err)
	}
	return out, nil
}

func (c *Client) DeleteFavorite(ctx context.Context, id string) error {
	if _, err := c.do(ctx, http.MethodDelete, "/favorite-regions/"+url.PathEscape(id), nil, "favorites"); err != nil {
		return fmt.Errorf("delete favorite %s: %w", id, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, upstream string, dst any) error {
	b, err := c.do(ctx, http.MethodGet, path, q, upstream)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, upstream string) ([]byte, error) {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawPath = ""
	if q != nil {
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := c.startNow()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	dur := time.Since(start)
	observability.ObserveUpstreamLatency(upstream, dur.Seconds())
	c.logger.Debug("backend call", "method", method, "path", path, "status", resp.StatusCode, "duration", dur)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(b)}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}
