// Package api is the REST client for the flowmark server.
//
// GET responses for the settings sections are served from a short-lived
// local cache and invalidated by the matching update call. Every request
// carries a UUID correlation ID and is wrapped in an OpenTelemetry span.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/sbrink/flowdash/internal/cachemanager"
	"github.com/sbrink/flowdash/internal/log"
)

// StatusError reports a non-2xx response from the server.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Body)
}

// Config holds the client construction options.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// CacheTTL is how long settings GETs are served from cache.
	// Zero disables caching.
	CacheTTL time.Duration
	// Tracer is optional; a noop tracer is used when nil.
	Tracer trace.Tracer
	// HTTPClient is optional; a client with Timeout is built when nil.
	HTTPClient *http.Client
}

// Client talks to the flowmark server.
type Client struct {
	baseURL  *url.URL
	apiKey   string
	http     *http.Client
	cache    cachemanager.CacheManager[string, json.RawMessage]
	cacheTTL time.Duration
	tracer   trace.Tracer
}

// NewClient creates a client for the given server.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("api")
	}

	return &Client{
		baseURL:  base,
		apiKey:   cfg.APIKey,
		http:     httpClient,
		cache:    cachemanager.NewInMemoryCacheManager[string, json.RawMessage]("api", cachemanager.DefaultExpiration, cachemanager.DefaultCleanupInterval),
		cacheTTL: cfg.CacheTTL,
		tracer:   tracer,
	}, nil
}

// GeneralSettings fetches the general settings section.
func (c *Client) GeneralSettings(ctx context.Context) (*GeneralSettings, error) {
	return getSection[GeneralSettings](ctx, c, "general")
}

// UpdateGeneralSettings persists the general settings section.
func (c *Client) UpdateGeneralSettings(ctx context.Context, s GeneralSettings) error {
	return c.putSection(ctx, "general", s)
}

// PlaybackSettings fetches the playback settings section.
func (c *Client) PlaybackSettings(ctx context.Context) (*PlaybackSettings, error) {
	return getSection[PlaybackSettings](ctx, c, "playback")
}

// UpdatePlaybackSettings persists the playback settings section.
func (c *Client) UpdatePlaybackSettings(ctx context.Context, s PlaybackSettings) error {
	return c.putSection(ctx, "playback", s)
}

// LimitSettings fetches the limits settings section.
func (c *Client) LimitSettings(ctx context.Context) (*LimitSettings, error) {
	return getSection[LimitSettings](ctx, c, "limits")
}

// UpdateLimitSettings persists the limits settings section.
func (c *Client) UpdateLimitSettings(ctx context.Context, s LimitSettings) error {
	return c.putSection(ctx, "limits", s)
}

// Streams fetches the currently active streams. Never cached.
func (c *Client) Streams(ctx context.Context) ([]Stream, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/streams", nil)
	if err != nil {
		return nil, err
	}
	var streams []Stream
	if err := json.Unmarshal(raw, &streams); err != nil {
		return nil, fmt.Errorf("decoding streams: %w", err)
	}
	return streams, nil
}

// BandwidthHistory fetches recent bandwidth samples. Never cached.
func (c *Client) BandwidthHistory(ctx context.Context, window time.Duration) ([]Sample, error) {
	minutes := int(window.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	raw, err := c.do(ctx, http.MethodGet, "/api/bandwidth/history?minutes="+strconv.Itoa(minutes), nil)
	if err != nil {
		return nil, err
	}
	var samples []Sample
	if err := json.Unmarshal(raw, &samples); err != nil {
		return nil, fmt.Errorf("decoding bandwidth history: %w", err)
	}
	return samples, nil
}

// getSection fetches one settings section, read-through cached.
func getSection[T any](ctx context.Context, c *Client, section string) (*T, error) {
	path := "/api/settings/" + section

	if c.cacheTTL > 0 {
		if raw, ok := c.cache.Get(ctx, path); ok {
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				return &v, nil
			}
			// Corrupt cache entry: drop it and fall through to the server.
			_ = c.cache.Delete(ctx, path)
		}
	}

	raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decoding %s settings: %w", section, err)
	}
	if c.cacheTTL > 0 {
		c.cache.Set(ctx, path, raw, c.cacheTTL)
	}
	return &v, nil
}

// putSection persists one settings section and invalidates its cache entry.
func (c *Client) putSection(ctx context.Context, section string, v any) error {
	path := "/api/settings/" + section
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s settings: %w", section, err)
	}
	if _, err := c.do(ctx, http.MethodPut, path, body); err != nil {
		return err
	}
	return c.cache.Delete(ctx, path)
}

// do performs one HTTP request and returns the response body.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	requestID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, "api.request", trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("request.id", requestID),
	))
	defer span.End()

	u, err := c.baseURL.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("building request URL: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	log.Debug(log.CatAPI, "request", "method", method, "path", path, "request_id", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("reading response: %w", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
		span.SetStatus(codes.Error, statusErr.Error())
		log.ErrorErr(log.CatAPI, "request failed", statusErr, "method", method, "path", path, "request_id", requestID)
		return nil, statusErr
	}

	return data, nil
}
