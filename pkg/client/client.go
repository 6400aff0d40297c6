// Package client provides the GitHub REST client used to fetch notification
// pages, with rate limiting, conditional-request caching and error
// classification.
package client

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

	"github.com/Sternrassler/ghnotify/pkg/cache"
	"github.com/Sternrassler/ghnotify/pkg/pagination"
	"github.com/Sternrassler/ghnotify/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Prometheus metrics for GitHub client operations.
var (
	ghRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghnotify_requests_total",
		Help: "Total GitHub API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	ghRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ghnotify_request_duration_seconds",
		Help:    "GitHub API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint"})

	ghErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghnotify_errors_total",
		Help: "Total GitHub API errors by class",
	}, []string{"class"})
)

const (
	// DefaultAPIServer is the public GitHub REST endpoint.
	DefaultAPIServer = "https://api.github.com"

	// DefaultTimeout bounds a single page request.
	DefaultTimeout = 5 * time.Second

	// DefaultUserAgent is sent when none is configured. GitHub rejects
	// requests without a User-Agent.
	DefaultUserAgent = "ghnotify"

	// DefaultMaxBodyBytes caps the size of a page body.
	DefaultMaxBodyBytes = 10 << 20

	acceptHeader = "application/vnd.github+json"
)

// Client is the GitHub API client.
type Client struct {
	httpClient  *http.Client
	apiURL      *url.URL
	limiter     *rate.Limiter
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// APIServer is the base URL of the REST API
	APIServer string

	// Token is the personal access token. It is only ever sent to APIServer.
	Token string

	// User-Agent header (REQUIRED by GitHub)
	UserAgent string

	// Timeout bounds each page request
	Timeout time.Duration

	// Pacing; RequestsPerSecond <= 0 disables it
	RequestsPerSecond float64
	Burst             int

	// Redis enables the page cache and shared rate limit state. Optional.
	Redis *redis.Client

	// MaxBodyBytes caps a response body; <= 0 uses DefaultMaxBodyBytes
	MaxBodyBytes int64
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(token string) Config {
	return Config{
		APIServer:         DefaultAPIServer,
		Token:             token,
		UserAgent:         DefaultUserAgent,
		Timeout:           DefaultTimeout,
		RequestsPerSecond: 5,
		Burst:             5,
		MaxBodyBytes:      DefaultMaxBodyBytes,
	}
}

// New creates a new GitHub client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("token is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}

	apiURL, err := url.Parse(strings.TrimRight(cfg.APIServer, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api server: %w", err)
	}
	if (apiURL.Scheme != "http" && apiURL.Scheme != "https") || apiURL.Host == "" {
		return nil, fmt.Errorf("api server must be an absolute http(s) url (got %q)", cfg.APIServer)
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	logger := log.With().Str("component", "github-client").Logger()

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiURL:      apiURL,
		limiter:     rate.NewLimiter(limit, burst),
		rateLimiter: ratelimit.NewTracker(cfg.Redis, ratelimit.Namespace(apiURL.Host, cache.Fingerprint(cfg.Token)), logger),
		config:      cfg,
		logger:      logger,
	}

	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis)
	}

	return c, nil
}

// FetchPage performs a GET on an absolute page URL and returns the
// successful response. Non-success statuses are returned as *APIError,
// transport failures as *RequestError.
func (c *Client) FetchPage(ctx context.Context, rawURL string) (*pagination.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	if !c.sameServer(u) {
		return nil, fmt.Errorf("%w: %s", ErrForeignHost, u.Host)
	}

	endpoint := u.Path

	startTime := time.Now()
	defer func() {
		ghRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Pace and check rate limit
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for request slot: %w", err)
	}

	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Msg("Request blocked by rate limiter")
		ghRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		ghErrorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
		return nil, ErrRateLimited
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "token "+c.config.Token)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", c.config.UserAgent)

	// Step 2: Conditional request from cache
	var cacheKey cache.Key
	var cachedEntry *cache.Entry
	if c.cache != nil {
		cacheKey = cache.NewKey(u, c.config.Token)
		cachedEntry, err = c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
		if cache.ShouldMakeConditionalRequest(cachedEntry) {
			cache.AddConditionalHeaders(req, cachedEntry)
			c.logger.Debug().
				Str("endpoint", endpoint).
				Str("etag", cachedEntry.ETag).
				Msg("Making conditional request")
		}
	}

	// Step 3: Execute
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("page", u.Query().Get("page")).
		Msg("Fetching page")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		ghErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		ghRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &RequestError{Class: ErrorClassNetwork, Op: "send request", Err: err}
	}
	defer resp.Body.Close()

	if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}

	// Step 4: 304 Not Modified replays the cached page
	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		ghRequestsTotal.WithLabelValues(endpoint, "304").Inc()
		cache.NotModifiedResponses.Inc()
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")

		if err := c.cache.UpdateTTL(ctx, cacheKey, cache.Expiry(resp.Header)); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
		}

		return &pagination.Response{
			StatusCode: http.StatusOK,
			Header:     cachedEntry.Headers.Clone(),
			Body:       cachedEntry.Data,
		}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodyBytes))
	if err != nil {
		ghErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		ghRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &RequestError{Class: ErrorClassNetwork, Op: "read body", Err: err}
	}

	ghRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	// Step 5: Error responses
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp, body)
		ghErrorsTotal.WithLabelValues(string(apiErr.Class)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(apiErr.Class)).
			Str("remote_message", apiErr.Message).
			Msg("GitHub request error")

		if c.cache != nil && resp.StatusCode == http.StatusUnauthorized {
			if _, err := c.cache.Invalidate(ctx, cacheKey.Principal); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to invalidate cached pages")
			}
		}

		return nil, apiErr
	}

	// Step 6: Update cache on success
	if c.cache != nil && resp.StatusCode == http.StatusOK {
		entry := cache.NewEntry(resp.StatusCode, resp.Header, body)
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return &pagination.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (c *Client) sameServer(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, c.apiURL.Scheme) && strings.EqualFold(u.Host, c.apiURL.Host)
}

// newAPIError builds an APIError from a non-success response. GitHub sends
// {"message": ..., "documentation_url": ...}; other bodies fall back to the
// status text.
func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Class:      classifyStatus(resp.StatusCode, resp.Header),
	}

	var payload struct {
		Message          string `json:"message"`
		DocumentationURL string `json:"documentation_url"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		apiErr.Message = payload.Message
		apiErr.DocumentationURL = payload.DocumentationURL
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	return apiErr
}

// classifyStatus categorizes a non-success status for observability.
func classifyStatus(status int, header http.Header) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status == http.StatusForbidden && header.Get("X-RateLimit-Remaining") == "0":
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// Close closes the client and releases resources. The Redis client is owned
// by the caller and is left open.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// RateLimitState returns the last observed rate limit window.
func (c *Client) RateLimitState(ctx context.Context) (*ratelimit.RateLimitState, error) {
	return c.rateLimiter.GetState(ctx)
}
