// Package ratelimit implements GitHub REST API rate limit tracking and request gating.
// It monitors the X-RateLimit-Remaining and X-RateLimit-Reset headers so that
// a poller stops issuing requests before the primary rate limit is exhausted.
package ratelimit

import (
	"strings"
	"time"
)

// RedisKeyPrefix prefixes every rate limit key. The full key is
// <prefix>:<namespace>:<field>.
const RedisKeyPrefix = "ghnotify:rate_limit"

// Fields of a stored rate limit state.
const (
	FieldRemaining      = "remaining"
	FieldLimit          = "limit"
	FieldResetTimestamp = "reset_timestamp"
	FieldLastUpdate     = "last_update"
)

// MaxStateAge bounds how old a stored state may be before it is ignored.
// GitHub's primary window is one hour.
const MaxStateAge = time.Hour

// Namespace identifies one rate limit window: GitHub counts requests per
// credential, and separate servers (github.com, an Enterprise host) keep
// separate windows. principal is a credential fingerprint, never the token.
func Namespace(host, principal string) string {
	return strings.ToLower(host) + ":" + principal
}

// RedisKey builds the key holding field for namespace.
func RedisKey(namespace, field string) string {
	return RedisKeyPrefix + ":" + namespace + ":" + field
}

// Thresholds for rate limit decisions.
const (
	// RemainingThresholdCritical blocks all requests when remaining requests fall below this value.
	RemainingThresholdCritical = 5

	// RemainingThresholdWarning applies throttling when remaining requests fall below this value.
	RemainingThresholdWarning = 50

	// RemainingThresholdHealthy indicates normal operation.
	RemainingThresholdHealthy = 100
)

// RateLimitState represents the current GitHub primary rate limit state.
// When a Redis client is configured the state is shared by every poller
// using the same credential against the same server.
type RateLimitState struct {
	// Remaining is the number of requests left in the current window.
	// Extracted from the X-RateLimit-Remaining header.
	Remaining int `json:"remaining"`

	// Limit is the size of the window, from X-RateLimit-Limit.
	Limit int `json:"limit"`

	// ResetAt is when the window resets (X-RateLimit-Reset, epoch seconds).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is the timestamp when this state was last updated.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= RemainingThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
// A state that was never updated is stale.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// HasReset reports whether the window has rolled over since the state was recorded.
func (s *RateLimitState) HasReset() bool {
	return !s.ResetAt.IsZero() && !time.Now().Before(s.ResetAt)
}

// NeedsCriticalBlock returns true if requests should be blocked.
// A window that has already reset never blocks.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return s.Remaining < RemainingThresholdCritical && !s.HasReset()
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *RateLimitState) NeedsThrottling() bool {
	return s.Remaining < RemainingThresholdWarning && !s.HasReset() && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on current Remaining.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= RemainingThresholdHealthy
}

// defaultState is assumed until the first response headers arrive.
func defaultState() *RateLimitState {
	now := time.Now()
	return &RateLimitState{
		Remaining:  5000,
		Limit:      5000,
		ResetAt:    now.Add(time.Hour),
		LastUpdate: now,
		IsHealthy:  true,
	}
}
