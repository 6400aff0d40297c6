package ratelimit

import (
	"testing"
	"time"
)

func TestRateLimitState_IsStale(t *testing.T) {
	tests := []struct {
		name     string
		state    *RateLimitState
		maxAge   time.Duration
		expected bool
	}{
		{
			name:     "fresh state",
			state:    &RateLimitState{LastUpdate: time.Now()},
			maxAge:   5 * time.Minute,
			expected: false,
		},
		{
			name:     "stale state",
			state:    &RateLimitState{LastUpdate: time.Now().Add(-10 * time.Minute)},
			maxAge:   5 * time.Minute,
			expected: true,
		},
		{
			name:     "just under max age",
			state:    &RateLimitState{LastUpdate: time.Now().Add(-4 * time.Minute)},
			maxAge:   5 * time.Minute,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.state.IsStale(tt.maxAge)
			if result != tt.expected {
				t.Errorf("IsStale() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestRateLimitState_NeedsCriticalBlock(t *testing.T) {
	future := time.Now().Add(10 * time.Minute)
	past := time.Now().Add(-time.Minute)

	tests := []struct {
		name      string
		remaining int
		resetAt   time.Time
		expected  bool
	}{
		{"well above critical threshold", 500, future, false},
		{"at critical threshold", RemainingThresholdCritical, future, false},
		{"just below critical threshold", RemainingThresholdCritical - 1, future, true},
		{"zero remaining", 0, future, true},
		{"zero remaining but window reset", 0, past, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &RateLimitState{Remaining: tt.remaining, ResetAt: tt.resetAt}
			result := state.NeedsCriticalBlock()
			if result != tt.expected {
				t.Errorf("NeedsCriticalBlock() = %v, want %v (remaining=%d)", result, tt.expected, tt.remaining)
			}
		})
	}
}

func TestRateLimitState_NeedsThrottling(t *testing.T) {
	future := time.Now().Add(10 * time.Minute)

	tests := []struct {
		name      string
		remaining int
		expected  bool
	}{
		{"healthy state", 500, false},
		{"at warning threshold", RemainingThresholdWarning, false},
		{"just below warning threshold", RemainingThresholdWarning - 1, true},
		{"just above critical threshold", RemainingThresholdCritical + 1, true},
		{"below critical threshold", RemainingThresholdCritical - 1, false}, // blocked, not throttled
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &RateLimitState{Remaining: tt.remaining, ResetAt: future}
			result := state.NeedsThrottling()
			if result != tt.expected {
				t.Errorf("NeedsThrottling() = %v, want %v (remaining=%d)", result, tt.expected, tt.remaining)
			}
		})
	}
}

func TestRateLimitState_TimeUntilReset(t *testing.T) {
	state := &RateLimitState{ResetAt: time.Now().Add(5 * time.Minute)}
	diff := state.TimeUntilReset() - 5*time.Minute
	if diff < -time.Second || diff > time.Second {
		t.Errorf("TimeUntilReset() = %v, want approximately 5m", state.TimeUntilReset())
	}

	state = &RateLimitState{ResetAt: time.Now().Add(-5 * time.Minute)}
	if state.TimeUntilReset() != 0 {
		t.Errorf("TimeUntilReset() = %v, want 0 for past reset time", state.TimeUntilReset())
	}
}

func TestRateLimitState_UpdateHealth(t *testing.T) {
	tests := []struct {
		name            string
		remaining       int
		expectedHealthy bool
	}{
		{"healthy state", 4000, true},
		{"at healthy threshold", RemainingThresholdHealthy, true},
		{"just below healthy threshold", RemainingThresholdHealthy - 1, false},
		{"warning state", 20, false},
		{"critical state", 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &RateLimitState{Remaining: tt.remaining}
			state.UpdateHealth()
			if state.IsHealthy != tt.expectedHealthy {
				t.Errorf("IsHealthy = %v, want %v (remaining=%d)", state.IsHealthy, tt.expectedHealthy, tt.remaining)
			}
		})
	}
}
