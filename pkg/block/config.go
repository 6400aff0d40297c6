package block

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/ghnotify/pkg/client"
	"github.com/Sternrassler/ghnotify/pkg/format"
)

// ErrMissingCredential is returned when the token variable is unset or empty.
var ErrMissingCredential = errors.New("credential not set")

// Config configures a github block.
type Config struct {
	// Interval between polls
	Interval time.Duration

	// APIServer is the base URL of the GitHub REST API
	APIServer string

	// Format is the display template, e.g. "{total} ({mention})"
	Format string

	// TokenEnv names the environment variable holding the token
	TokenEnv string

	// Listing options
	All           bool
	Participating bool
	PerPage       int
	MaxPages      int
}

// DefaultConfig returns the stock block configuration.
func DefaultConfig() Config {
	return Config{
		Interval:  30 * time.Second,
		APIServer: client.DefaultAPIServer,
		Format:    format.DefaultFormat,
		TokenEnv:  "GITHUB_TOKEN",
	}
}

// ConfigError is a construction-time error. The block never activates.
type ConfigError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("github block: invalid %s: %v", e.Field, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

func (c Config) validate() error {
	if c.Interval <= 0 {
		return &ConfigError{Field: "interval", Err: fmt.Errorf("must be > 0 (got %s)", c.Interval)}
	}
	if c.TokenEnv == "" {
		return &ConfigError{Field: "token_env", Err: errors.New("no variable name")}
	}
	if c.PerPage < 0 || c.PerPage > 100 {
		return &ConfigError{Field: "per_page", Err: fmt.Errorf("must be between 0 and 100 (got %d)", c.PerPage)}
	}
	if c.MaxPages < 0 {
		return &ConfigError{Field: "max_pages", Err: fmt.Errorf("must be >= 0 (got %d)", c.MaxPages)}
	}
	return nil
}
