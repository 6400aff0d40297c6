package pagination

import (
	"errors"
	"fmt"
)

var (
	// ErrDone is returned by Next once every page has been consumed.
	ErrDone = errors.New("no more notifications")

	// ErrMalformedPage is returned when a page body is not a JSON array of notifications.
	ErrMalformedPage = errors.New("malformed page body")

	// ErrTooManyPages is returned when a walk exceeds the configured page limit.
	ErrTooManyPages = errors.New("page limit exceeded")
)

// FetchError reports the page that terminated a walk.
type FetchError struct {
	// Page is the 1-based number of the page within the walk.
	Page int
	URL  string
	Err  error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d (%s): %v", e.Page, e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}
