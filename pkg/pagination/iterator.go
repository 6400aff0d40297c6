package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/Sternrassler/ghnotify/pkg/linkheader"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghnotify_pages_fetched_total",
		Help: "Total number of notification pages fetched",
	})

	walkErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghnotify_page_walk_errors_total",
		Help: "Total number of page walks terminated by an error",
	})
)

// PageFetcher fetches a single page by absolute URL.
// Implementations return an error for transport failures and non-success
// statuses; a returned Response is always a successful one.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (*Response, error)
}

// Option configures an Iterator.
type Option func(*Iterator)

// WithMaxPages stops the walk with ErrTooManyPages once more than n pages
// would be requested. Zero means unbounded.
func WithMaxPages(n int) Option {
	return func(it *Iterator) {
		it.maxPages = n
	}
}

// WithLogger sets the logger used for page-level debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(it *Iterator) {
		it.logger = logger
	}
}

// Iterator is a pull-based cursor over every notification of a listing.
type Iterator struct {
	fetcher  PageFetcher
	cursor   string
	buf      []Notification
	pages    int
	maxPages int
	err      error
	logger   zerolog.Logger
}

// New creates an iterator starting at baseURL. No request is made until the
// first call to Next.
func New(fetcher PageFetcher, baseURL string, opts ...Option) *Iterator {
	it := &Iterator{
		fetcher: fetcher,
		cursor:  baseURL,
		logger:  log.With().Str("component", "pagination").Logger(),
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Next returns the next notification, fetching the next page when the
// current one is exhausted. It returns ErrDone at the end of the listing and
// a *FetchError when a page could not be fetched or decoded. Errors are
// terminal: every subsequent call returns the same error.
func (it *Iterator) Next(ctx context.Context) (Notification, error) {
	for {
		if it.err != nil {
			return Notification{}, it.err
		}

		if len(it.buf) > 0 {
			n := it.buf[0]
			it.buf = it.buf[1:]
			return n, nil
		}

		if it.cursor == "" {
			return Notification{}, ErrDone
		}

		if err := it.fetch(ctx); err != nil {
			walkErrorsTotal.Inc()
			it.err = err
			it.buf = nil
			it.cursor = ""
			return Notification{}, err
		}
	}
}

// All returns a range-over-func view of the remaining notifications.
// A terminal error is yielded once as the final element.
func (it *Iterator) All(ctx context.Context) iter.Seq2[Notification, error] {
	return func(yield func(Notification, error) bool) {
		for {
			n, err := it.Next(ctx)
			if errors.Is(err, ErrDone) {
				return
			}
			if err != nil {
				yield(Notification{}, err)
				return
			}
			if !yield(n, nil) {
				return
			}
		}
	}
}

// Pages returns the number of pages requested so far.
func (it *Iterator) Pages() int {
	return it.pages
}

// Cursor returns the URL of the next page, or "" once exhausted.
func (it *Iterator) Cursor() string {
	return it.cursor
}

// Err returns the terminal error, if any.
func (it *Iterator) Err() error {
	return it.err
}

func (it *Iterator) fetch(ctx context.Context) error {
	url := it.cursor
	if it.maxPages > 0 && it.pages >= it.maxPages {
		return &FetchError{Page: it.pages + 1, URL: url, Err: ErrTooManyPages}
	}
	it.pages++

	resp, err := it.fetcher.FetchPage(ctx, url)
	if err != nil {
		return &FetchError{Page: it.pages, URL: url, Err: err}
	}
	pagesFetchedTotal.Inc()

	next, _ := linkheader.Next(resp.Header.Get("Link"))

	var items []Notification
	if err := json.Unmarshal(resp.Body, &items); err != nil {
		return &FetchError{Page: it.pages, URL: url, Err: fmt.Errorf("%w: %v", ErrMalformedPage, err)}
	}

	it.cursor = next
	it.buf = items

	it.logger.Debug().
		Int("page", it.pages).
		Int("items", len(items)).
		Bool("has_next", next != "").
		Msg("Fetched notification page")

	return nil
}
