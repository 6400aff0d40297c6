package client

import (
	"net/url"
	"strconv"

	"github.com/Sternrassler/ghnotify/pkg/pagination"
)

// ListOptions are the query parameters of the notification listing.
type ListOptions struct {
	// All includes notifications already marked as read
	All bool

	// Participating restricts the listing to threads the user takes part in
	Participating bool

	// PerPage is the page size requested from the server; 0 uses the server default
	PerPage int

	// MaxPages bounds the walk; 0 is unbounded
	MaxPages int
}

// NotificationsURL returns the first page URL of the listing.
func (c *Client) NotificationsURL(opts ListOptions) string {
	u := c.apiURL.JoinPath("notifications")

	query := url.Values{}
	if opts.All {
		query.Set("all", "true")
	}
	if opts.Participating {
		query.Set("participating", "true")
	}
	if opts.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	u.RawQuery = query.Encode()

	return u.String()
}

// Notifications returns a fresh iterator over the notification listing.
// No request is made until the iterator is advanced.
func (c *Client) Notifications(opts ListOptions) *pagination.Iterator {
	return pagination.New(c, c.NotificationsURL(opts),
		pagination.WithMaxPages(opts.MaxPages),
		pagination.WithLogger(c.logger),
	)
}
