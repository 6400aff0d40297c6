package pagination

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
)

var (
	errNullNotification = errors.New("notification is null")
	errMissingReason    = errors.New("notification has no reason")
)

// Notification is a single entry of the GitHub notifications listing.
// Only Reason is relied upon; the remaining fields are informational.
type Notification struct {
	ID         string     `json:"id"`
	Reason     string     `json:"reason"`
	Unread     bool       `json:"unread"`
	UpdatedAt  string     `json:"updated_at"`
	Subject    Subject    `json:"subject"`
	Repository Repository `json:"repository"`
}

// UnmarshalJSON requires a reason: an entry without one cannot be counted.
func (n *Notification) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return errNullNotification
	}

	type plain Notification
	var raw struct {
		plain
		Reason *string `json:"reason"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Reason == nil {
		return errMissingReason
	}

	*n = Notification(raw.plain)
	n.Reason = *raw.Reason
	return nil
}

// Subject describes what a notification is about.
type Subject struct {
	Title string `json:"title"`
	Type  string `json:"type"`
	URL   string `json:"url"`
}

// Repository identifies the repository a notification belongs to.
type Repository struct {
	FullName string `json:"full_name"`
}

// Response is a successfully fetched raw page.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}
