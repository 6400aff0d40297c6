package cache

import (
	"bytes"
	"net/http"
	"testing"
	"time"
)

func TestNewEntry(t *testing.T) {
	lastModified := time.Now().Add(-1 * time.Hour).Truncate(time.Second)

	tests := []struct {
		name             string
		header           http.Header
		body             []byte
		wantLastModified bool
	}{
		{
			name: "page with validators and link",
			header: http.Header{
				"Cache-Control": []string{"private, max-age=60, s-maxage=60"},
				"Last-Modified": []string{lastModified.UTC().Format(http.TimeFormat)},
				"Etag":          []string{`W/"abc123"`},
				"Link":          []string{`<https://api.github.com/notifications?page=2>; rel="next"`},
			},
			body:             []byte(`[{"reason":"mention"}]`),
			wantLastModified: true,
		},
		{
			name:   "page without freshness headers",
			header: http.Header{"Content-Type": []string{"application/json"}},
			body:   []byte(`[]`),
		},
		{
			name:   "unparsable last modified",
			header: http.Header{"Last-Modified": []string{"yesterday"}},
			body:   []byte(`[]`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := NewEntry(http.StatusOK, tt.header, tt.body)

			if !bytes.Equal(entry.Data, tt.body) {
				t.Errorf("Data = %q, want %q", entry.Data, tt.body)
			}
			if entry.StatusCode != http.StatusOK {
				t.Errorf("StatusCode = %v, want 200", entry.StatusCode)
			}
			if entry.ETag != tt.header.Get("ETag") {
				t.Errorf("ETag = %v, want %v", entry.ETag, tt.header.Get("ETag"))
			}
			if entry.Headers.Get("Link") != tt.header.Get("Link") {
				t.Error("Link header not kept in entry")
			}
			if entry.Expires.IsZero() {
				t.Error("Expires time was not set")
			}
			if got := !entry.LastModified.IsZero(); got != tt.wantLastModified {
				t.Errorf("LastModified set = %v, want %v", got, tt.wantLastModified)
			}
			if tt.wantLastModified && !entry.LastModified.Equal(lastModified) {
				t.Errorf("LastModified = %v, want %v", entry.LastModified, lastModified)
			}

			tt.header.Set("Link", "changed")
			if entry.Headers.Get("Link") == "changed" {
				t.Error("entry shares the header map with the response")
			}
		})
	}
}

func TestParseExpires(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		headers http.Header
		want    time.Duration
	}{
		{
			name:    "max-age wins",
			headers: http.Header{"Cache-Control": []string{"private, max-age=600"}, "Expires": []string{now.Add(time.Hour).Format(http.TimeFormat)}},
			want:    10 * time.Minute,
		},
		{
			name:    "expires header",
			headers: http.Header{"Expires": []string{now.Add(time.Hour).Format(http.TimeFormat)}},
			want:    time.Hour,
		},
		{
			name:    "no freshness headers",
			headers: http.Header{},
			want:    DefaultTTL,
		},
		{
			name:    "invalid expires header",
			headers: http.Header{"Expires": []string{"not a valid date"}},
			want:    DefaultTTL,
		},
		{
			name:    "short max-age raised to floor",
			headers: http.Header{"Cache-Control": []string{"max-age=60"}},
			want:    MinTTL,
		},
		{
			name:    "expires in the past raised to floor",
			headers: http.Header{"Expires": []string{now.Add(-time.Hour).Format(http.TimeFormat)}},
			want:    MinTTL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseExpires(tt.headers)
			diff := got.Sub(now.Add(tt.want))
			if diff < -2*time.Second || diff > 2*time.Second {
				t.Errorf("parseExpires() = %v, want approximately now+%v (diff: %v)", got, tt.want, diff)
			}
		})
	}
}

func TestParseMaxAge(t *testing.T) {
	tests := []struct {
		value  string
		want   time.Duration
		wantOK bool
	}{
		{"private, max-age=60, s-maxage=60", time.Minute, true},
		{"MAX-AGE=5", 5 * time.Second, true},
		{"no-cache", 0, false},
		{"max-age=abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, ok := parseMaxAge(tt.value)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("parseMaxAge(%q) = %v, %v; want %v, %v", tt.value, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestShouldMakeConditionalRequest(t *testing.T) {
	tests := []struct {
		name  string
		entry *Entry
		want  bool
	}{
		{"nil entry", nil, false},
		{"entry with ETag", &Entry{ETag: `"abc123"`}, true},
		{"entry with Last-Modified", &Entry{LastModified: time.Now()}, true},
		{"entry without validators", &Entry{Data: []byte("data")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldMakeConditionalRequest(tt.entry); got != tt.want {
				t.Errorf("ShouldMakeConditionalRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddConditionalHeaders(t *testing.T) {
	tests := []struct {
		name       string
		entry      *Entry
		wantHeader string
		wantValue  string
	}{
		{
			name:       "add If-None-Match with ETag",
			entry:      &Entry{ETag: `"abc123"`},
			wantHeader: "If-None-Match",
			wantValue:  `"abc123"`,
		},
		{
			name:       "add If-Modified-Since with Last-Modified",
			entry:      &Entry{LastModified: time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)},
			wantHeader: "If-Modified-Since",
			wantValue:  "Sun, 01 Jan 2023 12:00:00 GMT",
		},
		{
			name: "prefer ETag over Last-Modified",
			entry: &Entry{
				ETag:         `"abc123"`,
				LastModified: time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
			},
			wantHeader: "If-None-Match",
			wantValue:  `"abc123"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "https://api.github.com/notifications", nil)
			AddConditionalHeaders(req, tt.entry)

			if got := req.Header.Get(tt.wantHeader); got != tt.wantValue {
				t.Errorf("Header %s = %v, want %v", tt.wantHeader, got, tt.wantValue)
			}
		})
	}
}

func TestAddConditionalHeaders_NilInputs(t *testing.T) {
	AddConditionalHeaders(nil, &Entry{ETag: "test"})
	AddConditionalHeaders(&http.Request{}, nil)
}
