package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTTL is the retention used when the response carries no
	// freshness information
	DefaultTTL = 5 * time.Minute

	// MinTTL keeps validators around for at least a few poll intervals;
	// GitHub sends max-age=60 for notifications.
	MinTTL = 2 * time.Minute
)

// NewEntry builds a cache entry from an already read response.
func NewEntry(statusCode int, header http.Header, body []byte) *Entry {
	entry := &Entry{
		Data:       body,
		ETag:       header.Get("ETag"),
		StatusCode: statusCode,
		Headers:    header.Clone(),
		CachedAt:   time.Now(),
		Expires:    parseExpires(header),
	}

	if lastModStr := header.Get("Last-Modified"); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry
}

// Expiry returns the retention deadline for a response with the given
// headers.
func Expiry(headers http.Header) time.Time {
	return parseExpires(headers)
}

// parseExpires derives the retention deadline from Cache-Control max-age,
// then Expires, falling back to DefaultTTL. The result is never earlier than
// now + MinTTL.
func parseExpires(headers http.Header) time.Time {
	now := time.Now()
	expires := now.Add(DefaultTTL)

	if maxAge, ok := parseMaxAge(headers.Get("Cache-Control")); ok {
		expires = now.Add(maxAge)
	} else if expiresStr := headers.Get("Expires"); expiresStr != "" {
		if parsed, err := http.ParseTime(expiresStr); err == nil {
			expires = parsed
		}
	}

	if floor := now.Add(MinTTL); expires.Before(floor) {
		return floor
	}
	return expires
}

// parseMaxAge extracts max-age from a Cache-Control header value.
func parseMaxAge(cacheControl string) (time.Duration, bool) {
	for _, directive := range strings.Split(cacheControl, ",") {
		name, value, found := strings.Cut(strings.TrimSpace(directive), "=")
		if !found || !strings.EqualFold(name, "max-age") {
			continue
		}
		seconds, err := strconv.Atoi(strings.Trim(value, `"`))
		if err != nil || seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	return 0, false
}

// ShouldMakeConditionalRequest determines if we should add conditional
// request headers (If-None-Match or If-Modified-Since) based on the cache entry.
func ShouldMakeConditionalRequest(entry *Entry) bool {
	if entry == nil {
		return false
	}
	return entry.ETag != "" || !entry.LastModified.IsZero()
}

// AddConditionalHeaders adds If-None-Match (ETag) or If-Modified-Since headers
// to the request if the cache entry supports conditional requests.
func AddConditionalHeaders(req *http.Request, entry *Entry) {
	if entry == nil || req == nil {
		return
	}

	// ETag is more precise than Last-Modified
	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		req.Header.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
}
