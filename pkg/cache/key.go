package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached page.
type Key struct {
	// Endpoint is the request path (e.g., "/notifications")
	Endpoint string

	// QueryParams carry the page cursor (e.g., {"page": "2"})
	QueryParams url.Values

	// Principal is the credential fingerprint; empty for anonymous requests
	Principal string
}

// NewKey builds the key for a request URL issued with token.
func NewKey(u *url.URL, token string) Key {
	key := Key{
		Endpoint:    u.Path,
		QueryParams: u.Query(),
	}
	if token != "" {
		key.Principal = Fingerprint(token)
	}
	return key
}

// Fingerprint returns a short, non-reversible identifier for a credential.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}

// String generates a deterministic cache key string.
// Format: ghnotify:endpoint:query1=val1:query2=val2:principal=fingerprint
//
// Example:
//
//	ghnotify:notifications:page=2:per_page=50:principal=9f86d081884c7d65
func (k Key) String() string {
	parts := []string{"ghnotify"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Query params sorted for determinism
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.QueryParams[key], ",")))
		}
	}

	if k.Principal != "" {
		parts = append(parts, "principal="+k.Principal)
	}

	return strings.Join(parts, ":")
}
