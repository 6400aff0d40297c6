// Package linkheader extracts relation URLs from RFC 8288 style Link headers
// as returned by the GitHub REST API for paginated listings.
//
// Only segments of the shape `<https://host/path?query>; rel="name"` are
// recognised. Anything else in the header is skipped, so a malformed or empty
// header never produces an error, just fewer relations.
package linkheader

import (
	"regexp"
)

// Well-known pagination relations.
const (
	RelNext  = "next"
	RelPrev  = "prev"
	RelFirst = "first"
	RelLast  = "last"
)

var linkPattern = regexp.MustCompile(`<(?P<url>https?://[^>\s]+)>;\s*rel="?(?P<rel>\w+)`)

// Parse returns a mapping of relation name to URL.
// When a relation appears more than once the last occurrence wins.
// The returned map is never nil.
func Parse(raw string) map[string]string {
	links := make(map[string]string)
	if raw == "" {
		return links
	}

	urlIdx := linkPattern.SubexpIndex("url")
	relIdx := linkPattern.SubexpIndex("rel")

	for _, m := range linkPattern.FindAllStringSubmatch(raw, -1) {
		if m[urlIdx] == "" || m[relIdx] == "" {
			continue
		}
		links[m[relIdx]] = m[urlIdx]
	}

	return links
}

// Next returns the URL of the "next" relation, if any.
func Next(raw string) (string, bool) {
	next, ok := Parse(raw)[RelNext]
	return next, ok
}
