// Package format renders notification counts through a user supplied format
// string such as "{total} ({mention})".
//
// The format string is validated once, in New. Unknown placeholders and
// unterminated tags are rejected there, so Render itself cannot fail.
package format

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/Sternrassler/ghnotify/pkg/aggregate"
	"github.com/valyala/fasttemplate"
)

const (
	startTag = "{"
	endTag   = "}"
)

// DefaultFormat renders the overall count only.
const DefaultFormat = "{total}"

// Placeholders is the declared set of names a format string may reference.
// Reasons follow the GitHub notification reason list.
var Placeholders = []string{
	aggregate.Total,
	"approval_requested",
	"assign",
	"author",
	"ci_activity",
	"comment",
	"invitation",
	"manual",
	"member_feature_requested",
	"mention",
	"review_requested",
	"security_advisory_credit",
	"security_alert",
	"state_change",
	"subscribed",
	"team_mention",
}

var declared = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Placeholders))
	for _, p := range Placeholders {
		m[p] = struct{}{}
	}
	return m
}()

var (
	// ErrInvalidFormat is returned for format strings that cannot be parsed.
	ErrInvalidFormat = errors.New("invalid format string")

	// ErrUnknownPlaceholder is returned when a format string references a
	// name outside Placeholders.
	ErrUnknownPlaceholder = errors.New("unknown placeholder")
)

// Error describes why a format string was rejected.
type Error struct {
	Format      string
	Placeholder string
	Err         error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Placeholder != "" {
		return fmt.Sprintf("format %q: %v {%s}", e.Format, e.Err, e.Placeholder)
	}
	return fmt.Sprintf("format %q: %v", e.Format, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Template is a validated format string.
type Template struct {
	raw string
	tpl *fasttemplate.Template
}

// New parses and validates format.
func New(format string) (*Template, error) {
	tpl, err := fasttemplate.NewTemplate(format, startTag, endTag)
	if err != nil {
		return nil, &Error{Format: format, Err: fmt.Errorf("%w: %v", ErrInvalidFormat, err)}
	}

	_, err = tpl.ExecuteFuncStringWithErr(func(w io.Writer, tag string) (int, error) {
		if _, ok := declared[tag]; !ok {
			return 0, &Error{Format: format, Placeholder: tag, Err: ErrUnknownPlaceholder}
		}
		return 0, nil
	})
	if err != nil {
		var fmtErr *Error
		if errors.As(err, &fmtErr) {
			return nil, fmtErr
		}
		return nil, &Error{Format: format, Err: fmt.Errorf("%w: %v", ErrInvalidFormat, err)}
	}

	return &Template{raw: format, tpl: tpl}, nil
}

// String returns the original format string.
func (t *Template) String() string {
	return t.raw
}

// Render substitutes every placeholder with its decimal count.
func (t *Template) Render(counts *aggregate.Counts) string {
	values := Values(counts)
	return t.tpl.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		return io.WriteString(w, values[tag])
	})
}

// Values maps every declared placeholder to its decimal count, "0" for
// reasons that were not observed. Reasons outside Placeholders are not
// exposed. A nil aggregate renders as all zeros.
func Values(counts *aggregate.Counts) map[string]string {
	if counts == nil {
		counts = aggregate.NewCounts()
	}
	values := make(map[string]string, len(Placeholders))
	for _, p := range Placeholders {
		values[p] = strconv.FormatUint(counts.Get(p), 10)
	}
	return values
}
