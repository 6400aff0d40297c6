// Package aggregate folds a notification stream into per-reason counters.
package aggregate

import (
	"context"
	"errors"

	"github.com/Sternrassler/ghnotify/pkg/pagination"
)

// Total is the name under which the overall count is exposed.
const Total = "total"

// Source yields notifications until pagination.ErrDone or an error.
// *pagination.Iterator satisfies it.
type Source interface {
	Next(ctx context.Context) (pagination.Notification, error)
}

// Counts is the aggregate of one full pagination walk.
//
// ByReason only holds reasons that were actually observed. Total is always
// the sum of ByReason. Reasons are kept apart from Total so that a remote
// reason spelled "total" cannot corrupt the overall count.
type Counts struct {
	Total    uint64            `json:"total"`
	ByReason map[string]uint64 `json:"by_reason"`
}

// NewCounts returns an empty aggregate.
func NewCounts() *Counts {
	return &Counts{ByReason: make(map[string]uint64)}
}

// Add records one notification with the given reason.
func (c *Counts) Add(reason string) {
	c.ByReason[reason]++
	c.Total++
}

// Get returns the count exposed under name: the overall count for Total,
// otherwise the reason bucket, 0 if that reason was never observed.
func (c *Counts) Get(name string) uint64 {
	if name == Total {
		return c.Total
	}
	return c.ByReason[name]
}

// Sum returns the sum of the reason buckets. It always equals Total.
func (c *Counts) Sum() uint64 {
	var sum uint64
	for _, n := range c.ByReason {
		sum += n
	}
	return sum
}

// Clone returns a deep copy.
func (c *Counts) Clone() *Counts {
	clone := &Counts{
		Total:    c.Total,
		ByReason: make(map[string]uint64, len(c.ByReason)),
	}
	for reason, n := range c.ByReason {
		clone.ByReason[reason] = n
	}
	return clone
}

// Fold consumes src until it is exhausted. The first error aborts the fold;
// the partial aggregate is discarded and nil is returned with the error.
func Fold(ctx context.Context, src Source) (*Counts, error) {
	counts := NewCounts()
	for {
		n, err := src.Next(ctx)
		if errors.Is(err, pagination.ErrDone) {
			return counts, nil
		}
		if err != nil {
			return nil, err
		}
		counts.Add(n.Reason)
	}
}
