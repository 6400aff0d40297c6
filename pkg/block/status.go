package block

import (
	"time"

	"github.com/Sternrassler/ghnotify/pkg/aggregate"
)

// Status is a snapshot of a block for diagnostics.
type Status struct {
	ID        string            `json:"id"`
	State     string            `json:"state"`
	Text      string            `json:"text"`
	Interval  string            `json:"interval"`
	LastPoll  *time.Time        `json:"last_poll,omitempty"`
	LastError string            `json:"last_error,omitempty"`
	Counts    *aggregate.Counts `json:"counts,omitempty"`
}

// Status returns a snapshot of the block.
func (g *Github) Status() Status {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := Status{
		ID:       g.id,
		State:    g.State().String(),
		Text:     g.text.Text(),
		Interval: g.config.Interval.String(),
	}
	if !g.lastPoll.IsZero() {
		lastPoll := g.lastPoll
		s.LastPoll = &lastPoll
	}
	if g.lastErr != nil {
		s.LastError = g.lastErr.Error()
	}
	if g.lastCounts != nil {
		s.Counts = g.lastCounts.Clone()
	}
	return s
}
