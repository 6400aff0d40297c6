package widget

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Header is the first line of the i3bar protocol.
type Header struct {
	Version     int  `json:"version"`
	ClickEvents bool `json:"click_events"`
}

// Block is one entry of an i3bar status line.
type Block struct {
	Name     string `json:"name"`
	Instance string `json:"instance"`
	FullText string `json:"full_text"`
	Color    string `json:"color,omitempty"`
}

// ClickEvent is a click reported by the bar on stdin.
type ClickEvent struct {
	Name     string `json:"name"`
	Instance string `json:"instance"`
	Button   int    `json:"button"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
}

// Writer emits the i3bar protocol: the header once, then one JSON array of
// blocks per status line inside an endless array.
type Writer struct {
	mu          sync.Mutex
	w           io.Writer
	clickEvents bool
	started     bool
}

// NewWriter creates a protocol writer on w.
func NewWriter(w io.Writer, clickEvents bool) *Writer {
	return &Writer{w: w, clickEvents: clickEvents}
}

// WriteLine writes one status line, emitting the header first if needed.
func (w *Writer) WriteLine(blocks []Block) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		header, err := json.Marshal(Header{Version: 1, ClickEvents: w.clickEvents})
		if err != nil {
			return fmt.Errorf("marshal header: %w", err)
		}
		if _, err := fmt.Fprintf(w.w, "%s\n[\n", header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		w.started = true
	}

	if blocks == nil {
		blocks = []Block{}
	}
	line, err := json.Marshal(blocks)
	if err != nil {
		return fmt.Errorf("marshal status line: %w", err)
	}
	if _, err := fmt.Fprintf(w.w, "%s,\n", line); err != nil {
		return fmt.Errorf("write status line: %w", err)
	}
	return nil
}

// ReadClickEvents decodes the endless click event array from r and calls fn
// for every event until r is exhausted.
func ReadClickEvents(r io.Reader, fn func(ClickEvent)) error {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read click stream: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return fmt.Errorf("read click stream: expected '[', got %v", tok)
	}

	for dec.More() {
		var event ClickEvent
		if err := dec.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("decode click event: %w", err)
		}
		fn(event)
	}
	return nil
}
