// Package widget implements the text widget shown by a status block and the
// i3bar protocol used to display it.
package widget

import "sync"

// State is the visual state of a widget, mapped to a color by the bar.
type State string

const (
	StateIdle     State = "idle"
	StateInfo     State = "info"
	StateGood     State = "good"
	StateWarning  State = "warning"
	StateCritical State = "critical"
)

var stateColors = map[State]string{
	StateInfo:     "#88c0d0",
	StateGood:     "#a3be8c",
	StateWarning:  "#ebcb8b",
	StateCritical: "#bf616a",
}

// Icons maps icon identifiers to Font Awesome glyphs.
var Icons = map[string]string{
	"github": "\uf09b",
}

// Text is a single text widget with an optional icon. It is safe for
// concurrent use: the block updates it while the bar writer reads it.
type Text struct {
	name     string
	instance string

	mu    sync.RWMutex
	icon  string
	text  string
	state State
}

// NewText creates an empty widget identified by name and instance.
func NewText(name, instance string) *Text {
	return &Text{name: name, instance: instance, state: StateIdle}
}

// WithText sets the initial text.
func (t *Text) WithText(text string) *Text {
	t.SetText(text)
	return t
}

// WithIcon sets the icon identifier.
func (t *Text) WithIcon(icon string) *Text {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.icon = icon
	return t
}

// SetText replaces the displayed text.
func (t *Text) SetText(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.text = text
}

// SetState sets the state that colours the block.
func (t *Text) SetState(state State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
}

// Text returns the displayed text without the icon.
func (t *Text) Text() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.text
}

// Icon returns the icon identifier, a key of Icons.
func (t *Text) Icon() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.icon
}

// State returns the current widget state.
func (t *Text) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Block renders the widget as an i3bar block. Unknown icons are omitted.
func (t *Text) Block() Block {
	t.mu.RLock()
	defer t.mu.RUnlock()

	fullText := t.text
	if glyph, ok := Icons[t.icon]; ok {
		fullText = glyph + " " + t.text
	}

	return Block{
		Name:     t.name,
		Instance: t.instance,
		FullText: fullText,
		Color:    stateColors[t.state],
	}
}
