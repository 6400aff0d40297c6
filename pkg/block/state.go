package block

// State is the poll phase of a block.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateAggregating
	StateRendering
	StateDisplaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateAggregating:
		return "aggregating"
	case StateRendering:
		return "rendering"
	case StateDisplaying:
		return "displaying"
	default:
		return "unknown"
	}
}
