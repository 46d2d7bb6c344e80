package session

type State int

const (
	Idle State = iota
	CountingDown
	Recording
	Stopping
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CountingDown:
		return "counting_down"
	case Recording:
		return "recording"
	case Stopping:
		return "stopping"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == Completed || s == Failed
}

// allowed lists the legal successors of each state. Failed is reachable from
// every non-terminal state.
var allowed = map[State][]State{
	Idle:         {CountingDown},
	CountingDown: {Recording},
	Recording:    {Stopping},
	Stopping:     {Completed},
}

func canTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == Failed {
		return true
	}
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}
