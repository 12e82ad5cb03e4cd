package tasks

import "fmt"

// State is a step of the conversion state machine.
type State int

const (
	Idle State = iota
	LoadingSource
	SourceReady
	LoadFailed
	CreatingTarget
	MatchingTracks
	PopulatingTarget
	GeneratingInstructions
	Completed
	PartiallyFailed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadingSource:
		return "loading_source"
	case SourceReady:
		return "source_ready"
	case LoadFailed:
		return "load_failed"
	case CreatingTarget:
		return "creating_target"
	case MatchingTracks:
		return "matching_tracks"
	case PopulatingTarget:
		return "populating_target"
	case GeneratingInstructions:
		return "generating_instructions"
	case Completed:
		return "completed"
	case PartiallyFailed:
		return "partially_failed"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

var transitions = map[State][]State{
	Idle:                   {LoadingSource},
	LoadingSource:          {SourceReady, LoadFailed},
	SourceReady:            {CreatingTarget},
	CreatingTarget:         {MatchingTracks, GeneratingInstructions, Failed},
	MatchingTracks:         {PopulatingTarget, GeneratingInstructions, Failed},
	PopulatingTarget:       {Completed, PartiallyFailed, GeneratingInstructions, Failed},
	GeneratingInstructions: {Completed},
}

// CanTransition reports whether the state machine allows moving from one state to another.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// machine tracks the state of a single load or conversion.
type machine struct {
	state State
}

func (m *machine) transition(to State) error {
	if !CanTransition(m.state, to) {
		return fmt.Errorf("invalid state transition %s -> %s", m.state, to)
	}
	m.state = to
	return nil
}
