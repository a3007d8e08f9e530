package query

// State is a step of one pipeline run
type State string

const (
	StateStart               State = "start"
	StateRetrieving          State = "retrieving"
	StateCheckingSufficiency State = "checking_sufficiency"
	StateGenerating          State = "generating"
	StateValidatingGrounding State = "validating_grounding"
	StateScoring             State = "scoring"
	StateRefused             State = "refused"
	StateDone                State = "done"
	StateErrored             State = "errored"
)

// Terminal reports whether no further transition can follow
func (s State) Terminal() bool {
	return s == StateRefused || s == StateDone || s == StateErrored
}

var transitions = map[State][]State{
	StateStart:               {StateRetrieving, StateRefused, StateErrored},
	StateRetrieving:          {StateCheckingSufficiency, StateErrored},
	StateCheckingSufficiency: {StateGenerating, StateRefused, StateErrored},
	StateGenerating:          {StateValidatingGrounding, StateErrored},
	StateValidatingGrounding: {StateScoring, StateRefused, StateErrored},
	StateScoring:             {StateDone, StateErrored},
}

// CanTransition reports whether to may follow from
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
