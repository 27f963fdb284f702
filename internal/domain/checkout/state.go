package checkout

import (
	"errors"
	"time"
)

var ErrInvalidTransition = errors.New("checkout: invalid state transition")

// State is the client-visible view state. States are exhaustive and mutually exclusive.
type State string

const (
	StateLoading    State = "loading"
	StateForm       State = "form"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// Poll budget: one status fetch every PollInterval, at most MaxPollAttempts.
const (
	PollInterval    = 2000 * time.Millisecond
	MaxPollAttempts = 30
)

// Terminal reports whether s needs an explicit retry to move on.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateError
}

// transitions lists every allowed edge. All edges point forward except
// error -> form, which only Retry takes.
var transitions = map[State][]State{
	StateLoading:    {StateForm, StateError},
	StateForm:       {StateProcessing},
	StateProcessing: {StateSuccess, StateError},
	StateError:      {StateForm},
}

func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
