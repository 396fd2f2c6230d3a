package status

import "fmt"

// transitions lists the legal successors of each state. The empty state is
// the state of a task that has not written anything yet.
var transitions = map[State][]State{
	"":           {StatePending},
	StatePending: {StateRunning, StateFailed},
	StateRunning: {StateRunning, StateSuccess, StateFailed},
}

// TransitionError reports an illegal lifecycle transition.
type TransitionError struct {
	TaskID string
	From   State
	To     State
}

// Error returns the error message.
func (e *TransitionError) Error() string {
	from := string(e.From)
	if from == "" {
		from = "<none>"
	}
	return fmt.Sprintf("task %s: illegal transition %s -> %s", e.TaskID, from, e.To)
}

// CanTransition reports whether a task in state from may move to state to.
// RUNNING -> RUNNING is legal and represents a heartbeat. Nothing leaves
// a terminal state.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns a *TransitionError when moving from one state to the
// other is illegal.
func Transition(from, to State) error {
	if CanTransition(from, to) {
		return nil
	}
	return &TransitionError{From: from, To: to}
}
