package state

import "strings"

// State identifies a conversation step as "workflow:step".
type State string

// StateIdle indicates there is no active conversation with the user.
const StateIdle State = ""

// New joins a workflow and step into a State.
func New(workflow, step string) State {
	return State(workflow + ":" + step)
}

// Workflow returns the part before the colon.
func (s State) Workflow() string {
	w, _, _ := strings.Cut(string(s), ":")
	return w
}

// Step returns the part after the colon.
func (s State) Step() string {
	_, step, _ := strings.Cut(string(s), ":")
	return step
}

// String renders idle as "idle" for logs.
func (s State) String() string {
	if s == StateIdle {
		return "idle"
	}
	return string(s)
}

// Session stores conversation state and scratch data for a user.
type Session struct {
	State State
	Data  map[string]any
}
