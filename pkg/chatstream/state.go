package chatstream

import "fmt"

// State is the lifecycle state of a Session.
type State int32

const (
	StateActive State = iota
	StateDone
	StateError
	StateAborted
)

var stateNames = map[State]string{
	StateActive:  "active",
	StateDone:    "done",
	StateError:   "error",
	StateAborted: "aborted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Terminal reports whether s is one of the final states.
func (s State) Terminal() bool {
	return s == StateDone || s == StateError || s == StateAborted
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	name, ok := stateNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown session state %d", int32(s))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseState returns the State named by name.
func ParseState(name string) (State, error) {
	for state, n := range stateNames {
		if n == name {
			return state, nil
		}
	}
	return StateActive, fmt.Errorf("unknown session state %q", name)
}
