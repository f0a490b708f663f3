package pipeline

import "fmt"

// State is a point in the run lifecycle. A run advances through the states
// in declaration order and always ends in Closed.
type State int

const (
	Start State = iota
	EnvLoaded
	Downloaded
	Connected
	Loaded
	Cleaned
	Validated
	Persisted
	Closed
)

var stateNames = [...]string{
	Start:      "start",
	EnvLoaded:  "env_loaded",
	Downloaded: "downloaded",
	Connected:  "connected",
	Loaded:     "loaded",
	Cleaned:    "cleaned",
	Validated:  "validated",
	Persisted:  "persisted",
	Closed:     "closed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// StageError reports the stage that failed. Stage is the state the run was
// trying to reach.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
