package service

import (
	"fmt"

	"FloatOverlay/internal/supervisor"
	"FloatOverlay/internal/window"
)

// State is the overlay service lifecycle state.
type State int

const (
	Stopped State = iota
	Starting
	Attached
	Detached
	Failed
)

var allStates = []State{Stopped, Starting, Attached, Detached, Failed}

func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Starting:
		return "Starting"
	case Attached:
		return "Attached"
	case Detached:
		return "Detached"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func stateNames() []string {
	out := make([]string, len(allStates))
	for i, s := range allStates {
		out[i] = s.String()
	}
	return out
}

// Status is a point-in-time copy of the service, safe to read from any goroutine.
type Status struct {
	State       State               `json:"-"`
	StateName   string              `json:"state"`
	Permission  string              `json:"permission"`
	Handle      string              `json:"handle,omitempty"`
	Spec        window.Spec         `json:"spec"`
	ScreenW     int                 `json:"screenWidth"`
	ScreenH     int                 `json:"screenHeight"`
	Gesture     string              `json:"gesture"`
	Attempts    int                 `json:"attempts"`
	LastFailure *supervisor.Failure `json:"lastFailure,omitempty"`
}
