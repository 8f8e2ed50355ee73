// Package supervisor is the single channel through which the overlay
// service reports failures (and state changes) to whatever is watching it.
package supervisor

import (
	"time"

	"FloatOverlay/internal/logger"
)

// Failure is one diagnosable error that left the service in Failed.
type Failure struct {
	Kind     string    `json:"kind"`
	Message  string    `json:"message"`
	State    string    `json:"state"`
	Attempts int       `json:"attempts"`
	At       time.Time `json:"at"`
}

// Transition is a service state change.
type Transition struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	At   time.Time `json:"at"`
}

// Reporter receives failures and transitions. Implementations must not
// block: they are called from the service's owner loop.
type Reporter interface {
	Report(f Failure)
	Transition(t Transition)
}

// Log writes reports to the application logger.
type Log struct{}

func (Log) Report(f Failure) {
	logger.Error("overlay service failed", "kind", f.Kind, "err", f.Message, "attempts", f.Attempts)
}

func (Log) Transition(t Transition) {
	logger.Info("overlay service state", "from", t.From, "to", t.To)
}

// Multi fans reports out to several reporters.
type Multi []Reporter

func (m Multi) Report(f Failure) {
	for _, r := range m {
		r.Report(f)
	}
}

func (m Multi) Transition(t Transition) {
	for _, r := range m {
		r.Transition(t)
	}
}
