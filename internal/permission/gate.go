// Package permission verifies the process may draw above other
// applications before any overlay window is attached.
package permission

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"FloatOverlay/internal/logger"
)

// State is the last known capability state.
type State int

const (
	Unknown State = iota
	Granted
	Denied
)

func (s State) String() string {
	switch s {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

// ErrMissing is reported when the overlay capability is not held.
// The user has to grant it outside this process.
var ErrMissing = errors.New("overlay permission missing")

// Prober talks to the platform about the overlay capability.
type Prober interface {
	// Check reports whether the capability is currently held.
	Check(ctx context.Context) (bool, error)
	// Request prompts for the capability. It returns once the prompt has
	// been issued; the outcome is observed by a later Check.
	Request(ctx context.Context) error
}

// Gate caches the result of the last probe.
type Gate struct {
	prober Prober

	mu    sync.Mutex
	state State
}

// NewGate returns a Gate in the Unknown state.
func NewGate(p Prober) *Gate {
	return &Gate{prober: p}
}

// State returns the result of the last check.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// CheckAndRequest checks the capability and, when it is missing, prompts
// once and checks again. A Denied result comes with an error wrapping ErrMissing.
func (g *Gate) CheckAndRequest(ctx context.Context) (State, error) {
	ok, err := g.prober.Check(ctx)
	if err == nil && ok {
		return g.set(Granted), nil
	}
	if err != nil {
		logger.Warn("permission check failed", "err", err)
	}
	if reqErr := g.prober.Request(ctx); reqErr != nil {
		logger.Warn("permission request failed", "err", reqErr)
	}
	ok, err = g.prober.Check(ctx)
	if err != nil {
		return g.set(Denied), fmt.Errorf("%w: %v", ErrMissing, err)
	}
	if !ok {
		return g.set(Denied), ErrMissing
	}
	return g.set(Granted), nil
}

// Recheck probes again without prompting. Used on resume, since the
// capability can be revoked while the service is in the background.
func (g *Gate) Recheck(ctx context.Context) (State, error) {
	ok, err := g.prober.Check(ctx)
	if err != nil {
		return g.set(Denied), fmt.Errorf("%w: %v", ErrMissing, err)
	}
	if !ok {
		return g.set(Denied), ErrMissing
	}
	return g.set(Granted), nil
}

func (g *Gate) set(s State) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != s {
		logger.Debug("permission state", "from", g.state, "to", s)
	}
	g.state = s
	return s
}
