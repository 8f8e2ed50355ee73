package permission

import (
	"context"
	"os"
	"runtime"
	"sync"

	"FloatOverlay/internal/display"
	"FloatOverlay/internal/logger"
)

// Desktop reports the capability as held when the platform exposes at
// least one active display and, on Linux, a display server to talk to.
// Desktop window managers have no revocable overlay permission, so Request
// only logs a hint.
type Desktop struct {
	displays func() int
	getenv   func(string) string
}

// NewDesktop returns a prober backed by the OS display list.
func NewDesktop() *Desktop {
	return &Desktop{displays: display.Count, getenv: os.Getenv}
}

func (d *Desktop) Check(context.Context) (bool, error) {
	if runtime.GOOS == "linux" && d.getenv("DISPLAY") == "" && d.getenv("WAYLAND_DISPLAY") == "" {
		return false, nil
	}
	return d.displays() > 0, nil
}

func (d *Desktop) Request(context.Context) error {
	logger.Info("overlay needs an active graphical session; start floatoverlay from a desktop session")
	return nil
}

// Static is a prober with a fixed answer that can be flipped at runtime.
// Used for the granted/denied config overrides and in tests.
type Static struct {
	mu       sync.Mutex
	granted  bool
	requests int
	// GrantOnRequest makes Request grant the capability.
	GrantOnRequest bool
}

// NewStatic returns a prober that answers granted.
func NewStatic(granted bool) *Static {
	return &Static{granted: granted}
}

// Set changes the answer, as if the user toggled the capability in settings.
func (s *Static) Set(granted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.granted = granted
}

// Requests returns how many times Request was called.
func (s *Static) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *Static) Check(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.granted, nil
}

func (s *Static) Request(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	if s.GrantOnRequest {
		s.granted = true
	}
	return nil
}

// ForMode returns the prober for a permission.mode config value.
func ForMode(mode string) Prober {
	switch mode {
	case "granted":
		return NewStatic(true)
	case "denied":
		return NewStatic(false)
	default:
		return NewDesktop()
	}
}
