package window

import (
	"fmt"
	"sync"

	"FloatOverlay/internal/logger"

	"github.com/google/uuid"
)

// Platform is the global window layer. Implementations add, move/resize and
// remove exactly one overlay window; the Manager guarantees they are never
// asked to hold two.
type Platform interface {
	Add(spec Spec) error
	Update(spec Spec) error
	Remove() error
}

// Handle identifies one attachment. The zero Handle is never live.
type Handle struct {
	id uuid.UUID
}

// ID returns the handle's identifier, for logs and status output.
func (h Handle) ID() string { return h.id.String() }

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool { return h.id == uuid.Nil }

// Manager serializes every mutation of the overlay window. It owns the
// applied Spec; other components only read it through Current.
type Manager struct {
	mu       sync.Mutex
	platform Platform
	live     Handle
	applied  Spec
}

// NewManager returns a Manager with no window attached.
func NewManager(p Platform) *Manager {
	return &Manager{platform: p}
}

// Attach adds the overlay window described by spec.
// It fails with AlreadyAttached while another handle is live.
func (m *Manager) Attach(spec Spec) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.live.IsZero() {
		return Handle{}, &AttachError{Kind: AlreadyAttached, Err: fmt.Errorf("handle %s is live", m.live.ID())}
	}
	if err := spec.Validate(); err != nil {
		return Handle{}, &AttachError{Kind: PlatformRejected, Err: err}
	}
	if err := m.platform.Add(spec); err != nil {
		kind := classify(err)
		logger.Debug("window attach failed", "kind", kind, "err", err)
		return Handle{}, &AttachError{Kind: kind, Err: err}
	}
	m.live = Handle{id: uuid.New()}
	m.applied = spec
	logger.Debug("window attached", "handle", m.live.ID(), "spec", spec.String())
	return m.live, nil
}

// Update applies spec to the live window. Applying the spec that is already
// on screen is a no-op.
func (m *Manager) Update(h Handle, spec Spec) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h.IsZero() || h != m.live {
		return ErrStaleHandle
	}
	if spec == m.applied {
		return nil
	}
	if err := spec.Validate(); err != nil {
		return &AttachError{Kind: PlatformRejected, Err: err}
	}
	if err := m.platform.Update(spec); err != nil {
		return &AttachError{Kind: classify(err), Err: err}
	}
	m.applied = spec
	return nil
}

// Detach removes the live window. The handle is released even if the
// platform reports an error, since the window can no longer be trusted.
func (m *Manager) Detach(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h.IsZero() || h != m.live {
		return ErrStaleHandle
	}
	m.live = Handle{}
	if err := m.platform.Remove(); err != nil {
		return fmt.Errorf("window detach: %w", err)
	}
	logger.Debug("window detached", "handle", h.ID())
	return nil
}

// Current returns the spec last applied to the platform and whether a
// window is attached.
func (m *Manager) Current() (Spec, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applied, !m.live.IsZero()
}
