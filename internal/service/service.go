// Package service is the overlay lifecycle coordinator. Every operation on
// the overlay window (start, stop, restart, resume, teardown, screen
// changes and pointer input) is an event on one queue consumed by a single
// owner goroutine, so window mutations and gestures are strictly ordered.
package service

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"FloatOverlay/internal/input"
	"FloatOverlay/internal/logger"
	"FloatOverlay/internal/metrics"
	"FloatOverlay/internal/permission"
	"FloatOverlay/internal/retry"
	"FloatOverlay/internal/store"
	"FloatOverlay/internal/supervisor"
	"FloatOverlay/internal/window"

	"github.com/jonboulle/clockwork"
)

// DefaultDragThreshold is the press travel, in logical units, that turns a
// press into a drag when Options leaves it unset.
const DefaultDragThreshold = 8

// TapHandler is the application logic run when the overlay is tapped.
type TapHandler func()

// Options wires a Service to its collaborators. Manager, Gate and Store are required.
type Options struct {
	Manager  *window.Manager
	Gate     *permission.Gate
	Store    store.Store
	Reporter supervisor.Reporter
	Metrics  *metrics.Metrics
	Clock    clockwork.Clock
	OnTap    TapHandler

	// Screen returns the current visible screen bounds.
	Screen func() image.Rectangle
	// Spec is the window to show when nothing has been persisted yet.
	Spec     window.Spec
	StateKey string

	RetryBudget   int
	RetryBackoff  time.Duration
	DragThreshold int
	QueueSize     int
}

// Service is the overlay lifecycle coordinator.
type Service struct {
	opts    Options
	policy  retry.Policy
	events  chan event
	saves   chan store.Position
	done    chan struct{}
	running atomic.Bool

	// owned by the loop
	ctx         context.Context
	state       State
	handle      window.Handle
	base        window.Spec
	spec        window.Spec
	known       bool
	screen      image.Rectangle
	gen         uint64
	attempts    int
	rejects     int
	permRetried bool
	retryTimer  clockwork.Timer
	failure     *supervisor.Failure
	gesture     *input.Controller

	mu   sync.RWMutex
	snap Status
}

// New returns a stopped Service. Call Run to start its owner loop.
func New(opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Reporter == nil {
		opts.Reporter = supervisor.Log{}
	}
	if opts.Screen == nil {
		opts.Screen = func() image.Rectangle { return image.Rectangle{} }
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 250 * time.Millisecond
	}
	if opts.DragThreshold <= 0 {
		opts.DragThreshold = DefaultDragThreshold
	}
	s := &Service{
		opts:   opts,
		policy: retry.Budget(opts.RetryBudget, opts.RetryBackoff, opts.Clock),
		events: make(chan event, opts.QueueSize),
		saves:  make(chan store.Position, 1),
		done:   make(chan struct{}),
		base:   opts.Spec,
		spec:   opts.Spec,
	}
	s.gesture = input.NewController(attachedWindow{s}, opts.DragThreshold)
	s.publish()
	return s
}

// Run is the owner loop. It returns when ctx is done, after tearing the
// overlay down and flushing the last position to the store.
func (s *Service) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("service: Run called twice")
	}
	s.ctx = ctx

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.persist()
	}()

	defer func() {
		close(s.saves)
		wg.Wait()
		close(s.done)
	}()

	logger.Debug("service loop started", "queue", cap(s.events))
	for {
		select {
		case <-ctx.Done():
			s.shutdown("context done")
			return nil
		case ev := <-s.events:
			s.dispatch(ev)
			s.publish()
		}
	}
}

// Start requests the overlay. It returns once the request is queued.
func (s *Service) Start() { s.post(startReq{}) }

// Stop removes the overlay. Safe in any state, including mid-drag.
func (s *Service) Stop() { s.post(stopReq{}) }

// Resume re-validates the overlay permission after the session returns
// from the background.
func (s *Service) Resume() { s.post(resumeReq{}) }

// Restart asks for the overlay again. While attached it is a no-op unless
// spec differs from what is on screen, in which case the window is updated
// in place. A nil spec keeps the current one.
func (s *Service) Restart(spec *window.Spec) {
	if spec != nil {
		c := *spec
		spec = &c
	}
	s.post(restartReq{spec: spec})
}

// ScreenChanged reports new screen bounds (rotation, resolution change).
func (s *Service) ScreenChanged(bounds image.Rectangle) { s.post(screenChanged{bounds: bounds}) }

// Pointer queues a raw pointer event. Move events are dropped when the
// queue is full so the platform's input loop never stalls; down, up and
// cancel always get through.
func (s *Service) Pointer(ev input.Event) {
	if ev.Kind == input.PointerMove {
		select {
		case s.events <- pointerEvent{ev: ev}:
		default:
			s.opts.Metrics.Dropped()
		}
		return
	}
	s.post(pointerEvent{ev: ev})
}

// Teardown persists the last position, removes the overlay and stops the
// service, for when the platform is about to reclaim the process.
func (s *Service) Teardown(ctx context.Context) error {
	return s.wait(ctx, func(done chan struct{}) event { return teardownReq{done: done} })
}

// Sync returns once every event queued before it has been handled.
func (s *Service) Sync(ctx context.Context) error {
	return s.wait(ctx, func(done chan struct{}) event { return syncReq{done: done} })
}

// Status returns a snapshot of the service.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.snap
	if st.LastFailure != nil {
		f := *st.LastFailure
		st.LastFailure = &f
	}
	return st
}

// Done is closed when Run has returned.
func (s *Service) Done() <-chan struct{} { return s.done }

func (s *Service) post(ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *Service) wait(ctx context.Context, mk func(chan struct{}) event) error {
	done := make(chan struct{})
	select {
	case s.events <- mk(done):
	case <-s.done:
		return errors.New("service: not running")
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) publish() {
	spec := s.spec
	if cur, ok := s.opts.Manager.Current(); ok {
		spec = cur
	}
	st := Status{
		State:      s.state,
		StateName:  s.state.String(),
		Permission: s.opts.Gate.State().String(),
		Spec:       spec,
		ScreenW:    s.screen.Dx(),
		ScreenH:    s.screen.Dy(),
		Gesture:    s.gesture.Phase().String(),
		Attempts:   s.attempts,
	}
	if !s.handle.IsZero() {
		st.Handle = s.handle.ID()
	}
	if s.failure != nil {
		f := *s.failure
		st.LastFailure = &f
	}
	s.mu.Lock()
	s.snap = st
	s.mu.Unlock()
}

// attachedWindow adapts the service's live window for the gesture controller.
type attachedWindow struct{ s *Service }

func (w attachedWindow) Current() window.Spec {
	spec, _ := w.s.opts.Manager.Current()
	return spec
}

func (w attachedWindow) Move(spec window.Spec) error {
	before, _ := w.s.opts.Manager.Current()
	if err := w.s.opts.Manager.Update(w.s.handle, spec); err != nil {
		return err
	}
	if spec != before {
		w.s.opts.Metrics.DragUpdate()
	}
	return nil
}

func (w attachedWindow) Screen() image.Rectangle { return w.s.screen }
