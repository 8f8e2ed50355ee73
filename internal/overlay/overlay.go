// Package overlay is the ebiten window layer behind window.Platform. The
// platform calls only record the wanted window; the game loop applies it
// on its next frame and turns mouse input into pointer events.
package overlay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"FloatOverlay/internal/input"
	"FloatOverlay/internal/logger"
	"FloatOverlay/internal/surface"
	"FloatOverlay/internal/window"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/jonboulle/clockwork"
)

const (
	maxNativeRetryFrames = 120
	// a frame gap this long means the session was suspended (sleep, lock)
	resumeGap = 5 * time.Second
)

// zLevel is where the overlay sits among other windows.
type zLevel int

const (
	levelNormal zLevel = iota
	// above normal windows, below system panels
	levelFloating
	// above other floating windows
	levelStatus
)

// levelFor maps the requested layer onto a z-level. Without AlwaysOnTop the
// window stacks like any other.
func levelFor(spec window.Spec) zLevel {
	if !spec.Flags.AlwaysOnTop {
		return levelNormal
	}
	if spec.Layer == window.LayerPanel {
		return levelFloating
	}
	return levelStatus
}

// nativeState is what the platform-specific code applies.
type nativeState struct {
	flags window.Flags
	level zLevel
}

// PointerSink receives pointer events in screen coordinates.
type PointerSink interface {
	Pointer(input.Event)
}

// Options configures a Backend.
type Options struct {
	Title   string
	Initial window.Spec
	Surface *surface.Surface
	Clock   clockwork.Clock
	// OnResume runs when rendering continues after a suspension.
	OnResume func()
}

// Backend implements window.Platform and ebiten.Game.
type Backend struct {
	opts Options
	sink atomic.Pointer[PointerSink]
	quit atomic.Bool

	mu      sync.Mutex
	want    window.Spec
	visible bool
	dirty   bool
	closed  bool

	// game loop only
	applied       window.Spec
	shown         bool
	native        nativeState
	nativePending bool
	nativeLeft    int
	tracker       pointerTracker
	lastFrame     time.Time
}

// New returns a Backend with no window shown.
func New(opts Options) *Backend {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Surface == nil {
		opts.Surface = surface.New(nil, opts.Title, nil, opts.Clock)
	}
	return &Backend{opts: opts, applied: opts.Initial}
}

// SetSink routes pointer events, normally to the overlay service.
func (b *Backend) SetSink(s PointerSink) { b.sink.Store(&s) }

// Add shows the overlay window.
func (b *Backend) Add(spec window.Spec) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return window.ErrNoResources
	}
	if b.visible {
		return errors.New("overlay window already shown")
	}
	b.want, b.visible, b.dirty = spec, true, true
	return nil
}

// Update moves or resizes the shown window.
func (b *Backend) Update(spec window.Spec) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return window.ErrNoResources
	}
	if !b.visible {
		return errors.New("overlay window not shown")
	}
	b.want, b.dirty = spec, true
	return nil
}

// Remove hides the window. The ebiten window itself lives until Run returns.
func (b *Backend) Remove() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.visible {
		return nil
	}
	b.visible, b.dirty = false, true
	return nil
}

// Quit makes Run return after the current frame.
func (b *Backend) Quit() { b.quit.Store(true) }

func (b *Backend) take() (window.Spec, bool, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	dirty := b.dirty
	b.dirty = false
	return b.want, b.visible, dirty
}

// resumed reports whether the frame at now follows a suspension.
func (b *Backend) resumed(now time.Time) bool {
	gap := !b.lastFrame.IsZero() && now.Sub(b.lastFrame) > resumeGap
	b.lastFrame = now
	return gap
}

// Update runs each tick.
func (b *Backend) Update() error {
	if b.quit.Load() {
		return ebiten.Termination
	}
	if b.resumed(b.opts.Clock.Now()) && b.opts.OnResume != nil {
		logger.Info("overlay resumed after suspension")
		go b.opts.OnResume()
	}
	b.applyPending()
	if b.nativePending && b.nativeLeft > 0 {
		b.nativeLeft--
		if applyNativeFlags(b.opts.Title, b.native.flags, b.native.level) {
			b.nativePending = false
			logger.Debug("overlay native flags applied", "flags", b.native.flags, "level", b.native.level)
		}
	}
	b.opts.Surface.Tick()
	if b.shown && b.applied.Flags.Touchable {
		b.emit(b.tracker.step(readPointer()))
	}
	return nil
}

func (b *Backend) applyPending() {
	spec, visible, dirty := b.take()
	if !dirty {
		return
	}
	if !visible {
		ebiten.SetWindowMousePassthrough(true)
		b.emit(b.tracker.cancel())
		b.shown = false
		logger.Debug("overlay hidden")
		return
	}
	ebiten.SetWindowSize(spec.Width, spec.Height)
	ebiten.SetWindowPosition(spec.X, spec.Y)
	ebiten.SetWindowFloating(spec.Flags.AlwaysOnTop)
	ebiten.SetWindowMousePassthrough(!spec.Flags.Touchable)
	if want := (nativeState{spec.Flags, levelFor(spec)}); !b.shown || want != b.native {
		b.native, b.nativePending, b.nativeLeft = want, true, maxNativeRetryFrames
	}
	b.applied, b.shown = spec, true
}

func (b *Backend) emit(evs []input.Event) {
	p := b.sink.Load()
	if p == nil {
		return
	}
	for _, ev := range evs {
		(*p).Pointer(ev)
	}
}

// Draw renders the surface while the overlay is shown; otherwise the
// transparent screen is left empty.
func (b *Backend) Draw(screen *ebiten.Image) {
	if b.shown {
		b.opts.Surface.Draw(screen)
	}
}

// Layout returns the logical screen size: the applied window size.
func (b *Backend) Layout(outsideWidth, outsideHeight int) (int, int) {
	return max(b.applied.Width, 1), max(b.applied.Height, 1)
}

// Run opens the ebiten window and blocks until ctx is done or Quit is
// called. It must be called from the main goroutine.
func (b *Backend) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, b.Quit)
	defer stop()

	first := b.opts.Initial
	logger.Debug("overlay Run start", "initial", first.String())
	ebiten.SetWindowDecorated(false)
	ebiten.SetWindowFloating(first.Flags.AlwaysOnTop)
	ebiten.SetWindowSize(max(first.Width, 1), max(first.Height, 1))
	ebiten.SetWindowPosition(first.X, first.Y)
	ebiten.SetWindowTitle(b.opts.Title)
	ebiten.SetWindowMousePassthrough(true)
	ebiten.SetRunnableOnUnfocused(true)

	err := ebiten.RunGameWithOptions(b, &ebiten.RunGameOptions{
		ScreenTransparent: true,
		SkipTaskbar:       true,
		InitUnfocused:     !first.Flags.Focusable,
	})

	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return err
}
