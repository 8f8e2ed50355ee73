// Package surface is the overlay's visual content: sprite frames paced by
// system load, drawn in a compact or expanded look.
package surface

import (
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"FloatOverlay/internal/logger"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/jonboulle/clockwork"
	"github.com/shirou/gopsutil/v3/cpu"
)

// Look is how the surface presents itself.
type Look int

const (
	Compact Look = iota
	Expanded
)

func (l Look) String() string {
	if l == Expanded {
		return "expanded"
	}
	return "compact"
}

const (
	frameThreshold = 60
	sampleEvery    = time.Second
	compactScale   = 0.6
)

// LoadSampler returns the current CPU usage in percent.
type LoadSampler func() (float64, error)

// CPULoad samples overall CPU usage with gopsutil.
func CPULoad() (float64, error) {
	percent, err := cpu.Percent(0, false)
	if err != nil {
		return 0, err
	}
	if len(percent) == 0 {
		return 0, nil
	}
	return percent[0], nil
}

// Surface holds the frames and animation state. Tick and Draw are called
// from the render loop; Toggle may be called from any goroutine.
type Surface struct {
	mu         sync.Mutex
	frames     []image.Image
	images     []*ebiten.Image
	frameIndex int
	counter    int
	load       float64
	lastSample time.Time
	sample     LoadSampler
	clock      clockwork.Clock
	label      string

	expanded atomic.Bool
}

// New returns a compact surface over frames. With no frames it draws a
// placeholder badge with label.
func New(frames []image.Image, label string, sample LoadSampler, clock clockwork.Clock) *Surface {
	if sample == nil {
		sample = CPULoad
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Surface{frames: frames, label: label, sample: sample, clock: clock}
}

// Look returns the current look.
func (s *Surface) Look() Look {
	if s.expanded.Load() {
		return Expanded
	}
	return Compact
}

// Toggle flips between compact and expanded and returns the new look.
func (s *Surface) Toggle() Look {
	for {
		old := s.expanded.Load()
		if s.expanded.CompareAndSwap(old, !old) {
			l := Compact
			if !old {
				l = Expanded
			}
			logger.Debug("surface look toggled", "look", l)
			return l
		}
	}
}

// Frame returns the index of the frame shown next.
func (s *Surface) Frame() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameIndex
}

// Tick advances the animation one render frame. Busier machines animate faster.
func (s *Surface) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	if now.Sub(s.lastSample) > sampleEvery {
		if v, err := s.sample(); err == nil {
			s.load = v
		}
		s.lastSample = now
	}
	s.counter += 1 + int(s.load/5)
	if s.counter > frameThreshold {
		s.counter = 0
		if len(s.frames) > 0 {
			s.frameIndex = (s.frameIndex + 1) % len(s.frames)
		}
	}
}

// Draw renders the current frame onto screen.
func (s *Surface) Draw(screen *ebiten.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := screen.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	scale, alpha := 1.0, float32(1)
	if s.Look() == Compact {
		scale, alpha = compactScale, 0.8
	}

	if len(s.frames) == 0 {
		r := float32(min(w, h)/2*scale) - 1
		vector.DrawFilledCircle(screen, float32(w/2), float32(h/2), r, color.RGBA{0x30, 0x8f, 0xe8, uint8(alpha * 0xff)}, true)
		if s.Look() == Expanded {
			ebitenutil.DebugPrint(screen, s.label)
		}
		return
	}

	if s.images == nil {
		s.images = make([]*ebiten.Image, len(s.frames))
		for i, f := range s.frames {
			s.images[i] = ebiten.NewImageFromImage(f)
		}
	}
	img := s.images[s.frameIndex]
	ib := img.Bounds()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(w/float64(ib.Dx())*scale, h/float64(ib.Dy())*scale)
	op.GeoM.Translate(w*(1-scale)/2, h*(1-scale)/2)
	op.ColorScale.ScaleAlpha(alpha)
	screen.DrawImage(img, op)
}
