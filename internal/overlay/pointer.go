package overlay

import (
	"image"

	"FloatOverlay/internal/input"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// pointerInput is one frame of left-button state, in screen coordinates.
type pointerInput struct {
	down, held, up bool
	pos            image.Point
}

func readPointer() pointerInput {
	wx, wy := ebiten.WindowPosition()
	cx, cy := ebiten.CursorPosition()
	return pointerInput{
		down: inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft),
		held: ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft),
		up:   inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft),
		pos:  image.Pt(wx+cx, wy+cy),
	}
}

// pointerTracker turns per-frame button state into down/move/up/cancel events.
type pointerTracker struct {
	pressed bool
	last    image.Point
}

func (t *pointerTracker) step(in pointerInput) []input.Event {
	ev := func(k input.EventKind) input.Event { return input.Event{Kind: k, X: in.pos.X, Y: in.pos.Y} }

	if !t.pressed {
		if !in.down {
			return nil
		}
		t.pressed, t.last = true, in.pos
		if in.up {
			// pressed and released within one frame
			t.pressed = false
			return []input.Event{ev(input.PointerDown), ev(input.PointerUp)}
		}
		return []input.Event{ev(input.PointerDown)}
	}

	var out []input.Event
	if in.pos != t.last {
		t.last = in.pos
		out = append(out, ev(input.PointerMove))
	}
	switch {
	case in.up:
		t.pressed = false
		out = append(out, ev(input.PointerUp))
	case !in.held:
		// release happened where we could not see it
		t.pressed = false
		out = append(out, ev(input.PointerCancel))
	}
	return out
}

func (t *pointerTracker) cancel() []input.Event {
	if !t.pressed {
		return nil
	}
	t.pressed = false
	return []input.Event{{Kind: input.PointerCancel, X: t.last.X, Y: t.last.Y}}
}
