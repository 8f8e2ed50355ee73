package input

import (
	"image"

	"FloatOverlay/internal/window"
)

// Window is the controller's view of the attached overlay window.
type Window interface {
	// Current returns the spec currently on screen.
	Current() window.Spec
	// Move applies spec to the attached window.
	Move(spec window.Spec) error
	// Screen returns the visible screen bounds the window must stay within.
	Screen() image.Rectangle
}

// Controller is the per-surface tap/drag state machine.
type Controller struct {
	threshold int
	win       Window
	phase     Phase
	session   *DragSession
}

// NewController returns an idle controller. Movement of threshold logical
// units or more turns a press into a drag.
func NewController(win Window, threshold int) *Controller {
	if threshold < 0 {
		threshold = 0
	}
	return &Controller{threshold: threshold, win: win}
}

// Phase returns the current gesture phase.
func (c *Controller) Phase() Phase { return c.phase }

// Session returns a copy of the active drag session, if any.
func (c *Controller) Session() (DragSession, bool) {
	if c.session == nil {
		return DragSession{}, false
	}
	return *c.session, true
}

// Reset drops any gesture in progress without touching the window.
func (c *Controller) Reset() {
	c.phase = Idle
	c.session = nil
}

// Handle advances the state machine with ev. A non-nil error comes from the
// window update; the gesture stays in progress so later moves can retry.
func (c *Controller) Handle(ev Event) (Outcome, error) {
	switch ev.Kind {
	case PointerDown:
		return c.down(ev), nil
	case PointerMove:
		return c.move(ev)
	case PointerUp:
		return c.up(ev)
	case PointerCancel:
		if c.phase == Idle {
			return None, nil
		}
		c.Reset()
		return Cancelled, nil
	}
	return None, nil
}

func (c *Controller) down(ev Event) Outcome {
	cur := c.win.Current()
	if !ev.point().In(cur.Rect()) {
		return None
	}
	// a second down without an up means the platform lost the up; start over
	c.phase = Pressed
	c.session = &DragSession{
		OriginPointer: ev.point(),
		OriginWindow:  image.Pt(cur.X, cur.Y),
	}
	return None
}

func (c *Controller) move(ev Event) (Outcome, error) {
	switch c.phase {
	case Pressed:
		if !c.pastThreshold(ev.point()) {
			return None, nil
		}
		c.phase = Dragging
		c.session.Active = true
		return c.drag(ev)
	case Dragging:
		return c.drag(ev)
	}
	return None, nil
}

func (c *Controller) up(ev Event) (Outcome, error) {
	switch c.phase {
	case Pressed:
		if c.pastThreshold(ev.point()) {
			// moved past the threshold with no move events in between
			c.session.Active = true
			if _, err := c.drag(ev); err != nil {
				c.Reset()
				return Cancelled, err
			}
			c.Reset()
			return Committed, nil
		}
		c.Reset()
		return Tap, nil
	case Dragging:
		_, err := c.drag(ev)
		c.Reset()
		if err != nil {
			return Cancelled, err
		}
		return Committed, nil
	}
	return None, nil
}

func (c *Controller) pastThreshold(p image.Point) bool {
	d := p.Sub(c.session.OriginPointer)
	return d.X*d.X+d.Y*d.Y >= c.threshold*c.threshold
}

// drag moves the window to origin_window + (pointer - origin_pointer),
// clamped to the screen.
func (c *Controller) drag(ev Event) (Outcome, error) {
	target := c.session.OriginWindow.Add(ev.point().Sub(c.session.OriginPointer))
	spec := window.Clamp(c.win.Current().At(target.X, target.Y), c.win.Screen())
	if err := c.win.Move(spec); err != nil {
		return None, err
	}
	return Moved, nil
}
