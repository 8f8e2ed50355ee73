// Package input turns raw pointer events on the overlay surface into taps
// and drags. A Controller is driven from the service's owner loop only.
package input

import (
	"fmt"
	"image"
)

// EventKind is the kind of a raw pointer event.
type EventKind int

const (
	PointerDown EventKind = iota + 1
	PointerMove
	PointerUp
	PointerCancel
)

func (k EventKind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	case PointerCancel:
		return "cancel"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a pointer event in screen coordinates.
type Event struct {
	Kind EventKind
	X, Y int
}

func (e Event) point() image.Point { return image.Pt(e.X, e.Y) }

// Phase is the controller's gesture state.
type Phase int

const (
	Idle Phase = iota
	Pressed
	Dragging
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pressed:
		return "pressed"
	case Dragging:
		return "dragging"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Outcome tells the caller what a handled event amounted to.
type Outcome int

const (
	None      Outcome = iota
	Tap               // press released below the drag threshold
	Moved             // window moved while dragging
	Committed         // drag finished; the last applied position is final
	Cancelled         // gesture interrupted; nothing new was committed
)

func (o Outcome) String() string {
	switch o {
	case None:
		return "none"
	case Tap:
		return "tap"
	case Moved:
		return "moved"
	case Committed:
		return "committed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// DragSession is the transient state of one press. Active turns true once
// the pointer has travelled past the threshold.
type DragSession struct {
	OriginPointer image.Point
	OriginWindow  image.Point
	Active        bool
}
