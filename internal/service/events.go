package service

import (
	"image"

	"FloatOverlay/internal/input"
	"FloatOverlay/internal/store"
	"FloatOverlay/internal/window"
)

// event is anything processed by the owner loop.
type event interface{}

type (
	startReq   struct{}
	stopReq    struct{}
	resumeReq  struct{}
	restartReq struct{ spec *window.Spec }

	teardownReq struct{ done chan struct{} }
	syncReq     struct{ done chan struct{} }

	screenChanged struct{ bounds image.Rectangle }
	pointerEvent  struct{ ev input.Event }

	// completions; stale generations are ignored
	positionLoaded struct {
		gen uint64
		pos store.Position
		ok  bool
		err error
	}
	attachRetry struct{ gen uint64 }
)
