package display

import (
	"context"
	"image"
	"time"

	"FloatOverlay/internal/logger"

	"github.com/jonboulle/clockwork"
)

// Watch polls bounds every interval and calls onChange with the new bounds
// whenever they differ from the previous poll (rotation, resolution change,
// display swap). It returns when ctx is done.
func Watch(ctx context.Context, clock clockwork.Clock, interval time.Duration, bounds func() image.Rectangle, onChange func(image.Rectangle)) {
	last := bounds()
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			cur := bounds()
			if cur == last || cur.Empty() {
				continue
			}
			logger.Debug("display bounds changed", "from", last, "to", cur, "orientation", OrientationOf(cur))
			last = cur
			onChange(cur)
		}
	}
}
