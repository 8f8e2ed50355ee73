package display

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_ReportsChangesOnly(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	cur := image.Rect(0, 0, 1920, 1080)
	var got []image.Rectangle

	done := make(chan struct{})
	go func() {
		defer close(done)
		Watch(ctx, clock, time.Second,
			func() image.Rectangle { mu.Lock(); defer mu.Unlock(); return cur },
			func(r image.Rectangle) { mu.Lock(); defer mu.Unlock(); got = append(got, r) },
		)
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)

	mu.Lock()
	cur = image.Rect(0, 0, 1080, 1920)
	mu.Unlock()
	clock.Advance(time.Second)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	clock.Advance(time.Second)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []image.Rectangle{image.Rect(0, 0, 1080, 1920)}, got)
}

func TestOrientationOf(t *testing.T) {
	assert.Equal(t, Landscape, OrientationOf(image.Rect(0, 0, 1920, 1080)))
	assert.Equal(t, Portrait, OrientationOf(image.Rect(0, 0, 1080, 1920)))
	assert.Equal(t, Landscape, OrientationOf(image.Rectangle{}))
}
