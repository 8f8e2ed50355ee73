package service

import (
	"context"
	"image"
	"math/rand"
	"sync"
	"testing"
	"time"

	"FloatOverlay/internal/input"
	"FloatOverlay/internal/metrics"
	"FloatOverlay/internal/permission"
	"FloatOverlay/internal/store"
	"FloatOverlay/internal/supervisor"
	"FloatOverlay/internal/window"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	landscape = image.Rect(0, 0, 1920, 1080)
	portrait  = image.Rect(0, 0, 1080, 1920)
	baseSpec  = window.Spec{Width: 100, Height: 100, X: 100, Y: 200, Layer: window.LayerOverlay,
		Flags: window.Flags{Touchable: true, AlwaysOnTop: true}}
)

type fakePlatform struct {
	mu       sync.Mutex
	addErrs  []error
	addCalls int
	live     int
	maxLive  int
	updates  []window.Spec
	removes  int
}

func (f *fakePlatform) Add(s window.Spec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	if len(f.addErrs) > 0 {
		err := f.addErrs[0]
		f.addErrs = f.addErrs[1:]
		if err != nil {
			return err
		}
	}
	f.live++
	if f.live > f.maxLive {
		f.maxLive = f.live
	}
	return nil
}

func (f *fakePlatform) Update(s window.Spec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, s)
	return nil
}

func (f *fakePlatform) Remove() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live--
	f.removes++
	return nil
}

type counts struct{ adds, updates, removes, live, maxLive int }

func (f *fakePlatform) counts() counts {
	f.mu.Lock()
	defer f.mu.Unlock()
	return counts{f.addCalls, len(f.updates), f.removes, f.live, f.maxLive}
}

type recorder struct {
	mu          sync.Mutex
	failures    []supervisor.Failure
	transitions []supervisor.Transition
}

func (r *recorder) Report(f supervisor.Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
}

func (r *recorder) Transition(t supervisor.Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, t)
}

func (r *recorder) Failures() []supervisor.Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]supervisor.Failure(nil), r.failures...)
}

func (r *recorder) path() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []string{}
	for _, t := range r.transitions {
		out = append(out, t.To)
	}
	return out
}

type harness struct {
	svc      *Service
	platform *fakePlatform
	prober   *permission.Static
	store    store.Store
	rec      *recorder
	clock    *clockwork.FakeClock
	taps     int
	mu       sync.Mutex
	screen   image.Rectangle
	ctx      context.Context
}

type option func(*Options, *harness)

func withStore(s store.Store) option {
	return func(o *Options, h *harness) { o.Store = s; h.store = s }
}

func withMetrics(m *metrics.Metrics) option {
	return func(o *Options, _ *harness) { o.Metrics = m }
}

func withThreshold(n int) option {
	return func(o *Options, _ *harness) { o.DragThreshold = n }
}

func withBudget(n int) option {
	return func(o *Options, _ *harness) { o.RetryBudget = n }
}

func newHarness(t *testing.T, granted bool, opts ...option) *harness {
	t.Helper()
	h := &harness{
		platform: &fakePlatform{},
		prober:   permission.NewStatic(granted),
		store:    store.NewMemory(),
		rec:      &recorder{},
		clock:    clockwork.NewFakeClock(),
		screen:   landscape,
	}
	o := Options{
		Manager:       window.NewManager(h.platform),
		Gate:          permission.NewGate(h.prober),
		Reporter:      h.rec,
		Clock:         h.clock,
		Spec:          baseSpec,
		StateKey:      "test",
		RetryBudget:   1,
		RetryBackoff:  time.Second,
		DragThreshold: 8,
		OnTap: func() {
			h.mu.Lock()
			h.taps++
			h.mu.Unlock()
		},
		Screen: func() image.Rectangle {
			h.mu.Lock()
			defer h.mu.Unlock()
			return h.screen
		},
	}
	o.Store = h.store
	for _, opt := range opts {
		opt(&o, h)
	}
	h.svc = New(o)

	ctx, cancel := context.WithCancel(context.Background())
	h.ctx = ctx
	go func() { _ = h.svc.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.svc.Done()
	})
	return h
}

func (h *harness) sync(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.svc.Sync(ctx))
}

func (h *harness) waitState(t *testing.T, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		h.sync(t)
		return h.svc.Status().State == want
	}, 2*time.Second, 5*time.Millisecond, "want state %s, have %s", want, h.svc.Status().State)
}

func (h *harness) tapCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.taps
}

func (h *harness) pointer(kind input.EventKind, x, y int) {
	h.svc.Pointer(input.Event{Kind: kind, X: x, Y: y})
}

func TestStart_Attaches(t *testing.T) {
	h := newHarness(t, true)
	h.svc.Start()
	h.waitState(t, Attached)

	st := h.svc.Status()
	assert.Equal(t, baseSpec, st.Spec)
	assert.NotEmpty(t, st.Handle)
	assert.Equal(t, "granted", st.Permission)
	assert.Equal(t, 1, h.platform.counts().adds)
	assert.Equal(t, []string{"Starting", "Attached"}, h.rec.path())
}

func TestStart_IdempotentWhileAttached(t *testing.T) {
	h := newHarness(t, true)
	h.svc.Start()
	h.waitState(t, Attached)
	h.svc.Start()
	h.svc.Restart(nil)
	h.sync(t)

	c := h.platform.counts()
	assert.Equal(t, 1, c.adds)
	assert.Zero(t, c.updates)
	assert.Equal(t, Attached, h.svc.Status().State)
}

func TestStart_RestoresPersistedPosition(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.Save(context.Background(), "test", store.Position{X: 300, Y: 400, ScreenWidth: 1920, ScreenHeight: 1080}))
	h := newHarness(t, true, withStore(mem))

	h.svc.Start()
	h.waitState(t, Attached)
	st := h.svc.Status()
	assert.Equal(t, 300, st.Spec.X)
	assert.Equal(t, 400, st.Spec.Y)
}

func TestStart_RestoresOnRotatedScreen(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.Save(context.Background(), "test", store.Position{X: 910, Y: 490, ScreenWidth: 1920, ScreenHeight: 1080}))
	h := newHarness(t, true, withStore(mem))
	h.screen = portrait

	h.svc.Start()
	h.waitState(t, Attached)
	st := h.svc.Status()
	assert.Equal(t, 490, st.Spec.X)
	assert.Equal(t, 910, st.Spec.Y)
}

func TestStart_PermissionDenied(t *testing.T) {
	h := newHarness(t, false)
	h.svc.Start()
	h.waitState(t, Failed)

	assert.Zero(t, h.platform.counts().adds, "no attach without permission")
	fs := h.rec.Failures()
	require.Len(t, fs, 1)
	assert.Equal(t, "PermissionMissing", fs[0].Kind)
	assert.Equal(t, 1, h.prober.Requests(), "prompted once")

	st := h.svc.Status()
	require.NotNil(t, st.LastFailure)
	assert.Equal(t, "PermissionMissing", st.LastFailure.Kind)
	assert.Equal(t, "denied", st.Permission)
}

func TestAttach_PlatformRejectedRetriedWithinBudget(t *testing.T) {
	h := newHarness(t, true)
	h.platform.addErrs = []error{assert.AnError}

	h.svc.Start()
	require.NoError(t, h.clock.BlockUntilContext(h.ctx, 1))
	assert.Equal(t, Starting, h.svc.Status().State)
	h.clock.Advance(time.Second)

	h.waitState(t, Attached)
	assert.Equal(t, 2, h.platform.counts().adds)
	assert.Empty(t, h.rec.Failures())
}

func TestAttach_PlatformRejectedBudgetExhausted(t *testing.T) {
	h := newHarness(t, true)
	h.platform.addErrs = []error{assert.AnError, assert.AnError, nil}

	h.svc.Start()
	require.NoError(t, h.clock.BlockUntilContext(h.ctx, 1))
	h.clock.Advance(time.Second)

	h.waitState(t, Failed)
	fs := h.rec.Failures()
	require.Len(t, fs, 1)
	assert.Equal(t, "PlatformRejected", fs[0].Kind)
	assert.Equal(t, 2, fs[0].Attempts)

	// no further automatic attempts
	h.clock.Advance(time.Minute)
	h.sync(t)
	assert.Equal(t, 2, h.platform.counts().adds)
}

func TestAttach_ZeroBudgetNeverRetries(t *testing.T) {
	h := newHarness(t, true, withBudget(0))
	h.platform.addErrs = []error{assert.AnError}

	h.svc.Start()
	h.waitState(t, Failed)
	assert.Equal(t, 1, h.platform.counts().adds)
}

func TestAttach_ResourceExhaustedNotRetried(t *testing.T) {
	h := newHarness(t, true)
	h.platform.addErrs = []error{window.ErrNoResources}

	h.svc.Start()
	h.waitState(t, Failed)
	assert.Equal(t, 1, h.platform.counts().adds)
	fs := h.rec.Failures()
	require.Len(t, fs, 1)
	assert.Equal(t, "ResourceExhausted", fs[0].Kind)
}

func TestAttach_PermissionMissingRetriedOnceAfterPrompt(t *testing.T) {
	h := newHarness(t, true)
	h.platform.addErrs = []error{window.ErrPermissionDenied}

	h.svc.Start()
	h.waitState(t, Attached)
	assert.Equal(t, 2, h.platform.counts().adds)
}

func TestAttach_PermissionMissingExhausted(t *testing.T) {
	h := newHarness(t, true)
	h.platform.addErrs = []error{window.ErrPermissionDenied, window.ErrPermissionDenied, nil}

	h.svc.Start()
	h.waitState(t, Failed)
	assert.Equal(t, 2, h.platform.counts().adds)
	fs := h.rec.Failures()
	require.Len(t, fs, 1)
	assert.Equal(t, "PermissionMissing", fs[0].Kind)
}

func TestAttach_RejectBudgetIndependentOfPermissionRetry(t *testing.T) {
	h := newHarness(t, true)
	h.platform.addErrs = []error{window.ErrPermissionDenied, assert.AnError, nil}

	h.svc.Start()
	require.NoError(t, h.clock.BlockUntilContext(h.ctx, 1))
	assert.Equal(t, Starting, h.svc.Status().State)
	h.clock.Advance(time.Second)

	h.waitState(t, Attached)
	assert.Equal(t, 3, h.platform.counts().adds)
	assert.Empty(t, h.rec.Failures())
}

func TestStop_MidDrag(t *testing.T) {
	h := newHarness(t, true)
	h.svc.Start()
	h.waitState(t, Attached)
	require.Equal(t, 100, h.svc.Status().Spec.X)
	require.Equal(t, 200, h.svc.Status().Spec.Y)

	h.pointer(input.PointerDown, 150, 250)
	h.pointer(input.PointerMove, 170, 250)
	h.sync(t)
	require.Equal(t, "dragging", h.svc.Status().Gesture)
	before := h.platform.counts().updates
	require.Equal(t, 1, before)

	h.svc.Stop()
	h.pointer(input.PointerMove, 400, 400)
	h.pointer(input.PointerUp, 400, 400)
	h.sync(t)

	st := h.svc.Status()
	assert.Equal(t, Stopped, st.State)
	assert.Equal(t, "idle", st.Gesture)
	c := h.platform.counts()
	assert.Equal(t, before, c.updates, "no updates after stop")
	assert.Equal(t, 1, c.removes)
	assert.Zero(t, c.live)
	assert.Equal(t, []string{"Starting", "Attached", "Detached", "Stopped"}, h.rec.path())

	require.Eventually(t, func() bool {
		p, ok, _ := h.store.Load(context.Background(), "test")
		return ok && p.X == 120 && p.Y == 200
	}, time.Second, 5*time.Millisecond, "last applied position persisted")
}

func TestStop_IgnoresPendingRetry(t *testing.T) {
	h := newHarness(t, true)
	h.platform.addErrs = []error{assert.AnError}

	h.svc.Start()
	require.NoError(t, h.clock.BlockUntilContext(h.ctx, 1))
	h.svc.Stop()
	h.sync(t)
	h.clock.Advance(time.Minute)
	h.sync(t)

	assert.Equal(t, Stopped, h.svc.Status().State)
	assert.Equal(t, 1, h.platform.counts().adds)
}

type blockingStore struct {
	*store.Memory
	release chan struct{}
}

func (b *blockingStore) Load(ctx context.Context, key string) (store.Position, bool, error) {
	<-b.release
	return b.Memory.Load(ctx, key)
}

func TestStop_IgnoresInFlightLoad(t *testing.T) {
	bs := &blockingStore{Memory: store.NewMemory(), release: make(chan struct{})}
	h := newHarness(t, true, withStore(bs))

	h.svc.Start()
	h.sync(t)
	assert.Equal(t, Starting, h.svc.Status().State)
	h.svc.Stop()
	h.sync(t)
	close(bs.release)

	// give the completion time to arrive, then check it was ignored
	time.Sleep(20 * time.Millisecond)
	h.sync(t)
	assert.Equal(t, Stopped, h.svc.Status().State)
	assert.Zero(t, h.platform.counts().adds)
}

func TestScreenChanged_SingleUpdate(t *testing.T) {
	h := newHarness(t, true)
	h.svc.Start()
	h.waitState(t, Attached)

	h.svc.ScreenChanged(portrait)
	h.sync(t)

	c := h.platform.counts()
	assert.Equal(t, 1, c.adds)
	assert.Equal(t, 1, c.updates)
	assert.Zero(t, c.removes)

	want := window.Rescale(baseSpec, landscape, portrait)
	assert.Equal(t, want, h.svc.Status().Spec)
	assert.Equal(t, 1080, h.svc.Status().ScreenW)
}

func TestRestart_UpdatesInPlaceWhenSpecChanges(t *testing.T) {
	h := newHarness(t, true)
	h.svc.Start()
	h.waitState(t, Attached)

	same := baseSpec
	h.svc.Restart(&same)
	h.sync(t)
	assert.Zero(t, h.platform.counts().updates)

	bigger := baseSpec
	bigger.Width, bigger.Height = 200, 150
	h.svc.Restart(&bigger)
	h.sync(t)

	c := h.platform.counts()
	assert.Equal(t, 1, c.updates)
	assert.Equal(t, 1, c.adds)
	assert.Equal(t, 200, h.svc.Status().Spec.Width)
}

func TestRestart_StartsWhenStopped(t *testing.T) {
	h := newHarness(t, true)
	h.svc.Restart(nil)
	h.waitState(t, Attached)
}

func TestTapDispatched(t *testing.T) {
	h := newHarness(t, true)
	h.svc.Start()
	h.waitState(t, Attached)

	h.pointer(input.PointerDown, 150, 250)
	h.pointer(input.PointerMove, 152, 251)
	h.pointer(input.PointerUp, 152, 251)
	h.sync(t)

	assert.Equal(t, 1, h.tapCount())
	assert.Zero(t, h.platform.counts().updates)
}

func TestTapDispatched_DefaultThreshold(t *testing.T) {
	h := newHarness(t, true, withThreshold(0))
	h.svc.Start()
	h.waitState(t, Attached)

	h.pointer(input.PointerDown, 150, 250)
	h.pointer(input.PointerUp, 150, 250)
	h.sync(t)

	assert.Equal(t, 1, h.tapCount())
}

func TestDragUpdatesCountOnlyChanges(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	h := newHarness(t, true, withMetrics(m))
	h.svc.Start()
	h.waitState(t, Attached)

	// pinned at the left edge, the second move lands on the same spec
	h.pointer(input.PointerDown, 150, 250)
	h.pointer(input.PointerMove, 0, 250)
	h.pointer(input.PointerMove, -50, 250)
	h.pointer(input.PointerUp, -50, 250)
	h.sync(t)

	assert.Equal(t, 0, h.svc.Status().Spec.X)
	assert.Equal(t, 1, h.platform.counts().updates)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DragUpdates))
}

func TestDragCommitPersists(t *testing.T) {
	h := newHarness(t, true)
	h.svc.Start()
	h.waitState(t, Attached)

	h.pointer(input.PointerDown, 150, 250)
	h.pointer(input.PointerMove, 250, 350)
	h.pointer(input.PointerUp, 250, 350)
	h.sync(t)

	assert.Zero(t, h.tapCount())
	assert.Equal(t, 200, h.svc.Status().Spec.X)
	require.Eventually(t, func() bool {
		p, ok, _ := h.store.Load(context.Background(), "test")
		return ok && p.X == 200 && p.Y == 300 && p.ScreenWidth == 1920
	}, time.Second, 5*time.Millisecond)
}

func TestPointerIgnoredWhenNotAttached(t *testing.T) {
	h := newHarness(t, true)
	h.pointer(input.PointerDown, 150, 250)
	h.pointer(input.PointerUp, 150, 250)
	h.sync(t)
	assert.Zero(t, h.tapCount())
}

func TestResume_RevokedPermission(t *testing.T) {
	h := newHarness(t, true)
	h.svc.Start()
	h.waitState(t, Attached)

	h.prober.Set(false)
	h.svc.Resume()
	h.waitState(t, Failed)
	c := h.platform.counts()
	assert.Equal(t, 1, c.removes)
	assert.Zero(t, c.live)
	assert.Equal(t, "PermissionMissing", h.svc.Status().LastFailure.Kind)

	// still revoked: stays failed, no prompt on resume
	h.svc.Resume()
	h.sync(t)
	assert.Equal(t, Failed, h.svc.Status().State)
	assert.Zero(t, h.prober.Requests())

	h.prober.Set(true)
	h.svc.Resume()
	h.waitState(t, Attached)
	assert.Equal(t, 2, h.platform.counts().adds)
}

func TestStart_AfterFailureRecovers(t *testing.T) {
	h := newHarness(t, true)
	h.platform.addErrs = []error{window.ErrNoResources}
	h.svc.Start()
	h.waitState(t, Failed)

	h.svc.Start()
	h.waitState(t, Attached)
	assert.Nil(t, h.svc.Status().LastFailure)
}

func TestTeardown(t *testing.T) {
	h := newHarness(t, true)
	h.svc.Start()
	h.waitState(t, Attached)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.svc.Teardown(ctx))

	assert.Equal(t, Stopped, h.svc.Status().State)
	assert.Zero(t, h.platform.counts().live)
	require.Eventually(t, func() bool {
		p, ok, _ := h.store.Load(context.Background(), "test")
		return ok && p.X == 100 && p.Y == 200
	}, time.Second, 5*time.Millisecond)
}

func TestRun_Twice(t *testing.T) {
	h := newHarness(t, true)
	h.sync(t)
	assert.Error(t, h.svc.Run(context.Background()))
}

// Random request sequences never leave two windows attached and the
// reported state always matches what is on screen.
func TestRandomSequencesKeepSingleAttachment(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 20; round++ {
		h := newHarness(t, true)
		for i := 0; i < 40; i++ {
			switch rng.Intn(6) {
			case 0, 1:
				h.svc.Start()
			case 2:
				h.svc.Stop()
			case 3:
				h.svc.Resume()
			case 4:
				h.svc.Restart(nil)
			case 5:
				h.pointer(input.PointerDown, 150, 250)
				h.pointer(input.PointerMove, 150+rng.Intn(50), 250)
				h.pointer(input.PointerUp, 160, 250)
			}
			if rng.Intn(3) == 0 {
				h.sync(t)
			}
		}
		h.sync(t)
		time.Sleep(5 * time.Millisecond)
		h.sync(t)

		c := h.platform.counts()
		assert.LessOrEqual(t, c.maxLive, 1)
		st := h.svc.Status()
		if st.State == Attached {
			assert.Equal(t, 1, c.live)
		} else {
			assert.Zero(t, c.live, "state %s", st.State)
		}
	}
}
