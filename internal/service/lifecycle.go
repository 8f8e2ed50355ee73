package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FloatOverlay/internal/input"
	"FloatOverlay/internal/logger"
	"FloatOverlay/internal/permission"
	"FloatOverlay/internal/store"
	"FloatOverlay/internal/supervisor"
	"FloatOverlay/internal/window"
)

func (s *Service) dispatch(ev event) {
	switch e := ev.(type) {
	case startReq:
		s.onStart()
	case stopReq:
		s.onStop("stop request")
	case resumeReq:
		s.onResume()
	case restartReq:
		s.onRestart(e.spec)
	case teardownReq:
		s.shutdown("teardown")
		s.publish()
		close(e.done)
	case syncReq:
		close(e.done)
	case screenChanged:
		s.onScreenChanged(e)
	case pointerEvent:
		s.onPointer(e.ev)
	case positionLoaded:
		s.onPositionLoaded(e)
	case attachRetry:
		if e.gen == s.gen && s.state == Starting {
			s.tryAttach()
		}
	default:
		logger.Warn("service: unknown event", "type", fmt.Sprintf("%T", ev))
	}
}

func (s *Service) setState(to State) {
	if s.state == to {
		return
	}
	from := s.state
	s.state = to
	logger.Debug("service state", "from", from, "to", to)
	s.opts.Metrics.SetState(to.String(), stateNames())
	s.opts.Reporter.Transition(supervisor.Transition{From: from.String(), To: to.String(), At: s.opts.Clock.Now()})
}

func (s *Service) onStart() {
	switch s.state {
	case Starting, Attached:
		logger.Debug("start ignored", "state", s.state)
		return
	case Failed:
		// explicit start after a failure is the recovery path
		s.setState(Stopped)
	}
	s.begin()
}

// begin moves Stopped to Starting and loads the persisted position off-loop.
func (s *Service) begin() {
	s.gen++
	s.attempts = 0
	s.rejects = 0
	s.permRetried = false
	s.failure = nil
	s.known = false
	s.screen = s.opts.Screen()
	s.setState(Starting)

	gen, key, st, ctx := s.gen, s.opts.StateKey, s.opts.Store, s.ctx
	go func() {
		lctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		pos, ok, err := st.Load(lctx, key)
		s.post(positionLoaded{gen: gen, pos: pos, ok: ok, err: err})
	}()
}

func (s *Service) onPositionLoaded(e positionLoaded) {
	if e.gen != s.gen || s.state != Starting {
		logger.Debug("stale position load ignored", "gen", e.gen, "current", s.gen)
		return
	}
	spec := s.base
	switch {
	case e.err != nil:
		logger.Warn("load overlay position", "key", s.opts.StateKey, "err", e.err)
	case e.ok:
		spec = spec.At(e.pos.X, e.pos.Y)
		if saved := e.pos.Screen(); !saved.Empty() && saved.Size() != s.screen.Size() {
			spec = window.Rescale(spec, saved, s.screen)
		}
	}
	s.spec = window.Clamp(spec, s.screen)
	s.known = true

	if _, err := s.opts.Gate.CheckAndRequest(s.ctx); err != nil {
		s.fail(window.PermissionMissing.String(), err)
		return
	}
	s.tryAttach()
}

func (s *Service) tryAttach() {
	s.attempts++
	h, err := s.opts.Manager.Attach(s.spec)
	if err == nil {
		s.opts.Metrics.AttachResult("ok")
		s.handle = h
		s.gesture.Reset()
		s.setState(Attached)
		logger.Info("overlay attached", "spec", s.spec.String(), "attempts", s.attempts)
		return
	}

	kind := window.KindOf(err)
	s.opts.Metrics.AttachResult(kind.String())
	logger.Warn("overlay attach failed", "kind", kind, "attempt", s.attempts, "err", err)

	switch kind {
	case window.PermissionMissing:
		if s.permRetried {
			s.fail(kind.String(), err)
			return
		}
		s.permRetried = true
		if _, gerr := s.opts.Gate.CheckAndRequest(s.ctx); gerr != nil {
			s.fail(kind.String(), errors.Join(err, gerr))
			return
		}
		s.tryAttach()
	case window.PlatformRejected:
		// budgeted separately from the permission re-prompt
		s.rejects++
		next := s.rejects + 1
		if !s.policy.Allows(next) {
			s.fail(kind.String(), err)
			return
		}
		gen := s.gen
		s.retryTimer = s.opts.Clock.AfterFunc(s.policy.Backoff(next), func() {
			s.post(attachRetry{gen: gen})
		})
	case window.AlreadyAttached:
		logger.Error("invariant violated: attach while a window is live", "handle", s.handle.ID())
		s.fail(kind.String(), err)
	default:
		s.fail(kind.String(), err)
	}
}

// fail removes the overlay, if any, moves to Failed and reports once.
func (s *Service) fail(kind string, err error) {
	s.cancelPending()
	s.gesture.Reset()
	s.detach()
	f := supervisor.Failure{
		Kind:     kind,
		Message:  err.Error(),
		State:    s.state.String(),
		Attempts: s.attempts,
		At:       s.opts.Clock.Now(),
	}
	s.failure = &f
	s.setState(Failed)
	s.opts.Metrics.Failure(kind)
	s.opts.Reporter.Report(f)
}

// cancelPending invalidates in-flight loads and retry timers.
func (s *Service) cancelPending() {
	s.gen++
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
}

func (s *Service) detach() {
	if s.handle.IsZero() {
		return
	}
	if cur, ok := s.opts.Manager.Current(); ok {
		s.spec = cur
	}
	if err := s.opts.Manager.Detach(s.handle); err != nil {
		logger.Warn("overlay detach", "err", err)
	}
	s.handle = window.Handle{}
}

func (s *Service) onStop(reason string) {
	s.cancelPending()
	s.gesture.Reset()
	if s.state == Stopped {
		return
	}
	if s.state == Attached {
		s.commit()
		s.detach()
		s.setState(Detached)
	}
	s.setState(Stopped)
	logger.Info("overlay stopped", "reason", reason)
}

// shutdown is stop plus a final save of the last known position even when
// no window is attached (Failed after a detach).
func (s *Service) shutdown(reason string) {
	if s.state == Failed && s.known {
		s.commit()
	}
	s.onStop(reason)
}

func (s *Service) onResume() {
	switch s.state {
	case Attached:
		if _, err := s.opts.Gate.Recheck(s.ctx); err != nil {
			s.fail(window.PermissionMissing.String(), err)
		}
	case Failed:
		if s.failure == nil || s.failure.Kind != window.PermissionMissing.String() {
			return
		}
		if _, err := s.opts.Gate.Recheck(s.ctx); err == nil {
			logger.Info("overlay permission granted again, restarting")
			s.setState(Stopped)
			s.begin()
		}
	}
}

func (s *Service) onRestart(spec *window.Spec) {
	if spec != nil {
		s.base = *spec
	}
	switch s.state {
	case Attached:
		if spec == nil {
			return
		}
		cur, _ := s.opts.Manager.Current()
		next := window.Clamp(*spec, s.screen)
		if next == cur {
			return
		}
		s.gesture.Reset()
		s.applyUpdate(next)
	case Starting:
		// picked up by the pending attach
		if spec != nil {
			s.spec = window.Clamp(*spec, s.screen)
		}
	default:
		s.onStart()
	}
}

func (s *Service) onScreenChanged(e screenChanged) {
	if e.bounds.Empty() || e.bounds == s.screen {
		return
	}
	old := s.screen
	s.screen = e.bounds
	logger.Info("screen changed", "from", old, "to", e.bounds)
	if s.state != Attached {
		s.spec = window.Rescale(s.spec, old, e.bounds)
		return
	}
	// a drag anchored to the old geometry would jump; drop it
	s.gesture.Reset()
	cur, _ := s.opts.Manager.Current()
	s.applyUpdate(window.Rescale(cur, old, e.bounds))
}

// applyUpdate performs one in-place window update and commits it.
func (s *Service) applyUpdate(spec window.Spec) {
	if err := s.opts.Manager.Update(s.handle, spec); err != nil {
		s.updateFailed(err)
		return
	}
	s.commit()
}

func (s *Service) updateFailed(err error) {
	switch {
	case errors.Is(err, window.ErrStaleHandle):
		logger.Error("invariant violated: update on a stale handle", "err", err)
		s.fail("StaleHandle", err)
	case window.KindOf(err) == window.PermissionMissing:
		s.fail(window.PermissionMissing.String(), errors.Join(err, permission.ErrMissing))
	case window.KindOf(err) == window.ResourceExhausted:
		s.fail(window.ResourceExhausted.String(), err)
	default:
		logger.Warn("overlay update rejected", "err", err)
	}
}

func (s *Service) onPointer(ev input.Event) {
	if s.state != Attached {
		return
	}
	out, err := s.gesture.Handle(ev)
	if err != nil {
		s.updateFailed(err)
		if s.state != Attached {
			return
		}
	}
	switch out {
	case input.Tap:
		s.opts.Metrics.Tap()
		if s.opts.OnTap != nil {
			s.opts.OnTap()
		}
	case input.Committed:
		s.commit()
	}
}

// commit records the on-screen position and queues it for the store.
func (s *Service) commit() {
	if cur, ok := s.opts.Manager.Current(); ok {
		s.spec = cur
	}
	p := store.Position{
		X:            s.spec.X,
		Y:            s.spec.Y,
		ScreenWidth:  s.screen.Dx(),
		ScreenHeight: s.screen.Dy(),
		SavedAt:      s.opts.Clock.Now(),
	}
	// latest wins; only this goroutine sends
	select {
	case s.saves <- p:
	default:
		select {
		case <-s.saves:
		default:
		}
		s.saves <- p
	}
}

func (s *Service) persist() {
	for p := range s.saves {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.opts.Store.Save(ctx, s.opts.StateKey, p); err != nil {
			logger.Warn("save overlay position", "key", s.opts.StateKey, "err", err)
		}
		cancel()
	}
}
