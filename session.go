package pano

import (
	"context"
	"errors"
)

// Activate requests an immersive session. It returns immediately after
// entering StateActivating; negotiation completes asynchronously. On grant,
// the session is installed on the renderer, the frame loop moves to the
// session clock, and EventSessionActivated fires. On rejection the viewer
// logs, stays in desktop mode with controls enabled, and does not retry;
// the user can trigger the same affordance again.
//
// Preconditions: the viewer must be initialized and the capability probe
// must have resolved supported. A second Activate while a session is live
// or pending returns ErrSessionActive.
func (v *Viewer) Activate() error {
	v.mu.Lock()
	switch v.state {
	case StateDisposed:
		v.mu.Unlock()
		return ErrDisposed
	case StateUninitialized:
		v.mu.Unlock()
		return ErrNotInitialized
	case StateActivating, StateActive, StateDeactivating:
		v.mu.Unlock()
		return ErrSessionActive
	}
	if v.support != CapabilitySupported {
		v.mu.Unlock()
		return ErrNotSupported
	}

	// The clock source is about to change; the desktop frame must be
	// cancelled before the session clock schedules one.
	v.cancelFrameLocked()
	v.controls.SetEnabled(false)
	v.state = StateActivating
	gen := v.gen
	v.mu.Unlock()

	go v.requestSession(gen)
	return nil
}

// requestSession performs the blocking session negotiation and applies the
// result. Resolution re-checks viewer state first: a reset or re-init that
// happened while the request was in flight makes the grant stale, in which
// case the session is ended and the result dropped.
func (v *Viewer) requestSession(gen uint64) {
	ctx := context.Background()
	opts := SessionOptions{
		OptionalFeatures: []ReferenceSpaceType{ReferenceSpaceLocalFloor},
	}
	sess, err := v.xr.RequestSession(ctx, SessionModeImmersiveVR, opts)

	var space ReferenceSpace
	if err == nil {
		space, err = sess.RequestReferenceSpace(ctx, ReferenceSpaceLocalFloor)
		if err != nil {
			// Floor-relative tracking was optional; fall back to a plain
			// local frame before giving up on the session.
			space, err = sess.RequestReferenceSpace(ctx, ReferenceSpaceLocal)
		}
	}

	v.mu.Lock()
	if gen != v.gen || v.state != StateActivating {
		v.mu.Unlock()
		v.releaseSession(sess)
		return
	}

	if err != nil {
		v.releaseSession(sess)
		v.log.Warn("immersive session request rejected", "error", err)
		v.controls.SetEnabled(true)
		v.pendingDeactivate = false
		v.state = StateInactive
		v.scheduleFrameLocked()
		v.mu.Unlock()
		return
	}

	v.session = sess
	v.refSpace = space
	v.sessionEndCancel = sess.OnEnd(func() { v.handleSessionEnd(gen) })
	v.renderer.SetSession(sess)
	v.state = StateActive
	v.log.Info("immersive session activated", "session", sess.ID(), "space", space.Type())
	v.emitLocked(Event{Type: EventSessionActivated, SessionID: sess.ID()})
	v.scheduleFrameLocked() // first frame on the session clock

	// A Deactivate that raced the pending request resolves here: complete
	// the activation, then immediately run the normal deactivation path.
	if v.pendingDeactivate {
		v.pendingDeactivate = false
		v.deactivateLocked()
	}

	events := v.takeEventsLocked()
	v.mu.Unlock()
	v.deliver(events)
}

// releaseSession ends a session the viewer decided not to keep. Safe with
// nil; an already-ended session is not an error.
func (v *Viewer) releaseSession(sess XRSession) {
	if sess == nil {
		return
	}
	if err := sess.End(); err != nil && !errors.Is(err, ErrSessionEnded) {
		v.log.Warn("releasing unused session", "error", err)
	}
}

// Deactivate leaves the immersive session and returns the frame loop to the
// desktop clock. Deactivating while no session is active is a no-op;
// deactivating while a session request is pending is absorbed once the
// request resolves. The session's own end notification routes through this
// same path, so there is exactly one cleanup sequence.
func (v *Viewer) Deactivate() error {
	v.mu.Lock()
	switch v.state {
	case StateDisposed:
		v.mu.Unlock()
		return ErrDisposed
	case StateActivating:
		v.pendingDeactivate = true
		v.mu.Unlock()
		return nil
	case StateActive:
	default:
		v.mu.Unlock()
		return nil
	}
	v.deactivateLocked()
	events := v.takeEventsLocked()
	v.mu.Unlock()
	v.deliver(events)
	return nil
}

// deactivateLocked is the single normalization path out of StateActive,
// shared by explicit exits, external deactivation signals, and
// session-originated ends. Callers hold v.mu with state == StateActive.
func (v *Viewer) deactivateLocked() {
	v.state = StateDeactivating
	v.cancelFrameLocked()

	sess := v.session
	// Detach the end listener before ending so our own End call cannot
	// re-enter the deactivation path.
	if v.sessionEndCancel != nil {
		v.sessionEndCancel()
		v.sessionEndCancel = nil
	}
	switch err := sess.End(); {
	case err == nil:
	case errors.Is(err, ErrSessionEnded):
		// Already ended on the device side; that is the success case for
		// an idempotent end.
		v.log.Debug("session was already ended", "session", sess.ID())
	default:
		// Cleanup must not depend on an error-free termination.
		v.log.Warn("immersive session end failed", "session", sess.ID(), "error", err)
	}

	v.session = nil
	v.refSpace = nil
	v.renderer.SetSession(nil)
	v.controls.SetEnabled(true)
	v.state = StateInactive
	v.log.Info("immersive session deactivated", "session", sess.ID())
	v.emitLocked(Event{Type: EventSessionDeactivated, SessionID: sess.ID()})
	v.scheduleFrameLocked() // resume on the desktop clock
}

// handleSessionEnd fires when the session ends without a local Deactivate
// (device disconnect, OS-level exit). It synthesizes the deactivation
// trigger so both entry points share deactivateLocked.
func (v *Viewer) handleSessionEnd(gen uint64) {
	v.mu.Lock()
	if gen != v.gen || v.state != StateActive {
		v.mu.Unlock()
		return
	}
	v.deactivateLocked()
	events := v.takeEventsLocked()
	v.mu.Unlock()
	v.deliver(events)
}
