package pano

import "time"

// dt bounds for the render step. The first frame after a clock switch has
// no previous timestamp; long stalls (tab hidden, debugger) are clamped so
// controls do not integrate a huge jump.
const (
	defaultFrameDT = time.Second / 60
	maxFrameDT     = 100 * time.Millisecond
)

// scheduleFrameLocked requests the next frame from the currently active
// clock. The clock is chosen fresh on every call, never cached: the active
// source changes between frames during a session transition. At most one
// frame may be outstanding; a violation is a defect, recovered by
// cancelling the stale handle (or a panic in debug mode). Callers hold v.mu.
func (v *Viewer) scheduleFrameLocked() {
	if v.pending != 0 {
		if v.debug {
			panic("pano debug: frame scheduled while another is pending")
		}
		v.log.Warn("duplicate frame schedule, cancelling stale handle")
		v.pendingClock.CancelFrame(v.pending)
	}
	clock := FrameClock(v.display)
	if v.session != nil {
		clock = v.session
	}
	v.frameSeq++
	seq := v.frameSeq
	v.pendingClock = clock
	v.pending = clock.RequestFrame(func(now time.Time, frame XRFrame) {
		v.stepFrame(seq, now, frame)
	})
}

// cancelFrameLocked revokes the outstanding frame, if any. Every transition
// that changes the clock source calls this before scheduling again, which
// is what keeps two concurrent render loops impossible. Callers hold v.mu.
func (v *Viewer) cancelFrameLocked() {
	if v.pending == 0 {
		return
	}
	v.pendingClock.CancelFrame(v.pending)
	v.frameSeq++ // the clock may have snapshotted the callback already
	v.pending = 0
	v.pendingClock = nil
}

// stepFrame is the per-frame render step. It re-checks its schedule tag and
// the lifecycle state on entry: a callback whose schedule was cancelled or
// replaced while the clock was already invoking it, or that fires after
// Reset, is a no-op and does not reschedule. That is how the loop
// terminates and how exactly one loop survives a clock switch.
//
// The step order is load-bearing: the next frame is scheduled before the
// draw so a slow render cannot delay frame pacing.
func (v *Viewer) stepFrame(seq uint64, now time.Time, frame XRFrame) {
	v.mu.Lock()
	if seq != v.frameSeq {
		v.mu.Unlock()
		return
	}
	v.pending = 0
	v.pendingClock = nil
	if !v.initializedLocked() {
		v.mu.Unlock()
		return
	}

	dt := defaultFrameDT
	if !v.lastFrame.IsZero() && now.After(v.lastFrame) {
		dt = now.Sub(v.lastFrame)
		if dt > maxFrameDT {
			dt = maxFrameDT
		}
	}
	v.lastFrame = now

	var stats frameStats
	t0 := now
	if v.debug {
		t0 = time.Now()
	}

	// 1. Upload a new texture frame once the source has buffered enough
	// data to present.
	if v.video.ReadyState() >= HaveCurrentData {
		v.surface.MarkTextureDirty()
		stats.textureDirty = true
	}

	// 2. Refresh the cached look direction for gaze consumers.
	v.camera.LookDirection()

	// 3. Schedule the next frame before rendering.
	v.scheduleFrameLocked()

	// 4/5. Advance desktop controls, or sample the immersive pose.
	if v.session == nil {
		v.controls.Update(dt.Seconds())
	} else if frame != nil {
		stats.immersive = true
		if pose, ok := frame.ViewerPose(v.refSpace); ok {
			v.camera.SetOrientation(pose.Orientation)
			v.emitLocked(Event{Type: EventPoseUpdated, Pose: pose, SessionID: v.session.ID()})
		}
	}

	if v.debug {
		stats.updateTime = time.Since(t0)
		t0 = time.Now()
	}

	// 6. One draw call. Failures are the renderer's to report (fail-fast);
	// the loop does not self-heal from a broken GPU context.
	v.renderer.Render(v.camera)

	if v.debug {
		stats.renderTime = time.Since(t0)
		v.debugLog(stats)
	}

	events := v.takeEventsLocked()
	v.mu.Unlock()
	v.deliver(events)
}
