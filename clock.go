package pano

import "time"

// FrameHandle identifies one scheduled frame callback. The zero value means
// "no frame scheduled".
type FrameHandle uint64

// FrameCallback runs once when a scheduled frame fires. frame is non-nil
// only when the callback was driven by an active immersive session's clock;
// desktop displays pass nil.
type FrameCallback func(now time.Time, frame XRFrame)

// FrameClock schedules single-shot frame callbacks. Both the desktop display
// and an immersive session implement it; the viewer consults the current
// clock fresh on every scheduling call because the active source changes
// across session transitions.
//
// The viewer keeps at most one frame outstanding per clock: any transition
// that switches clocks cancels the old handle before requesting a new one.
type FrameClock interface {
	// RequestFrame schedules fn to run on the clock's next frame and
	// returns a handle for cancellation.
	RequestFrame(fn FrameCallback) FrameHandle
	// CancelFrame revokes a scheduled frame. Unknown or already-fired
	// handles are ignored.
	CancelFrame(h FrameHandle)
}

// DisplayEvent identifies a signal from the host display.
type DisplayEvent uint8

const (
	// DisplayResize fires when the output viewport changes size.
	DisplayResize DisplayEvent = iota
	// DisplayActivate is the runtime's request to enter an immersive
	// session, e.g. the user put the headset on.
	DisplayActivate
	// DisplayDeactivate is the runtime's request to leave the immersive
	// session.
	DisplayDeactivate
)

// Display is the host player's output: the desktop frame clock plus the
// viewport size and global display signals.
type Display interface {
	FrameClock
	// Size returns the current output dimensions in pixels.
	Size() (w, h int)
	// On registers a handler for a display signal and returns a cancel
	// function that removes it.
	On(e DisplayEvent, fn func()) (cancel func())
}

// signalSet is a registry of plain func() handlers used by display and
// session implementations for their On methods.
type signalSet struct {
	nextID uint64
	fns    map[uint64]func()
}

func (s *signalSet) add(fn func()) uint64 {
	if s.fns == nil {
		s.fns = make(map[uint64]func())
	}
	s.nextID++
	s.fns[s.nextID] = fn
	return s.nextID
}

func (s *signalSet) remove(id uint64) {
	delete(s.fns, id)
}

// snapshot copies the registered handlers so they can run without a lock.
func (s *signalSet) snapshot() []func() {
	if len(s.fns) == 0 {
		return nil
	}
	out := make([]func(), 0, len(s.fns))
	for _, fn := range s.fns {
		out = append(out, fn)
	}
	return out
}
