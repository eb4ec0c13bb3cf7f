package pano

import (
	"context"

	"github.com/google/uuid"
)

// SessionMode selects the kind of session requested from the immersive
// runtime.
type SessionMode uint8

const (
	// SessionModeInline renders into the normal display without exclusive
	// device access.
	SessionModeInline SessionMode = iota
	// SessionModeImmersiveVR takes over a head-mounted or similarly tracked
	// display with its own clock and reference space.
	SessionModeImmersiveVR
)

// ReferenceSpaceType names a coordinate frame poses are reported against.
type ReferenceSpaceType uint8

const (
	// ReferenceSpaceLocal is an origin near the viewer's head at session
	// start.
	ReferenceSpaceLocal ReferenceSpaceType = iota
	// ReferenceSpaceLocalFloor is like local but with the origin at floor
	// level, for standing experiences.
	ReferenceSpaceLocalFloor
)

// SessionOptions carries the feature set requested with a session. Optional
// features are granted best-effort; their absence is not a request failure.
type SessionOptions struct {
	OptionalFeatures []ReferenceSpaceType
}

// ReferenceSpace is an opaque coordinate frame handed out by a session.
type ReferenceSpace interface {
	Type() ReferenceSpaceType
}

// XRFrame is the per-frame context an immersive clock passes to its frame
// callbacks. It is only valid for the duration of that callback.
type XRFrame interface {
	// ViewerPose samples the tracked viewer's pose against the reference
	// space. ok is false when tracking is lost for this frame.
	ViewerPose(space ReferenceSpace) (pose Pose, ok bool)
}

// XRSystem is the immersive runtime entry point. Implementations must be
// safe for concurrent use; the viewer probes capability and requests
// sessions from separate goroutines.
type XRSystem interface {
	// IsSessionSupported reports whether the runtime can grant a session of
	// the given mode. May block while the runtime enumerates devices.
	IsSessionSupported(ctx context.Context, mode SessionMode) (bool, error)
	// RequestSession negotiates a new session. The returned session owns
	// the immersive clock until End is called or the device terminates it.
	RequestSession(ctx context.Context, mode SessionMode, opts SessionOptions) (XRSession, error)
}

// XRSession is a granted immersive session: a frame clock, a reference
// space source, and an end-of-life signal.
type XRSession interface {
	FrameClock
	// ID identifies the session in logs and events.
	ID() uuid.UUID
	// RequestReferenceSpace negotiates a coordinate frame for pose queries.
	RequestReferenceSpace(ctx context.Context, t ReferenceSpaceType) (ReferenceSpace, error)
	// End terminates the session. Ending an already-ended session returns
	// ErrSessionEnded, which callers treat as success.
	End() error
	// OnEnd registers a handler that fires when the session ends for any
	// reason, including device-side termination. The returned cancel
	// function removes the handler.
	OnEnd(fn func()) (cancel func())
}

// polyfillXR is installed when no immersive runtime is supplied, so the
// capability probe and session machine never have to special-case a missing
// API. Every probe resolves unsupported and every request is rejected.
type polyfillXR struct{}

func (polyfillXR) IsSessionSupported(context.Context, SessionMode) (bool, error) {
	return false, nil
}

func (polyfillXR) RequestSession(context.Context, SessionMode, SessionOptions) (XRSession, error) {
	return nil, ErrNotSupported
}
