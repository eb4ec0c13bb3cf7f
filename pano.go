package pano

import (
	"errors"

	"github.com/google/uuid"
)

// State is the combined lifecycle and session state of a Viewer. Folding the
// two into one enumeration rules out impossible combinations such as an
// active immersive session on an uninitialized viewer.
type State uint8

const (
	// StateUninitialized is the state before Init and after Reset. The frame
	// loop is stopped and no rendering resources exist.
	StateUninitialized State = iota
	// StateInactive is the normal desktop mode: initialized, rendering on
	// the display clock, orbit controls enabled, no immersive session.
	StateInactive
	// StateActivating means an immersive session request is in flight.
	StateActivating
	// StateActive means an immersive session owns the frame clock.
	StateActive
	// StateDeactivating is the transient teardown of an immersive session.
	StateDeactivating
	// StateDisposed is terminal; no further Init is possible.
	StateDisposed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInactive:
		return "inactive"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	case StateDeactivating:
		return "deactivating"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Capability is the result of the asynchronous immersive-support probe.
type Capability uint8

const (
	CapabilityUnknown     Capability = iota // probe has not resolved yet
	CapabilitySupported                     // immersive sessions can be requested
	CapabilityUnsupported                   // desktop mode only
)

// String returns the lowercase capability name.
func (c Capability) String() string {
	switch c {
	case CapabilitySupported:
		return "supported"
	case CapabilityUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// EventType identifies a notification emitted by the Viewer.
type EventType uint8

const (
	EventInitialized        EventType = iota // rendering pipeline is up
	EventSessionActivated                    // immersive session installed
	EventSessionDeactivated                  // back on the desktop clock
	EventPoseUpdated                         // fresh viewer pose sampled
)

// Event carries the payload of a Viewer notification.
type Event struct {
	Type EventType
	// Pose is valid for EventPoseUpdated.
	Pose Pose
	// SessionID is valid for the session and pose events.
	SessionID uuid.UUID
}

// Pose is a position/orientation sample for the tracked viewer, reported
// against the session's reference space.
type Pose struct {
	Position    Vec3
	Orientation Quat
}

// ReadyState mirrors the host media element's buffered-data ladder. The
// render step uploads a new texture frame once at least HaveCurrentData is
// reached.
type ReadyState uint8

const (
	HaveNothing ReadyState = iota
	HaveMetadata
	HaveCurrentData
	HaveFutureData
	HaveEnoughData
)

var (
	// ErrNotSupported reports that the immersive runtime cannot grant a
	// session: either the capability probe resolved unsupported or it has
	// not resolved yet.
	ErrNotSupported = errors.New("pano: immersive sessions not supported")

	// ErrSessionEnded is returned by XRSession.End when the session has
	// already ended. Callers treat it as success.
	ErrSessionEnded = errors.New("pano: session already ended")

	// ErrSessionActive reports that an immersive session is already active
	// or being negotiated.
	ErrSessionActive = errors.New("pano: immersive session already active")

	// ErrNotInitialized reports that the viewer has no rendering pipeline.
	ErrNotInitialized = errors.New("pano: viewer not initialized")

	// ErrDisposed reports that the viewer has been permanently released.
	ErrDisposed = errors.New("pano: viewer disposed")
)
