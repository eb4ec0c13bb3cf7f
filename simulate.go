package pano

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SimulatedXR is an in-process immersive runtime with scripted poses. It
// backs the headset example and the session tests: capability answers,
// session grants, and device-side termination are all controllable, and its
// clock only advances when told to, so multi-frame sequences stay
// deterministic.
type SimulatedXR struct {
	mu         sync.Mutex
	supported  bool
	probeErr   error
	requestErr error
	poseFn     func(elapsed time.Duration) Pose
	session    *SimulatedSession
}

// NewSimulatedXR creates a runtime that supports immersive sessions and
// reports an identity pose until SetPoseFunc is called.
func NewSimulatedXR() *SimulatedXR {
	return &SimulatedXR{
		supported: true,
		poseFn: func(time.Duration) Pose {
			return Pose{Orientation: QuatIdentity()}
		},
	}
}

// SetSupported controls the answer future capability probes receive.
func (x *SimulatedXR) SetSupported(supported bool) {
	x.mu.Lock()
	x.supported = supported
	x.mu.Unlock()
}

// SetProbeError makes future capability probes fail with err.
func (x *SimulatedXR) SetProbeError(err error) {
	x.mu.Lock()
	x.probeErr = err
	x.mu.Unlock()
}

// SetRequestError makes future session requests fail with err.
func (x *SimulatedXR) SetRequestError(err error) {
	x.mu.Lock()
	x.requestErr = err
	x.mu.Unlock()
}

// SetPoseFunc installs the pose script. elapsed is the session clock time
// accumulated through Advance calls.
func (x *SimulatedXR) SetPoseFunc(fn func(elapsed time.Duration) Pose) {
	x.mu.Lock()
	x.poseFn = fn
	x.mu.Unlock()
}

// Session returns the currently live session, or nil. Tests use it to pump
// frames and to terminate the session from the device side.
func (x *SimulatedXR) Session() *SimulatedSession {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.session != nil && x.session.endedNow() {
		x.session = nil
	}
	return x.session
}

// IsSessionSupported implements XRSystem. Inline sessions are always
// supported; immersive ones answer per SetSupported/SetProbeError.
func (x *SimulatedXR) IsSessionSupported(_ context.Context, mode SessionMode) (bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.probeErr != nil {
		return false, x.probeErr
	}
	if mode == SessionModeInline {
		return true, nil
	}
	return x.supported, nil
}

// RequestSession implements XRSystem. At most one live session exists at a
// time; a second request while one is live fails with ErrSessionActive.
func (x *SimulatedXR) RequestSession(_ context.Context, mode SessionMode, _ SessionOptions) (XRSession, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	switch {
	case x.requestErr != nil:
		return nil, x.requestErr
	case !x.supported || mode != SessionModeImmersiveVR:
		return nil, ErrNotSupported
	case x.session != nil && !x.session.endedNow():
		return nil, ErrSessionActive
	}
	x.session = &SimulatedSession{
		id:     uuid.New(),
		poseFn: x.poseFn,
	}
	return x.session, nil
}

// SimulatedSession is a granted session on the simulated runtime. Its frame
// clock is pumped manually via Advance.
type SimulatedSession struct {
	mu         sync.Mutex
	id         uuid.UUID
	poseFn     func(elapsed time.Duration) Pose
	elapsed    time.Duration
	nextHandle FrameHandle
	pending    map[FrameHandle]FrameCallback
	ends       signalSet
	ended      bool
}

// ID implements XRSession.
func (s *SimulatedSession) ID() uuid.UUID {
	return s.id
}

// RequestFrame implements FrameClock.
func (s *SimulatedSession) RequestFrame(fn FrameCallback) FrameHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		s.pending = make(map[FrameHandle]FrameCallback)
	}
	s.nextHandle++
	s.pending[s.nextHandle] = fn
	return s.nextHandle
}

// CancelFrame implements FrameClock.
func (s *SimulatedSession) CancelFrame(h FrameHandle) {
	s.mu.Lock()
	delete(s.pending, h)
	s.mu.Unlock()
}

// PendingFrames reports how many frame callbacks are scheduled. The viewer
// keeps this at most one; tests assert it.
func (s *SimulatedSession) PendingFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// RequestReferenceSpace implements XRSession. Every space type is granted.
func (s *SimulatedSession) RequestReferenceSpace(_ context.Context, t ReferenceSpaceType) (ReferenceSpace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return nil, ErrSessionEnded
	}
	return simReferenceSpace{t: t}, nil
}

// Advance moves the session clock forward by dt and fires any scheduled
// frame callbacks with a frame carrying the scripted pose. No-op after the
// session ends.
func (s *SimulatedSession) Advance(dt time.Duration) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.elapsed += dt
	frame := &simFrame{pose: s.poseFn(s.elapsed)}
	fns := make([]FrameCallback, 0, len(s.pending))
	for _, fn := range s.pending {
		fns = append(fns, fn)
	}
	s.pending = nil
	s.mu.Unlock()

	now := time.Now()
	for _, fn := range fns {
		fn(now, frame)
	}
}

// End implements XRSession. The first call ends the session and fires the
// end handlers; later calls return ErrSessionEnded.
func (s *SimulatedSession) End() error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return ErrSessionEnded
	}
	s.ended = true
	s.pending = nil
	fns := s.ends.snapshot()
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return nil
}

// Terminate ends the session from the device side, as if the headset was
// disconnected. End handlers fire exactly as for a local End.
func (s *SimulatedSession) Terminate() {
	_ = s.End()
}

// Ended reports whether the session has ended.
func (s *SimulatedSession) Ended() bool {
	return s.endedNow()
}

func (s *SimulatedSession) endedNow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// OnEnd implements XRSession.
func (s *SimulatedSession) OnEnd(fn func()) (cancel func()) {
	s.mu.Lock()
	id := s.ends.add(fn)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.ends.remove(id)
		s.mu.Unlock()
	}
}

type simReferenceSpace struct {
	t ReferenceSpaceType
}

func (r simReferenceSpace) Type() ReferenceSpaceType {
	return r.t
}

type simFrame struct {
	pose Pose
}

func (f *simFrame) ViewerPose(ReferenceSpace) (Pose, bool) {
	return f.pose, true
}
