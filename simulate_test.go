package pano

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSimulatedXRProbe(t *testing.T) {
	x := NewSimulatedXR()
	ctx := context.Background()

	ok, err := x.IsSessionSupported(ctx, SessionModeImmersiveVR)
	if err != nil || !ok {
		t.Fatalf("probe = %t, %v, want true, nil", ok, err)
	}

	x.SetSupported(false)
	ok, err = x.IsSessionSupported(ctx, SessionModeImmersiveVR)
	if err != nil || ok {
		t.Fatalf("probe after SetSupported(false) = %t, %v, want false, nil", ok, err)
	}
	// Inline stays available regardless of immersive support.
	ok, err = x.IsSessionSupported(ctx, SessionModeInline)
	if err != nil || !ok {
		t.Fatalf("inline probe = %t, %v, want true, nil", ok, err)
	}

	x.SetProbeError(errors.New("runtime down"))
	if _, err := x.IsSessionSupported(ctx, SessionModeImmersiveVR); err == nil {
		t.Error("probe error not surfaced")
	}
}

func TestSimulatedXRSingleSession(t *testing.T) {
	x := NewSimulatedXR()
	ctx := context.Background()

	sess, err := x.RequestSession(ctx, SessionModeImmersiveVR, SessionOptions{})
	if err != nil {
		t.Fatalf("RequestSession: %v", err)
	}
	if _, err := x.RequestSession(ctx, SessionModeImmersiveVR, SessionOptions{}); !errors.Is(err, ErrSessionActive) {
		t.Errorf("second request = %v, want ErrSessionActive", err)
	}

	if err := sess.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if _, err := x.RequestSession(ctx, SessionModeImmersiveVR, SessionOptions{}); err != nil {
		t.Errorf("request after end = %v, want grant", err)
	}
}

func TestSimulatedXRRequestFailures(t *testing.T) {
	x := NewSimulatedXR()
	ctx := context.Background()

	if _, err := x.RequestSession(ctx, SessionModeInline, SessionOptions{}); !errors.Is(err, ErrNotSupported) {
		t.Errorf("inline session = %v, want ErrNotSupported", err)
	}

	x.SetRequestError(errors.New("device busy"))
	if _, err := x.RequestSession(ctx, SessionModeImmersiveVR, SessionOptions{}); err == nil {
		t.Error("request error not surfaced")
	}
}

func TestSimulatedSessionEndIdempotent(t *testing.T) {
	x := NewSimulatedXR()
	sess, err := x.RequestSession(context.Background(), SessionModeImmersiveVR, SessionOptions{})
	if err != nil {
		t.Fatalf("RequestSession: %v", err)
	}

	ended := 0
	sess.OnEnd(func() { ended++ })

	if err := sess.End(); err != nil {
		t.Fatalf("first End: %v", err)
	}
	if err := sess.End(); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("second End = %v, want ErrSessionEnded", err)
	}
	if ended != 1 {
		t.Errorf("end handlers fired %d times, want 1", ended)
	}
	if x.Session() != nil {
		t.Error("runtime still reports a live session")
	}
}

func TestSimulatedSessionOnEndCancel(t *testing.T) {
	x := NewSimulatedXR()
	sess, _ := x.RequestSession(context.Background(), SessionModeImmersiveVR, SessionOptions{})

	fired := false
	cancel := sess.OnEnd(func() { fired = true })
	cancel()
	sess.(*SimulatedSession).Terminate()
	if fired {
		t.Error("cancelled end handler fired")
	}
}

func TestSimulatedSessionFrameClock(t *testing.T) {
	x := NewSimulatedXR()
	x.SetPoseFunc(func(elapsed time.Duration) Pose {
		return Pose{Orientation: QuatFromYawPitch(elapsed.Seconds(), 0)}
	})
	sess, _ := x.RequestSession(context.Background(), SessionModeImmersiveVR, SessionOptions{})
	s := sess.(*SimulatedSession)

	var frames []XRFrame
	s.RequestFrame(func(_ time.Time, f XRFrame) { frames = append(frames, f) })
	if s.PendingFrames() != 1 {
		t.Fatalf("pending = %d, want 1", s.PendingFrames())
	}

	s.Advance(time.Second)
	if len(frames) != 1 {
		t.Fatalf("callbacks fired = %d, want 1", len(frames))
	}
	if s.PendingFrames() != 0 {
		t.Errorf("pending after advance = %d, want 0", s.PendingFrames())
	}

	space, err := s.RequestReferenceSpace(context.Background(), ReferenceSpaceLocal)
	if err != nil {
		t.Fatalf("RequestReferenceSpace: %v", err)
	}
	pose, ok := frames[0].ViewerPose(space)
	if !ok {
		t.Fatal("frame has no viewer pose")
	}
	want := QuatFromYawPitch(1, 0)
	if pose.Orientation != want {
		t.Errorf("pose at t=1s = %+v, want %+v", pose.Orientation, want)
	}
}

func TestSimulatedSessionCancelFrame(t *testing.T) {
	x := NewSimulatedXR()
	sess, _ := x.RequestSession(context.Background(), SessionModeImmersiveVR, SessionOptions{})
	s := sess.(*SimulatedSession)

	fired := false
	h := s.RequestFrame(func(time.Time, XRFrame) { fired = true })
	s.CancelFrame(h)
	s.Advance(time.Second / 60)
	if fired {
		t.Error("cancelled frame callback fired")
	}
}

func TestSimulatedSessionAdvanceAfterEndIsNoop(t *testing.T) {
	x := NewSimulatedXR()
	sess, _ := x.RequestSession(context.Background(), SessionModeImmersiveVR, SessionOptions{})
	s := sess.(*SimulatedSession)

	fired := false
	s.RequestFrame(func(time.Time, XRFrame) { fired = true })
	s.Terminate()
	s.Advance(time.Second / 60)
	if fired {
		t.Error("frame callback fired after session end")
	}
	if s.PendingFrames() != 0 {
		t.Errorf("pending after end = %d, want 0", s.PendingFrames())
	}
}

func TestSimulatedSessionReferenceSpaceAfterEnd(t *testing.T) {
	x := NewSimulatedXR()
	sess, _ := x.RequestSession(context.Background(), SessionModeImmersiveVR, SessionOptions{})
	sess.(*SimulatedSession).Terminate()
	if _, err := sess.RequestReferenceSpace(context.Background(), ReferenceSpaceLocal); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("reference space after end = %v, want ErrSessionEnded", err)
	}
}
