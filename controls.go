package pano

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

const (
	defaultSensitivity = 0.004 // radians of rotation per pixel of drag
	defaultDamping     = 4.0   // exponential velocity decay rate, 1/s
	pitchLimit         = math.Pi/2 - 0.05
)

// recenterAnim holds active recenter tweens for yaw and pitch.
type recenterAnim struct {
	tweenYaw   *gween.Tween
	tweenPitch *gween.Tween
	doneYaw    bool
	donePitch  bool
}

// OrbitControls turn pointer drags into camera yaw/pitch with inertia.
// Drags accumulate angular velocity; Update integrates it each frame and
// decays it exponentially so the view glides to a stop after release.
//
// The Viewer owns one instance per Init/Reset cycle. While an immersive
// session is active the controls are disabled, not destroyed, so the
// desktop view direction survives a session round trip.
type OrbitControls struct {
	// Sensitivity is radians of rotation per pixel of drag.
	Sensitivity float64
	// Damping is the exponential decay rate of angular velocity, per second.
	Damping float64

	cam      *Camera
	yaw      float64
	pitch    float64
	velYaw   float64
	velPitch float64
	enabled  bool

	recenter *recenterAnim
}

// newOrbitControls creates enabled controls bound to the given camera.
func newOrbitControls(cam *Camera, damping float64) *OrbitControls {
	if damping <= 0 {
		damping = defaultDamping
	}
	return &OrbitControls{
		Sensitivity: defaultSensitivity,
		Damping:     damping,
		cam:         cam,
		enabled:     true,
	}
}

// Enabled reports whether the controls respond to input and updates.
func (c *OrbitControls) Enabled() bool {
	return c.enabled
}

// SetEnabled enables or disables the controls. Disabling zeroes any residual
// velocity so the view does not drift when re-enabled later.
func (c *OrbitControls) SetEnabled(enabled bool) {
	c.enabled = enabled
	if !enabled {
		c.velYaw = 0
		c.velPitch = 0
		c.recenter = nil
	}
}

// Yaw returns the current yaw angle in radians.
func (c *OrbitControls) Yaw() float64 {
	return c.yaw
}

// Pitch returns the current pitch angle in radians.
func (c *OrbitControls) Pitch() float64 {
	return c.pitch
}

// HandleDrag feeds a pointer drag delta in pixels. Ignored while disabled.
// A drag cancels any recenter animation in progress.
func (c *OrbitControls) HandleDrag(dx, dy float64) {
	if !c.enabled {
		return
	}
	c.recenter = nil
	c.velYaw = -dx * c.Sensitivity * c.Damping
	c.velPitch = -dy * c.Sensitivity * c.Damping
}

// RecenterTo animates yaw and pitch to the given angles over duration
// seconds using the easing function. Residual drag velocity is dropped so
// inertia does not resume once the animation lands.
func (c *OrbitControls) RecenterTo(yaw, pitch float64, duration float32, easeFn ease.TweenFunc) {
	c.velYaw = 0
	c.velPitch = 0
	c.recenter = &recenterAnim{
		tweenYaw:   gween.New(float32(c.yaw), float32(yaw), duration, easeFn),
		tweenPitch: gween.New(float32(c.pitch), float32(pitch), duration, easeFn),
	}
}

// Update integrates velocity into yaw/pitch, applies damping and the
// recenter animation, clamps pitch, and writes the resulting orientation to
// the camera. Called once per frame by the render step while no immersive
// session is active. No-op while disabled.
func (c *OrbitControls) Update(dt float64) {
	if !c.enabled || dt <= 0 {
		return
	}

	if c.recenter != nil {
		r := c.recenter
		if !r.doneYaw {
			val, done := r.tweenYaw.Update(float32(dt))
			c.yaw = float64(val)
			r.doneYaw = done
		}
		if !r.donePitch {
			val, done := r.tweenPitch.Update(float32(dt))
			c.pitch = float64(val)
			r.donePitch = done
		}
		if r.doneYaw && r.donePitch {
			c.recenter = nil
		}
	} else {
		c.yaw += c.velYaw * dt
		c.pitch += c.velPitch * dt

		decay := math.Exp(-c.Damping * dt)
		c.velYaw *= decay
		c.velPitch *= decay
	}

	c.pitch = math.Max(-pitchLimit, math.Min(c.pitch, pitchLimit))
	c.cam.SetOrientation(QuatFromYawPitch(c.yaw, c.pitch))
}
