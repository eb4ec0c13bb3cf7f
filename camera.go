package pano

import "math"

// Default perspective parameters. The sphere surrounds the camera, so the
// near plane only needs to clear the viewer's head and the far plane only
// the sphere radius.
const (
	defaultFOV = 75.0
	cameraNear = 0.1
	cameraFar  = 1000.0
)

// Camera holds the perspective projection and orientation used to view the
// playback sphere from its center. It is created by Init, reconfigured on
// resize and per frame, and released only by Reset.
type Camera struct {
	// FOV is the vertical field of view in degrees.
	FOV float64
	// Aspect is the width/height ratio of the output. Updated by the resize
	// handler from the host player's reported dimensions.
	Aspect float64
	// Near and Far are the clip plane distances.
	Near, Far float64

	orientation Quat
	lookDir     Vec3
	dirty       bool
}

// newCamera creates a camera with the given field of view and aspect ratio,
// facing -Z.
func newCamera(fov, aspect float64) *Camera {
	return &Camera{
		FOV:         fov,
		Aspect:      aspect,
		Near:        cameraNear,
		Far:         cameraFar,
		orientation: QuatIdentity(),
		dirty:       true,
	}
}

// SetAspect updates the aspect ratio.
func (c *Camera) SetAspect(aspect float64) {
	c.Aspect = aspect
}

// Orientation returns the current camera rotation.
func (c *Camera) Orientation() Quat {
	return c.orientation
}

// SetOrientation replaces the camera rotation and invalidates the cached
// look direction.
func (c *Camera) SetOrientation(q Quat) {
	c.orientation = q
	c.dirty = true
}

// LookDirection returns the unit vector the camera is facing, recomputing
// the cached value if the orientation changed. The render step refreshes
// this once per frame so gaze consumers read a current value without paying
// for a quaternion rotation on every access.
func (c *Camera) LookDirection() Vec3 {
	if c.dirty {
		c.lookDir = c.orientation.Rotate(Vec3{Z: -1})
		c.dirty = false
	}
	return c.lookDir
}

// ProjectionMatrix returns the row-major 4x4 perspective projection for the
// current FOV, aspect ratio, and clip planes.
func (c *Camera) ProjectionMatrix() [16]float64 {
	f := 1 / math.Tan(c.FOV*math.Pi/180/2)
	nf := 1 / (c.Near - c.Far)
	return [16]float64{
		f / c.Aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (c.Far + c.Near) * nf, 2 * c.Far * c.Near * nf,
		0, 0, -1, 0,
	}
}
