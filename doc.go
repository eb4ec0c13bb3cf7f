// Package pano drives panoramic (360°) video playback inside a host media
// player: decoded frames are projected onto the inside of a sphere viewed
// through a perspective camera, with transparent switching between desktop
// orbit viewing and an immersive head-mounted session.
//
// The package owns the session lifecycle and the frame-scheduling loop. The
// 3D engine, the host player, the video decoder, and the immersive runtime
// stay outside, behind the [Renderer], [Player], [VideoSource], and
// [XRSystem] interfaces.
//
// # Quick start
//
// Assemble a [Viewer] from its collaborators and let the host player's
// lifecycle drive it:
//
//	viewer, err := pano.New(pano.Config{
//		Player:   player,
//		Display:  display,
//		Renderer: renderer,
//		Video:    video,
//		XR:       runtime, // optional; omit for desktop-only
//	})
//
// The viewer initializes itself when the player reports loaded metadata,
// renders every frame on the display clock, and tears down when the player
// is disposed. [Viewer.Init], [Viewer.Reset], and [Viewer.Dispose] are also
// callable directly.
//
// # Immersive sessions
//
// After Init, a capability probe asks the runtime whether immersive
// sessions are supported; the result is readable through
// [Viewer.ImmersiveCapability] and surfaces an entry affordance on the
// player when positive. [Viewer.Activate] negotiates a session and moves
// the frame loop onto the session's clock; [Viewer.Deactivate], or the
// session ending on its own, returns it to the display clock. All
// transitions keep at most one scheduled frame outstanding, so there is
// never more than one render loop.
//
// Subscribe to transitions with [Viewer.OnEvent]: EventInitialized,
// EventSessionActivated, EventSessionDeactivated, and EventPoseUpdated
// (per-frame viewer poses while immersive, for gaze-driven UI).
//
// # Desktop viewing
//
// While no session is active, [OrbitControls] integrate pointer drags into
// camera yaw/pitch with inertial damping, and can glide back to center via
// a tween (using [gween]). [EbitenDisplay] adapts an [Ebitengine] game loop
// to the Display interface for standalone hosts; see examples/.
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
package pano
