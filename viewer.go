package pano

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// PlayerEvent identifies a signal from the host media player.
type PlayerEvent uint8

const (
	// PlayerMetadataLoaded fires when a media source's metadata is ready.
	// The viewer re-runs its full init cycle on every occurrence.
	PlayerMetadataLoaded PlayerEvent = iota
	// PlayerFullscreenChange fires when the player toggles fullscreen.
	PlayerFullscreenChange
	// PlayerDispose fires when the host player is torn down.
	PlayerDispose
)

// Player is the host media player. The viewer subscribes to its lifecycle
// signals and mutates its UI affordances; everything else about the player
// stays opaque.
//
// The mutation methods (SetImmersiveAffordance, SetVideoVisible) must not
// call back into the Viewer synchronously; they run while the viewer holds
// its internal lock.
type Player interface {
	// Dimensions returns the player's current output size in pixels.
	Dimensions() (w, h int)
	// On registers a handler for a player signal and returns a cancel
	// function that removes it.
	On(e PlayerEvent, fn func()) (cancel func())
	// SetImmersiveAffordance shows or hides the immersive-entry control.
	// How the player surfaces it is its own choice: a dedicated control-bar
	// button, or swapping its default playback button for an
	// immersive-aware one. Called with true once the capability probe
	// resolves supported, and with false on reset.
	SetImmersiveAffordance(enabled bool)
	// SetVideoVisible toggles the underlying video element's visual state.
	// The viewer hides it while the render surface overlays it and restores
	// it on reset.
	SetVideoVisible(visible bool)
}

// Renderer is the opaque 3D engine. The viewer tells it what to draw and
// which immersive session owns the output; rasterization, texture upload,
// and GPU error reporting are its own business.
//
// Like Player, these methods run under the viewer's internal lock and must
// not call back into the Viewer synchronously.
type Renderer interface {
	// SetSize updates the output dimensions in pixels.
	SetSize(w, h int)
	// SetSession binds the active immersive session, or unbinds with nil.
	// Only the viewer's session transitions call this.
	SetSession(s XRSession)
	// Mount installs the playback surface into the host output.
	Mount(surface *PlaybackSurface)
	// Unmount removes the playback surface from the host output.
	Unmount()
	// Render draws the mounted surface from the camera. Draw failures are
	// fatal to the frame and surface through the renderer's own error
	// channel; the viewer does not observe or recover from them.
	Render(cam *Camera)
}

// Config assembles a Viewer from its collaborators. Player, Display,
// Renderer, and Video are required.
type Config struct {
	Player   Player
	Display  Display
	Renderer Renderer
	Video    VideoSource

	// XR is the immersive runtime. When nil, a polyfill that reports
	// unsupported is installed so probing and session logic never
	// special-case a missing API.
	XR XRSystem

	// FieldOfView is the vertical FOV in degrees. Defaults to 75.
	FieldOfView float64
	// SphereRadius is the playback sphere radius in world units.
	// Defaults to 256.
	SphereRadius float64
	// SphereDetail is the segment count of the sphere mesh. Defaults to 32.
	SphereDetail int
	// Damping is the orbit-control velocity decay rate per second.
	// Defaults to 4.
	Damping float64

	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
	// Debug enables per-frame stats on stderr and turns scheduling
	// invariant violations into panics instead of warnings.
	Debug bool
}

// Viewer drives 360° video playback: it owns the rendering resources, the
// frame loop, and the immersive session lifecycle. Create one with New; it
// initializes itself when the player reports metadata and tears down when
// the player is disposed.
//
// All exported methods are safe for concurrent use. Failures in probing and
// session negotiation are absorbed into state and logs; nothing panics or
// propagates across the plugin boundary.
type Viewer struct {
	mu sync.Mutex

	cfg      Config
	player   Player
	display  Display
	renderer Renderer
	video    VideoSource
	xr       XRSystem
	log      *slog.Logger
	debug    bool

	state   State
	support Capability

	// gen invalidates in-flight async work (probe, session request) across
	// init/reset cycles: completions compare their captured value and drop
	// themselves when stale.
	gen uint64

	camera   *Camera
	surface  *PlaybackSurface
	controls *OrbitControls

	session           XRSession
	refSpace          ReferenceSpace
	sessionEndCancel  func()
	pendingDeactivate bool

	pending      FrameHandle
	pendingClock FrameClock
	// frameSeq tags each scheduled callback. Clock implementations may have
	// already snapshotted a callback when its handle is cancelled; the tag
	// lets such a callback detect it is stale and drop itself.
	frameSeq  uint64
	lastFrame time.Time

	subs     []func() // subscriptions scoped to one init/reset cycle
	permSubs []func() // subscriptions held until Dispose

	events handlerRegistry
	queued []Event
}

// New validates the configuration and wires the viewer to the host player's
// lifecycle: metadata-loaded triggers Init, dispose triggers Dispose. The
// returned viewer is in StateUninitialized until the first Init.
func New(cfg Config) (*Viewer, error) {
	switch {
	case cfg.Player == nil:
		return nil, fmt.Errorf("pano: config requires a Player")
	case cfg.Display == nil:
		return nil, fmt.Errorf("pano: config requires a Display")
	case cfg.Renderer == nil:
		return nil, fmt.Errorf("pano: config requires a Renderer")
	case cfg.Video == nil:
		return nil, fmt.Errorf("pano: config requires a VideoSource")
	}
	if cfg.FieldOfView <= 0 {
		cfg.FieldOfView = defaultFOV
	}
	if cfg.SphereRadius <= 0 {
		cfg.SphereRadius = defaultSphereRadius
	}
	if cfg.SphereDetail <= 0 {
		cfg.SphereDetail = defaultSphereDetail
	}
	if cfg.Damping <= 0 {
		cfg.Damping = defaultDamping
	}
	if cfg.XR == nil {
		cfg.XR = polyfillXR{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	v := &Viewer{
		cfg:      cfg,
		player:   cfg.Player,
		display:  cfg.Display,
		renderer: cfg.Renderer,
		video:    cfg.Video,
		xr:       cfg.XR,
		log:      cfg.Logger,
		debug:    cfg.Debug,
	}
	v.permSubs = append(v.permSubs,
		cfg.Player.On(PlayerMetadataLoaded, func() {
			if err := v.Init(); err != nil {
				v.log.Warn("init on metadata load", "error", err)
			}
		}),
		cfg.Player.On(PlayerDispose, v.Dispose),
	)
	return v, nil
}

// State returns the combined lifecycle and session state.
func (v *Viewer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// ImmersiveCapability returns the capability probe result. It stays
// CapabilityUnknown until the probe started by Init resolves; host UI uses
// it to decide whether to show an immersive-entry affordance.
func (v *Viewer) ImmersiveCapability() Capability {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.support
}

// Camera returns the camera, or nil while uninitialized.
func (v *Viewer) Camera() *Camera {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.camera
}

// Surface returns the playback surface, or nil while uninitialized.
func (v *Viewer) Surface() *PlaybackSurface {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.surface
}

// Controls returns the desktop orbit controls, or nil while uninitialized.
func (v *Viewer) Controls() *OrbitControls {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.controls
}

// Init allocates the rendering pipeline and starts the frame loop. A viewer
// that is already initialized is torn down first via Reset semantics, so
// repeated media-source changes never stack a second frame loop. The
// capability probe starts asynchronously; rendering begins on the desktop
// clock without waiting for it.
func (v *Viewer) Init() error {
	v.mu.Lock()
	if v.state == StateDisposed {
		v.mu.Unlock()
		return ErrDisposed
	}
	if v.state != StateUninitialized {
		v.resetLocked()
	}
	v.gen++
	gen := v.gen

	w, h := v.player.Dimensions()
	aspect := 1.0
	if h > 0 {
		aspect = float64(w) / float64(h)
	}
	v.camera = newCamera(v.cfg.FieldOfView, aspect)
	v.surface = newPlaybackSurface(v.video, v.cfg.SphereRadius, v.cfg.SphereDetail)
	v.controls = newOrbitControls(v.camera, v.cfg.Damping)

	v.renderer.SetSize(w, h)
	v.renderer.Mount(v.surface)
	v.player.SetVideoVisible(false)

	v.subs = append(v.subs,
		v.display.On(DisplayResize, v.handleResize),
		v.player.On(PlayerFullscreenChange, v.handleResize),
		v.display.On(DisplayActivate, func() {
			if err := v.Activate(); err != nil {
				v.log.Debug("display activate signal ignored", "error", err)
			}
		}),
		v.display.On(DisplayDeactivate, func() {
			if err := v.Deactivate(); err != nil {
				v.log.Debug("display deactivate signal ignored", "error", err)
			}
		}),
	)

	v.support = CapabilityUnknown
	v.lastFrame = time.Time{}
	v.state = StateInactive
	v.emitLocked(Event{Type: EventInitialized})
	v.scheduleFrameLocked()

	events := v.takeEventsLocked()
	v.mu.Unlock()

	go v.probe(gen)
	v.deliver(events)
	return nil
}

// probe asks the runtime whether immersive sessions are supported. It may
// resolve long after rendering began; a stale resolution (reset or re-init
// happened meanwhile) is dropped.
func (v *Viewer) probe(gen uint64) {
	supported, err := v.xr.IsSessionSupported(context.Background(), SessionModeImmersiveVR)

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen || v.state == StateDisposed {
		return
	}
	switch {
	case err != nil:
		v.support = CapabilityUnsupported
		v.log.Debug("immersive capability probe failed", "error", err)
	case supported:
		v.support = CapabilitySupported
		v.player.SetImmersiveAffordance(true)
	default:
		v.support = CapabilityUnsupported
		v.log.Debug("immersive sessions unsupported, staying in desktop mode")
	}
}

// Reset tears down everything Init allocated. It is a no-op when the viewer
// is not initialized. An active immersive session is ended first; cleanup
// proceeds regardless of how that ending goes.
func (v *Viewer) Reset() error {
	v.mu.Lock()
	if v.state == StateDisposed {
		v.mu.Unlock()
		return ErrDisposed
	}
	v.resetLocked()
	v.mu.Unlock()
	return nil
}

// resetLocked releases resources, subscriptions, and the frame loop.
// The state flag is cleared last so a frame callback that already fired
// observes "not initialized" on entry and terminates the loop. Callers hold
// v.mu.
func (v *Viewer) resetLocked() {
	if v.state == StateUninitialized || v.state == StateDisposed {
		return
	}
	v.cancelFrameLocked()

	if v.session != nil {
		if v.sessionEndCancel != nil {
			v.sessionEndCancel()
			v.sessionEndCancel = nil
		}
		if err := v.session.End(); err != nil && !errors.Is(err, ErrSessionEnded) {
			v.log.Warn("ending session during reset", "error", err)
		}
		v.renderer.SetSession(nil)
		v.session = nil
		v.refSpace = nil
	}
	v.pendingDeactivate = false

	for _, cancel := range v.subs {
		cancel()
	}
	v.subs = nil

	v.renderer.Unmount()
	v.player.SetVideoVisible(true)
	v.player.SetImmersiveAffordance(false)

	v.controls = nil
	v.camera = nil
	v.surface = nil
	v.support = CapabilityUnknown
	v.gen++ // drop in-flight probe and session-request resolutions
	v.state = StateUninitialized
}

// Dispose resets the viewer and releases its permanent player
// subscriptions. The viewer is unusable afterwards; Init returns
// ErrDisposed.
func (v *Viewer) Dispose() {
	v.mu.Lock()
	if v.state == StateDisposed {
		v.mu.Unlock()
		return
	}
	v.resetLocked()
	for _, cancel := range v.permSubs {
		cancel()
	}
	v.permSubs = nil
	v.state = StateDisposed
	v.mu.Unlock()
}

// handleResize recomputes the renderer output size and camera aspect from
// the player's reported dimensions. Independent of session state: it runs
// the same way in desktop and immersive mode.
func (v *Viewer) handleResize() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.initializedLocked() {
		return
	}
	w, h := v.player.Dimensions()
	if h <= 0 {
		return
	}
	v.renderer.SetSize(w, h)
	v.camera.SetAspect(float64(w) / float64(h))
}

// initializedLocked reports whether the rendering pipeline exists. Callers
// hold v.mu.
func (v *Viewer) initializedLocked() bool {
	switch v.state {
	case StateInactive, StateActivating, StateActive, StateDeactivating:
		return true
	default:
		return false
	}
}
