package pano

import (
	"fmt"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// EbitenDisplay adapts an Ebitengine game loop to the Display interface:
// frame callbacks fire from Update, the viewport size comes from Layout,
// and mouse drags feed bound orbit controls.
//
// Wire it into an ebiten.Game like this:
//
//	func (g *game) Update() error              { g.display.Update(); return nil }
//	func (g *game) Layout(w, h int) (int, int) { return g.display.Layout(w, h) }
type EbitenDisplay struct {
	mu         sync.Mutex
	width      int
	height     int
	nextHandle FrameHandle
	pending    map[FrameHandle]FrameCallback
	handlers   map[DisplayEvent]*signalSet

	controls *OrbitControls
	dragging bool
	lastX    int
	lastY    int
}

// NewEbitenDisplay creates a display with the given initial size.
func NewEbitenDisplay(w, h int) *EbitenDisplay {
	return &EbitenDisplay{
		width:    w,
		height:   h,
		pending:  make(map[FrameHandle]FrameCallback),
		handlers: make(map[DisplayEvent]*signalSet),
	}
}

// Size implements Display.
func (d *EbitenDisplay) Size() (w, h int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

// On implements Display.
func (d *EbitenDisplay) On(e DisplayEvent, fn func()) (cancel func()) {
	d.mu.Lock()
	set := d.handlers[e]
	if set == nil {
		set = &signalSet{}
		d.handlers[e] = set
	}
	id := set.add(fn)
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		set.remove(id)
		d.mu.Unlock()
	}
}

// RequestFrame implements FrameClock.
func (d *EbitenDisplay) RequestFrame(fn FrameCallback) FrameHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextHandle++
	d.pending[d.nextHandle] = fn
	return d.nextHandle
}

// CancelFrame implements FrameClock.
func (d *EbitenDisplay) CancelFrame(h FrameHandle) {
	d.mu.Lock()
	delete(d.pending, h)
	d.mu.Unlock()
}

// BindControls routes mouse drags to the given orbit controls. Pass nil to
// unbind.
func (d *EbitenDisplay) BindControls(c *OrbitControls) {
	d.mu.Lock()
	d.controls = c
	d.mu.Unlock()
}

// Signal fires a display event to its subscribers. Hosts use it to forward
// runtime signals such as display activation.
func (d *EbitenDisplay) Signal(e DisplayEvent) {
	d.mu.Lock()
	set := d.handlers[e]
	var fns []func()
	if set != nil {
		fns = set.snapshot()
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Update advances the display by one tick: pointer input is read and any
// scheduled frame callbacks fire with a nil immersive frame. Call from
// ebiten.Game.Update.
func (d *EbitenDisplay) Update() {
	d.readPointer()

	d.mu.Lock()
	fns := make([]FrameCallback, 0, len(d.pending))
	for _, fn := range d.pending {
		fns = append(fns, fn)
	}
	clear(d.pending)
	d.mu.Unlock()

	now := time.Now()
	for _, fn := range fns {
		fn(now, nil)
	}
}

// readPointer turns mouse movement with the left button held into drag
// deltas for the bound controls.
func (d *EbitenDisplay) readPointer() {
	d.mu.Lock()
	controls := d.controls
	d.mu.Unlock()

	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		d.dragging = false
		return
	}
	x, y := ebiten.CursorPosition()
	if d.dragging && controls != nil {
		controls.HandleDrag(float64(x-d.lastX), float64(y-d.lastY))
	}
	d.dragging = true
	d.lastX = x
	d.lastY = y
}

// Layout records the current window size, firing DisplayResize when it
// changes. Call from ebiten.Game.Layout and return its result.
func (d *EbitenDisplay) Layout(w, h int) (int, int) {
	d.mu.Lock()
	changed := w != d.width || h != d.height
	d.width = w
	d.height = h
	d.mu.Unlock()
	if changed {
		d.Signal(DisplayResize)
	}
	return w, h
}

// DrawHUD overlays frame pacing and viewer diagnostics on the screen.
func (d *EbitenDisplay) DrawHUD(screen *ebiten.Image, v *Viewer) {
	dir := Vec3{Z: -1}
	if cam := v.Camera(); cam != nil {
		dir = cam.LookDirection()
	}
	ebitenutil.DebugPrint(screen, fmt.Sprintf(
		"FPS: %.1f\nTPS: %.1f\nstate: %s\ncapability: %s\nlook: (%.2f, %.2f, %.2f)",
		ebiten.ActualFPS(), ebiten.ActualTPS(),
		v.State(), v.ImmersiveCapability(),
		dir.X, dir.Y, dir.Z))
}
