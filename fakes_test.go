package pano

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"
)

// waitFor polls cond until it holds or the deadline passes. Async work in
// the viewer (probe, session negotiation) completes on its own goroutines;
// tests synchronize on observable state instead of sleeping fixed amounts.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// counter is a goroutine-safe event tally. Viewer events deliver on
// whichever goroutine completed the transition, so tests must not count
// them with a bare int.
type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// --- fakeDisplay ---

type fakeDisplay struct {
	mu         sync.Mutex
	w, h       int
	nextHandle FrameHandle
	pending    map[FrameHandle]FrameCallback
	handlers   map[DisplayEvent]*signalSet
	requests   int
	cancels    int
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{
		w:        800,
		h:        450,
		pending:  make(map[FrameHandle]FrameCallback),
		handlers: make(map[DisplayEvent]*signalSet),
	}
}

func (d *fakeDisplay) Size() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.w, d.h
}

func (d *fakeDisplay) On(e DisplayEvent, fn func()) func() {
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

func (d *fakeDisplay) RequestFrame(fn FrameCallback) FrameHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests++
	d.nextHandle++
	d.pending[d.nextHandle] = fn
	return d.nextHandle
}

func (d *fakeDisplay) CancelFrame(h FrameHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pending[h]; ok {
		d.cancels++
		delete(d.pending, h)
	}
}

// tick fires all scheduled frame callbacks once and returns how many fired.
func (d *fakeDisplay) tick() int {
	d.mu.Lock()
	fns := make([]FrameCallback, 0, len(d.pending))
	for _, fn := range d.pending {
		fns = append(fns, fn)
	}
	d.pending = make(map[FrameHandle]FrameCallback)
	d.mu.Unlock()

	now := time.Now()
	for _, fn := range fns {
		fn(now, nil)
	}
	return len(fns)
}

func (d *fakeDisplay) pendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *fakeDisplay) signal(e DisplayEvent) {
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

func (d *fakeDisplay) resize(w, h int) {
	d.mu.Lock()
	d.w = w
	d.h = h
	d.mu.Unlock()
	d.signal(DisplayResize)
}

func (d *fakeDisplay) activeSubs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, set := range d.handlers {
		n += len(set.fns)
	}
	return n
}

// --- fakePlayer ---

type fakePlayer struct {
	mu           sync.Mutex
	w, h         int
	handlers     map[PlayerEvent]*signalSet
	affordance   bool
	videoVisible bool
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{
		w:            800,
		h:            450,
		handlers:     make(map[PlayerEvent]*signalSet),
		videoVisible: true,
	}
}

func (p *fakePlayer) Dimensions() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.w, p.h
}

func (p *fakePlayer) On(e PlayerEvent, fn func()) func() {
	p.mu.Lock()
	set := p.handlers[e]
	if set == nil {
		set = &signalSet{}
		p.handlers[e] = set
	}
	id := set.add(fn)
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		set.remove(id)
		p.mu.Unlock()
	}
}

func (p *fakePlayer) SetImmersiveAffordance(enabled bool) {
	p.mu.Lock()
	p.affordance = enabled
	p.mu.Unlock()
}

func (p *fakePlayer) SetVideoVisible(visible bool) {
	p.mu.Lock()
	p.videoVisible = visible
	p.mu.Unlock()
}

func (p *fakePlayer) affordanceEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.affordance
}

func (p *fakePlayer) videoIsVisible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.videoVisible
}

func (p *fakePlayer) signal(e PlayerEvent) {
	p.mu.Lock()
	set := p.handlers[e]
	var fns []func()
	if set != nil {
		fns = set.snapshot()
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (p *fakePlayer) setDimensions(w, h int) {
	p.mu.Lock()
	p.w = w
	p.h = h
	p.mu.Unlock()
}

func (p *fakePlayer) activeSubs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, set := range p.handlers {
		n += len(set.fns)
	}
	return n
}

// --- fakeRenderer ---

type fakeRenderer struct {
	mu      sync.Mutex
	w, h    int
	session XRSession
	mounted *PlaybackSurface
	renders int
}

func (r *fakeRenderer) SetSize(w, h int) {
	r.mu.Lock()
	r.w = w
	r.h = h
	r.mu.Unlock()
}

func (r *fakeRenderer) SetSession(s XRSession) {
	r.mu.Lock()
	r.session = s
	r.mu.Unlock()
}

func (r *fakeRenderer) Mount(s *PlaybackSurface) {
	r.mu.Lock()
	r.mounted = s
	r.mu.Unlock()
}

func (r *fakeRenderer) Unmount() {
	r.mu.Lock()
	r.mounted = nil
	r.mu.Unlock()
}

func (r *fakeRenderer) Render(cam *Camera) {
	r.mu.Lock()
	r.renders++
	r.mu.Unlock()
}

func (r *fakeRenderer) renderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renders
}

func (r *fakeRenderer) boundSession() XRSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

func (r *fakeRenderer) size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w, r.h
}

func (r *fakeRenderer) mountedSurface() *PlaybackSurface {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mounted
}

// --- fakeVideo ---

type fakeVideo struct {
	mu    sync.Mutex
	ready ReadyState
	frame image.Image
}

func (f *fakeVideo) ReadyState() ReadyState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeVideo) Frame() image.Image {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame
}

func (f *fakeVideo) setReady(r ReadyState) {
	f.mu.Lock()
	f.ready = r
	f.mu.Unlock()
}

// --- gateXR ---

// gateXR delays the inner runtime's async answers until the test releases
// them, making probe and session-request races deterministic.
type gateXR struct {
	inner       XRSystem
	probeGate   chan struct{}
	requestGate chan struct{}
}

func newGateXR(inner XRSystem) *gateXR {
	return &gateXR{
		inner:       inner,
		probeGate:   make(chan struct{}),
		requestGate: make(chan struct{}),
	}
}

func (g *gateXR) IsSessionSupported(ctx context.Context, mode SessionMode) (bool, error) {
	<-g.probeGate
	return g.inner.IsSessionSupported(ctx, mode)
}

func (g *gateXR) RequestSession(ctx context.Context, mode SessionMode, opts SessionOptions) (XRSession, error) {
	<-g.requestGate
	return g.inner.RequestSession(ctx, mode, opts)
}

// --- test viewer assembly ---

type testDeps struct {
	player   *fakePlayer
	display  *fakeDisplay
	renderer *fakeRenderer
	video    *fakeVideo
	sim      *SimulatedXR
}

// newTestViewer assembles a viewer on fakes with a simulated XR runtime.
func newTestViewer(t *testing.T, mutate func(*Config)) (*Viewer, *testDeps) {
	t.Helper()
	deps := &testDeps{
		player:   newFakePlayer(),
		display:  newFakeDisplay(),
		renderer: &fakeRenderer{},
		video:    &fakeVideo{ready: HaveEnoughData},
		sim:      NewSimulatedXR(),
	}
	cfg := Config{
		Player:   deps.player,
		Display:  deps.display,
		Renderer: deps.renderer,
		Video:    deps.video,
		XR:       deps.sim,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	v, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v, deps
}

// initViewer runs Init and waits for the capability probe to resolve.
func initViewer(t *testing.T, v *Viewer) {
	t.Helper()
	if err := v.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	waitFor(t, "capability probe", func() bool {
		return v.ImmersiveCapability() != CapabilityUnknown
	})
}

// activateViewer triggers Activate and waits for the session to install.
func activateViewer(t *testing.T, v *Viewer) {
	t.Helper()
	if err := v.Activate(); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	waitFor(t, "session activation", func() bool {
		return v.State() == StateActive
	})
}
