package pano

// eventHandler pairs a registered callback with the id used to remove it.
type eventHandler struct {
	id uint32
	fn func(Event)
}

// handlerRegistry stores Viewer event handlers keyed by event type.
// Registration returns an id; removal filters it out.
type handlerRegistry struct {
	nextID   uint32
	handlers map[EventType][]eventHandler
}

func (r *handlerRegistry) add(t EventType, fn func(Event)) uint32 {
	if r.handlers == nil {
		r.handlers = make(map[EventType][]eventHandler)
	}
	r.nextID++
	id := r.nextID
	r.handlers[t] = append(r.handlers[t], eventHandler{id: id, fn: fn})
	return id
}

func (r *handlerRegistry) remove(t EventType, id uint32) {
	hs := r.handlers[t]
	for i, h := range hs {
		if h.id == id {
			r.handlers[t] = append(hs[:i], hs[i+1:]...)
			return
		}
	}
}

// snapshot returns a copy of the handlers for the event type so callbacks
// can be invoked without holding the viewer lock.
func (r *handlerRegistry) snapshot(t EventType) []eventHandler {
	hs := r.handlers[t]
	if len(hs) == 0 {
		return nil
	}
	out := make([]eventHandler, len(hs))
	copy(out, hs)
	return out
}

// OnEvent registers a handler for the given event type and returns a cancel
// function that removes it. Handlers run outside the viewer's internal lock
// and may call back into the Viewer.
func (v *Viewer) OnEvent(t EventType, fn func(Event)) (cancel func()) {
	v.mu.Lock()
	id := v.events.add(t, fn)
	v.mu.Unlock()
	return func() {
		v.mu.Lock()
		v.events.remove(t, id)
		v.mu.Unlock()
	}
}

// emitLocked queues an event for delivery after the current locked section.
// Callers hold v.mu.
func (v *Viewer) emitLocked(e Event) {
	v.queued = append(v.queued, e)
}

// takeEventsLocked drains the queued events. Callers hold v.mu and deliver
// the result after unlocking.
func (v *Viewer) takeEventsLocked() []Event {
	if len(v.queued) == 0 {
		return nil
	}
	out := v.queued
	v.queued = nil
	return out
}

// deliver invokes handlers for each event. Must be called without v.mu held.
func (v *Viewer) deliver(events []Event) {
	for _, e := range events {
		v.mu.Lock()
		hs := v.events.snapshot(e.Type)
		v.mu.Unlock()
		for _, h := range hs {
			h.fn(e)
		}
	}
}
