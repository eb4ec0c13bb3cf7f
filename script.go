package pano

import (
	"encoding/json"
	"fmt"
)

// scriptStep represents a single action in a playback script.
type scriptStep struct {
	Action string `json:"action"`
	Frames int    `json:"frames,omitempty"`
}

// playbackScript is the top-level JSON structure for a script.
type playbackScript struct {
	Steps []scriptStep `json:"steps"`
}

// ScriptRunner sequences viewer operations across frames. Demos and
// integration tests use it to drive a Viewer through scripted
// activate/deactivate/reset cycles.
//
// Supported actions: "init", "reset", "dispose", "activate", "deactivate",
// and "wait" (with a frames count).
type ScriptRunner struct {
	steps     []scriptStep
	cursor    int
	waitCount int
	done      bool
}

// LoadScript parses a JSON playback script.
func LoadScript(jsonData []byte) (*ScriptRunner, error) {
	var script playbackScript
	if err := json.Unmarshal(jsonData, &script); err != nil {
		return nil, fmt.Errorf("parse playback script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("parse playback script: no steps")
	}
	return &ScriptRunner{steps: script.Steps}, nil
}

// Done reports whether all steps have been executed.
func (r *ScriptRunner) Done() bool {
	return r.done
}

// Step executes the next pending action against the viewer. Call it once
// per display tick; "wait" steps consume one call per frame. Errors from
// viewer operations are ignored so scripts can exercise races that the
// viewer absorbs into state transitions.
func (r *ScriptRunner) Step(v *Viewer) {
	if r.done {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "init":
		_ = v.Init()
	case "reset":
		_ = v.Reset()
	case "dispose":
		v.Dispose()
	case "activate":
		_ = v.Activate()
	case "deactivate":
		_ = v.Deactivate()
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this frame counts as one
		}
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 {
		r.done = true
	}
}
