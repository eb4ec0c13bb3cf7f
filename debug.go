package pano

import (
	"fmt"
	"os"
	"time"
)

// frameStats holds per-frame timing collected when Config.Debug is set.
type frameStats struct {
	updateTime   time.Duration
	renderTime   time.Duration
	textureDirty bool
	immersive    bool
}

// debugLog prints frame timing to stderr. Callers hold v.mu; only invoked
// in debug mode.
func (v *Viewer) debugLog(stats frameStats) {
	mode := "desktop"
	if stats.immersive {
		mode = "immersive"
	}
	_, _ = fmt.Fprintf(os.Stderr,
		"[pano] mode: %s | update: %v | render: %v | texture dirty: %t\n",
		mode, stats.updateTime, stats.renderTime, stats.textureDirty)
}
