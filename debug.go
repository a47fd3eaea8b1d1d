package softmask

import (
	"fmt"
	"io"
	"os"
	"time"
)

// FrameStats holds counters for the current tick. Counters are reset by
// SubmitFrameChanges.
type FrameStats struct {
	NodesMoved         int // nodes whose element transform changed
	CamerasChanged     int // cameras whose view-projection changed
	RootsRendered      int
	NodesDrawn         int // mask geometry draws
	NodesExcluded      int // nodes left out by the depth cap
	BufferAllocs       int
	MaterialsCreated   int
	MaterialsDestroyed int
}

// Stats returns the counters accumulated since the last SubmitFrameChanges.
func (c *Context) Stats() FrameStats {
	return c.stats
}

// debugStats holds per-frame timing for a Canvas in debug mode.
type debugStats struct {
	traverseTime time.Duration
	maskTime     time.Duration
	drawTime     time.Duration
	drawCount    int
	maskedCount  int
}

// debugOut is where debug output goes. Tests may redirect it.
var debugOut io.Writer = os.Stderr

// debugLog prints timing and mask stats to stderr.
func (cv *Canvas) debugLog(stats debugStats) {
	if !cv.debug {
		return
	}
	fs := cv.ctx.Stats()
	total := stats.traverseTime + stats.maskTime + stats.drawTime
	_, _ = fmt.Fprintf(debugOut,
		"[softmask] traverse: %v | masks: %v | draw: %v | total: %v\n",
		stats.traverseTime, stats.maskTime, stats.drawTime, total)
	_, _ = fmt.Fprintf(debugOut,
		"[softmask] draws: %d | masked: %d | roots: %d | mask draws: %d | excluded: %d | materials: %d\n",
		stats.drawCount, stats.maskedCount, fs.RootsRendered, fs.NodesDrawn, fs.NodesExcluded, cv.ctx.NumMaterials())
}

// debugCheckDisposed panics with a descriptive message when a disposed
// element is used in a tree operation.
func debugCheckDisposed(e *Element, op string) {
	if e.disposed {
		panic(fmt.Sprintf("softmask debug: %s on disposed element %q (ID was %d)", op, e.Name, e.ID))
	}
}

// debugMaxTreeDepth is the element tree depth above which a warning is printed.
const debugMaxTreeDepth = 32

func debugCheckTreeDepth(e *Element) {
	depth := 0
	for p := e; p != nil; p = p.parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		_, _ = fmt.Fprintf(debugOut, "[softmask] warning: tree depth %d exceeds %d (element %q)\n",
			depth, debugMaxTreeDepth, e.Name)
	}
}
