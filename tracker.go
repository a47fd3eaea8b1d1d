package softmask

import (
	"github.com/go-gl/mathgl/mgl32"
)

// SubmitFrameChanges is the first phase of a tick. It resets the frame
// counters and marks dirty every forest whose output may have changed since
// the last tick: nodes whose element moved, roots whose surface no longer
// matches their buffer, and roots viewed through a camera whose
// view-projection changed.
func (c *Context) SubmitFrameChanges() {
	c.stats = FrameStats{}

	for _, h := range c.active {
		n := c.nodes.get(h)
		if n == nil || n.owner == nil {
			continue
		}
		t := n.owner.WorldTransform()
		if !n.hasTransform || t != n.lastTransform {
			n.lastTransform = t
			n.hasTransform = true
			c.MarkDirty(h)
			c.stats.NodesMoved++
		}
		if n.parent.IsZero() && n.buffer != nil {
			sw, sh := surfaceSize(n.owner)
			bw, bh := bufferResolution(sw, sh, n.downsample)
			if b := n.buffer.Bounds(); b.Dx() != bw || b.Dy() != bh {
				n.dirty = true
			}
		}
	}

	c.submitCameraChanges()
}

// submitCameraChanges compares each camera's view-projection with the one
// seen last tick and dirties every root drawn through a changed camera.
// Cameras no longer referenced by any root are forgotten.
func (c *Context) submitCameraChanges() {
	var seen map[*Camera]bool
	for _, h := range c.active {
		n := c.nodes.get(h)
		if n == nil || !n.parent.IsZero() || n.owner == nil {
			continue
		}
		s := n.owner.Surface()
		if s == nil {
			continue
		}
		cam := s.Camera()
		if cam == nil {
			continue
		}
		if seen == nil {
			seen = make(map[*Camera]bool)
		}
		changed, ok := seen[cam]
		if !ok {
			vp := cam.ViewProjection()
			prev, had := c.prevVP[cam]
			changed = !had || !prev.ApproxEqual(vp)
			c.prevVP[cam] = vp
			seen[cam] = changed
			if changed {
				c.stats.CamerasChanged++
			}
		}
		if changed {
			n.dirty = true
		}
	}
	for cam := range c.prevVP {
		if !seen[cam] {
			delete(c.prevVP, cam)
		}
	}
}

// RenderDirtyRoots is the second phase of a tick. It renders every dirty
// active root in activation order and returns how many were rendered.
func (c *Context) RenderDirtyRoots() int {
	rendered := 0
	for i := 0; i < len(c.active); i++ {
		h := c.active[i]
		n := c.nodes.get(h)
		if n == nil || !n.parent.IsZero() || !n.dirty {
			continue
		}
		if c.render(h) {
			rendered++
		}
	}
	return rendered
}

// Tick runs SubmitFrameChanges followed by RenderDirtyRoots.
func (c *Context) Tick() int {
	c.SubmitFrameChanges()
	return c.RenderDirtyRoots()
}

// cameraViewProjections returns the recorded view-projection of every camera
// seen last tick. Intended for tests.
func (c *Context) cameraViewProjections() map[*Camera]mgl32.Mat4 {
	return c.prevVP
}
