package softmask

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// maskNode is one mask region. Only roots own a buffer and only the root's
// dirty flag is authoritative; see Context.Dirty.
type maskNode struct {
	owner  SceneElement
	active bool

	downsample            DownSample
	softness              float64
	alpha                 float64
	ignoreParent          bool
	mergeWithParentBucket bool

	parent   Handle
	children []Handle

	dirty bool

	buffer   *ebiten.Image
	bufferID uint32

	stencilDepth int
	channel      int // channel written by the last render, -1 when excluded

	// Geometry in element-local space.
	vertices []ebiten.Vertex
	indices  []uint16
	image    *ebiten.Image

	lastTransform [6]float64
	hasTransform  bool
}

// Attach creates an inactive mask node driven by el. Call Activate once the
// element is enabled. Defaults: DownSampleX1, softness 1, alpha 1.
func (c *Context) Attach(el SceneElement) Handle {
	h := c.nodes.alloc()
	n := c.nodes.get(h)
	n.owner = el
	n.downsample = DownSampleX1
	n.softness = 1
	n.alpha = 1
	n.dirty = true
	n.channel = -1
	return h
}

// IsValid reports whether h refers to a live node of this Context.
func (c *Context) IsValid(h Handle) bool {
	return c.nodes.get(h) != nil
}

// IsActive reports whether the node is attached and active.
func (c *Context) IsActive(h Handle) bool {
	n := c.nodes.get(h)
	return n != nil && n.active
}

// Owner returns the scene element driving the node.
func (c *Context) Owner(h Handle) SceneElement {
	if n := c.nodes.get(h); n != nil {
		return n.owner
	}
	return nil
}

// Parent returns the node's parent, or the zero Handle for a root.
func (c *Context) Parent(h Handle) Handle {
	if n := c.nodes.get(h); n != nil {
		return n.parent
	}
	return Handle{}
}

// Children returns the node's direct children. The returned slice MUST NOT be
// mutated by the caller.
func (c *Context) Children(h Handle) []Handle {
	if n := c.nodes.get(h); n != nil {
		return n.children
	}
	return nil
}

// IsRoot reports whether h is a live node without a parent.
func (c *Context) IsRoot(h Handle) bool {
	n := c.nodes.get(h)
	return n != nil && n.parent.IsZero()
}

// Root returns the root of the forest containing h. Returns the zero Handle
// for an invalid h.
func (c *Context) Root(h Handle) Handle {
	n := c.nodes.get(h)
	if n == nil {
		return Handle{}
	}
	// The walk is bounded by the number of live nodes; the resolver never
	// creates cycles, so the bound only guards against corrupted state.
	for i := 0; i <= c.nodes.live && !n.parent.IsZero(); i++ {
		p := c.nodes.get(n.parent)
		if p == nil {
			break
		}
		h, n = n.parent, p
	}
	return h
}

// Dirty reports whether the forest containing h must be re-rendered.
// Dirtiness is held by the root; every node in the forest reads it.
func (c *Context) Dirty(h Handle) bool {
	if n := c.nodes.get(c.Root(h)); n != nil {
		return n.dirty
	}
	return false
}

// MarkDirty flags the forest containing h for re-rendering on the next
// RenderDirtyRoots.
func (c *Context) MarkDirty(h Handle) {
	if n := c.nodes.get(c.Root(h)); n != nil {
		n.dirty = true
	}
}

// Buffer returns the mask buffer the node renders into. Non-root nodes share
// their root's buffer. Nil until the root is first rendered or acquired.
func (c *Context) Buffer(h Handle) *ebiten.Image {
	if n := c.nodes.get(c.Root(h)); n != nil {
		return n.buffer
	}
	return nil
}

// StencilDepth returns the node's stencil depth as of its last render.
func (c *Context) StencilDepth(h Handle) int {
	if n := c.nodes.get(h); n != nil {
		return n.stencilDepth
	}
	return 0
}

// Channel returns the buffer channel the node was written to by the last
// render of its root, or -1 if it was excluded or has not been rendered.
func (c *Context) Channel(h Handle) int {
	if n := c.nodes.get(h); n != nil {
		return n.channel
	}
	return -1
}

// MaskDepth returns the channel h occupies given the current forest shape:
// h's own stencil depth plus one per non-merged edge up to the root.
// Consumers use it to limit their interaction code.
func (c *Context) MaskDepth(h Handle) int {
	n := c.nodes.get(h)
	if n == nil {
		return -1
	}
	depth := hardMaskDepth(n.owner)
	for i := 0; i <= c.nodes.live && !n.parent.IsZero(); i++ {
		if !n.mergeWithParentBucket {
			depth++
		}
		p := c.nodes.get(n.parent)
		if p == nil {
			break
		}
		n = p
	}
	return depth
}

// --- Configuration ---

// Softness returns the edge softness in [0, 1].
func (c *Context) Softness(h Handle) float64 {
	if n := c.nodes.get(h); n != nil {
		return n.softness
	}
	return 0
}

// SetSoftness sets the edge softness, clamped to [0, 1].
func (c *Context) SetSoftness(h Handle, v float64) {
	n := c.nodes.get(h)
	if n == nil {
		return
	}
	v = clamp01(v)
	if n.softness == v {
		return
	}
	n.softness = v
	c.MarkDirty(h)
}

// Alpha returns the mask opacity in [0, 1].
func (c *Context) Alpha(h Handle) float64 {
	if n := c.nodes.get(h); n != nil {
		return n.alpha
	}
	return 0
}

// SetAlpha sets the mask opacity, clamped to [0, 1].
func (c *Context) SetAlpha(h Handle, v float64) {
	n := c.nodes.get(h)
	if n == nil {
		return
	}
	v = clamp01(v)
	if n.alpha == v {
		return
	}
	n.alpha = v
	c.MarkDirty(h)
}

// DownSample returns the node's buffer down-sampling setting.
func (c *Context) DownSample(h Handle) DownSample {
	if n := c.nodes.get(h); n != nil {
		return n.downsample
	}
	return DownSampleNone
}

// SetDownSample sets the buffer down-sampling. Only a root's setting decides
// the buffer size.
func (c *Context) SetDownSample(h Handle, d DownSample) {
	n := c.nodes.get(h)
	if n == nil || n.downsample == d {
		return
	}
	n.downsample = d
	c.MarkDirty(h)
}

// IgnoreParent reports whether the node always stays a root.
func (c *Context) IgnoreParent(h Handle) bool {
	if n := c.nodes.get(h); n != nil {
		return n.ignoreParent
	}
	return false
}

// SetIgnoreParent makes the node a root regardless of its ancestry.
func (c *Context) SetIgnoreParent(h Handle, v bool) {
	n := c.nodes.get(h)
	if n == nil || n.ignoreParent == v {
		return
	}
	n.ignoreParent = v
	c.MarkDirty(h)
	c.resolve(h)
}

// MergeWithParentBucket reports whether the node shares its parent's channel.
func (c *Context) MergeWithParentBucket(h Handle) bool {
	if n := c.nodes.get(h); n != nil {
		return n.mergeWithParentBucket
	}
	return false
}

// SetMergeWithParentBucket makes the node render into its parent's channel
// instead of the next one.
func (c *Context) SetMergeWithParentBucket(h Handle, v bool) {
	n := c.nodes.get(h)
	if n == nil || n.mergeWithParentBucket == v {
		return
	}
	n.mergeWithParentBucket = v
	c.MarkDirty(h)
	c.resolve(h)
}

// --- Geometry ---

// SetMesh replaces the node's mask geometry. Vertices are in element-local
// space; vertex alpha is the mask coverage before softness is applied.
func (c *Context) SetMesh(h Handle, vertices []ebiten.Vertex, indices []uint16) {
	n := c.nodes.get(h)
	if n == nil {
		return
	}
	n.vertices = vertices
	n.indices = indices
	c.MarkDirty(h)
}

// SetMaskImage sets the image sampled by the mask geometry, so a sprite's
// alpha shapes the mask. Nil samples a white pixel.
func (c *Context) SetMaskImage(h Handle, img *ebiten.Image) {
	n := c.nodes.get(h)
	if n == nil || n.image == img {
		return
	}
	n.image = img
	c.MarkDirty(h)
}

// HasGeometry reports whether the node has drawable mask geometry.
func (c *Context) HasGeometry(h Handle) bool {
	n := c.nodes.get(h)
	return n != nil && len(n.vertices) > 0 && len(n.indices) >= 3
}
