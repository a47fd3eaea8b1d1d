package softmask

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
)

// SceneElement is the host scene-graph object a mask node is attached to.
// Element implements it; other hosts can adapt their own node type.
type SceneElement interface {
	// ParentElement returns the element's parent, or nil at the top.
	ParentElement() SceneElement
	// ActiveInHierarchy reports whether the element and all its ancestors
	// are active.
	ActiveInHierarchy() bool
	// SoftMaskHandle returns the mask node driven by this element, or the
	// zero Handle.
	SoftMaskHandle() Handle
	// HardMaskDepth returns the number of enclosing stencil masking
	// constructs, not counting soft masks.
	HardMaskDepth() int
	// WorldTransform returns the element's affine transform in surface space.
	WorldTransform() [6]float64
	// Surface returns the drawing surface the element belongs to, or nil.
	Surface() Surface
}

// Surface is the render target a scene is drawn into.
type Surface interface {
	// Size returns the surface size in pixels.
	Size() (w, h int)
	// Camera returns the camera projecting the scene, or nil for an
	// overlay-style surface drawn in surface pixels.
	Camera() *Camera
}

// StencilListener is notified when a render changed the stencil depth of at
// least one node under root, so consumers of those nodes must refresh their
// stencil state and derived materials.
type StencilListener interface {
	StencilStateChanged(root Handle)
}

// StencilListenerFunc adapts a function to StencilListener.
type StencilListenerFunc func(root Handle)

// StencilStateChanged calls f(root).
func (f StencilListenerFunc) StencilStateChanged(root Handle) { f(root) }

// DefaultCacheWarnSize is the material cache size above which a warning is
// logged.
const DefaultCacheWarnSize = 256

// Options configures a Context. The zero value is usable.
type Options struct {
	// Logger receives diagnostics. Nil uses the package logger (see SetLogger).
	Logger *slog.Logger
	// Listener receives stencil-state notifications. May be nil.
	Listener StencilListener
	// CacheWarnSize overrides DefaultCacheWarnSize. Zero keeps the default.
	CacheWarnSize int
}

// Context owns every piece of soft-mask state: the node arena, the
// activation-ordered node list, the material cache, the buffer pool, and the
// per-camera projection history. All operations take place on one thread
// between frames; a Context is not safe for concurrent use.
type Context struct {
	nodes  nodeArena
	active []Handle // activation order

	cache    materialCache
	pool     bufferPool
	bufferID uint32

	prevVP map[*Camera]mgl32.Mat4

	log      *slog.Logger
	listener StencilListener
	warnSize int

	stats  FrameStats
	closed bool

	// scratch reused across renders
	buckets  [MaxDepth][]Handle
	commands []maskCommand
	verts    []ebiten.Vertex
}

// NewContext creates a Context.
func NewContext(opts Options) *Context {
	c := &Context{
		log:      opts.Logger,
		listener: opts.Listener,
		warnSize: opts.CacheWarnSize,
		prevVP:   make(map[*Camera]mgl32.Mat4),
	}
	if c.log == nil {
		c.log = Logger()
	}
	if c.warnSize <= 0 {
		c.warnSize = DefaultCacheWarnSize
	}
	c.cache.entries = make(map[cacheKey]*cacheEntry)
	return c
}

// SetListener replaces the stencil-state listener.
func (c *Context) SetListener(l StencilListener) {
	c.listener = l
}

// NumNodes returns the number of live (attached) mask nodes.
func (c *Context) NumNodes() int {
	return c.nodes.live
}

// Close destroys every node, disposes every cached material, and deallocates
// pooled buffers. The Context must not be used afterwards.
func (c *Context) Close() {
	if c.closed {
		return
	}
	for i := range c.nodes.slots {
		s := &c.nodes.slots[i]
		if s.live {
			c.Destroy(Handle{index: uint32(i), gen: s.gen})
		}
	}
	for key, e := range c.cache.entries {
		e.material.dispose()
		delete(c.cache.entries, key)
	}
	c.pool.Dispose()
	c.closed = true
}

func (c *Context) nextBufferID() uint32 {
	c.bufferID++
	if c.bufferID == 0 {
		c.bufferID = 1
	}
	return c.bufferID
}
