package softmask

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// elementIDCounter is a plain counter (no atomic; softmask is single-threaded).
var elementIDCounter uint32

func nextElementID() uint32 {
	elementIDCounter++
	return elementIDCounter
}

// Element is a node of the reference host scene graph. It can draw an image
// or a mesh, drive a soft mask for its descendants, and be masked itself.
// Every element of one tree must use the same Context.
type Element struct {
	// Identity
	ID   uint32
	Name string

	// Hierarchy
	parent   *Element
	children []*Element

	// Transform (local)
	X, Y         float64
	ScaleX       float64
	ScaleY       float64
	Rotation     float64
	SkewX, SkewY float64
	PivotX       float64
	PivotY       float64

	// Computed during Canvas.Draw
	worldTransform [6]float64
	worldAlpha     float64
	transformDirty bool

	Alpha   float64
	visible bool

	// Content. An element with neither Image nor Vertices draws nothing.
	Image    *ebiten.Image
	Vertices []ebiten.Vertex
	Indices  []uint16
	Color    Color
	Material *Material

	// HardMask marks the element as a stencil masking construct. Descendants
	// report it in HardMaskDepth.
	HardMask bool

	UserData any

	// canvas is set on a Canvas root only; descendants find it by walking up.
	canvas *Canvas

	// Soft mask driven by this element.
	maskCtx *Context
	mask    Handle

	// Masked consumer state.
	maskable    bool
	Interaction InteractionCode
	link        MaterialLink
	linkCtx     *Context
	maskErr     error

	transformedVerts []ebiten.Vertex
	disposed         bool
}

// NewElement creates a visible element with an identity transform.
func NewElement(name string) *Element {
	return &Element{
		ID:             nextElementID(),
		Name:           name,
		ScaleX:         1,
		ScaleY:         1,
		Alpha:          1,
		visible:        true,
		Color:          ColorWhite,
		Interaction:    InteractionInsideAll,
		transformDirty: true,
	}
}

// NewSprite creates an element that draws img.
func NewSprite(name string, img *ebiten.Image) *Element {
	e := NewElement(name)
	e.Image = img
	return e
}

// NewMeshElement creates an element that draws the given triangles, sampling
// img or, when img is nil, a white pixel tinted by Color.
func NewMeshElement(name string, img *ebiten.Image, vertices []ebiten.Vertex, indices []uint16) *Element {
	e := NewElement(name)
	e.Image = img
	e.Vertices = vertices
	e.Indices = indices
	return e
}

// --- SceneElement ---

// ParentElement implements SceneElement.
func (e *Element) ParentElement() SceneElement {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

// ActiveInHierarchy reports whether e and all its ancestors are visible.
func (e *Element) ActiveInHierarchy() bool {
	for p := e; p != nil; p = p.parent {
		if !p.visible || p.disposed {
			return false
		}
	}
	return true
}

// SoftMaskHandle returns the mask node driven by e, or the zero Handle.
func (e *Element) SoftMaskHandle() Handle {
	return e.mask
}

// HardMaskDepth returns the number of ancestors marked HardMask.
func (e *Element) HardMaskDepth() int {
	depth := 0
	for p := e.parent; p != nil; p = p.parent {
		if p.HardMask {
			depth++
		}
	}
	return depth
}

// WorldTransform returns e's affine transform in world space, computed from
// the current local transforms of e and its ancestors.
func (e *Element) WorldTransform() [6]float64 {
	local := computeLocalTransform(e)
	if e.parent == nil {
		return local
	}
	return multiplyAffine(e.parent.WorldTransform(), local)
}

// Surface returns the Canvas e belongs to, or nil if it is not attached to one.
func (e *Element) Surface() Surface {
	if cv := e.Canvas(); cv != nil {
		return cv
	}
	return nil
}

// Canvas returns the Canvas e belongs to, or nil.
func (e *Element) Canvas() *Canvas {
	root := e
	for root.parent != nil {
		root = root.parent
	}
	return root.canvas
}

// --- Visibility ---

// Visible reports the element's own visibility flag.
func (e *Element) Visible() bool {
	return e.visible
}

// SetVisible shows or hides e. Soft masks in the subtree are activated or
// deactivated to follow.
func (e *Element) SetVisible(v bool) {
	if e.visible == v {
		return
	}
	e.visible = v
	e.syncMasks()
}

// --- Tree manipulation ---

// AddChild appends child to e's children.
// If child already has a parent, it is removed from that parent first.
// Panics if child is nil or child is an ancestor of e (cycle).
func (e *Element) AddChild(child *Element) {
	if child == nil {
		panic("softmask: cannot add nil child")
	}
	if globalDebug {
		debugCheckDisposed(e, "AddChild (parent)")
		debugCheckDisposed(child, "AddChild (child)")
	}
	if isElementAncestor(child, e) {
		panic("softmask: adding child would create a cycle")
	}
	if child.parent != nil {
		child.parent.removeChildByPtr(child)
	}
	child.parent = e
	e.children = append(e.children, child)
	markSubtreeDirty(child)
	child.syncMasks()
	if globalDebug {
		debugCheckTreeDepth(child)
	}
}

// RemoveChild detaches child from e.
// Panics if child's parent is not e.
func (e *Element) RemoveChild(child *Element) {
	if globalDebug {
		debugCheckDisposed(e, "RemoveChild (parent)")
		debugCheckDisposed(child, "RemoveChild (child)")
	}
	if child.parent != e {
		panic("softmask: child's parent is not this element")
	}
	e.removeChildByPtr(child)
	child.parent = nil
	markSubtreeDirty(child)
	child.syncMasks()
}

// RemoveFromParent detaches e from its parent. No-op without a parent.
func (e *Element) RemoveFromParent() {
	if e.parent == nil {
		return
	}
	e.parent.RemoveChild(e)
}

// Parent returns e's parent element, or nil.
func (e *Element) Parent() *Element {
	return e.parent
}

// Children returns the child list. The returned slice MUST NOT be mutated by
// the caller.
func (e *Element) Children() []*Element {
	return e.children
}

// NumChildren returns the number of children.
func (e *Element) NumChildren() int {
	return len(e.children)
}

// --- Soft mask ---

// EnableSoftMask makes e drive a soft mask node in ctx and returns its
// handle. The node is active whenever e is active in the hierarchy. Calling
// it again returns the existing handle.
func (e *Element) EnableSoftMask(ctx *Context) Handle {
	if !e.mask.IsZero() {
		return e.mask
	}
	e.maskCtx = ctx
	e.mask = ctx.Attach(e)
	if e.ActiveInHierarchy() {
		ctx.Activate(e.mask)
	}
	return e.mask
}

// DisableSoftMask destroys e's soft mask node. Masks below e are re-parented
// to the nearest mask above it.
func (e *Element) DisableSoftMask() {
	if e.mask.IsZero() {
		return
	}
	e.maskCtx.Destroy(e.mask)
	e.mask = Handle{}
	e.maskCtx = nil
}

// SoftMask returns e's mask node handle and its Context, or the zero Handle
// and nil.
func (e *Element) SoftMask() (Handle, *Context) {
	return e.mask, e.maskCtx
}

// SetMaskShape replaces the geometry of e's soft mask. Vertices are in e's
// local space. No-op without a soft mask.
func (e *Element) SetMaskShape(vertices []ebiten.Vertex, indices []uint16) {
	if e.mask.IsZero() {
		return
	}
	e.maskCtx.SetMesh(e.mask, vertices, indices)
}

// syncMasks brings every mask node and consumer link in e's subtree in line
// with the subtree's current visibility and ancestry. Parents are visited
// before children so that newly activated nodes find their parents.
func (e *Element) syncMasks() {
	active := e.ActiveInHierarchy()
	if !e.mask.IsZero() {
		switch {
		case !active:
			e.maskCtx.Deactivate(e.mask)
		case e.maskCtx.IsActive(e.mask):
			e.maskCtx.AncestryChanged(e.mask)
		default:
			e.maskCtx.Activate(e.mask)
		}
	}
	if !active {
		e.releaseLink()
	}
	for _, child := range e.children {
		child.syncMasks()
	}
}

// --- Masked consumer ---

// SetMaskable sets whether e is drawn through the nearest soft mask above it.
func (e *Element) SetMaskable(v bool) {
	if e.maskable == v {
		return
	}
	e.maskable = v
	if !v {
		e.releaseLink()
	}
}

// IsMaskable reports whether e is drawn through soft masks.
func (e *Element) IsMaskable() bool {
	return e.maskable
}

// MaskMaterial returns the derived material e was last drawn with, or nil.
func (e *Element) MaskMaterial() *Material {
	return e.link.Material()
}

// MaskError returns the configuration error from e's last masked draw, if any.
func (e *Element) MaskError() error {
	return e.maskErr
}

// maskingNode returns the nearest active soft mask above e in ctx.
func (e *Element) maskingNode(ctx *Context) Handle {
	for p := e.parent; p != nil; p = p.parent {
		if p.maskCtx == ctx && ctx.IsActive(p.mask) {
			return p.mask
		}
	}
	return Handle{}
}

// releaseLink drops e's derived material reference.
func (e *Element) releaseLink() {
	if e.linkCtx != nil {
		e.linkCtx.ReleaseMaterial(&e.link)
		e.linkCtx = nil
	}
}

// --- Disposal ---

// Dispose removes e from its parent, destroys its soft mask and material
// link, and recursively disposes all descendants.
func (e *Element) Dispose() {
	if e.disposed {
		return
	}
	e.RemoveFromParent()
	e.dispose()
}

func (e *Element) dispose() {
	e.disposed = true
	e.DisableSoftMask()
	e.releaseLink()
	e.maskErr = nil
	for _, child := range e.children {
		child.parent = nil
		child.dispose()
	}
	e.ID = 0
	e.children = nil
	e.parent = nil
	e.canvas = nil
	e.Image = nil
	e.Vertices = nil
	e.Indices = nil
	e.transformedVerts = nil
	e.UserData = nil
}

// IsDisposed reports whether e has been disposed.
func (e *Element) IsDisposed() bool {
	return e.disposed
}

// --- Helpers ---

// isElementAncestor reports whether candidate is e or an ancestor of e.
func isElementAncestor(candidate, e *Element) bool {
	for p := e; p != nil; p = p.parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from e.children without clearing
// child.parent. Uses copy+nil so the backing array holds no stale pointer.
func (e *Element) removeChildByPtr(child *Element) {
	for i, c := range e.children {
		if c == child {
			copy(e.children[i:], e.children[i+1:])
			e.children[len(e.children)-1] = nil
			e.children = e.children[:len(e.children)-1]
			return
		}
	}
}

// markSubtreeDirty sets transformDirty on e and all its descendants.
func markSubtreeDirty(e *Element) {
	e.transformDirty = true
	for _, child := range e.children {
		markSubtreeDirty(child)
	}
}

// ensureTransformedVerts grows e's transformedVerts buffer to fit
// len(e.Vertices), never shrinking. Returns the resliced buffer.
func ensureTransformedVerts(e *Element) []ebiten.Vertex {
	need := len(e.Vertices)
	if cap(e.transformedVerts) < need {
		e.transformedVerts = make([]ebiten.Vertex, need)
	}
	e.transformedVerts = e.transformedVerts[:need]
	return e.transformedVerts
}
