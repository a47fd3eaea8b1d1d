package softmask

import (
	"image"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

const defaultItemCap = 256

// Canvas is the reference host surface: it owns an element tree, an optional
// camera, and drives the soft-mask tick of its Context once per Draw.
type Canvas struct {
	ctx    *Context
	root   *Element
	width  int
	height int
	camera *Camera
	debug  bool

	// OnStencilStateChanged, if set, is called after a render changed the
	// stencil depth of a node under root.
	OnStencilStateChanged func(root Handle)

	next           StencilListener
	stencilChanges int

	rtPool bufferPool
	items  []*Element

	maskRect [4]float32
	opts     ebiten.DrawImageOptions
	triOpts  ebiten.DrawTrianglesOptions
	rectOpts ebiten.DrawRectShaderOptions
}

// NewCanvas creates a canvas of the given size bound to ctx. The canvas
// installs itself as ctx's stencil listener and forwards notifications to
// the listener ctx had before.
func NewCanvas(ctx *Context, width, height int) *Canvas {
	cv := &Canvas{
		ctx:    ctx,
		width:  width,
		height: height,
		next:   ctx.listener,
		items:  make([]*Element, 0, defaultItemCap),
	}
	cv.root = NewElement("root")
	cv.root.canvas = cv
	ctx.SetListener(cv)
	return cv
}

// Context returns the soft-mask Context the canvas drives.
func (cv *Canvas) Context() *Context {
	return cv.ctx
}

// Root returns the canvas's root element.
func (cv *Canvas) Root() *Element {
	return cv.root
}

// Size implements Surface. With a camera it is the viewport size.
func (cv *Canvas) Size() (w, h int) {
	if cv.camera != nil {
		return int(cv.camera.Viewport.Width), int(cv.camera.Viewport.Height)
	}
	return cv.width, cv.height
}

// SetSize resizes the canvas. Mask buffers follow on the next Draw.
func (cv *Canvas) SetSize(w, h int) {
	cv.width, cv.height = w, h
}

// Camera implements Surface.
func (cv *Canvas) Camera() *Camera {
	return cv.camera
}

// SetCamera sets the camera the canvas is viewed through. Nil draws in
// canvas pixels.
func (cv *Canvas) SetCamera(cam *Camera) {
	cv.camera = cam
}

// SetDebugMode enables or disables debug mode. When enabled, disposed-element
// access panics, deep trees are reported, and per-frame timing stats are
// printed to stderr.
func (cv *Canvas) SetDebugMode(enabled bool) {
	cv.debug = enabled
	globalDebug = enabled
}

// globalDebug mirrors the most recently set Canvas debug flag so that element
// operations (which lack a Canvas pointer) can check it cheaply.
var globalDebug bool

// StencilStateChanged implements StencilListener.
func (cv *Canvas) StencilStateChanged(root Handle) {
	cv.stencilChanges++
	if cv.OnStencilStateChanged != nil {
		cv.OnStencilStateChanged(root)
	}
	if cv.next != nil {
		cv.next.StencilStateChanged(root)
	}
}

// StencilChanges returns the number of stencil-state notifications received.
func (cv *Canvas) StencilChanges() int {
	return cv.stencilChanges
}

// Update advances the camera by dt seconds.
func (cv *Canvas) Update(dt float32) {
	if cv.camera != nil {
		cv.camera.update(dt)
	}
}

// Draw runs one soft-mask tick and draws the element tree into screen.
//
// Order: world transforms, SubmitFrameChanges, collect drawable elements and
// resolve their derived materials, RenderDirtyRoots, then draw.
func (cv *Canvas) Draw(screen *ebiten.Image) {
	var stats debugStats
	var t0 time.Time
	if cv.debug {
		t0 = time.Now()
	}

	updateWorldTransform(cv.root, identityTransform, 1.0, false)
	cv.ctx.SubmitFrameChanges()
	cv.items = cv.items[:0]
	cv.collect(cv.root)

	if cv.debug {
		stats.traverseTime = time.Since(t0)
		t0 = time.Now()
	}

	cv.ctx.RenderDirtyRoots()

	if cv.debug {
		stats.maskTime = time.Since(t0)
		t0 = time.Now()
	}

	v := cv.viewFor(screen, cv.camera)
	stats.maskedCount = cv.drawItems(v)

	if cv.debug {
		stats.drawTime = time.Since(t0)
		stats.drawCount = len(cv.items)
		cv.debugLog(stats)
	}
}

// DrawPreview draws the element tree into screen through cam, sampling the
// mask buffers as they were last rendered for the canvas's own view. No tick
// runs. Areas outside a mask buffer's coverage are drawn as masked, so
// zooming cam out shows where the buffers end. A nil cam previews through the
// canvas camera.
func (cv *Canvas) DrawPreview(screen *ebiten.Image, cam *Camera) {
	if cam == nil {
		cam = cv.camera
	}
	updateWorldTransform(cv.root, identityTransform, 1.0, false)
	cv.items = cv.items[:0]
	cv.collect(cv.root)

	v := cv.viewFor(screen, cam)
	v.preview = true
	cv.drawItems(v)
}

// canvasView is where one Draw or DrawPreview lands.
type canvasView struct {
	target     *ebiten.Image
	view       [6]float64 // world to target pixels
	offX, offY float64    // target origin in screen pixels
	w, h       int        // target size
	// surfaceToTarget maps canvas surface pixels, the space mask buffers
	// cover, to target pixels.
	surfaceToTarget [6]float64
	preview         bool
}

// surfaceView returns the transform from world space to surface pixels for
// cam, or the identity when cam is nil.
func (cv *Canvas) surfaceView(cam *Camera) [6]float64 {
	if cam == nil {
		return identityTransform
	}
	vp := cam.Viewport
	return multiplyAffine([6]float64{1, 0, 0, 1, -vp.X, -vp.Y}, cam.computeViewMatrix())
}

// viewFor returns the view drawing through cam into screen.
func (cv *Canvas) viewFor(screen *ebiten.Image, cam *Camera) canvasView {
	v := canvasView{target: screen, view: cv.surfaceView(cam)}
	v.w, v.h = cv.width, cv.height
	if cam != nil {
		vp := cam.Viewport
		v.offX, v.offY = vp.X, vp.Y
		v.w, v.h = int(vp.Width), int(vp.Height)
		v.target = screen.SubImage(image.Rect(
			int(vp.X), int(vp.Y),
			int(vp.X+vp.Width), int(vp.Y+vp.Height),
		)).(*ebiten.Image)
	}
	v.surfaceToTarget = multiplyAffine(v.view, invertAffine(cv.surfaceView(cv.camera)))
	return v
}

// drawItems draws every collected element through v and returns the number
// drawn masked.
func (cv *Canvas) drawItems(v canvasView) int {
	masked := 0
	for _, e := range cv.items {
		m := cv.materialFor(e)
		if m == nil || !m.IsDerived() || m.MaskBuffer() == nil {
			cv.drawElement(v.target, e, cv.screenTransform(v, e), e.Color)
			continue
		}
		masked++
		cv.drawMasked(v, e, m)
	}
	return masked
}

// screenTransform returns e's transform into screen pixels under v.
func (cv *Canvas) screenTransform(v canvasView, e *Element) [6]float64 {
	t := multiplyAffine(v.view, e.worldTransform)
	t[4] += v.offX
	t[5] += v.offY
	return t
}

// maskCoverage returns the axis-aligned bounds, in target pixels, of a
// w x h surface mapped through surfaceToTarget.
func maskCoverage(surfaceToTarget [6]float64, w, h int) Rect {
	fw, fh := float32(w), float32(h)
	corners := [4]ebiten.Vertex{
		{DstX: 0, DstY: 0}, {DstX: fw, DstY: 0},
		{DstX: fw, DstY: fh}, {DstX: 0, DstY: fh},
	}
	var out [4]ebiten.Vertex
	transformVertices(corners[:], out[:], surfaceToTarget, ColorWhite)
	return computeMeshAABB(out[:])
}

// collect appends visible elements with content in draw order and resolves
// the derived material of each maskable one.
func (cv *Canvas) collect(e *Element) {
	if !e.visible {
		return
	}
	if e.Image != nil || len(e.Vertices) > 0 {
		cv.items = append(cv.items, e)
		cv.resolveMaterial(e)
	}
	for _, child := range e.children {
		cv.collect(child)
	}
}

// resolveMaterial acquires (or releases) the derived material for e.
func (cv *Canvas) resolveMaterial(e *Element) {
	if !e.maskable {
		e.releaseLink()
		return
	}
	h := e.maskingNode(cv.ctx)
	if h.IsZero() {
		e.releaseLink()
		e.maskErr = nil
		return
	}
	if e.linkCtx != nil && e.linkCtx != cv.ctx {
		e.releaseLink()
	}
	_, err := cv.ctx.Acquire(&e.link, e.Material, h, e.Interaction, cv.ctx.MaskDepth(h), e.HardMaskDepth() > 0)
	e.maskErr = err
	if e.link.Held() {
		e.linkCtx = cv.ctx
	}
}

// materialFor returns the material e is drawn with this frame.
func (cv *Canvas) materialFor(e *Element) *Material {
	if m := e.link.Material(); m != nil {
		return m
	}
	if e.Material != nil {
		return e.Material
	}
	return DefaultMaterial
}

// drawElement draws e's content into dst with the given transform and tint.
func (cv *Canvas) drawElement(dst *ebiten.Image, e *Element, transform [6]float64, tint Color) {
	a := tint.A * e.worldAlpha
	if len(e.Vertices) > 0 {
		if len(e.Indices) < 3 {
			return
		}
		verts := ensureTransformedVerts(e)
		transformVertices(e.Vertices, verts, transform, Color{tint.R, tint.G, tint.B, a})
		src := e.Image
		if src == nil {
			src = ensureWhitePixel()
		}
		cv.triOpts = ebiten.DrawTrianglesOptions{}
		dst.DrawTriangles(verts, e.Indices, src, &cv.triOpts)
		return
	}
	cv.opts = ebiten.DrawImageOptions{}
	setGeoM(&cv.opts.GeoM, transform)
	cv.opts.ColorScale.Scale(float32(tint.R*a), float32(tint.G*a), float32(tint.B*a), float32(a))
	dst.DrawImage(e.Image, &cv.opts)
}

// drawMasked draws e through derived material m.
//
// DrawRectShader requires every source image to be the same size, so the
// element and the mask buffer are first drawn into two target-sized
// offscreen images; the masked variant shader then combines them.
func (cv *Canvas) drawMasked(v canvasView, e *Element, m *Material) {
	if v.w <= 0 || v.h <= 0 {
		return
	}
	shader := m.Shader()
	if shader == nil {
		cv.drawElement(v.target, e, cv.screenTransform(v, e), e.Color)
		return
	}

	local := multiplyAffine(v.view, e.worldTransform)

	content := cv.rtPool.Acquire(v.w, v.h)
	tint := e.Color
	variant, _ := m.Variant()
	text := variant == VariantText
	if text {
		// The text variant applies the tint itself.
		cv.drawElement(content, e, local, ColorWhite)
	} else {
		cv.drawElement(content, e, local, tint)
	}

	sw, sh := cv.Size()
	maskRT := cv.rtPool.Acquire(v.w, v.h)
	buf := m.MaskBuffer()
	bb := buf.Bounds()
	bufToTarget := multiplyAffine(v.surfaceToTarget,
		[6]float64{float64(sw) / float64(bb.Dx()), 0, 0, float64(sh) / float64(bb.Dy()), 0, 0})
	cv.opts = ebiten.DrawImageOptions{}
	setGeoM(&cv.opts.GeoM, bufToTarget)
	cv.opts.Filter = ebiten.FilterLinear
	cv.opts.Blend = ebiten.BlendCopy
	maskRT.DrawImage(buf, &cv.opts)

	r := maskCoverage(v.surfaceToTarget, sw, sh)
	cv.maskRect = [4]float32{float32(r.X), float32(r.Y), float32(r.Width), float32(r.Height)}
	preview := float32(0)
	if v.preview {
		preview = 1
	}
	cv.rectOpts = ebiten.DrawRectShaderOptions{}
	cv.rectOpts.GeoM.Translate(v.offX, v.offY)
	cv.rectOpts.Images[0] = content
	cv.rectOpts.Images[1] = maskRT
	cv.rectOpts.Uniforms = m.drawUniforms(cv.maskRect[:], preview)
	if text {
		a := tint.A * e.worldAlpha
		cv.rectOpts.ColorScale.Scale(float32(tint.R*a), float32(tint.G*a), float32(tint.B*a), float32(a))
	}
	v.target.DrawRectShader(v.w, v.h, shader, &cv.rectOpts)

	cv.rtPool.Release(content)
	cv.rtPool.Release(maskRT)
}

// Close releases the canvas's offscreen images and restores ctx's previous
// stencil listener.
func (cv *Canvas) Close() {
	cv.rtPool.Dispose()
	if cv.ctx.listener == StencilListener(cv) {
		cv.ctx.SetListener(cv.next)
	}
}

// setGeoM loads an affine matrix into g.
func setGeoM(g *ebiten.GeoM, m [6]float64) {
	g.SetElement(0, 0, m[0])
	g.SetElement(0, 1, m[2])
	g.SetElement(0, 2, m[4])
	g.SetElement(1, 0, m[1])
	g.SetElement(1, 1, m[3])
	g.SetElement(1, 2, m[5])
}
