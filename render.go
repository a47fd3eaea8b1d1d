package softmask

import (
	"image/color"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
)

// clearColors[s] is the clear color of a buffer whose root sits at stencil
// depth s: channels below s are fully visible, the rest are empty.
var clearColors = [MaxDepth + 1]color.RGBA{
	{0, 0, 0, 0},
	{255, 0, 0, 0},
	{255, 255, 0, 0},
	{255, 255, 255, 0},
	{255, 255, 255, 255},
}

// channelVectors are the one-hot Channel uniforms, one per buffer channel.
var channelVectors = [MaxDepth][4]float32{
	{1, 0, 0, 0},
	{0, 1, 0, 0},
	{0, 0, 1, 0},
	{0, 0, 0, 1},
}

// maskCommand is one node's mask geometry, already in buffer pixels.
type maskCommand struct {
	vertStart, vertEnd int
	indices            []uint16
	image              *ebiten.Image
	softness           float32
	alpha              float32
	channel            int
}

// --- Mask shader ---
// Writes coverage into a single channel. Drawn with maxBlend so that the
// other channels, which receive zero, keep their contents.

const maskShaderSrc = `//kage:unit pixels
package main

var Softness float
var Alpha float
var Channel vec4

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	a := imageSrc0At(src).a * color.a
	if Softness > 0.0 {
		a = smoothstep(0.5-Softness*0.5, 0.5+Softness*0.5, a)
	} else {
		a = step(0.5, a)
	}
	return Channel * (a * Alpha)
}
`

var maskShader *ebiten.Shader

func ensureMaskShader() *ebiten.Shader {
	if maskShader == nil {
		s, err := ebiten.NewShader([]byte(maskShaderSrc))
		if err != nil {
			panic("softmask: failed to compile mask shader: " + err.Error())
		}
		maskShader = s
	}
	return maskShader
}

// whitePixel is sampled by untextured mask geometry.
var whitePixel *ebiten.Image

func ensureWhitePixel() *ebiten.Image {
	if whitePixel == nil {
		whitePixel = ebiten.NewImage(1, 1)
		whitePixel.Fill(color.White)
	}
	return whitePixel
}

// hardMaskDepth returns el's stencil depth, capped at MaxDepth.
func hardMaskDepth(el SceneElement) int {
	if el == nil {
		return 0
	}
	return min(max(el.HardMaskDepth(), 0), MaxDepth)
}

// surfaceViewProjection returns the projection from surface space to clip
// space: the camera's view-projection when the surface has a camera,
// otherwise an orthographic projection over the surface pixels.
func surfaceViewProjection(s Surface) mgl32.Mat4 {
	if s == nil {
		return mgl32.Ident4()
	}
	if cam := s.Camera(); cam != nil {
		return cam.ViewProjection()
	}
	w, h := s.Size()
	return mgl32.Ortho2D(0, float32(w), float32(h), 0)
}

// render redraws the forest rooted at root into the root's buffer. Returns
// false when nothing was drawn because the root has no surface.
func (c *Context) render(root Handle) bool {
	n := c.nodes.get(root)
	if n == nil || !n.active {
		return false
	}
	if !c.ensureBuffer(root) {
		c.log.Debug("softmask: root has no surface", slog.Any("root", root))
		return false
	}
	// ensureBuffer may have grown the pool map but never the arena, so n
	// stays valid.
	stencil := hardMaskDepth(n.owner)
	used := c.bucketDepths(root, stencil, &c.buckets)

	buf := n.buffer
	buf.Fill(clearColors[stencil])
	bw, bh := buf.Bounds().Dx(), buf.Bounds().Dy()

	vp := surfaceViewProjection(n.owner.Surface())

	c.clearChannels(root)
	c.commands = c.commands[:0]
	c.verts = c.verts[:0]
	stencilChanged := false
	participants := 0

	for d := 0; d < used; d++ {
		for _, h := range c.buckets[d] {
			m := c.nodes.get(h)
			if m == nil {
				continue
			}
			s := hardMaskDepth(m.owner)
			if s != m.stencilDepth {
				m.stencilDepth = s
				stencilChanged = true
			}
			// A node under more hard masks than its root may run out of
			// channels even inside the bucket cap.
			if s+d >= MaxDepth {
				continue
			}
			participants++
			m.channel = s + d
			m.dirty = false
			if len(m.vertices) == 0 || len(m.indices) < 3 {
				c.log.Error("softmask: mask node has no geometry", slog.Any("node", h))
				continue
			}
			c.appendMaskCommand(m, vp, bw, bh)
		}
	}
	c.submitMaskCommands(buf)

	n.dirty = false
	c.stats.RootsRendered++
	c.stats.NodesDrawn += len(c.commands)
	c.stats.NodesExcluded += c.forestSize(root) - participants

	if stencilChanged && c.listener != nil {
		c.listener.StencilStateChanged(root)
	}
	return true
}

// clearChannels resets the channel of every node in the forest so excluded
// nodes report -1 after the render.
func (c *Context) clearChannels(root Handle) {
	c.walkForest(root, func(n *maskNode) {
		n.channel = -1
	})
}

// forestSize returns the number of nodes in the forest rooted at root.
func (c *Context) forestSize(root Handle) int {
	count := 0
	c.walkForest(root, func(*maskNode) { count++ })
	return count
}

// walkForest calls fn for root and every descendant, depth-first.
func (c *Context) walkForest(root Handle, fn func(n *maskNode)) {
	n := c.nodes.get(root)
	if n == nil {
		return
	}
	fn(n)
	for _, ch := range n.children {
		c.walkForest(ch, fn)
	}
}

// appendMaskCommand transforms m's geometry to buffer pixels and records a
// draw command.
func (c *Context) appendMaskCommand(m *maskNode, vp mgl32.Mat4, bw, bh int) {
	mvp := vp.Mul4(affineToMat4(m.owner.WorldTransform()))
	hw, hh := float32(bw)*0.5, float32(bh)*0.5

	start := len(c.verts)
	for _, v := range m.vertices {
		clip := mvp.Mul4x1(mgl32.Vec4{v.DstX, v.DstY, 0, 1})
		w := clip.W()
		if w == 0 {
			w = 1
		}
		out := v
		out.DstX = (clip.X()/w + 1) * hw
		out.DstY = (1 - clip.Y()/w) * hh
		if m.image == nil {
			out.SrcX, out.SrcY = 0.5, 0.5
		}
		c.verts = append(c.verts, out)
	}
	c.commands = append(c.commands, maskCommand{
		vertStart: start,
		vertEnd:   len(c.verts),
		indices:   m.indices,
		image:     m.image,
		softness:  float32(m.softness),
		alpha:     float32(m.alpha),
		channel:   m.channel,
	})
}

// submitMaskCommands draws every accumulated command into buf.
func (c *Context) submitMaskCommands(buf *ebiten.Image) {
	if len(c.commands) == 0 {
		return
	}
	shader := ensureMaskShader()
	var op ebiten.DrawTrianglesShaderOptions
	op.Blend = maxBlend
	for i := range c.commands {
		cmd := &c.commands[i]
		src := cmd.image
		if src == nil {
			src = ensureWhitePixel()
		}
		op.Images[0] = src
		ch := channelVectors[min(max(cmd.channel, 0), MaxDepth-1)]
		op.Uniforms = map[string]any{
			"Softness": cmd.softness,
			"Alpha":    cmd.alpha,
			"Channel":  ch[:],
		}
		buf.DrawTrianglesShader(c.verts[cmd.vertStart:cmd.vertEnd], cmd.indices, shader, &op)
	}
}

// RenderRoot renders one root immediately, regardless of its dirty flag.
// Reports false if h is not an active root or has no surface.
func (c *Context) RenderRoot(h Handle) bool {
	if !c.IsRoot(h) {
		return false
	}
	return c.render(h)
}
