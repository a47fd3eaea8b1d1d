package softmask

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// TweenGroup animates up to 2 float64 fields on an Element simultaneously.
// Create one via TweenPosition or TweenRotation and call Update(dt) each
// frame. If the target element is disposed, the group stops immediately.
//
// There is no global animation manager; users call Update themselves.
type TweenGroup struct {
	tweens [2]*gween.Tween
	count  int
	fields [2]*float64
	target *Element
	Done   bool
}

// Update advances all tweens by dt seconds, writes values to the target
// fields, and marks the element dirty.
func (g *TweenGroup) Update(dt float32) {
	if g.Done {
		return
	}
	if g.target != nil && g.target.IsDisposed() {
		g.Done = true
		return
	}

	allDone := true
	for i := 0; i < g.count; i++ {
		val, finished := g.tweens[i].Update(dt)
		*g.fields[i] = float64(val)
		if !finished {
			allDone = false
		}
	}
	g.Done = allDone

	if g.target != nil {
		g.target.MarkDirty()
	}
}

// TweenPosition animates e.X and e.Y to the given coordinates. Moving a mask
// element re-renders its mask on the next tick.
func TweenPosition(e *Element, toX, toY float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := &TweenGroup{count: 2, target: e}
	g.tweens[0] = gween.New(float32(e.X), float32(toX), duration, fn)
	g.tweens[1] = gween.New(float32(e.Y), float32(toY), duration, fn)
	g.fields[0] = &e.X
	g.fields[1] = &e.Y
	return g
}

// TweenRotation animates e.Rotation to the target value.
func TweenRotation(e *Element, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := &TweenGroup{count: 1, target: e}
	g.tweens[0] = gween.New(float32(e.Rotation), float32(to), duration, fn)
	g.fields[0] = &e.Rotation
	return g
}

// MaskProperty selects the mask node parameter a MaskTween drives.
type MaskProperty uint8

const (
	MaskSoftness MaskProperty = iota
	MaskAlpha
)

// MaskTween animates a mask node's softness or alpha through the Context
// setters, so every step marks the forest dirty. If the node is destroyed the
// tween stops.
type MaskTween struct {
	ctx   *Context
	node  Handle
	prop  MaskProperty
	tween *gween.Tween
	Done  bool
}

// TweenSoftness animates the softness of node h to the target value.
func TweenSoftness(ctx *Context, h Handle, to float64, duration float32, fn ease.TweenFunc) *MaskTween {
	return newMaskTween(ctx, h, MaskSoftness, ctx.Softness(h), to, duration, fn)
}

// TweenMaskAlpha animates the alpha of node h to the target value.
func TweenMaskAlpha(ctx *Context, h Handle, to float64, duration float32, fn ease.TweenFunc) *MaskTween {
	return newMaskTween(ctx, h, MaskAlpha, ctx.Alpha(h), to, duration, fn)
}

func newMaskTween(ctx *Context, h Handle, prop MaskProperty, from, to float64, duration float32, fn ease.TweenFunc) *MaskTween {
	return &MaskTween{
		ctx:   ctx,
		node:  h,
		prop:  prop,
		tween: gween.New(float32(from), float32(to), duration, fn),
	}
}

// Update advances the tween by dt seconds and writes the value to the node.
func (t *MaskTween) Update(dt float32) {
	if t.Done {
		return
	}
	if !t.ctx.IsValid(t.node) {
		t.Done = true
		return
	}
	val, finished := t.tween.Update(dt)
	switch t.prop {
	case MaskSoftness:
		t.ctx.SetSoftness(t.node, float64(val))
	case MaskAlpha:
		t.ctx.SetAlpha(t.node, float64(val))
	}
	t.Done = finished
}
