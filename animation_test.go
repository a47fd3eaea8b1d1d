package softmask

import (
	"math"
	"testing"

	"github.com/tanema/gween/ease"
)

func TestTweenPositionReachesTarget(t *testing.T) {
	e := NewElement("pos")
	e.X = 10
	e.Y = 20

	g := TweenPosition(e, 100, 200, 1.0, ease.Linear)

	// Exact halves avoid float32 accumulation drift.
	g.Update(0.5)
	g.Update(0.5)

	if !g.Done {
		t.Fatal("expected Done after full duration")
	}
	if math.Abs(e.X-100) > 0.5 {
		t.Errorf("X = %f, want ~100", e.X)
	}
	if math.Abs(e.Y-200) > 0.5 {
		t.Errorf("Y = %f, want ~200", e.Y)
	}
}

func TestTweenRotationReachesTarget(t *testing.T) {
	e := NewElement("rot")
	g := TweenRotation(e, math.Pi, 1.0, ease.Linear)
	g.Update(0.5)
	g.Update(0.5)
	if !g.Done {
		t.Fatal("expected Done after full duration")
	}
	if math.Abs(e.Rotation-math.Pi) > 0.01 {
		t.Errorf("Rotation = %f, want ~π", e.Rotation)
	}
}

func TestTweenGroupDoneFlagTransition(t *testing.T) {
	e := NewElement("done")
	g := TweenPosition(e, 100, 100, 1.0, ease.Linear)

	g.Update(0.25)
	if g.Done {
		t.Fatal("Done too early")
	}
	g.Update(0.75)
	if !g.Done {
		t.Fatal("expected Done")
	}
	x := e.X
	g.Update(1) // no-op once done
	if e.X != x {
		t.Error("Update after Done changed the element")
	}
}

func TestTweenGroupMarksDirty(t *testing.T) {
	e := NewElement("dirty")
	e.transformDirty = false
	g := TweenPosition(e, 10, 10, 1.0, ease.Linear)
	g.Update(0.1)
	if !e.transformDirty {
		t.Error("tween did not mark the element dirty")
	}
}

func TestTweenGroupDisposedElement(t *testing.T) {
	e := NewElement("gone")
	g := TweenPosition(e, 100, 100, 1.0, ease.Linear)
	e.Dispose()
	g.Update(0.5)
	if !g.Done {
		t.Error("tween on disposed element not Done")
	}
	if e.X != 0 {
		t.Errorf("X = %f, want 0", e.X)
	}
}

func TestTweenPositionMovesMask(t *testing.T) {
	ctx := NewContext(Options{})
	cv := NewCanvas(ctx, 64, 64)
	e := NewElement("mask")
	h := e.EnableSoftMask(ctx)
	e.SetMaskShape(RectMesh(10, 10))
	cv.Root().AddChild(e)
	ctx.Tick()
	if ctx.Dirty(h) {
		t.Fatal("mask dirty after tick")
	}

	g := TweenPosition(e, 20, 0, 1.0, ease.Linear)
	g.Update(0.5)
	ctx.SubmitFrameChanges()
	if !ctx.Dirty(h) {
		t.Error("moving the mask element did not dirty the mask")
	}
}

func TestTweenSoftness(t *testing.T) {
	ctx := NewContext(Options{})
	h := attachActive(ctx, newFake("m", nil))
	ctx.SetSoftness(h, 0)

	tw := TweenSoftness(ctx, h, 1, 1.0, ease.Linear)
	ctx.nodes.get(h).dirty = false
	tw.Update(0.5)
	if got := ctx.Softness(h); math.Abs(got-0.5) > 0.01 {
		t.Errorf("Softness = %f, want ~0.5", got)
	}
	if !ctx.Dirty(h) {
		t.Error("softness tween did not dirty the forest")
	}
	tw.Update(0.5)
	if !tw.Done {
		t.Error("expected Done")
	}
}

func TestTweenMaskAlpha(t *testing.T) {
	ctx := NewContext(Options{})
	h := attachActive(ctx, newFake("m", nil))

	tw := TweenMaskAlpha(ctx, h, 0, 1.0, ease.Linear)
	tw.Update(0.5)
	tw.Update(0.5)
	if got := ctx.Alpha(h); math.Abs(got) > 0.01 {
		t.Errorf("Alpha = %f, want ~0", got)
	}
}

func TestMaskTweenStopsOnDestroyedNode(t *testing.T) {
	ctx := NewContext(Options{})
	h := attachActive(ctx, newFake("m", nil))
	tw := TweenMaskAlpha(ctx, h, 0, 1.0, ease.Linear)
	ctx.Destroy(h)
	tw.Update(0.5)
	if !tw.Done {
		t.Error("tween on destroyed node not Done")
	}
}

func TestTweenEasingFunctionsProduceDifferentCurves(t *testing.T) {
	a := NewElement("linear")
	b := NewElement("quad")
	ga := TweenPosition(a, 100, 0, 1.0, ease.Linear)
	gb := TweenPosition(b, 100, 0, 1.0, ease.InQuad)
	ga.Update(0.5)
	gb.Update(0.5)
	if math.Abs(a.X-b.X) < 1 {
		t.Errorf("Linear and InQuad at t=0.5 both gave X=%f", a.X)
	}
}
