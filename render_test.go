package softmask

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

const renderEpsilon = 1e-3

// chain builds n nested active nodes under a root drawn on surf.
func chain(ctx *Context, surf *fakeSurface, n int) ([]*fakeElement, []Handle) {
	els := make([]*fakeElement, n)
	hs := make([]Handle, n)
	for i := range els {
		var parent *fakeElement
		if i > 0 {
			parent = els[i-1]
		}
		els[i] = newFake("n", parent)
		hs[i] = attachActive(ctx, els[i])
	}
	els[0].surface = surf
	return els, hs
}

func TestTickRendersDirtyRoots(t *testing.T) {
	ctx := NewContext(Options{})
	_, hs := chain(ctx, &fakeSurface{w: 100, h: 100}, 3)

	if got := ctx.Tick(); got != 1 {
		t.Fatalf("Tick = %d, want 1", got)
	}
	for i, h := range hs {
		if got := ctx.Channel(h); got != i {
			t.Errorf("Channel(n%d) = %d, want %d", i, got, i)
		}
		if ctx.Dirty(h) {
			t.Errorf("n%d dirty after render", i)
		}
	}
	st := ctx.Stats()
	if st.RootsRendered != 1 || st.NodesDrawn != 3 || st.BufferAllocs != 1 {
		t.Errorf("Stats = %+v, want 1 root, 3 draws, 1 alloc", st)
	}

	if got := ctx.Tick(); got != 0 {
		t.Errorf("second Tick = %d, want 0", got)
	}
}

func TestRenderExcludesNodesBeyondMaxDepth(t *testing.T) {
	ctx := NewContext(Options{})
	_, hs := chain(ctx, &fakeSurface{w: 64, h: 64}, 6)

	ctx.Tick()
	for i, h := range hs {
		want := i
		if i >= MaxDepth {
			want = -1
		}
		if got := ctx.Channel(h); got != want {
			t.Errorf("Channel(n%d) = %d, want %d", i, got, want)
		}
	}
	if got := ctx.Stats().NodesExcluded; got != 2 {
		t.Errorf("NodesExcluded = %d, want 2", got)
	}
}

func TestRenderOffsetsChannelsByStencilDepth(t *testing.T) {
	ctx := NewContext(Options{})
	els, hs := chain(ctx, &fakeSurface{w: 64, h: 64}, 3)
	for _, el := range els {
		el.hard = 2
	}

	ctx.Tick()
	want := []int{2, 3, -1}
	for i, h := range hs {
		if got := ctx.Channel(h); got != want[i] {
			t.Errorf("Channel(n%d) = %d, want %d", i, got, want[i])
		}
	}
	if got := ctx.StencilDepth(hs[0]); got != 2 {
		t.Errorf("StencilDepth(root) = %d, want 2", got)
	}
}

func TestRenderChannelFollowsNodeStencilDepth(t *testing.T) {
	ctx := NewContext(Options{})
	els, hs := chain(ctx, &fakeSurface{w: 64, h: 64}, 3)
	els[1].hard = 1
	els[2].hard = 2

	ctx.Tick()
	want := []int{0, 2, -1}
	for i, h := range hs {
		if got := ctx.Channel(h); got != want[i] {
			t.Errorf("Channel(n%d) = %d, want %d", i, got, want[i])
		}
	}
	if got := ctx.StencilDepth(hs[1]); got != 1 {
		t.Errorf("StencilDepth(n1) = %d, want 1", got)
	}
	if got := ctx.MaskDepth(hs[1]); got != ctx.Channel(hs[1]) {
		t.Errorf("MaskDepth(n1) = %d, want channel %d", got, ctx.Channel(hs[1]))
	}
	st := ctx.Stats()
	if st.NodesDrawn != 2 || st.NodesExcluded != 1 {
		t.Errorf("Stats = %+v, want 2 draws, 1 excluded", st)
	}
}

func TestRenderMergedNodesShareChannel(t *testing.T) {
	ctx := NewContext(Options{})
	_, hs := chain(ctx, &fakeSurface{w: 64, h: 64}, 3)
	ctx.SetMergeWithParentBucket(hs[2], true)

	ctx.Tick()
	if got := ctx.Channel(hs[2]); got != 1 {
		t.Errorf("Channel(merged) = %d, want 1", got)
	}
}

func TestMovedNodeDirtiesForest(t *testing.T) {
	ctx := NewContext(Options{})
	els, _ := chain(ctx, &fakeSurface{w: 64, h: 64}, 2)
	ctx.Tick()

	els[1].transform[4] = 5
	if got := ctx.Tick(); got != 1 {
		t.Errorf("Tick after move = %d, want 1", got)
	}
	if got := ctx.Stats().NodesMoved; got != 1 {
		t.Errorf("NodesMoved = %d, want 1", got)
	}
}

func TestSurfaceResizeKeepsBufferIdentity(t *testing.T) {
	ctx := NewContext(Options{})
	surf := &fakeSurface{w: 100, h: 100}
	_, hs := chain(ctx, surf, 2)
	ctx.Tick()

	var link MaterialLink
	m, err := ctx.Acquire(&link, nil, hs[1], InteractionInsideAll, 1, false)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	id := ctx.nodes.get(hs[0]).bufferID
	if m.MaskBuffer() != ctx.Buffer(hs[0]) {
		t.Fatal("derived material not bound to the root buffer")
	}
	if b := ctx.Buffer(hs[0]).Bounds(); b.Dx() != 128 || b.Dy() != 128 {
		t.Errorf("buffer = %dx%d, want 128x128", b.Dx(), b.Dy())
	}

	surf.w = 200
	if got := ctx.Tick(); got != 1 {
		t.Fatalf("Tick after resize = %d, want 1", got)
	}
	buf := ctx.Buffer(hs[0])
	if b := buf.Bounds(); b.Dx() != 256 || b.Dy() != 128 {
		t.Errorf("buffer = %dx%d, want 256x128", b.Dx(), b.Dy())
	}
	if got := ctx.nodes.get(hs[0]).bufferID; got != id {
		t.Errorf("bufferID = %d after resize, want %d", got, id)
	}
	if m.MaskBuffer() != buf {
		t.Error("derived material not rebound to the resized buffer")
	}
	m2, _ := ctx.Acquire(&link, nil, hs[1], InteractionInsideAll, 1, false)
	if m2 != m {
		t.Error("resize changed the cache key")
	}
}

func TestCameraChangeDirtiesRoot(t *testing.T) {
	ctx := NewContext(Options{})
	cam := NewCamera(Rect{Width: 100, Height: 100})
	chain(ctx, &fakeSurface{w: 100, h: 100, cam: cam}, 1)

	ctx.Tick()
	if got := ctx.Stats().CamerasChanged; got != 1 {
		t.Errorf("CamerasChanged on first tick = %d, want 1", got)
	}
	if got := ctx.Tick(); got != 0 {
		t.Errorf("Tick with still camera = %d, want 0", got)
	}

	cam.X = 10
	if got := ctx.Tick(); got != 1 {
		t.Errorf("Tick after camera move = %d, want 1", got)
	}
	if got := ctx.Stats().CamerasChanged; got != 1 {
		t.Errorf("CamerasChanged = %d, want 1", got)
	}
	if _, ok := ctx.cameraViewProjections()[cam]; !ok {
		t.Error("camera view-projection not recorded")
	}
}

func TestUnusedCameraForgotten(t *testing.T) {
	ctx := NewContext(Options{})
	cam := NewCamera(Rect{Width: 100, Height: 100})
	surf := &fakeSurface{w: 100, h: 100, cam: cam}
	chain(ctx, surf, 1)
	ctx.Tick()

	surf.cam = nil
	ctx.Tick()
	if n := len(ctx.cameraViewProjections()); n != 0 {
		t.Errorf("recorded cameras = %d, want 0", n)
	}
}

func TestStencilChangeNotifiesListener(t *testing.T) {
	var calls []Handle
	ctx := NewContext(Options{Listener: StencilListenerFunc(func(root Handle) {
		calls = append(calls, root)
	})})
	els, hs := chain(ctx, &fakeSurface{w: 64, h: 64}, 2)

	ctx.Tick()
	if len(calls) != 0 {
		t.Fatalf("listener called %d times without a stencil change", len(calls))
	}

	els[0].hard = 1
	ctx.MarkDirty(hs[0])
	ctx.Tick()
	if len(calls) != 1 || calls[0] != hs[0] {
		t.Errorf("listener calls = %v, want [%v]", calls, hs[0])
	}
}

func TestRenderLogsMissingGeometry(t *testing.T) {
	var buf bytes.Buffer
	ctx := logCapture(&buf)
	_, hs := chain(ctx, &fakeSurface{w: 64, h: 64}, 2)
	ctx.SetMesh(hs[1], nil, nil)

	ctx.Tick()
	if !strings.Contains(buf.String(), "no geometry") {
		t.Errorf("log = %q, want missing geometry error", buf.String())
	}
	if got := ctx.Channel(hs[1]); got != 1 {
		t.Errorf("Channel = %d, want 1", got)
	}
	if got := ctx.Stats().NodesDrawn; got != 1 {
		t.Errorf("NodesDrawn = %d, want 1", got)
	}
}

func TestRootWithoutSurfaceStaysDirty(t *testing.T) {
	ctx := NewContext(Options{})
	_, hs := chain(ctx, nil, 1)

	if got := ctx.Tick(); got != 0 {
		t.Errorf("Tick = %d, want 0", got)
	}
	if !ctx.Dirty(hs[0]) {
		t.Error("root without a surface lost its dirty flag")
	}
	if ctx.RenderRoot(hs[0]) {
		t.Error("RenderRoot succeeded without a surface")
	}
}

func TestRenderRootRejectsNonRoot(t *testing.T) {
	ctx := NewContext(Options{})
	_, hs := chain(ctx, &fakeSurface{w: 32, h: 32}, 2)
	if ctx.RenderRoot(hs[1]) {
		t.Error("RenderRoot accepted a child")
	}
	if !ctx.RenderRoot(hs[0]) {
		t.Error("RenderRoot rejected a root")
	}
}

func TestDeactivatedRootReturnsBuffer(t *testing.T) {
	ctx := NewContext(Options{})
	_, hs := chain(ctx, &fakeSurface{w: 32, h: 32}, 1)
	ctx.Tick()
	if ctx.Buffer(hs[0]) == nil {
		t.Fatal("root has no buffer after render")
	}

	ctx.Deactivate(hs[0])
	if ctx.Buffer(hs[0]) != nil {
		t.Error("deactivated root kept its buffer")
	}
	if got := ctx.pool.Len(); got != 1 {
		t.Errorf("pool.Len = %d, want 1", got)
	}
}

func TestMaskVerticesInBufferPixels(t *testing.T) {
	ctx := NewContext(Options{})
	els, hs := chain(ctx, &fakeSurface{w: 100, h: 100}, 1)
	els[0].transform = [6]float64{1, 0, 0, 1, 20, 30}
	ctx.SetDownSample(hs[0], DownSampleX2) // 50x50 snaps to 64x64

	ctx.Tick()
	if len(ctx.commands) != 1 {
		t.Fatalf("commands = %d, want 1", len(ctx.commands))
	}
	scale := 64.0 / 100.0
	want := [][2]float64{{20, 30}, {30, 30}, {30, 40}, {20, 40}}
	for i, w := range want {
		v := ctx.verts[i]
		if math.Abs(float64(v.DstX)-w[0]*scale) > renderEpsilon || math.Abs(float64(v.DstY)-w[1]*scale) > renderEpsilon {
			t.Errorf("vertex %d = (%v, %v), want (%v, %v)", i, v.DstX, v.DstY, w[0]*scale, w[1]*scale)
		}
	}
}

func TestMaskVerticesThroughCamera(t *testing.T) {
	ctx := NewContext(Options{})
	cam := NewCamera(Rect{Width: 100, Height: 100})
	cam.X, cam.Y = 60, 50 // world x=60 is the viewport center
	_, hs := chain(ctx, &fakeSurface{w: 100, h: 100, cam: cam}, 1)
	ctx.SetDownSample(hs[0], DownSampleNone)

	ctx.Tick()
	v := ctx.verts[0] // world (0, 0)
	if math.Abs(float64(v.DstX)-(-10)) > renderEpsilon || math.Abs(float64(v.DstY)) > renderEpsilon {
		t.Errorf("vertex 0 = (%v, %v), want (-10, 0)", v.DstX, v.DstY)
	}
}

func TestClearColors(t *testing.T) {
	for s, c := range clearColors {
		ch := [4]uint8{c.R, c.G, c.B, c.A}
		for i, v := range ch {
			want := uint8(0)
			if i < s {
				want = 255
			}
			if v != want {
				t.Errorf("clearColors[%d] channel %d = %d, want %d", s, i, v, want)
			}
		}
	}
}

func TestHardMaskDepthCapped(t *testing.T) {
	el := newFake("e", nil)
	el.hard = 9
	if got := hardMaskDepth(el); got != MaxDepth {
		t.Errorf("hardMaskDepth = %d, want %d", got, MaxDepth)
	}
	if got := hardMaskDepth(nil); got != 0 {
		t.Errorf("hardMaskDepth(nil) = %d, want 0", got)
	}
}

func TestSetMaskImageRerendersRoot(t *testing.T) {
	ctx := NewContext(Options{})
	_, hs := chain(ctx, &fakeSurface{w: 64, h: 64}, 2)
	ctx.Tick()

	img := ebiten.NewImage(8, 8)
	ctx.SetMaskImage(hs[1], img)
	if !ctx.Dirty(hs[0]) {
		t.Fatal("root not dirty after SetMaskImage on a child")
	}
	if got := ctx.Tick(); got != 1 {
		t.Errorf("Tick = %d, want 1", got)
	}

	ctx.SetMaskImage(hs[1], img)
	if ctx.Dirty(hs[0]) {
		t.Error("setting the same image marked the root dirty")
	}
}
