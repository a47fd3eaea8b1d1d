package softmask

import "testing"

func TestNearestPowerOfTwo(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0.5, 1}, {1, 1}, {5, 4}, {6, 8}, {100, 128}, {90, 64}, {400, 512}, {1024, 1024},
	}
	for _, tt := range tests {
		if got := nearestPowerOfTwo(tt.in); got != tt.want {
			t.Errorf("nearestPowerOfTwo(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestBufferResolution(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		d            DownSample
		wantW, wantH int
	}{
		{"x1 landscape", 800, 600, DownSampleX1, 1024, 768},
		{"x2 landscape", 800, 600, DownSampleX2, 512, 384},
		{"x1 portrait", 100, 200, DownSampleX1, 128, 256},
		{"x4 square", 100, 100, DownSampleX4, 32, 32},
		{"none keeps size", 800, 600, DownSampleNone, 800, 600},
		{"empty surface", 0, 600, DownSampleX1, 0, 0},
		{"tiny x8", 4, 2, DownSampleX8, 1, 1},
	}
	for _, tt := range tests {
		w, h := bufferResolution(tt.w, tt.h, tt.d)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("%s: bufferResolution(%d, %d, %v) = %dx%d, want %dx%d",
				tt.name, tt.w, tt.h, tt.d, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestBufferPoolReuse(t *testing.T) {
	var p bufferPool
	a := p.Acquire(32, 16)
	if b := a.Bounds(); b.Dx() != 32 || b.Dy() != 16 {
		t.Fatalf("Acquire size = %dx%d, want 32x16", b.Dx(), b.Dy())
	}
	p.Release(a)
	if p.Len() != 1 {
		t.Errorf("Len = %d after release, want 1", p.Len())
	}
	if got := p.Acquire(32, 16); got != a {
		t.Error("Acquire of the same size did not reuse the released image")
	}
	if p.Len() != 0 {
		t.Errorf("Len = %d after reuse, want 0", p.Len())
	}
	if got := p.Acquire(16, 32); got == a {
		t.Error("Acquire of a different size reused the image")
	}
	p.Release(nil)
	if p.Len() != 0 {
		t.Errorf("Release(nil) changed Len to %d", p.Len())
	}
}

func TestBufferPoolDispose(t *testing.T) {
	var p bufferPool
	p.Release(p.Acquire(8, 8))
	p.Release(p.Acquire(4, 4))
	p.Dispose()
	if p.Len() != 0 {
		t.Errorf("Len = %d after Dispose, want 0", p.Len())
	}
}

func TestEnsureBufferWithoutSurface(t *testing.T) {
	ctx := NewContext(Options{})
	h := attachActive(ctx, newFake("m", nil))
	if ctx.ensureBuffer(h) {
		t.Error("ensureBuffer succeeded without a surface")
	}
	if ctx.Buffer(h) != nil {
		t.Error("Buffer is not nil without a surface")
	}
}

func TestEnsureBufferFollowsDownSample(t *testing.T) {
	ctx := NewContext(Options{})
	el := newFake("m", nil)
	el.surface = &fakeSurface{w: 200, h: 100}
	h := attachActive(ctx, el)
	if !ctx.ensureBuffer(h) {
		t.Fatal("ensureBuffer failed with a surface")
	}
	id := ctx.nodes.get(h).bufferID
	if b := ctx.Buffer(h).Bounds(); b.Dx() != 256 || b.Dy() != 128 {
		t.Errorf("buffer = %dx%d, want 256x128", b.Dx(), b.Dy())
	}

	ctx.SetDownSample(h, DownSampleX2)
	ctx.ensureBuffer(h)
	if b := ctx.Buffer(h).Bounds(); b.Dx() != 128 || b.Dy() != 64 {
		t.Errorf("x2 buffer = %dx%d, want 128x64", b.Dx(), b.Dy())
	}
	if ctx.nodes.get(h).bufferID != id {
		t.Error("buffer identity changed on resize")
	}
}
