package softmask

import (
	"image"
	"log/slog"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// --- Buffer pool ---

// bufferPool manages reusable offscreen ebiten.Images keyed by exact
// dimensions. After warmup, Acquire/Release are zero-alloc.
type bufferPool struct {
	buckets map[uint64][]*ebiten.Image
}

// poolKey packs width and height into a single uint64.
func poolKey(w, h int) uint64 {
	return uint64(w)<<32 | uint64(h)
}

// Acquire returns a cleared offscreen image of exactly (w, h) pixels.
func (p *bufferPool) Acquire(w, h int) *ebiten.Image {
	key := poolKey(w, h)
	if p.buckets != nil {
		if stack := p.buckets[key]; len(stack) > 0 {
			img := stack[len(stack)-1]
			stack[len(stack)-1] = nil
			p.buckets[key] = stack[:len(stack)-1]
			img.Clear()
			return img
		}
	}
	return ebiten.NewImageWithOptions(
		image.Rect(0, 0, w, h),
		&ebiten.NewImageOptions{Unmanaged: true},
	)
}

// Release returns an image to the pool for reuse. The image is cleared on
// next Acquire, not here.
func (p *bufferPool) Release(img *ebiten.Image) {
	if img == nil {
		return
	}
	b := img.Bounds()
	key := poolKey(b.Dx(), b.Dy())
	if p.buckets == nil {
		p.buckets = make(map[uint64][]*ebiten.Image)
	}
	p.buckets[key] = append(p.buckets[key], img)
}

// Len returns the number of idle pooled images.
func (p *bufferPool) Len() int {
	n := 0
	for _, stack := range p.buckets {
		n += len(stack)
	}
	return n
}

// Dispose deallocates every idle image.
func (p *bufferPool) Dispose() {
	for key, stack := range p.buckets {
		for _, img := range stack {
			img.Deallocate()
		}
		delete(p.buckets, key)
	}
}

// nearestPowerOfTwo returns the power of two closest to v in log scale
// (minimum 1).
func nearestPowerOfTwo(v float64) int {
	if v <= 1 {
		return 1
	}
	return 1 << int(math.Round(math.Log2(v)))
}

// bufferResolution returns the mask buffer size for a surface of (w, h)
// pixels. DownSampleNone keeps the surface size. Otherwise the size is divided
// by the down-sample factor, the longer axis is snapped to the nearest power
// of two, and the shorter axis is scaled by the same ratio.
func bufferResolution(w, h int, d DownSample) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if d == DownSampleNone {
		return w, h
	}
	f := float64(d.Factor())
	fw, fh := float64(w)/f, float64(h)/f
	long := math.Max(fw, fh)
	scale := float64(nearestPowerOfTwo(long)) / long
	bw := int(math.Round(fw * scale))
	bh := int(math.Round(fh * scale))
	return max(bw, 1), max(bh, 1)
}

// surfaceSize returns the size of el's surface, or zeros without one.
func surfaceSize(el SceneElement) (int, int) {
	if el == nil {
		return 0, 0
	}
	s := el.Surface()
	if s == nil {
		return 0, 0
	}
	return s.Size()
}

// ensureBuffer (re)allocates the root's buffer to match its surface and
// down-sample setting. Reports false when the root has no surface. The
// buffer identity survives a resize; derived materials are rebound to the
// new image.
func (c *Context) ensureBuffer(root Handle) bool {
	n := c.nodes.get(root)
	if n == nil {
		return false
	}
	sw, sh := surfaceSize(n.owner)
	bw, bh := bufferResolution(sw, sh, n.downsample)
	if bw <= 0 || bh <= 0 {
		return false
	}
	if n.buffer != nil {
		b := n.buffer.Bounds()
		if b.Dx() == bw && b.Dy() == bh {
			return true
		}
		c.pool.Release(n.buffer)
	}
	n.buffer = c.pool.Acquire(bw, bh)
	if n.bufferID == 0 {
		n.bufferID = c.nextBufferID()
	}
	c.rebindBuffer(n.bufferID, n.buffer)
	n.dirty = true
	c.stats.BufferAllocs++
	c.log.Debug("softmask: mask buffer allocated",
		slog.Any("root", root), slog.Int("width", bw), slog.Int("height", bh))
	return true
}

// releaseBuffer returns the node's buffer to the pool. Derived materials
// still bound to it are unbound until their consumers request again.
func (c *Context) releaseBuffer(h Handle) {
	n := c.nodes.get(h)
	if n == nil || n.buffer == nil {
		return
	}
	c.pool.Release(n.buffer)
	n.buffer = nil
	c.rebindBuffer(n.bufferID, nil)
	n.bufferID = 0
}

// rebindBuffer points every derived material keyed on id at img.
func (c *Context) rebindBuffer(id uint32, img *ebiten.Image) {
	for key, e := range c.cache.entries {
		if key.buffer == id {
			e.material.mask = img
		}
	}
}
