package softmask

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
)

// MaxDepth is the number of nesting levels a single mask buffer can hold,
// one per color channel (R, G, B, A).
const MaxDepth = 4

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
// Premultiplication occurs at render submission time.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is the default tint (no color modification).
var ColorWhite = Color{1, 1, 1, 1}

// Vec2 is a 2D vector used for positions, offsets, and sizes.
type Vec2 struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// DownSample selects the mask buffer resolution relative to the surface.
type DownSample uint8

const (
	DownSampleNone DownSample = iota // full surface resolution, no power-of-two rounding
	DownSampleX1                     // full resolution rounded to a power of two
	DownSampleX2                     // half resolution
	DownSampleX4                     // quarter resolution
	DownSampleX8                     // eighth resolution
)

// Factor returns the resolution divisor for d.
func (d DownSample) Factor() int {
	switch d {
	case DownSampleX2:
		return 2
	case DownSampleX4:
		return 4
	case DownSampleX8:
		return 8
	default:
		return 1
	}
}

var downSampleNames = [...]string{"none", "x1", "x2", "x4", "x8"}

func (d DownSample) String() string {
	if int(d) < len(downSampleNames) {
		return downSampleNames[d]
	}
	return fmt.Sprintf("DownSample(%d)", uint8(d))
}

// MarshalText implements encoding.TextMarshaler.
func (d DownSample) MarshalText() ([]byte, error) {
	if int(d) >= len(downSampleNames) {
		return nil, fmt.Errorf("softmask: invalid down-sample value %d", uint8(d))
	}
	return []byte(downSampleNames[d]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DownSample) UnmarshalText(text []byte) error {
	for i, name := range downSampleNames {
		if name == string(text) {
			*d = DownSample(i)
			return nil
		}
	}
	return fmt.Errorf("softmask: unknown down-sample %q", text)
}

// MaskInteraction is the visibility mode a consumer applies at one depth.
type MaskInteraction uint8

const (
	InteractionNone           MaskInteraction = iota // mask has no effect at this depth
	InteractionVisibleInside                         // visible where the mask is opaque
	InteractionVisibleOutside                        // visible where the mask is transparent
)

var interactionNames = [...]string{"none", "inside", "outside"}

func (m MaskInteraction) String() string {
	if int(m) < len(interactionNames) {
		return interactionNames[m]
	}
	return fmt.Sprintf("MaskInteraction(%d)", uint8(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m MaskInteraction) MarshalText() ([]byte, error) {
	if int(m) >= len(interactionNames) {
		return nil, fmt.Errorf("softmask: invalid mask interaction %d", uint8(m))
	}
	return []byte(interactionNames[m]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MaskInteraction) UnmarshalText(text []byte) error {
	for i, name := range interactionNames {
		if name == string(text) {
			*m = MaskInteraction(i)
			return nil
		}
	}
	return fmt.Errorf("softmask: unknown mask interaction %q", text)
}

// InteractionCode packs four 2-bit MaskInteraction fields, depth 0 in the
// lowest bits.
type InteractionCode uint8

// InteractionInsideAll is the default consumer code: visible inside the mask
// at every depth.
const InteractionInsideAll InteractionCode = 0b01010101

// PackInteraction builds an InteractionCode from per-depth modes.
func PackInteraction(d0, d1, d2, d3 MaskInteraction) InteractionCode {
	return InteractionCode(d0&3) |
		InteractionCode(d1&3)<<2 |
		InteractionCode(d2&3)<<4 |
		InteractionCode(d3&3)<<6
}

// At returns the mode stored for depth (0..3).
func (c InteractionCode) At(depth int) MaskInteraction {
	return MaskInteraction(c>>(2*uint(depth))) & 3
}

// Valid reports whether every field holds a defined MaskInteraction.
func (c InteractionCode) Valid() bool {
	for d := 0; d < MaxDepth; d++ {
		if c.At(d) > InteractionVisibleOutside {
			return false
		}
	}
	return true
}

// limit zeroes every field above depth. A negative depth clears all fields.
func (c InteractionCode) limit(depth int) InteractionCode {
	if depth >= MaxDepth-1 {
		return c
	}
	if depth < 0 {
		return 0
	}
	return c & InteractionCode(1<<(2*uint(depth+1))-1)
}

// vector expands the code into one float per channel for shader uniforms.
func (c InteractionCode) vector() [MaxDepth]float32 {
	var v [MaxDepth]float32
	for d := range v {
		v[d] = float32(c.At(d))
	}
	return v
}

// StencilCompare is the stencil test a derived material requests from the host.
type StencilCompare uint8

const (
	StencilAlways StencilCompare = iota // stencil test always passes
	StencilEqual                        // pass only where the stencil equals the reference
)

func (s StencilCompare) String() string {
	if s == StencilEqual {
		return "equal"
	}
	return "always"
}

// maxBlend accumulates per channel with max(src, dst). A shader that writes
// zero to every channel but one behaves like a single-channel color mask.
var maxBlend = ebiten.Blend{
	BlendFactorSourceRGB:        ebiten.BlendFactorOne,
	BlendFactorSourceAlpha:      ebiten.BlendFactorOne,
	BlendFactorDestinationRGB:   ebiten.BlendFactorOne,
	BlendFactorDestinationAlpha: ebiten.BlendFactorOne,
	BlendOperationRGB:           ebiten.BlendOperationMax,
	BlendOperationAlpha:         ebiten.BlendOperationMax,
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
