package softmask

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// ShaderVariant is the closed set of base shaders that have a masked
// counterpart. Base shader names are mapped to a variant once, when the
// Material is created; draw paths switch on the variant, never on the name.
type ShaderVariant uint8

const (
	VariantNone    ShaderVariant = iota // no masked counterpart
	VariantDefault                      // sprites and meshes: premultiplied color * tint
	VariantText                         // alpha-only glyph atlases: tint * coverage
	numVariants
)

func (v ShaderVariant) String() string {
	switch v {
	case VariantDefault:
		return "default"
	case VariantText:
		return "text"
	default:
		return "none"
	}
}

// shaderVariants is the explicit base-shader → variant mapping.
var shaderVariants = map[string]ShaderVariant{
	"":        VariantDefault,
	"default": VariantDefault,
	"sprite":  VariantDefault,
	"mesh":    VariantDefault,
	"text":    VariantText,
}

// ParseShaderVariant maps a base shader name to its masked variant. An
// unsupported name returns VariantNone and an error wrapping
// ErrUnsupportedShader.
func ParseShaderVariant(name string) (ShaderVariant, error) {
	if v, ok := shaderVariants[name]; ok {
		return v, nil
	}
	return VariantNone, &ConfigError{Shader: name, Err: ErrUnsupportedShader}
}

// materialIDCounter is a plain counter (no atomic; softmask is single-threaded).
var materialIDCounter uint32

func nextMaterialID() uint32 {
	materialIDCounter++
	return materialIDCounter
}

// Material describes how an element is drawn. Base materials are created by
// the host with NewMaterial; derived materials are created and owned by a
// Context's material cache and bind a mask buffer and interaction code on
// top of a base material.
type Material struct {
	id         uint32
	name       string
	shaderName string
	variant    ShaderVariant
	variantErr error

	// Derived-only fields.
	base        *Material
	mask        *ebiten.Image
	interaction InteractionCode
	stencil     StencilCompare
	uniforms    map[string]any
	disposed    bool
}

// NewMaterial creates a base material using the named shader. The shader name
// is resolved to a ShaderVariant immediately; an unsupported name is
// reported when the material is first used with a soft mask.
func NewMaterial(name, shaderName string) *Material {
	m := &Material{
		id:         nextMaterialID(),
		name:       name,
		shaderName: shaderName,
	}
	m.variant, m.variantErr = ParseShaderVariant(shaderName)
	if ce, ok := m.variantErr.(*ConfigError); ok {
		ce.Material = name
	}
	return m
}

// DefaultMaterial is the base material used by elements without one.
var DefaultMaterial = NewMaterial("default", "default")

// ID returns the material's identity, unique within the process.
func (m *Material) ID() uint32 { return m.id }

// Name returns the material name.
func (m *Material) Name() string { return m.name }

// ShaderName returns the base shader name.
func (m *Material) ShaderName() string { return m.shaderName }

// Variant returns the resolved masked shader variant, or the configuration
// error recorded when the material was created.
func (m *Material) Variant() (ShaderVariant, error) {
	return m.variant, m.variantErr
}

// Base returns the base material of a derived material, or nil.
func (m *Material) Base() *Material { return m.base }

// IsDerived reports whether m was synthesized by a material cache.
func (m *Material) IsDerived() bool { return m.base != nil }

// MaskBuffer returns the mask buffer bound to a derived material.
func (m *Material) MaskBuffer() *ebiten.Image { return m.mask }

// Interaction returns the depth-limited interaction code of a derived material.
func (m *Material) Interaction() InteractionCode { return m.interaction }

// StencilCompare returns the stencil test requested by a derived material.
func (m *Material) StencilCompare() StencilCompare { return m.stencil }

// IsDisposed reports whether the cache has destroyed this material.
func (m *Material) IsDisposed() bool { return m.disposed }

// Shader returns the compiled masked shader for a derived material, or nil
// for a base material.
func (m *Material) Shader() *ebiten.Shader {
	if m.base == nil || m.disposed {
		return nil
	}
	return ensureVariantShader(m.variant)
}

// newDerivedMaterial binds base to a mask buffer and interaction code.
func newDerivedMaterial(base *Material, mask *ebiten.Image, code InteractionCode, useStencil bool) *Material {
	m := &Material{
		id:          nextMaterialID(),
		name:        base.name + " (masked)",
		shaderName:  base.shaderName,
		variant:     base.variant,
		base:        base,
		mask:        mask,
		interaction: code,
		stencil:     StencilAlways,
		uniforms:    make(map[string]any, 3),
	}
	if useStencil {
		m.stencil = StencilEqual
	}
	v := code.vector()
	m.uniforms["Interaction"] = v[:]
	return m
}

// drawUniforms returns m's uniforms with the per-draw mask rectangle and
// preview flag filled in. The map is reused across draws.
func (m *Material) drawUniforms(maskRect []float32, preview float32) map[string]any {
	m.uniforms["MaskRect"] = maskRect
	m.uniforms["Preview"] = preview
	return m.uniforms
}

func (m *Material) dispose() {
	m.disposed = true
	m.mask = nil
	m.uniforms = nil
}

// --- Masked variant shaders ---
// Both images are the same size: image 0 is the element drawn in surface
// space, image 1 is the mask buffer scaled to surface space. Each channel of
// the mask is applied with its own interaction mode.

const maskedShaderCommon = `
var Interaction vec4
var MaskRect vec4
var Preview float

func channelFactor(mode float, v float) float {
	if mode == 1.0 {
		return v
	}
	if mode == 2.0 {
		return 1.0 - v
	}
	return 1.0
}

func maskFactor(src vec2) float {
	p := src - imageSrc0Origin()
	if p.x < MaskRect.x || p.y < MaskRect.y || p.x >= MaskRect.x+MaskRect.z || p.y >= MaskRect.y+MaskRect.w {
		if Preview > 0.0 {
			return 0.0
		}
		return 1.0
	}
	m := imageSrc1At(src)
	f := channelFactor(Interaction.x, m.r)
	f *= channelFactor(Interaction.y, m.g)
	f *= channelFactor(Interaction.z, m.b)
	f *= channelFactor(Interaction.w, m.a)
	return f
}
`

const maskedDefaultShaderSrc = `//kage:unit pixels
package main
` + maskedShaderCommon + `
func Fragment(dst vec4, src vec2, color vec4) vec4 {
	return imageSrc0At(src) * color * maskFactor(src)
}
`

const maskedTextShaderSrc = `//kage:unit pixels
package main
` + maskedShaderCommon + `
func Fragment(dst vec4, src vec2, color vec4) vec4 {
	return color * imageSrc0At(src).a * maskFactor(src)
}
`

// --- Lazy shader compilation (no sync.Once; softmask is single-threaded) ---

var variantShaders [numVariants]*ebiten.Shader

func ensureVariantShader(v ShaderVariant) *ebiten.Shader {
	if v == VariantNone || v >= numVariants {
		return nil
	}
	if variantShaders[v] == nil {
		var src string
		switch v {
		case VariantText:
			src = maskedTextShaderSrc
		default:
			src = maskedDefaultShaderSrc
		}
		s, err := ebiten.NewShader([]byte(src))
		if err != nil {
			panic("softmask: failed to compile " + v.String() + " masked shader: " + err.Error())
		}
		variantShaders[v] = s
	}
	return variantShaders[v]
}
