package softmask

import (
	"errors"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

func TestParseShaderVariant(t *testing.T) {
	tests := []struct {
		name    string
		want    ShaderVariant
		wantErr bool
	}{
		{"", VariantDefault, false},
		{"default", VariantDefault, false},
		{"sprite", VariantDefault, false},
		{"mesh", VariantDefault, false},
		{"text", VariantText, false},
		{"glow", VariantNone, true},
		{"Text", VariantNone, true},
	}
	for _, tt := range tests {
		got, err := ParseShaderVariant(tt.name)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseShaderVariant(%q) = %v, %v; want %v, err=%v", tt.name, got, err, tt.want, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrUnsupportedShader) {
			t.Errorf("ParseShaderVariant(%q) error %v does not wrap ErrUnsupportedShader", tt.name, err)
		}
	}
}

func TestNewMaterial(t *testing.T) {
	a := NewMaterial("a", "sprite")
	b := NewMaterial("b", "sprite")
	if a.ID() == b.ID() {
		t.Error("materials share an ID")
	}
	if a.Name() != "a" || a.ShaderName() != "sprite" || a.IsDerived() || a.Base() != nil {
		t.Errorf("material = %q/%q derived=%v", a.Name(), a.ShaderName(), a.IsDerived())
	}
	if a.Shader() != nil {
		t.Error("base material returned a masked shader")
	}
}

func TestNewMaterialUnsupportedRecordsName(t *testing.T) {
	m := NewMaterial("hero", "glow")
	_, err := m.Variant()
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("Variant error = %v, want *ConfigError", err)
	}
	if ce.Material != "hero" || ce.Shader != "glow" {
		t.Errorf("ConfigError = %+v, want material hero, shader glow", ce)
	}
}

func TestDerivedMaterial(t *testing.T) {
	base := NewMaterial("label", "text")
	buf := ebiten.NewImage(4, 4)
	m := newDerivedMaterial(base, buf, 0b0110, true)

	if !m.IsDerived() || m.Base() != base || m.MaskBuffer() != buf {
		t.Error("derived material not bound to base and buffer")
	}
	if v, err := m.Variant(); v != VariantText || err != nil {
		t.Errorf("Variant = %v, %v; want text", v, err)
	}
	if m.StencilCompare() != StencilEqual || m.Interaction() != 0b0110 {
		t.Errorf("stencil=%v code=%08b", m.StencilCompare(), m.Interaction())
	}

	rect := []float32{0, 0, 4, 4}
	u := m.drawUniforms(rect, 1)
	iv, ok := u["Interaction"].([]float32)
	if !ok || len(iv) != MaxDepth || iv[0] != 2 || iv[1] != 1 {
		t.Errorf("Interaction uniform = %v, want [2 1 0 0]", u["Interaction"])
	}
	if u["Preview"] != float32(1) {
		t.Errorf("Preview uniform = %v, want 1", u["Preview"])
	}

	m.dispose()
	if !m.IsDisposed() || m.MaskBuffer() != nil || m.Shader() != nil {
		t.Error("disposed material still usable")
	}
}

func TestVariantShadersCompile(t *testing.T) {
	for _, v := range []ShaderVariant{VariantDefault, VariantText} {
		s := ensureVariantShader(v)
		if s == nil {
			t.Errorf("%v shader = nil", v)
		}
		if ensureVariantShader(v) != s {
			t.Errorf("%v shader compiled twice", v)
		}
	}
	if ensureVariantShader(VariantNone) != nil {
		t.Error("VariantNone has a shader")
	}
	if ensureMaskShader() == nil {
		t.Error("mask geometry shader = nil")
	}
}

func TestShaderVariantString(t *testing.T) {
	if VariantDefault.String() != "default" || VariantText.String() != "text" || VariantNone.String() != "none" {
		t.Error("unexpected variant names")
	}
}
