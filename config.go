package softmask

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ConfigFormat is the encoding of a configuration document.
type ConfigFormat uint8

const (
	FormatJSON ConfigFormat = iota
	FormatYAML
	FormatTOML
)

func (f ConfigFormat) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		return "json"
	}
}

// FormatForPath returns the format matching path's extension. Unknown
// extensions are read as JSON.
func FormatForPath(path string) ConfigFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

func unmarshalConfig(data []byte, format ConfigFormat, v any) error {
	switch format {
	case FormatYAML:
		return yaml.Unmarshal(data, v)
	case FormatTOML:
		return toml.Unmarshal(data, v)
	default:
		return json.Unmarshal(data, v)
	}
}

func marshalConfig(v any, format ConfigFormat) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(v)
	case FormatTOML:
		return toml.Marshal(v)
	default:
		return json.MarshalIndent(v, "", "  ")
	}
}

// MaskConfig is the persisted configuration of a mask node. Buffers and
// derived materials are never persisted; they are rebuilt from this.
type MaskConfig struct {
	DownSample            DownSample `json:"downsample" yaml:"downsample" toml:"downsample"`
	Softness              float64    `json:"softness" yaml:"softness" toml:"softness"`
	Alpha                 float64    `json:"alpha" yaml:"alpha" toml:"alpha"`
	IgnoreParent          bool       `json:"ignoreParent,omitempty" yaml:"ignoreParent,omitempty" toml:"ignoreParent,omitempty"`
	MergeWithParentBucket bool       `json:"mergeWithParentBucket,omitempty" yaml:"mergeWithParentBucket,omitempty" toml:"mergeWithParentBucket,omitempty"`
}

// DefaultMaskConfig returns the configuration a freshly attached node has.
func DefaultMaskConfig() MaskConfig {
	return MaskConfig{
		DownSample: DownSampleX1,
		Softness:   1,
		Alpha:      1,
	}
}

// ParseMaskConfig decodes a MaskConfig from JSON. Fields missing from data
// keep their DefaultMaskConfig values.
func ParseMaskConfig(data []byte) (MaskConfig, error) {
	return DecodeMaskConfig(data, FormatJSON)
}

// LoadMaskConfig reads a MaskConfig file, choosing the format by extension.
func LoadMaskConfig(path string) (MaskConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MaskConfig{}, fmt.Errorf("softmask: load mask config: %w", err)
	}
	return DecodeMaskConfig(data, FormatForPath(path))
}

// EncodeMaskConfig encodes cfg in the given format.
func EncodeMaskConfig(cfg MaskConfig, format ConfigFormat) ([]byte, error) {
	data, err := marshalConfig(cfg, format)
	if err != nil {
		return nil, fmt.Errorf("softmask: encode mask config as %v: %w", format, err)
	}
	return data, nil
}

// DecodeMaskConfig decodes and validates a MaskConfig. Fields missing from
// data keep their DefaultMaskConfig values.
func DecodeMaskConfig(data []byte, format ConfigFormat) (MaskConfig, error) {
	cfg := DefaultMaskConfig()
	if err := unmarshalConfig(data, format, &cfg); err != nil {
		return MaskConfig{}, fmt.Errorf("softmask: parse mask config (%v): %w", format, err)
	}
	if err := cfg.Validate(); err != nil {
		return MaskConfig{}, err
	}
	return cfg, nil
}

// Validate reports an out-of-range field.
func (cfg MaskConfig) Validate() error {
	if cfg.Softness < 0 || cfg.Softness > 1 {
		return fmt.Errorf("softmask: softness %v outside [0, 1]", cfg.Softness)
	}
	if cfg.Alpha < 0 || cfg.Alpha > 1 {
		return fmt.Errorf("softmask: alpha %v outside [0, 1]", cfg.Alpha)
	}
	if cfg.DownSample > DownSampleX8 {
		return fmt.Errorf("softmask: invalid down-sample %d", uint8(cfg.DownSample))
	}
	return nil
}

// MaskConfig returns the current configuration of node h.
func (c *Context) MaskConfig(h Handle) MaskConfig {
	n := c.nodes.get(h)
	if n == nil {
		return DefaultMaskConfig()
	}
	return MaskConfig{
		DownSample:            n.downsample,
		Softness:              n.softness,
		Alpha:                 n.alpha,
		IgnoreParent:          n.ignoreParent,
		MergeWithParentBucket: n.mergeWithParentBucket,
	}
}

// ApplyMaskConfig sets every configurable field of node h.
func (c *Context) ApplyMaskConfig(h Handle, cfg MaskConfig) {
	c.SetDownSample(h, cfg.DownSample)
	c.SetSoftness(h, cfg.Softness)
	c.SetAlpha(h, cfg.Alpha)
	c.SetIgnoreParent(h, cfg.IgnoreParent)
	c.SetMergeWithParentBucket(h, cfg.MergeWithParentBucket)
}

// MaskableConfig is the persisted configuration of a masked consumer.
// Interaction lists the mode per depth, depth 0 first; missing depths are
// InteractionNone. A nil Interaction means visible inside at every depth.
type MaskableConfig struct {
	Maskable    bool              `json:"maskable" yaml:"maskable" toml:"maskable"`
	Interaction []MaskInteraction `json:"interaction,omitempty" yaml:"interaction,omitempty" toml:"interaction,omitempty"`
}

// ParseMaskableConfig decodes a MaskableConfig from JSON.
func ParseMaskableConfig(data []byte) (MaskableConfig, error) {
	return DecodeMaskableConfig(data, FormatJSON)
}

// LoadMaskableConfig reads a MaskableConfig file, choosing the format by
// extension.
func LoadMaskableConfig(path string) (MaskableConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MaskableConfig{}, fmt.Errorf("softmask: load maskable config: %w", err)
	}
	return DecodeMaskableConfig(data, FormatForPath(path))
}

// DecodeMaskableConfig decodes and validates a MaskableConfig.
func DecodeMaskableConfig(data []byte, format ConfigFormat) (MaskableConfig, error) {
	var cfg MaskableConfig
	if err := unmarshalConfig(data, format, &cfg); err != nil {
		return MaskableConfig{}, fmt.Errorf("softmask: parse maskable config (%v): %w", format, err)
	}
	if _, err := cfg.Code(); err != nil {
		return MaskableConfig{}, err
	}
	return cfg, nil
}

// Code packs Interaction into an InteractionCode.
func (cfg MaskableConfig) Code() (InteractionCode, error) {
	if cfg.Interaction == nil {
		return InteractionInsideAll, nil
	}
	if len(cfg.Interaction) > MaxDepth {
		return 0, fmt.Errorf("softmask: %d interaction depths, at most %d: %w",
			len(cfg.Interaction), MaxDepth, ErrInvalidInteraction)
	}
	var modes [MaxDepth]MaskInteraction
	for i, m := range cfg.Interaction {
		if m > InteractionVisibleOutside {
			return 0, fmt.Errorf("softmask: depth %d: %w", i, ErrInvalidInteraction)
		}
		modes[i] = m
	}
	return PackInteraction(modes[0], modes[1], modes[2], modes[3]), nil
}

// MaskableConfig returns e's consumer configuration.
func (e *Element) MaskableConfig() MaskableConfig {
	cfg := MaskableConfig{Maskable: e.maskable}
	if e.Interaction != InteractionInsideAll {
		cfg.Interaction = make([]MaskInteraction, MaxDepth)
		for d := range cfg.Interaction {
			cfg.Interaction[d] = e.Interaction.At(d)
		}
	}
	return cfg
}

// ApplyMaskableConfig sets e's consumer configuration.
func (e *Element) ApplyMaskableConfig(cfg MaskableConfig) error {
	code, err := cfg.Code()
	if err != nil {
		return err
	}
	e.Interaction = code
	e.SetMaskable(cfg.Maskable)
	return nil
}
