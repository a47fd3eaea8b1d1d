package softmask

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedShader is wrapped by a ConfigError when a base material's
	// shader has no masked variant.
	ErrUnsupportedShader = errors.New("softmask: unsupported base shader")

	// ErrInvalidInteraction is wrapped by a ConfigError when an interaction
	// code holds a field outside {none, inside, outside}.
	ErrInvalidInteraction = errors.New("softmask: invalid interaction code")
)

// ConfigError reports a configuration mistake detected while synthesizing a
// derived material. The call that returned it also returned the unmodified
// base material, so masking is disabled for that draw rather than failing.
type ConfigError struct {
	Material string // base material name
	Shader   string // base shader name, when the shader is at fault
	Err      error
}

func (e *ConfigError) Error() string {
	if e.Shader != "" {
		return fmt.Sprintf("%v %q (material %q)", e.Err, e.Shader, e.Material)
	}
	return fmt.Sprintf("%v (material %q)", e.Err, e.Material)
}

func (e *ConfigError) Unwrap() error { return e.Err }
