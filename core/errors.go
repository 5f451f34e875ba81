package core

import (
	"errors"
	"fmt"
)

// ConfigError is a configuration problem with an instruction for fixing it.
type ConfigError struct {
	Code    string
	Message string
	Action  string
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeInvalidTile      = "INVALID_TILE_CONFIG"
	ErrCodeInvalidThreshold = "INVALID_THRESHOLD"
	ErrCodeInvalidProfile   = "INVALID_PROFILE"
	ErrCodeInvalidStrength  = "INVALID_STRENGTH"
	ErrCodeInvalidPadding   = "INVALID_PADDING"
	ErrCodeInvalidAccel     = "INVALID_ACCELERATOR"
	ErrCodeMissingConfig    = "MISSING_CONFIG"
	ErrCodeManifestMissing  = "MANIFEST_MISSING"
)

// ErrInvalidTile reports a tile size/overlap pair that cannot be tiled.
func ErrInvalidTile(stage string, tile, overlap int) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidTile,
		Message: fmt.Sprintf("Invalid %s tiling: tile %d with overlap %d", stage, tile, overlap),
		Action:  "Use a positive tile size larger than twice the overlap",
	}
}

// ErrInvalidThreshold reports a non-positive enhancement threshold.
func ErrInvalidThreshold(name string, value float64) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidThreshold,
		Message: fmt.Sprintf("Invalid %s: %g", name, value),
		Action:  fmt.Sprintf("Set %s to a positive value", name),
	}
}

// ErrInvalidProfile reports an unknown profile name.
func ErrInvalidProfile(value string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidProfile,
		Message: fmt.Sprintf("Unknown profile %q", value),
		Action:  "Set ENHANCE_PROFILE to balanced or quality",
	}
}

// ErrInvalidPadding reports an unknown padding mode.
func ErrInvalidPadding(key, value string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidPadding,
		Message: fmt.Sprintf("Unknown padding %q in %s", value, key),
		Action:  fmt.Sprintf("Set %s to zero or reflect", key),
	}
}

// ErrInvalidAccelerator reports an unknown accelerator mode.
func ErrInvalidAccelerator(value string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidAccel,
		Message: fmt.Sprintf("Unknown accelerator mode %q", value),
		Action:  "Set ENHANCE_ACCELERATOR to auto, on or off",
	}
}

// ErrInvalidStrength reports a strength outside [0,1].
func ErrInvalidStrength(value float64) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidStrength,
		Message: fmt.Sprintf("Strength %g is outside [0, 1]", value),
		Action:  "Pass a strength between 0 and 1",
	}
}

// ErrMissingConfig reports a required setting that is empty.
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in the environment or your .env file", varName),
	}
}

// ErrManifestMissing reports a models directory without a lock file.
func ErrManifestMissing(path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeManifestMissing,
		Message: fmt.Sprintf("Model manifest not found: %s", path),
		Action:  "Run with -bootstrap to generate reference models, or install a models.lock",
	}
}

// IsConfigError returns err as a ConfigError when it is or wraps one.
func IsConfigError(err error) (*ConfigError, bool) {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// GetErrorCode extracts the code of a ConfigError, or "".
func GetErrorCode(err error) string {
	if ce, ok := IsConfigError(err); ok {
		return ce.Code
	}
	return ""
}
