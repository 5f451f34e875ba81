// Package models locates, describes and installs the network artifacts the
// engine loads.
package models

import (
	"fmt"
	"path/filepath"

	"go_enhance/backend"
)

// Artifact kinds.
const (
	KindParam = "param"
	KindBin   = "bin"
)

// Checksums are the expected SHA-256 hex digests of one model variant.
type Checksums struct {
	Param string `yaml:"param"`
	Bin   string `yaml:"bin"`
}

// VariantChecksums holds the digests of both precision variants of a model.
type VariantChecksums struct {
	CPU         Checksums `yaml:"cpu"`
	Accelerated Checksums `yaml:"accelerated"`
}

// For returns the digests of the variant loaded by delegate.
func (v VariantChecksums) For(d backend.Delegate) Checksums {
	if d == backend.Accelerated {
		return v.Accelerated
	}
	return v.CPU
}

// FileName returns the artifact name for a model variant, e.g. "zerodce_fp16.bin".
func FileName(model backend.Model, d backend.Delegate, kind string) string {
	return fmt.Sprintf("%s_%s.%s", model, d.Precision(), kind)
}

// Layout resolves artifact paths under Dir.
type Layout struct {
	Dir string
}

// Paths returns the param and bin paths of a model variant.
func (l Layout) Paths(model backend.Model, d backend.Delegate) (param, bin string) {
	return filepath.Join(l.Dir, FileName(model, d, KindParam)),
		filepath.Join(l.Dir, FileName(model, d, KindBin))
}
