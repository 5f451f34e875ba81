// Package reference is a pure Go implementation of backend.Backend. It runs
// small closed-form stand-ins for the two networks so the engine can be driven
// end to end without a native inference runtime.
package reference

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Operations understood by the reference runtime.
const (
	OpCurve    = "curve"
	OpDenoise  = "denoise"
	OpIdentity = "identity"
)

// Params is the YAML network description stored in a .param file.
type Params struct {
	Model      string `yaml:"model"`
	Op         string `yaml:"op"`
	Precision  string `yaml:"precision"`
	Channels   int    `yaml:"channels"`
	Iterations int    `yaml:"iterations,omitempty"`
	Weights    int    `yaml:"weights"`
}

func (p Params) validate() error {
	if p.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", p.Channels)
	}
	switch p.Op {
	case OpIdentity:
	case OpCurve:
		if p.Weights != p.Channels {
			return fmt.Errorf("curve needs one weight per channel, got %d", p.Weights)
		}
		if p.Iterations <= 0 {
			return fmt.Errorf("curve needs iterations, got %d", p.Iterations)
		}
	case OpDenoise:
		if p.Weights != 10 {
			return fmt.Errorf("denoise needs a 3x3 kernel and a mix weight, got %d", p.Weights)
		}
	default:
		return fmt.Errorf("unknown op %q", p.Op)
	}
	return nil
}

// ReadParams parses a .param file.
func ReadParams(path string) (Params, error) {
	var p Params
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse %s: %w", path, err)
	}
	return p, p.validate()
}

// ReadWeights loads n little-endian float32 values from path.
func ReadWeights(path string, n int) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) != 4*n {
		return nil, fmt.Errorf("%s: %d bytes, want %d", path, len(data), 4*n)
	}
	w := make([]float32, n)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, w); err != nil {
		return nil, err
	}
	for i, v := range w {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("%s: weight %d is not finite", path, i)
		}
	}
	return w, nil
}

// EncodeWeights serialises weights in the .bin layout.
func EncodeWeights(w []float32) []byte {
	var buf bytes.Buffer
	// bytes.Buffer writes cannot fail
	_ = binary.Write(&buf, binary.LittleEndian, w)
	return buf.Bytes()
}
