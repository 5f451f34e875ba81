package reference

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"go_enhance/backend"
	"go_enhance/integrity"
	"go_enhance/models"
)

// DefaultParams returns the built-in description of model.
func DefaultParams(model backend.Model, d backend.Delegate) (Params, []float32) {
	switch model {
	case backend.ZeroDCE:
		return Params{
			Model: string(model), Op: OpCurve, Precision: d.Precision(),
			Channels: 3, Iterations: 4, Weights: 3,
		}, []float32{0.35, 0.35, 0.3}
	default:
		k := float32(1) / 16
		return Params{
				Model: string(model), Op: OpDenoise, Precision: d.Precision(),
				Channels: 3, Weights: 10,
			}, []float32{
				1 * k, 2 * k, 1 * k,
				2 * k, 4 * k, 2 * k,
				1 * k, 2 * k, 1 * k,
				0.5,
			}
	}
}

// WriteArtifacts writes every model variant into dir and returns a manifest
// describing them.
func WriteArtifacts(dir string) (*models.Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	m := &models.Manifest{Version: 1}
	for _, model := range backend.Models {
		entry := models.ModelEntry{Name: string(model), Backend: "reference"}
		for _, d := range []backend.Delegate{backend.CPU, backend.Accelerated} {
			p, w := DefaultParams(model, d)
			param, err := yaml.Marshal(p)
			if err != nil {
				return nil, err
			}
			for _, a := range []struct {
				kind string
				data []byte
			}{
				{models.KindParam, param},
				{models.KindBin, EncodeWeights(w)},
			} {
				name := models.FileName(model, d, a.kind)
				if err := os.WriteFile(filepath.Join(dir, name), a.data, 0o644); err != nil {
					return nil, fmt.Errorf("write %s: %w", name, err)
				}
				entry.Files = append(entry.Files, models.FileEntry{
					Path:     name,
					SHA256:   integrity.DigestBytes(a.data),
					MinBytes: int64(len(a.data)),
				})
			}
		}
		m.Models = append(m.Models, entry)
	}
	return m, nil
}
