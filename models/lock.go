package models

import (
	"errors"
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"

	"go_enhance/backend"
)

// LockFileName is the manifest file name inside a models directory.
const LockFileName = "models.lock"

var (
	// ErrUnknownModel is returned when the manifest has no entry for a model.
	ErrUnknownModel = errors.New("models: model not in manifest")

	// ErrMissingFile is returned when a model entry lacks an expected artifact.
	ErrMissingFile = errors.New("models: artifact not in manifest")
)

// FileEntry describes one artifact file.
type FileEntry struct {
	Path     string `yaml:"path"`
	SHA256   string `yaml:"sha256"`
	MinBytes int64  `yaml:"min_bytes,omitempty"`
}

// ModelEntry lists the artifacts of one model.
type ModelEntry struct {
	Name    string      `yaml:"name"`
	Backend string      `yaml:"backend,omitempty"`
	Files   []FileEntry `yaml:"files"`
}

// Manifest is the parsed models.lock. JSON manifests parse too, since YAML is
// a superset.
type Manifest struct {
	Version int          `yaml:"version"`
	Models  []ModelEntry `yaml:"models"`
}

// ParseManifest decodes manifest bytes.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("models: parse manifest: %w", err)
	}
	return &m, nil
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(file string) (*Manifest, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("models: read manifest: %w", err)
	}
	return ParseManifest(data)
}

// Save writes the manifest as YAML.
func (m *Manifest) Save(file string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("models: encode manifest: %w", err)
	}
	return os.WriteFile(file, data, 0o644)
}

func (m *Manifest) model(name backend.Model) (*ModelEntry, error) {
	for i := range m.Models {
		if m.Models[i].Name == string(name) {
			return &m.Models[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
}

func (e *ModelEntry) file(name string) (FileEntry, bool) {
	for _, f := range e.Files {
		if path.Base(f.Path) == name {
			return f, true
		}
	}
	return FileEntry{}, false
}

// ChecksumsFor returns the digests of the variant of model loaded by d.
func (m *Manifest) ChecksumsFor(name backend.Model, d backend.Delegate) (Checksums, error) {
	entry, err := m.model(name)
	if err != nil {
		return Checksums{}, err
	}
	param, ok := entry.file(FileName(name, d, KindParam))
	if !ok {
		return Checksums{}, fmt.Errorf("%w: %s", ErrMissingFile, FileName(name, d, KindParam))
	}
	bin, ok := entry.file(FileName(name, d, KindBin))
	if !ok {
		return Checksums{}, fmt.Errorf("%w: %s", ErrMissingFile, FileName(name, d, KindBin))
	}
	return Checksums{Param: param.SHA256, Bin: bin.SHA256}, nil
}

// Variants returns both precision variants of model.
func (m *Manifest) Variants(name backend.Model) (VariantChecksums, error) {
	cpu, err := m.ChecksumsFor(name, backend.CPU)
	if err != nil {
		return VariantChecksums{}, err
	}
	acc, err := m.ChecksumsFor(name, backend.Accelerated)
	if err != nil {
		return VariantChecksums{}, err
	}
	return VariantChecksums{CPU: cpu, Accelerated: acc}, nil
}

// Files returns every artifact in manifest order.
func (m *Manifest) Files() []FileEntry {
	var out []FileEntry
	for _, e := range m.Models {
		out = append(out, e.Files...)
	}
	return out
}
