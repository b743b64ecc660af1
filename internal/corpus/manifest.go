package corpus

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestVersion is the current schema version
const ManifestVersion = 1

// Manifest is a YAML file naming the reference corpus:
//
//	version: 1
//	files:
//	  - security-policy.pdf
//	  - operations.pdf
type Manifest struct {
	Version int      `yaml:"version"`
	Files   []string `yaml:"files"`
}

// NewManifest creates a manifest for the given files.
func NewManifest(files []string) *Manifest {
	return &Manifest{Version: ManifestVersion, Files: files}
}

// LoadManifest reads and validates a manifest from disk.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return &manifest, nil
}

// Validate checks the schema version and every listed filename.
func (m *Manifest) Validate() error {
	if m.Version != 0 && m.Version != ManifestVersion {
		return fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	for _, name := range m.Files {
		if err := ValidateFilename(name); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the manifest to disk atomically.
func (m *Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename manifest file: %w", err)
	}
	return nil
}
