package ingest

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Source is one directory of raw JSON array files.
type Source struct {
	Name    string `yaml:"name"`
	Dir     string `yaml:"dir"`
	Pattern string `yaml:"pattern"`
}

// Manifest lists the raw sources a merge run reads, in order. Later
// sources win on id collisions.
type Manifest struct {
	Sources []Source `yaml:"sources"`
}

// DefaultManifest mirrors the layout of the original data directory:
// domestic food-safety exports next to a raw_imported subdirectory.
func DefaultManifest(dataDir string) Manifest {
	return Manifest{Sources: []Source{
		{Name: "domestic", Dir: dataDir, Pattern: "spirits_*.json"},
		{Name: "imported", Dir: filepath.Join(dataDir, "raw_imported"), Pattern: "*.json"},
	}}
}

// LoadManifest reads a YAML manifest, falling back to the default layout
// when the file does not exist.
func LoadManifest(path, dataDir string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultManifest(dataDir), nil
		}
		return Manifest{}, err
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, err
	}
	if len(m.Sources) == 0 {
		return DefaultManifest(dataDir), nil
	}
	return m, nil
}
