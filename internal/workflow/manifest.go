package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/wavecal/calibration-core/internal/grid"
)

const manifestFileName = "manifest.yaml"

// Manifest records which jobs a previous run already emitted. It is the
// source of truth for idempotent re-runs; filesystem existence checks are
// only a secondary guard.
type Manifest struct {
	Emitted []string `yaml:"emitted"`

	seen map[string]bool
}

// Contains reports whether the job was already emitted
func (m *Manifest) Contains(id grid.JobID) bool {
	return m.seen[id.String()]
}

// Add records a newly emitted job
func (m *Manifest) Add(id grid.JobID) {
	key := id.String()
	if m.seen[key] {
		return
	}
	m.seen[key] = true
	m.Emitted = append(m.Emitted, key)
}

// loadManifest reads the manifest from workDir; a missing file is an empty
// manifest, anything else unreadable is fatal.
func loadManifest(workDir string) (*Manifest, error) {
	m := &Manifest{seen: make(map[string]bool)}

	path := filepath.Join(workDir, manifestFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	for _, key := range m.Emitted {
		m.seen[key] = true
	}
	return m, nil
}

// save persists the manifest atomically via a rename
func (m *Manifest) save(workDir string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	path := filepath.Join(workDir, manifestFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}
