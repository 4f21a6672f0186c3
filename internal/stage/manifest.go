package stage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ManifestFile is the name of the manifest written into a package root.
const ManifestFile = "manifest.json"

// Manifest lists the artifacts of a package, sorted by destination path.
type Manifest struct {
	Name        string            `json:"name,omitempty"`
	Version     string            `json:"version,omitempty"`
	License     string            `json:"license,omitempty"`
	Settings    string            `json:"settings,omitempty"`
	Options     map[string]string `json:"options,omitempty"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Artifacts   []Artifact        `json:"artifacts"`
}

// Count returns the number of artifacts of category c.
func (m *Manifest) Count(c Category) int {
	n := 0
	for _, a := range m.Artifacts {
		if a.Category == c {
			n++
		}
	}
	return n
}

// Marshal returns the indented JSON encoding of m.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// WriteFile writes m to path.
func (m *Manifest) WriteFile(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadManifest reads a manifest written by WriteFile.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("stage: parse %s: %w", path, err)
	}
	return &m, nil
}

// -----------------------------------------------------------------------------

// Stage copies the artifacts of m into packageRoot.
func (c *Collector) Stage(m *Manifest, packageRoot string) error {
	for _, a := range m.Artifacts {
		root := c.StagingRoot
		if a.From == Source.String() {
			root = c.SourceRoot
		}
		dst := filepath.Join(packageRoot, filepath.FromSlash(a.Dest))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if a.Link != "" {
			if err := os.Symlink(filepath.FromSlash(a.Link), dst); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(filepath.Join(root, filepath.FromSlash(a.Source)), dst); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
