// Package stage selects the installed files that belong in a package and
// records them in a manifest.
package stage

import (
	_ "crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/opencontainers/go-digest"
)

// MissingRequiredArtifactError reports a required selector that matched
// nothing, such as a package without its license text.
type MissingRequiredArtifactError struct {
	Category Category
	Pattern  string
}

func (e *MissingRequiredArtifactError) Error() string {
	return fmt.Sprintf("no %s artifact matches %q", e.Category, e.Pattern)
}

// Artifact is one file selected for the package.
type Artifact struct {
	Category Category      `json:"category"`
	From     string        `json:"from"`   // "staging" or "source"
	Source   string        `json:"source"` // slash path relative to its root
	Dest     string        `json:"dest"`   // slash path relative to the package root
	Size     int64         `json:"size"`
	Digest   digest.Digest `json:"digest"`
	Link     string        `json:"link,omitempty"` // symlink target
}

// Collector collects artifacts from a staging root and, for selectors that
// ask for it, the source tree.
type Collector struct {
	StagingRoot string
	SourceRoot  string
}

// Collect collects the artifacts selected under stagingRoot.
func Collect(stagingRoot string, selectors []Selector) (*Manifest, error) {
	c := &Collector{StagingRoot: stagingRoot}
	return c.Collect(selectors)
}

// Collect walks the roots and assigns every file to the first selector that
// matches it. Unmatched files are left out. The manifest is sorted by
// destination path.
func (c *Collector) Collect(selectors []Selector) (*Manifest, error) {
	for _, s := range selectors {
		if err := s.validate(); err != nil {
			return nil, err
		}
		if s.From == Source && c.SourceRoot == "" {
			return nil, fmt.Errorf("stage: selector %q reads the source tree but none was given", s.Pattern)
		}
	}

	files := make(map[Root][]string)
	for _, root := range []Root{Staging, Source} {
		dir := c.dir(root)
		if dir == "" {
			continue
		}
		list, err := listFiles(dir)
		if err != nil {
			return nil, err
		}
		files[root] = list
	}

	hits := make([]int, len(selectors))
	byDest := make(map[string]Artifact)
	for _, root := range []Root{Staging, Source} {
		for _, rel := range files[root] {
			for i, s := range selectors {
				if s.From != root || !s.Match(rel) {
					continue
				}
				dest := s.destination(rel)
				if dest == ManifestFile {
					return nil, fmt.Errorf("stage: %s would replace the package %s", rel, ManifestFile)
				}
				if prev, dup := byDest[dest]; dup {
					return nil, fmt.Errorf("stage: %s and %s both map to %s", prev.Source, rel, dest)
				}
				a, err := c.artifact(root, rel, dest, s.Category)
				if err != nil {
					return nil, err
				}
				byDest[dest] = a
				hits[i]++
				break
			}
		}
	}

	licenses, licensePattern := 0, ""
	for i, s := range selectors {
		if s.Required && hits[i] == 0 {
			return nil, &MissingRequiredArtifactError{Category: s.Category, Pattern: s.Pattern}
		}
		if s.Category == License {
			licenses += hits[i]
			licensePattern = s.Pattern
		}
	}
	// a package that selects licenses at all must ship at least one
	if licensePattern != "" && licenses == 0 {
		return nil, &MissingRequiredArtifactError{Category: License, Pattern: licensePattern}
	}

	m := &Manifest{Artifacts: make([]Artifact, 0, len(byDest))}
	for _, a := range byDest {
		m.Artifacts = append(m.Artifacts, a)
	}
	sort.Slice(m.Artifacts, func(i, j int) bool {
		return m.Artifacts[i].Dest < m.Artifacts[j].Dest
	})
	return m, nil
}

func (c *Collector) dir(root Root) string {
	if root == Source {
		return c.SourceRoot
	}
	return c.StagingRoot
}

func (c *Collector) artifact(root Root, rel, dest string, cat Category) (Artifact, error) {
	a := Artifact{Category: cat, From: root.String(), Source: rel, Dest: dest}
	name := filepath.Join(c.dir(root), filepath.FromSlash(rel))
	info, err := os.Lstat(name)
	if err != nil {
		return Artifact{}, err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		// shared libraries come with soname links; keep them as links
		target, err := os.Readlink(name)
		if err != nil {
			return Artifact{}, err
		}
		a.Link = filepath.ToSlash(target)
		a.Digest = digest.FromString(a.Link)
		return a, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return Artifact{}, err
	}
	defer f.Close()
	if a.Digest, err = digest.SHA256.FromReader(f); err != nil {
		return Artifact{}, err
	}
	a.Size = info.Size()
	return a, nil
}

// listFiles returns the regular files and symlinks under dir as sorted
// slash paths.
func listFiles(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
