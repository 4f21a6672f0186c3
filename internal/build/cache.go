package build

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goplus/llpack/mod/module"
)

// Workspace directory layout:
//
//	workspaceDir/
//	  <escaped>@<version>-<settings>-<fp12>/       # run dir (installDir)
//	    .lock
//	    .cache.json                                # inputs of the package below
//	    build/
//	    staging/
//	    package/
//	      manifest.json
//
// The cache file lives inside the run dir, so it is only read and written
// while the run's lock is held.
const cacheFile = ".cache.json"

// buildCache records the inputs a package in the run dir was built from.
type buildCache struct {
	Fingerprint  string    `json:"fingerprint"`
	SourceDir    string    `json:"source_dir"`
	SourceDigest string    `json:"source_digest"`
	RecipeDigest string    `json:"recipe_digest"`
	Options      string    `json:"options"`
	Artifacts    int       `json:"artifacts"`
	BuildTime    time.Time `json:"build_time"`
}

// matches reports whether c was built from the same inputs as want.
func (c *buildCache) matches(want *buildCache) bool {
	return c.Fingerprint == want.Fingerprint &&
		c.SourceDir == want.SourceDir &&
		c.SourceDigest == want.SourceDigest &&
		c.RecipeDigest == want.RecipeDigest
}

// installDir returns the run directory:
// workspaceDir/<escapedPath>@<version>-<settings>-<fp12>.
func (b *Builder) installDir(mv module.Version, fingerprint string) (string, error) {
	escaped, err := module.EscapePath(mv.Path)
	if err != nil {
		return "", err
	}
	version := "0"
	if mv.Version != "" {
		if version, err = module.EscapeVersion(mv.Version); err != nil {
			return "", err
		}
	}
	return filepath.Join(b.workspaceDir,
		fmt.Sprintf("%s@%s-%s-%s", escaped, version, b.settings, shortFingerprint(fingerprint))), nil
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

// loadBuildCache reads the cache file at path.
func loadBuildCache(path string) (*buildCache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cache buildCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("build: parse %s: %w", path, err)
	}
	return &cache, nil
}

// saveBuildCache writes cache to path through a temporary file, so a
// reader sees either the old or the new content.
func saveBuildCache(path string, cache *buildCache) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), cacheFile+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
