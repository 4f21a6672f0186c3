// Package build runs a recipe end to end: it validates and translates the
// options, drives the toolchain through the sequencer and stages the
// resulting package in the workspace.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goplus/llpack/internal/env"
	"github.com/goplus/llpack/internal/recipe"
	"github.com/goplus/llpack/internal/sequencer"
	"github.com/goplus/llpack/internal/stage"
	"github.com/goplus/llpack/mod/module"
	"github.com/goplus/llpack/pkgs/buildsys"
	"github.com/qiniu/x/log"
)

// ErrStagingBusy is returned when another run holds the staging root.
var ErrStagingBusy = errors.New("staging root is in use by another build")

// Options configures a Builder.
type Options struct {
	WorkspaceDir string // defaults to env.WorkDir()
	Driver       buildsys.Driver
	Settings     buildsys.Settings
	Force        bool // ignore the local cache
}

// Builder builds recipes into a workspace.
type Builder struct {
	workspaceDir string
	driver       buildsys.Driver
	settings     buildsys.Settings
	force        bool
}

// Result describes a staged package.
type Result struct {
	Manifest    *stage.Manifest
	PackageDir  string
	Definitions buildsys.Definitions
	Cached      bool
}

// NewBuilder creates a Builder from opts.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.Driver == nil {
		return nil, errors.New("build: no build system driver")
	}
	dir := opts.WorkspaceDir
	if dir == "" {
		var err error
		if dir, err = env.WorkDir(); err != nil {
			return nil, err
		}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &Builder{
		workspaceDir: dir,
		driver:       opts.Driver,
		settings:     opts.Settings,
		force:        opts.Force,
	}, nil
}

// Build validates overrides against r, runs the toolchain on sourceDir and
// stages the package. Invalid options fail before any directory is created
// or tool is started. On failure nothing is left in the staging or package
// directories.
func (b *Builder) Build(ctx context.Context, r *recipe.Recipe, sourceDir string, overrides map[string]any) (*Result, error) {
	set, err := r.Validate(overrides)
	if err != nil {
		return nil, err
	}
	defs := r.Translate(set)
	fp := defs.Fingerprint()
	mv := module.Version{Path: r.Name, Version: r.Version}

	sourceDir, err = filepath.Abs(sourceDir)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(sourceDir); err != nil {
		return nil, err
	} else if !info.IsDir() {
		return nil, fmt.Errorf("build: source %s is not a directory", sourceDir)
	}

	runDir, err := b.installDir(mv, fp)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, err
	}
	unlock, err := lockStaging(filepath.Join(runDir, ".lock"))
	if err != nil {
		return nil, err
	}
	defer unlock()

	tree := sequencer.Tree{
		SourceDir:   sourceDir,
		BuildDir:    filepath.Join(runDir, "build"),
		StagingRoot: filepath.Join(runDir, "staging"),
	}
	packageDir := filepath.Join(runDir, "package")
	manifestPath := filepath.Join(packageDir, stage.ManifestFile)

	cachePath := filepath.Join(runDir, cacheFile)

	srcDigest, err := sourceDigest(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("build: hash source: %w", err)
	}
	inputs := &buildCache{
		Fingerprint:  fp,
		SourceDir:    sourceDir,
		SourceDigest: srcDigest,
		RecipeDigest: recipeDigest(r),
		Options:      set.Canonical(),
	}

	// the cache is consulted under the lock; a concurrent run may have
	// just finished this configuration
	if !b.force {
		if cache, err := loadBuildCache(cachePath); err == nil && cache.matches(inputs) {
			if m, err := stage.ReadManifest(manifestPath); err == nil {
				log.Infof("build: %s cached (%s, built %s)", mv, cache.Options, cache.BuildTime.Format(time.RFC3339))
				return &Result{Manifest: m, PackageDir: packageDir, Definitions: defs, Cached: true}, nil
			}
		} else if err != nil && !os.IsNotExist(err) {
			log.Warnf("build: ignoring unreadable cache: %v", err)
		}
	}
	if err := os.Remove(cachePath); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	// start from empty roots so stale files never leak into the package
	for _, dir := range []string{tree.StagingRoot, packageDir} {
		if err := os.RemoveAll(dir); err != nil {
			return nil, err
		}
	}

	log.Infof("build: %s [%s] in %s", mv, set.Canonical(), runDir)
	if err := os.MkdirAll(tree.BuildDir, 0o755); err != nil {
		return nil, err
	}
	if _, err := sequencer.New(b.driver, b.settings).Run(ctx, tree, defs); err != nil {
		return nil, fmt.Errorf("build %s: %w", mv, err)
	}

	m, err := b.stage(r, tree, packageDir)
	if err != nil {
		os.RemoveAll(tree.StagingRoot)
		os.RemoveAll(packageDir)
		return nil, fmt.Errorf("package %s: %w", mv, err)
	}
	m.Fingerprint = fp
	m.Options = make(map[string]string, len(set.Map()))
	for k, v := range set.Map() {
		m.Options[k] = fmt.Sprint(v)
	}
	if err := m.WriteFile(manifestPath); err != nil {
		os.RemoveAll(tree.StagingRoot)
		os.RemoveAll(packageDir)
		return nil, err
	}

	inputs.Artifacts = len(m.Artifacts)
	inputs.BuildTime = time.Now()
	if err := saveBuildCache(cachePath, inputs); err != nil {
		log.Warnf("build: save cache: %v", err)
	}
	log.Infof("build: %s packaged %d artifacts into %s", mv, len(m.Artifacts), packageDir)
	return &Result{Manifest: m, PackageDir: packageDir, Definitions: defs}, nil
}

func (b *Builder) stage(r *recipe.Recipe, tree sequencer.Tree, packageDir string) (*stage.Manifest, error) {
	c := &stage.Collector{StagingRoot: tree.StagingRoot, SourceRoot: tree.SourceDir}
	m, err := c.Collect(r.Selectors)
	if err != nil {
		return nil, err
	}
	m.Name = r.Name
	m.Version = r.Version
	m.License = r.License
	m.Settings = b.settings.String()
	if err := os.MkdirAll(packageDir, 0o755); err != nil {
		return nil, err
	}
	if err := c.Stage(m, packageDir); err != nil {
		return nil, err
	}
	return m, nil
}
