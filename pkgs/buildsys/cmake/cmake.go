// Package cmake drives CMake-based builds.
package cmake

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goplus/llpack/pkgs/buildsys"
)

// incompleteMarker is printed by CMake when the generate step hit errors.
const incompleteMarker = "Configuring incomplete, errors occurred!"

// CMake implements buildsys.Driver on top of the cmake executable.
type CMake struct {
	bin       string
	generator string
	toolchain string
	runner    buildsys.Runner
}

var _ buildsys.Driver = (*CMake)(nil)

// New returns a CMake driver using the cmake binary found in PATH.
func New() *CMake {
	return &CMake{bin: "cmake", runner: buildsys.Runner{Env: map[string]string{}}}
}

// Binary overrides the cmake executable.
func (c *CMake) Binary(path string) *CMake {
	c.bin = path
	return c
}

// Generator sets the CMake generator (e.g. "Ninja", "Unix Makefiles").
func (c *CMake) Generator(name string) *CMake {
	c.generator = name
	return c
}

// Toolchain sets CMAKE_TOOLCHAIN_FILE.
func (c *CMake) Toolchain(path string) *CMake {
	c.toolchain = path
	return c
}

// Stdout streams tool output to w in addition to capturing it.
func (c *CMake) Stdout(w io.Writer) *CMake {
	c.runner.Stdout = w
	return c
}

// Env sets key=value for every command spawned later.
func (c *CMake) Env(key, value string) *CMake {
	c.runner.Env[key] = value
	return c
}

// Configure runs "cmake -S <source> -B <build>" with all definitions.
func (c *CMake) Configure(ctx context.Context, req buildsys.ConfigureRequest) error {
	if err := os.MkdirAll(req.BuildDir, 0o755); err != nil {
		return err
	}
	args := c.configureArgs(req)
	out, err := c.runner.Run(ctx, req.BuildDir, c.bin, args...)
	if err != nil {
		return err
	}
	if strings.Contains(out, incompleteMarker) {
		return &buildsys.ExitError{Tool: c.bin, Args: args, Output: out}
	}
	return nil
}

func (c *CMake) configureArgs(req buildsys.ConfigureRequest) []string {
	defs := req.Definitions.Clone()
	if defs == nil {
		defs = buildsys.Definitions{}
	}
	if req.StagingRoot != "" {
		defs["CMAKE_INSTALL_PREFIX"] = buildsys.String(req.StagingRoot)
	}
	if c.toolchain != "" {
		defs["CMAKE_TOOLCHAIN_FILE"] = buildsys.String(c.toolchain)
	}
	s := req.Settings
	if s.BuildType != "" {
		defs["CMAKE_BUILD_TYPE"] = buildsys.String(s.BuildType)
	}
	if s.Compiler != "" {
		defs["CMAKE_C_COMPILER"] = buildsys.String(s.Compiler)
	}

	args := []string{"-S", absPath(req.SourceDir), "-B", absPath(req.BuildDir)}
	if c.generator != "" {
		args = append(args, "-G", c.generator)
	}
	for _, k := range defs.Keys() {
		v := defs[k]
		args = append(args, "-D"+k+":"+v.TypeName()+"="+v.Render())
	}
	return args
}

// Build runs "cmake --build <build>" with the build type and job count of s.
func (c *CMake) Build(ctx context.Context, buildDir string, s buildsys.Settings) error {
	_, err := c.runner.Run(ctx, buildDir, c.bin, c.buildArgs(buildDir, s)...)
	return err
}

func (c *CMake) buildArgs(buildDir string, s buildsys.Settings) []string {
	args := []string{"--build", absPath(buildDir)}
	if s.BuildType != "" {
		args = append(args, "--config", s.BuildType)
	}
	if s.Jobs > 0 {
		args = append(args, "--parallel", strconv.Itoa(s.Jobs))
	}
	return args
}

// Install runs "cmake --install <build> --prefix <stagingRoot>".
func (c *CMake) Install(ctx context.Context, buildDir, stagingRoot string) error {
	args := []string{"--install", absPath(buildDir)}
	if stagingRoot != "" {
		args = append(args, "--prefix", absPath(stagingRoot))
	}
	_, err := c.runner.Run(ctx, buildDir, c.bin, args...)
	return err
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
