// Package autotools drives the classic configure/make/make-install workflow.
package autotools

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goplus/llpack/pkgs/buildsys"
)

// AutoTools implements buildsys.Driver for configure scripts.
//
// Boolean definitions become --enable-<name>/--disable-<name>, string
// definitions become --<key>=<value>. Keys are lower-cased and underscores
// are turned into dashes, so ENABLE_FLOAT and enable-float are equivalent.
type AutoTools struct {
	make   string
	runner buildsys.Runner
}

var _ buildsys.Driver = (*AutoTools)(nil)

// New returns a ready-to-use AutoTools.
func New() *AutoTools {
	return &AutoTools{make: "make", runner: buildsys.Runner{Env: map[string]string{}}}
}

// Make overrides the make executable (e.g. "gmake").
func (a *AutoTools) Make(path string) *AutoTools {
	a.make = path
	return a
}

// Stdout streams tool output to w in addition to capturing it.
func (a *AutoTools) Stdout(w io.Writer) *AutoTools {
	a.runner.Stdout = w
	return a
}

// Env sets key=value for every command spawned later.
func (a *AutoTools) Env(key, value string) *AutoTools {
	a.runner.Env[key] = value
	return a
}

// Configure runs <source>/configure inside the build directory.
func (a *AutoTools) Configure(ctx context.Context, req buildsys.ConfigureRequest) error {
	if err := os.MkdirAll(req.BuildDir, 0o755); err != nil {
		return err
	}
	exe := filepath.Join(absPath(req.SourceDir), "configure")
	if req.Settings.Compiler != "" {
		a.runner.Env["CC"] = req.Settings.Compiler
	}
	_, err := a.runner.Run(ctx, req.BuildDir, exe, configureArgs(req)...)
	return err
}

func configureArgs(req buildsys.ConfigureRequest) []string {
	args := make([]string, 0, len(req.Definitions)+1)
	if req.StagingRoot != "" {
		args = append(args, "--prefix="+absPath(req.StagingRoot))
	}
	for _, k := range req.Definitions.Keys() {
		v := req.Definitions[k]
		if v.Kind() == buildsys.BoolValue {
			args = append(args, boolFlag(k, v.AsBool()))
			continue
		}
		args = append(args, "--"+flagName(k)+"="+v.AsString())
	}
	return args
}

// boolFlag renders a boolean definition. A DISABLE_ key flips the value, so
// DISABLE_FORTRAN=ON and ENABLE_FORTRAN=OFF both give --disable-fortran.
func boolFlag(key string, on bool) string {
	name := flagName(key)
	if after, ok := strings.CutPrefix(name, "disable-"); ok {
		name, on = after, !on
	} else if after, ok := strings.CutPrefix(name, "enable-"); ok {
		name = after
	}
	if on {
		return "--enable-" + name
	}
	return "--disable-" + name
}

func flagName(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "_", "-")
}

// Build runs "make" with the job count of s.
func (a *AutoTools) Build(ctx context.Context, buildDir string, s buildsys.Settings) error {
	var args []string
	if s.Jobs > 0 {
		args = append(args, "-j"+strconv.Itoa(s.Jobs))
	}
	_, err := a.runner.Run(ctx, buildDir, a.make, args...)
	return err
}

// Install runs "make install". The prefix was fixed at configure time.
func (a *AutoTools) Install(ctx context.Context, buildDir, stagingRoot string) error {
	_, err := a.runner.Run(ctx, buildDir, a.make, "install")
	return err
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
