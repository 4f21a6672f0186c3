// Package buildsys is the boundary between the orchestrator and an external
// build toolchain (CMake, Autotools, etc).
package buildsys

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Driver runs the three toolchain steps. Each call blocks until the external
// process exits and reports failure as an error, preferably an *ExitError.
type Driver interface {
	// Configure generates the build tree in req.BuildDir.
	Configure(ctx context.Context, req ConfigureRequest) error

	// Build compiles the configured tree.
	Build(ctx context.Context, buildDir string, settings Settings) error

	// Install writes the build outputs under stagingRoot.
	Install(ctx context.Context, buildDir, stagingRoot string) error
}

// ConfigureRequest carries everything the configure step needs.
type ConfigureRequest struct {
	SourceDir   string
	BuildDir    string
	StagingRoot string
	Definitions Definitions
	Settings    Settings
}

// -----------------------------------------------------------------------------

// Settings are environment-derived build settings. Drivers map them to
// their own flags; the orchestrator never interprets them.
type Settings struct {
	OS        string
	Arch      string
	Compiler  string
	BuildType string
	Jobs      int
}

// DefaultSettings returns settings for the host: GOOS/GOARCH, $CC and a
// Release build.
func DefaultSettings() Settings {
	return Settings{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		Compiler:  os.Getenv("CC"),
		BuildType: "Release",
	}
}

// String returns a stable tag such as "amd64-linux-release", suitable for
// directory names. Jobs is not part of it since it does not change outputs.
func (s Settings) String() string {
	parts := []string{s.Arch, s.OS}
	if s.Compiler != "" {
		parts = append(parts, baseName(s.Compiler))
	}
	if s.BuildType != "" {
		parts = append(parts, strings.ToLower(s.BuildType))
	}
	return strings.Join(parts, "-")
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// -----------------------------------------------------------------------------

// ExitError reports a toolchain command that failed.
type ExitError struct {
	Tool   string
	Args   []string
	Code   int    // -1 if the process did not exit normally
	Output string // tail of the combined stdout/stderr
	Err    error
}

func (e *ExitError) Error() string {
	if e.Code == 0 && e.Err == nil {
		return fmt.Sprintf("%s reported errors", e.Tool)
	}
	if e.Code < 0 {
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Diagnostics returns the captured tool output carried by err, if any.
func Diagnostics(err error) string {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Output
	}
	return ""
}
