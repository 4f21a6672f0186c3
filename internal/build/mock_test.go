package build

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goplus/llpack/pkgs/buildsys"
)

// mockDriver implements buildsys.Driver for testing. Install writes files
// into the staging root; failAt names a step that fails instead.
type mockDriver struct {
	calls   []string
	failAt  string
	files   map[string]string
	gotDefs buildsys.Definitions
}

func newMockDriver() *mockDriver {
	return &mockDriver{files: map[string]string{
		"lib/libfftw3.a":  "archive",
		"include/fftw3.h": "header",
	}}
}

func (m *mockDriver) step(name string) error {
	m.calls = append(m.calls, name)
	if m.failAt == name {
		return &buildsys.ExitError{Tool: "mock", Code: 2, Output: name + " exploded"}
	}
	return nil
}

func (m *mockDriver) Configure(ctx context.Context, req buildsys.ConfigureRequest) error {
	m.gotDefs = req.Definitions
	return m.step("configure")
}

func (m *mockDriver) Build(ctx context.Context, buildDir string, s buildsys.Settings) error {
	return m.step("build")
}

func (m *mockDriver) Install(ctx context.Context, buildDir, stagingRoot string) error {
	if err := m.step("install"); err != nil {
		return err
	}
	for rel, content := range m.files {
		p := filepath.Join(stagingRoot, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}
