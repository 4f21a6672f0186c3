package sequencer

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goplus/llpack/pkgs/buildsys"
)

// mockDriver implements buildsys.Driver for testing. It records each call
// and fails the step named in failAt.
type mockDriver struct {
	calls   []string
	failAt  string
	output  string
	gotDefs buildsys.Definitions
	gotSet  buildsys.Settings
}

func (m *mockDriver) step(name string) error {
	m.calls = append(m.calls, name)
	if m.failAt == name {
		return &buildsys.ExitError{Tool: "mock", Code: 1, Output: m.output}
	}
	return nil
}

func (m *mockDriver) Configure(ctx context.Context, req buildsys.ConfigureRequest) error {
	m.gotDefs = req.Definitions
	m.gotSet = req.Settings
	return m.step("configure")
}

func (m *mockDriver) Build(ctx context.Context, buildDir string, s buildsys.Settings) error {
	if err := ctx.Err(); err != nil {
		m.calls = append(m.calls, "build")
		return err
	}
	return m.step("build")
}

func (m *mockDriver) Install(ctx context.Context, buildDir, stagingRoot string) error {
	if err := m.step("install"); err != nil {
		// a half-finished install leaves files behind
		os.WriteFile(filepath.Join(stagingRoot, "partial"), nil, 0o644)
		return err
	}
	return os.WriteFile(filepath.Join(stagingRoot, "COPYING"), []byte("license"), 0o644)
}
