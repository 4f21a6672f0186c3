package env

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// WorkspaceEnv overrides the default workspace directory.
const WorkspaceEnv = "LLPACK_WORKSPACE"

// WorkDir returns the workspace directory, creating it if needed. It is
// $LLPACK_WORKSPACE when set, otherwise llpack under the XDG cache home.
func WorkDir() (string, error) {
	dir := os.Getenv(WorkspaceEnv)
	if dir == "" {
		dir = filepath.Join(xdg.CacheHome, "llpack")
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}
