// Package module defines the module.Version type along with support code.
package module

import (
	"path/filepath"
	"strings"

	"golang.org/x/mod/module"
)

// A Version identifies a package recipe at a specific version.
type Version struct {
	Path    string // Package name, e.g. "fftw3" or "madler/zlib"
	Version string // Version string (e.g., "3.3.8")
}

func (v Version) String() string {
	if v.Version == "" {
		return v.Path
	}
	return v.Path + "@" + v.Version
}

// EscapePath returns the escaped form of the given package path as a valid
// file system path. Upper-case letters become "!" plus the lower-case letter
// so that paths differing only in case do not collide on case-insensitive
// file systems. It fails if the path is invalid.
func EscapePath(path string) (escaped string, err error) {
	if err := module.CheckFilePath(path); err != nil {
		return "", err
	}
	elems := strings.Split(path, "/")
	for i, elem := range elems {
		// element escaping is shared with versions
		if elems[i], err = module.EscapeVersion(elem); err != nil {
			return "", err
		}
	}
	return filepath.Localize(strings.Join(elems, "/"))
}

// EscapeVersion returns the escaped form of a version for use in a file name.
func EscapeVersion(v string) (string, error) {
	return module.EscapeVersion(v)
}
