package build

import (
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goplus/llpack/internal/recipe"
	"github.com/zeebo/blake3"
)

// sourceDigest hashes the tree under dir: the slash path, type and
// permission bits of every entry, plus file contents and link targets.
// WalkDir visits entries in lexical order, so the digest is stable.
func sourceDigest(dir string) (string, error) {
	h := blake3.New()
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		fmt.Fprintf(h, "%s\x00%v\x00", filepath.ToSlash(rel), info.Mode())
		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			io.WriteString(h, target)
		case info.Mode().IsRegular():
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			_, err = io.Copy(h, f)
			f.Close()
			if err != nil {
				return err
			}
		}
		h.Write([]byte{'\n'})
		return nil
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// recipeDigest hashes the recipe inputs that shape a package without
// reaching the build definitions: metadata, build system and selectors.
func recipeDigest(r *recipe.Recipe) string {
	h := blake3.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\n", r.Name, r.Version, r.License, r.BuildSystem)
	for _, s := range r.Selectors {
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%t\n", s.Category, s.Pattern, s.From, s.Dest, s.Required)
	}
	return hex.EncodeToString(h.Sum(nil))
}
