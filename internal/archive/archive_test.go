package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

func packageTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"manifest.json":     "{}\n",
		"licenses/COPYING":  "GPL",
		"include/fftw3.h":   "header",
		"lib/libfftw3.a":    "archive",
		"lib/cmake/f.cmake": "cmake",
	}
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// differing mtimes must not show up in the output
	os.Chtimes(filepath.Join(root, "lib", "libfftw3.a"), time.Now(), time.Now().Add(-time.Hour))
	return root
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		dest string
		want Format
	}{
		{"out.zip", Zip},
		{"out.tar.gz", TarGz},
		{"OUT.TGZ", TarGz},
		{"out.tar.xz", TarXz},
		{"out.tar.zst", TarZst},
		{"out", Dir},
		{"out.tar", Dir},
	}
	for _, tt := range tests {
		if got := FormatOf(tt.dest); got != tt.want {
			t.Errorf("FormatOf(%q) = %v, want %v", tt.dest, got, tt.want)
		}
	}
}

func TestWriteReproducible(t *testing.T) {
	src := packageTree(t)
	for _, ext := range []string{".zip", ".tar.gz", ".tar.xz", ".tar.zst"} {
		t.Run(ext, func(t *testing.T) {
			out := t.TempDir()
			a, b := filepath.Join(out, "a"+ext), filepath.Join(out, "b"+ext)
			if err := Write(src, a); err != nil {
				t.Fatalf("Write: %v", err)
			}
			// touch the tree between runs
			os.Chtimes(filepath.Join(src, "include", "fftw3.h"), time.Now(), time.Now())
			if err := Write(src, b); err != nil {
				t.Fatalf("Write: %v", err)
			}
			da, _ := os.ReadFile(a)
			db, _ := os.ReadFile(b)
			if len(da) == 0 || !bytes.Equal(da, db) {
				t.Errorf("archives differ (%d vs %d bytes)", len(da), len(db))
			}
		})
	}
}

func tarNames(t *testing.T, r io.Reader) []string {
	t.Helper()
	var names []string
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if !hdr.ModTime.Equal(epoch) {
			t.Errorf("%s: mtime %v", hdr.Name, hdr.ModTime)
		}
		names = append(names, hdr.Name)
	}
	return names
}

const wantNames = "include/ include/fftw3.h lib/ lib/cmake/ lib/cmake/f.cmake lib/libfftw3.a " +
	"licenses/ licenses/COPYING manifest.json"

func TestWriteTarFormats(t *testing.T) {
	src := packageTree(t)
	readers := map[string]func(io.Reader) (io.Reader, error){
		".tar.gz": func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) },
		".tar.xz": func(r io.Reader) (io.Reader, error) { return xz.NewReader(r) },
		".tar.zst": func(r io.Reader) (io.Reader, error) {
			return zstd.NewReader(r)
		},
	}
	for ext, open := range readers {
		t.Run(ext, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "pkg"+ext)
			if err := Write(src, dest); err != nil {
				t.Fatalf("Write: %v", err)
			}
			f, err := os.Open(dest)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			r, err := open(f)
			if err != nil {
				t.Fatal(err)
			}
			if got := strings.Join(tarNames(t, r), " "); got != wantNames {
				t.Errorf("entries =\n%s\nwant\n%s", got, wantNames)
			}
		})
	}
}

func TestWriteZip(t *testing.T) {
	src := packageTree(t)
	dest := filepath.Join(t.TempDir(), "pkg.zip")
	if err := Write(src, dest); err != nil {
		t.Fatalf("Write: %v", err)
	}
	zr, err := zip.OpenReader(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		if f.Name == "licenses/COPYING" {
			rc, err := f.Open()
			if err != nil {
				t.Fatal(err)
			}
			data, _ := io.ReadAll(rc)
			rc.Close()
			if string(data) != "GPL" {
				t.Errorf("COPYING = %q", data)
			}
		}
	}
	if got := strings.Join(names, " "); got != wantNames {
		t.Errorf("entries =\n%s\nwant\n%s", got, wantNames)
	}
}

func TestWriteDir(t *testing.T) {
	src := packageTree(t)
	if runtime.GOOS != "windows" {
		if err := os.Symlink("libfftw3.a", filepath.Join(src, "lib", "libfftw3_alias.a")); err != nil {
			t.Fatal(err)
		}
	}
	dest := filepath.Join(t.TempDir(), "out")
	if err := Write(src, dest); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dest, "lib", "cmake", "f.cmake"))
	if err != nil || string(data) != "cmake" {
		t.Errorf("copied file = %q, %v", data, err)
	}
	if runtime.GOOS != "windows" {
		if target, err := os.Readlink(filepath.Join(dest, "lib", "libfftw3_alias.a")); err != nil || target != "libfftw3.a" {
			t.Errorf("copied link = %q, %v", target, err)
		}
	}

	if err := Write(src, dest); err == nil {
		t.Errorf("Write into an existing directory succeeded")
	}
}
