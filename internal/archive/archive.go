// Package archive writes a staged package to its output form. The format
// follows the destination suffix: .zip, .tar.gz/.tgz, .tar.xz, .tar.zst,
// or a plain directory copy for anything else.
//
// Entries are written in lexical order with zeroed modification times so
// that archiving the same tree twice gives identical bytes.
package archive

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Format is an output format.
type Format int

const (
	Dir Format = iota
	Zip
	TarGz
	TarXz
	TarZst
)

var formatNames = [...]string{"dir", "zip", "tar.gz", "tar.xz", "tar.zst"}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// FormatOf returns the format selected by dest's suffix.
func FormatOf(dest string) Format {
	name := strings.ToLower(dest)
	switch {
	case strings.HasSuffix(name, ".zip"):
		return Zip
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return TarGz
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		return TarXz
	case strings.HasSuffix(name, ".tar.zst"), strings.HasSuffix(name, ".tzst"):
		return TarZst
	}
	return Dir
}

// epoch is the modification time stamped on every entry. Zip cannot
// represent anything earlier.
var epoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Write writes the contents of srcDir to dest.
func Write(srcDir, dest string) (err error) {
	format := FormatOf(dest)
	entries, err := walk(srcDir)
	if err != nil {
		return err
	}
	if format == Dir {
		return copyDir(dest, srcDir, entries)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dest)
		}
	}()

	switch format {
	case Zip:
		return writeZip(f, srcDir, entries)
	case TarGz:
		zw, err := gzip.NewWriterLevel(f, gzip.BestCompression)
		if err != nil {
			return err
		}
		return writeTar(zw, srcDir, entries)
	case TarXz:
		zw, err := xz.NewWriter(f)
		if err != nil {
			return err
		}
		return writeTar(zw, srcDir, entries)
	case TarZst:
		zw, err := zstd.NewWriter(f, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return err
		}
		return writeTar(zw, srcDir, entries)
	}
	return fmt.Errorf("archive: unsupported format %v", format)
}

type entry struct {
	rel  string // slash separated
	info fs.FileInfo
	link string
}

// walk lists the files, directories and symlinks under root, sorted by
// path.
func walk(root string) ([]entry, error) {
	var entries []entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		e := entry{rel: filepath.ToSlash(rel), info: info}
		if info.Mode()&fs.ModeSymlink != 0 {
			if e.link, err = os.Readlink(path); err != nil {
				return err
			}
			e.link = filepath.ToSlash(e.link)
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].rel < entries[j].rel })
	return entries, nil
}

func writeTar(zw io.WriteCloser, root string, entries []entry) error {
	tw := tar.NewWriter(zw)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:    e.rel,
			Mode:    int64(e.info.Mode().Perm()),
			ModTime: epoch,
		}
		switch {
		case e.link != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.link
		case e.info.IsDir():
			hdr.Typeflag = tar.TypeDir
			hdr.Name += "/"
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = e.info.Size()
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if hdr.Typeflag == tar.TypeReg {
			if err := copyFrom(tw, filepath.Join(root, filepath.FromSlash(e.rel))); err != nil {
				return err
			}
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return zw.Close()
}

func writeZip(w io.Writer, root string, entries []entry) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		hdr := &zip.FileHeader{
			Name:     e.rel,
			Method:   zip.Deflate,
			Modified: epoch,
		}
		hdr.SetMode(e.info.Mode())
		if e.info.IsDir() {
			hdr.Name += "/"
			hdr.Method = zip.Store
		}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		switch {
		case e.link != "":
			if _, err := io.WriteString(fw, e.link); err != nil {
				return err
			}
		case !e.info.IsDir():
			if err := copyFrom(fw, filepath.Join(root, filepath.FromSlash(e.rel))); err != nil {
				return err
			}
		}
	}
	return zw.Close()
}

// copyDir recreates entries under dest, which must not exist yet.
func copyDir(dest, root string, entries []entry) error {
	if _, err := os.Lstat(dest); err == nil {
		return fmt.Errorf("archive: %s already exists", dest)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for _, e := range entries {
		dst := filepath.Join(dest, filepath.FromSlash(e.rel))
		switch {
		case e.link != "":
			if err := os.Symlink(filepath.FromSlash(e.link), dst); err != nil {
				return err
			}
		case e.info.IsDir():
			if err := os.Mkdir(dst, 0o755); err != nil {
				return err
			}
		default:
			out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, e.info.Mode().Perm())
			if err != nil {
				return err
			}
			if err := copyFrom(out, filepath.Join(root, filepath.FromSlash(e.rel))); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyFrom(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
