package source

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxFileSize limits a single extracted member
var maxFileSize int64 = 100 * 1024 * 1024

type archiveFormat int

const (
	formatUnknown archiveFormat = iota
	formatTar
	formatZip
)

// extract unpacks the archive at path into dst. the format is detected from
// content, tar family first, then zip. returns false if the format is not recognized.
func extract(path, dst string) (bool, error) {
	format, err := detectFormat(path)
	if err != nil {
		return false, err
	}

	switch format {
	case formatTar:
		return true, extractTar(path, dst)
	case formatZip:
		return true, extractZip(path, dst)
	default:
		return false, nil
	}
}

// detectFormat sniffs the archive format by content
func detectFormat(path string) (archiveFormat, error) {
	isTar, err := isTarArchive(path)
	if err != nil {
		return formatUnknown, err
	}
	if isTar {
		return formatTar, nil
	}

	zr, err := zip.OpenReader(path)
	if err == nil {
		_ = zr.Close()
		return formatZip, nil
	}

	return formatUnknown, nil
}

// isTarArchive reports whether the file holds a valid tar stream, optionally compressed
func isTarArchive(path string) (bool, error) {
	f, err := os.Open(path) //nolint:gosec // path is built from the cache root
	if err != nil {
		return false, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	r, err := decompress(f)
	if err != nil {
		return false, nil
	}

	if _, err := tar.NewReader(r).Next(); err != nil {
		return false, nil
	}
	return true, nil
}

// decompress wraps r with a gzip or bzip2 reader if the magic bytes match
func decompress(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(3)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	switch {
	case bytes.HasPrefix(head, []byte{0x1f, 0x8b}):
		return gzip.NewReader(br)
	case bytes.HasPrefix(head, []byte("BZh")):
		return bzip2.NewReader(br), nil
	default:
		return br, nil
	}
}

func extractTar(path, dst string) error {
	f, err := os.Open(path) //nolint:gosec // path is built from the cache root
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	r, err := decompress(f)
	if err != nil {
		return fmt.Errorf("decompress archive: %w", err)
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		target, ok := safeJoin(dst, hdr.Name)
		if !ok {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr); err != nil {
				return fmt.Errorf("extract %s: %w", hdr.Name, err)
			}
		}
	}
}

func extractZip(path, dst string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	for _, zf := range zr.File {
		target, ok := safeJoin(dst, zf.Name)
		if !ok {
			continue
		}

		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", zf.Name, err)
			}
			continue
		}
		if !zf.Mode().IsRegular() {
			continue
		}

		rc, err := zf.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", zf.Name, err)
		}
		err = writeFile(target, rc)
		_ = rc.Close()
		if err != nil {
			return fmt.Errorf("extract %s: %w", zf.Name, err)
		}
	}
	return nil
}

// writeFile copies r into target, creating parent dirs. members larger than maxFileSize fail.
func writeFile(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.Create(target) //nolint:gosec // target is checked by safeJoin
	if err != nil {
		return err
	}
	n, err := io.CopyN(out, r, maxFileSize+1)
	if err != nil && !errors.Is(err, io.EOF) {
		_ = out.Close()
		return err
	}
	if n > maxFileSize {
		_ = out.Close()
		return fmt.Errorf("member exceeds %d bytes", maxFileSize)
	}
	return out.Close()
}

// safeJoin joins an archive member name to dst, rejecting names escaping dst
func safeJoin(dst, name string) (string, bool) {
	name = filepath.Clean(filepath.FromSlash(name))
	if name == "." || filepath.IsAbs(name) || name == ".." || strings.HasPrefix(name, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.Join(dst, name), true
}
