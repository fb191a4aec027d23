// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// maxEntryBytes is the upper bound on a single extracted file (64 MB).
// Prevents decompression bombs from filling the cache volume.
const maxEntryBytes = 64 << 20

// ErrUnsafeArchive is returned for archives with entries that would escape
// the extraction directory.
var ErrUnsafeArchive = errors.New("unsafe archive entry")

// Extract unpacks a gzipped tar stream into dir, creating dir if needed.
// Regular files and directories are extracted; links and special files are
// skipped. Entries with absolute paths or ".." components are rejected.
func Extract(r io.Reader, dir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	defer func() { _ = gz.Close() }() // read-only

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tr := tar.NewReader(gz)
	for {
		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			return nil
		}
		if nextErr != nil {
			return fmt.Errorf("reading tar entry: %w", nextErr)
		}

		rel, err := entryPath(hdr.Name)
		if err != nil {
			return err
		}
		if rel == "" {
			continue
		}
		target := filepath.Join(dir, filepath.FromSlash(rel))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", rel, err)
			}
		case tar.TypeReg:
			if err := writeEntry(tr, target, hdr.FileInfo().Mode().Perm()); err != nil {
				return fmt.Errorf("extracting %s: %w", rel, err)
			}
		}
	}
}

// entryPath validates an archive entry name and returns it cleaned and
// slash-separated. The archive root itself yields "".
func entryPath(name string) (string, error) {
	slashed := strings.ReplaceAll(name, `\`, "/")
	if path.IsAbs(slashed) || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("%w: absolute path %q", ErrUnsafeArchive, name)
	}
	for _, part := range strings.Split(slashed, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: parent reference in %q", ErrUnsafeArchive, name)
		}
	}
	cleaned := path.Clean(slashed)
	if cleaned == "." {
		return "", nil
	}
	return cleaned, nil
}

func writeEntry(r io.Reader, target string, perm fs.FileMode) (err error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o600)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	n, err := io.Copy(f, io.LimitReader(r, maxEntryBytes+1))
	if err != nil {
		return err
	}
	if n > maxEntryBytes {
		return fmt.Errorf("entry exceeds %d bytes", maxEntryBytes)
	}
	return nil
}
