// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"testing"
)

type (
	// TarEntry describes one entry of an archive built by TarGzEntries.
	TarEntry struct {
		Name     string
		Content  string
		Typeflag byte
		Linkname string
	}
)

// WriteTree writes files, keyed by slash-separated path relative to root.
func WriteTree(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		MustWriteFile(t, filepath.Join(root, filepath.FromSlash(rel)), content)
	}
}

// Manifest returns a minimal typst.toml declaring name and version, plus
// exclude patterns when given.
func Manifest(name, version string, exclude ...string) string {
	m := fmt.Sprintf("[package]\nname = %q\nversion = %q\nentrypoint = \"lib.typ\"\n", name, version)
	if len(exclude) > 0 {
		m += "exclude = ["
		for i, pat := range exclude {
			if i > 0 {
				m += ", "
			}
			m += fmt.Sprintf("%q", pat)
		}
		m += "]\n"
	}
	return m
}

// WritePackage writes a package source tree into dir: a manifest for name
// and version plus the given files. files may override typst.toml.
func WritePackage(t testing.TB, dir, name, version string, files map[string]string) {
	t.Helper()
	all := map[string]string{"typst.toml": Manifest(name, version)}
	maps.Copy(all, files)
	WriteTree(t, dir, all)
}

// TarGz returns a gzipped tar archive holding regular files, keyed by
// slash-separated path, in sorted order.
func TarGz(t testing.TB, files map[string]string) []byte {
	t.Helper()
	entries := make([]TarEntry, 0, len(files))
	for _, name := range slices.Sorted(maps.Keys(files)) {
		entries = append(entries, TarEntry{Name: name, Content: files[name]})
	}
	return TarGzEntries(t, entries)
}

// TarGzEntries returns a gzipped tar archive holding entries in order. A
// zero Typeflag means a regular file.
func TarGzEntries(t testing.TB, entries []TarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		hdr := &tar.Header{Name: e.Name, Typeflag: e.Typeflag, Linkname: e.Linkname, Mode: 0o644}
		switch e.Typeflag {
		case 0, tar.TypeReg:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.Content))
		case tar.TypeDir:
			hdr.Mode = 0o755
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing tar header %s: %v", e.Name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.Content)); err != nil {
				t.Fatalf("writing tar entry %s: %v", e.Name, err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}
	return buf.Bytes()
}
