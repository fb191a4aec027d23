// SPDX-License-Identifier: MPL-2.0

package gather

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/typst-gather/typst-gather/internal/exclude"
	"github.com/typst-gather/typst-gather/pkg/typstpkg"
)

// ErrNameMismatch is the sentinel wrapped by NameMismatchError.
var ErrNameMismatch = errors.New("package name mismatch")

// NameMismatchError is returned when a local package manifest declares a
// different name than the one it is configured under.
type NameMismatchError struct {
	Configured string
	Manifest   string
}

func (e *NameMismatchError) Error() string {
	return fmt.Sprintf("configured as %q but typst.toml declares %q", e.Configured, e.Manifest)
}

func (e *NameMismatchError) Unwrap() error { return ErrNameMismatch }

// vendor copies the local package at srcDir into the cache under the
// version its manifest declares, then expands its dependencies.
func (r *run) vendor(name, srcDir string) {
	display := "@local/" + name
	m, err := typstpkg.LoadManifest(srcDir)
	if err != nil {
		r.logger.Error("Cannot read typst.toml", "package", display, "err", err)
		r.rc.stats.Failed++
		return
	}
	if m.Name != name {
		r.logger.Error("Name mismatch", "package", display, "err", &NameMismatchError{Configured: name, Manifest: m.Name})
		r.rc.stats.Failed++
		return
	}

	spec := m.Spec(typstpkg.NamespaceLocal)
	dest := spec.CacheDir(r.rc.Destination())
	r.logger.Info("Copying", "package", spec, "from", r.displayPath(srcDir))

	matcher := exclude.New(m.Exclude...)
	for _, pat := range matcher.Invalid() {
		r.logger.Warn("Ignoring invalid exclude pattern", "package", spec, "pattern", pat)
	}

	if err := replaceTree(srcDir, dest, matcher); err != nil {
		r.logger.Error("Copy failed", "package", spec, "err", err)
		r.rc.stats.Failed++
		return
	}

	r.logger.Debug("Copied", "package", spec, "path", r.displayPath(dest))
	r.rc.stats.Copied++
	r.rc.MarkProcessed(spec.Key())
	r.expand(dest)
}

// replaceTree removes dest and recreates it from the non-excluded content of
// src. The copy is staged beside dest and renamed into place, so dest is
// either absent or complete.
func replaceTree(src, dest string, matcher *exclude.Matcher) error {
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("removing previous copy: %w", err)
	}

	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", parent, err)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(dest)+".vendor-*")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}

	if err := copyFiltered(src, staging, matcher); err != nil {
		_ = os.RemoveAll(staging)
		return err
	}
	if err := os.Chmod(staging, 0o755); err != nil {
		_ = os.RemoveAll(staging)
		return fmt.Errorf("preparing copy: %w", err)
	}
	if err := os.Rename(staging, dest); err != nil {
		_ = os.RemoveAll(staging)
		return fmt.Errorf("moving copy into place: %w", err)
	}
	return nil
}

// copyFiltered copies the tree at src into the existing directory dst,
// skipping entries whose path relative to src is excluded. Excluded
// directories are not descended into. Symlinks to regular files are copied
// by content; other symlinks and special files are skipped.
func copyFiltered(src, dst string, matcher *exclude.Matcher) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if matcher.Match(filepath.ToSlash(rel)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)
		switch {
		case d.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", rel, err)
			}
			return nil
		case d.Type().IsRegular():
			return copyFile(path, target)
		case d.Type()&fs.ModeSymlink != 0:
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
			return copyFile(path, target)
		default:
			return nil
		}
	})
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm()|0o600)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return nil
}
