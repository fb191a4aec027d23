// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/typst-gather/typst-gather/pkg/typstpkg"
)

const (
	// OutcomeCached means the package directory already existed.
	OutcomeCached Outcome = iota
	// OutcomeDownloaded means the package was fetched during this call.
	OutcomeDownloaded
)

type (
	// Outcome describes how Resolve obtained a package directory.
	Outcome int

	// Cache resolves packages to directories under a cache root.
	Cache struct {
		root       string
		downloader Downloader
	}
)

// String returns "cached" or "downloaded".
func (o Outcome) String() string {
	if o == OutcomeDownloaded {
		return "downloaded"
	}
	return "cached"
}

// NewCache returns a cache rooted at root that fetches missing packages with d.
func NewCache(root string, d Downloader) *Cache {
	return &Cache{root: root, downloader: d}
}

// Root returns the cache root directory.
func (c *Cache) Root() string { return c.root }

// Path returns the cache directory of spec, whether or not it exists.
func (c *Cache) Path(spec typstpkg.Spec) string {
	return spec.CacheDir(c.root)
}

// Resolve returns the cache directory of spec. An existing directory is
// returned as-is without any network access. Otherwise the package is
// downloaded into a staging directory beside the final location and renamed
// into place, so a failed download leaves nothing behind.
func (c *Cache) Resolve(ctx context.Context, spec typstpkg.Spec) (string, Outcome, error) {
	target := c.Path(spec)
	if _, err := os.Stat(target); err == nil {
		return target, OutcomeCached, nil
	}

	parent := filepath.Dir(target)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", OutcomeDownloaded, fmt.Errorf("creating %s: %w", parent, err)
	}

	staging, err := os.MkdirTemp(parent, "."+filepath.Base(target)+".download-*")
	if err != nil {
		return "", OutcomeDownloaded, fmt.Errorf("creating staging directory: %w", err)
	}

	if err := c.downloader.Download(ctx, spec, staging); err != nil {
		_ = os.RemoveAll(staging) // best-effort cleanup of a partial download
		return "", OutcomeDownloaded, err
	}

	if err := os.Chmod(staging, 0o755); err != nil {
		_ = os.RemoveAll(staging)
		return "", OutcomeDownloaded, fmt.Errorf("preparing %s: %w", spec, err)
	}
	if err := os.Rename(staging, target); err != nil {
		_ = os.RemoveAll(staging)
		return "", OutcomeDownloaded, fmt.Errorf("moving %s into place: %w", spec, err)
	}
	return target, OutcomeDownloaded, nil
}

// List returns the packages present in the cache, sorted by namespace, name
// and version. Hidden entries, such as interrupted downloads, and directories
// that do not form a valid specification are ignored. A missing root yields
// an empty list.
func (c *Cache) List() ([]typstpkg.Spec, error) {
	namespaces, err := readDirs(c.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", c.root, err)
	}

	var specs []typstpkg.Spec
	for _, ns := range namespaces {
		if !typstpkg.IsIdent(ns) {
			continue
		}
		names, err := readDirs(filepath.Join(c.root, ns))
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", ns, err)
		}
		for _, name := range names {
			if !typstpkg.IsIdent(name) {
				continue
			}
			versions, err := readDirs(filepath.Join(c.root, ns, name))
			if err != nil {
				return nil, fmt.Errorf("listing %s/%s: %w", ns, name, err)
			}
			for _, v := range versions {
				version, err := typstpkg.ParseVersion(v)
				if err != nil {
					continue
				}
				specs = append(specs, typstpkg.Spec{Namespace: typstpkg.Namespace(ns), Name: name, Version: version})
			}
		}
	}

	slices.SortFunc(specs, func(a, b typstpkg.Spec) int {
		return cmp.Or(
			cmp.Compare(a.Namespace, b.Namespace),
			cmp.Compare(a.Name, b.Name),
			a.Version.Compare(b.Version),
		)
	})
	return specs, nil
}

// readDirs returns the names of the visible subdirectories of dir.
func readDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
