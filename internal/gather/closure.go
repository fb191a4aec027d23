// SPDX-License-Identifier: MPL-2.0

package gather

import (
	"path/filepath"

	"github.com/typst-gather/typst-gather/internal/config"
	"github.com/typst-gather/typst-gather/internal/registry"
	"github.com/typst-gather/typst-gather/pkg/typstpkg"
	"github.com/typst-gather/typst-gather/pkg/typstsyntax"
)

// gatherEntry dispatches one explicitly configured package.
func (r *run) gatherEntry(e config.PackageEntry) {
	switch e := e.(type) {
	case config.PreviewEntry:
		spec, err := typstpkg.NewPreviewSpec(e.Name, e.Version)
		if err != nil {
			r.logger.Error("Invalid version", "package", "@preview/"+e.Name, "version", e.Version, "err", err)
			r.rc.stats.Failed++
			return
		}
		r.ensure(spec)
	case config.LocalEntry:
		r.vendor(e.Name, e.Dir)
	default:
		panic("gather: unhandled package entry type")
	}
}

// reference dispatches one package reference found in file.
func (r *run) reference(spec typstpkg.Spec, file string) {
	switch spec.Namespace {
	case typstpkg.NamespacePreview:
		r.ensure(spec)
	case typstpkg.NamespaceLocal:
		r.rc.RecordLocal(spec.Name, filepath.Base(file))
	default:
		r.logger.Debug("Ignoring package outside known namespaces", "package", spec, "file", r.displayPath(file))
	}
}

// ensure makes a registry package available in the cache and expands its
// dependencies. Names configured as local packages are never fetched.
func (r *run) ensure(spec typstpkg.Spec) {
	if r.rc.IsConfiguredLocal(spec.Name) {
		r.logger.Debug("Using local package instead of registry", "package", spec)
		return
	}
	if !r.rc.MarkProcessed(spec.Key()) {
		return
	}

	r.logger.Debug("Resolving", "package", spec)
	dir, outcome, err := r.cache.Resolve(r.ctx, spec)
	if err != nil {
		r.logger.Error("Download failed", "package", spec, "err", err)
		r.rc.stats.Failed++
		return
	}

	switch outcome {
	case registry.OutcomeCached:
		r.logger.Info("Skipping (cached)", "package", spec)
		r.rc.stats.Skipped++
	case registry.OutcomeDownloaded:
		r.logger.Info("Downloaded", "package", spec, "path", r.displayPath(dir))
		r.rc.stats.Downloaded++
	}
	r.expand(dir)
}

// expand scans every source file below dir and handles the references it
// finds. Recursion ends because ensure processes each package once.
func (r *run) expand(dir string) {
	for _, ref := range typstsyntax.ExtractTree(dir) {
		r.reference(ref.Spec, ref.File)
	}
}
