// SPDX-License-Identifier: MPL-2.0

package gather

import (
	"os"
	"path/filepath"

	"github.com/typst-gather/typst-gather/pkg/typstsyntax"
)

// discover seeds the run from the configured discovery paths. A file is
// scanned when it is a source file; a directory has the source files directly
// inside it scanned, without descending further.
func (r *run) discover(paths []string) {
	for _, p := range paths {
		info, err := os.Stat(p)
		switch {
		case err != nil:
			r.logger.Warn("Discover path does not exist", "path", r.displayPath(p))
		case info.IsDir():
			r.discoverDir(p)
		case typstsyntax.IsSourceFile(p):
			r.scanFile(p)
		default:
			r.logger.Debug("Skipping non-Typst discover path", "path", r.displayPath(p))
		}
	}
}

func (r *run) discoverDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		r.logger.Error("Cannot read discover directory", "path", r.displayPath(dir), "err", err)
		r.rc.stats.Failed++
		return
	}
	for _, e := range entries {
		if !typstsyntax.IsSourceFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		// Follows symlinks.
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			continue
		}
		r.scanFile(path)
	}
}

func (r *run) scanFile(path string) {
	r.logger.Info("Discovering imports", "path", r.displayPath(path))
	specs, err := typstsyntax.ExtractFile(path)
	if err != nil {
		r.logger.Debug("Cannot read source file", "path", r.displayPath(path), "err", err)
		return
	}
	for _, spec := range specs {
		r.reference(spec, path)
	}
}
