// SPDX-License-Identifier: MPL-2.0

package gather

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/typst-gather/typst-gather/internal/config"
	"github.com/typst-gather/typst-gather/internal/registry"
)

type (
	// Gatherer runs gathers against a registry downloader. A Gatherer holds
	// no per-run state and may be reused for any number of runs.
	Gatherer struct {
		downloader registry.Downloader
		logger     *log.Logger
		workDir    string
	}

	// Option configures a Gatherer.
	Option func(*Gatherer)

	// Request describes one run.
	Request struct {
		// Destination is the cache root. It is required.
		Destination string
		// Discover lists files and directories scanned for implicit imports.
		Discover []string
		// Entries lists the explicitly configured packages, processed in order.
		Entries []config.PackageEntry
	}

	// run binds a RunContext to the collaborators of one Gather call.
	run struct {
		*Gatherer
		ctx   context.Context
		rc    *RunContext
		cache *registry.Cache
	}
)

// WithLogger sets the progress logger. A nil logger discards output.
func WithLogger(l *log.Logger) Option {
	return func(g *Gatherer) {
		g.logger = l
	}
}

// WithWorkDir sets the directory that logged paths are shown relative to.
func WithWorkDir(dir string) Option {
	return func(g *Gatherer) {
		g.workDir = dir
	}
}

// New returns a Gatherer that fetches registry packages with d.
func New(d registry.Downloader, opts ...Option) *Gatherer {
	g := &Gatherer{downloader: d}
	if wd, err := os.Getwd(); err == nil {
		g.workDir = wd
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = log.New(io.Discard)
	}
	return g
}

// RequestFromConfig builds the request described by a gather document.
func RequestFromConfig(cfg *config.Config) (Request, error) {
	dest, err := cfg.DestinationPath()
	if err != nil {
		return Request{}, err
	}
	return Request{
		Destination: dest,
		Discover:    cfg.DiscoverPaths(),
		Entries:     cfg.Entries(),
	}, nil
}

// Gather runs discovery, then every explicit entry, and returns the
// accumulated result. Per-package failures are counted, not returned; the
// error is non-nil only when the request itself is unusable or ctx is done.
func (g *Gatherer) Gather(ctx context.Context, req Request) (*Result, error) {
	if req.Destination == "" {
		return nil, config.ErrMissingDestination
	}

	var localNames []string
	for _, e := range req.Entries {
		if l, ok := e.(config.LocalEntry); ok {
			localNames = append(localNames, l.Name)
		}
	}

	r := &run{
		Gatherer: g,
		ctx:      ctx,
		rc:       NewRunContext(req.Destination, localNames),
		cache:    registry.NewCache(req.Destination, g.downloader),
	}

	r.discover(req.Discover)
	for _, e := range req.Entries {
		if err := ctx.Err(); err != nil {
			return r.rc.Result(), fmt.Errorf("gather interrupted: %w", err)
		}
		r.gatherEntry(e)
	}

	return r.rc.Result(), nil
}

// displayPath shows p relative to the working directory when p lies below it.
func (g *Gatherer) displayPath(p string) string {
	if g.workDir == "" {
		return p
	}
	rel, err := filepath.Rel(g.workDir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return rel
}
