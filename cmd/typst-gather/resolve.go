// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/typst-gather/typst-gather/internal/config"
	"github.com/typst-gather/typst-gather/internal/extension"
	"github.com/typst-gather/typst-gather/internal/issue"
)

// resolvedConfig is a gather configuration and where it came from.
type resolvedConfig struct {
	*config.Config
	// auto is set when the configuration was derived from _extension.yml.
	auto bool
}

// resolveConfig loads the configuration named by args, else typst-gather.toml
// in wd, else derives one from the extension found at wd.
func resolveConfig(args []string, wd string, logger *log.Logger) (*resolvedConfig, error) {
	if len(args) > 0 {
		return loadConfigFile(args[0])
	}

	path := filepath.Join(wd, config.FileName)
	if _, err := os.Stat(path); err == nil {
		logger.Info("Using config", "path", path)
		return loadConfigFile(path)
	}

	dir, err := extension.FindDir(wd)
	switch {
	case errors.Is(err, extension.ErrNotFound):
		return nil, issue.NewErrorContext().
			WithOperation("find gather configuration").
			WithResource(wd).
			WithSuggestions(
				"Create a "+config.FileName+" file, or run 'typst-gather init-config'",
				"Run from within an extension directory with "+extension.ManifestFileName,
			).
			WithIssue(issue.ConfigNotFoundID).
			Wrap(err).
			BuildError()
	case errors.Is(err, extension.ErrAmbiguous):
		return nil, issue.NewErrorContext().
			WithOperation("choose an extension").
			WithSuggestions(
				"Run this command from within a specific extension directory",
				"Or create a "+config.FileName+" to specify the configuration",
			).
			WithIssue(issue.ExtensionAmbiguousID).
			Wrap(err).
			BuildError()
	case err != nil:
		return nil, err
	}

	cfg, err := extension.AutoConfig(dir)
	if err != nil {
		ctx := issue.NewErrorContext().
			WithOperation("derive configuration from extension").
			WithResource(filepath.Join(dir, extension.ManifestFileName)).
			Wrap(err)
		if errors.Is(err, extension.ErrNoTypstFiles) {
			ctx.WithSuggestion("The extension must define 'template' or 'template-partials' under contributes.formats.typst").
				WithIssue(issue.NoTypstFilesID)
		}
		return nil, ctx.BuildError()
	}

	dest, _ := cfg.DestinationPath() // always set by AutoConfig
	files := make([]string, 0, len(cfg.Discover))
	for _, f := range cfg.Discover {
		files = append(files, relativeTo(wd, f))
	}
	logger.Info("Auto-detected from "+extension.ManifestFileName,
		"destination", relativeTo(wd, dest),
		"files", strings.Join(files, ", "))
	return &resolvedConfig{Config: cfg, auto: true}, nil
}

func loadConfigFile(path string) (*resolvedConfig, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return &resolvedConfig{Config: cfg}, nil
	}

	ctx := issue.NewErrorContext().
		WithOperation("load gather configuration").
		WithResource(path).
		Wrap(err)
	switch {
	case errors.Is(err, config.ErrRead):
		ctx.WithSuggestion("Check the path, or run 'typst-gather init-config' to create one").
			WithIssue(issue.ConfigNotFoundID)
	case errors.Is(err, config.ErrParse):
		ctx.WithSuggestion("Fix the TOML syntax; discover must be a string or a list of strings").
			WithIssue(issue.ConfigParseFailedID)
	}
	return nil, ctx.BuildError()
}

// relativeTo shows p relative to base when it lies below base.
func relativeTo(base, p string) string {
	rel, err := filepath.Rel(base, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return rel
}
