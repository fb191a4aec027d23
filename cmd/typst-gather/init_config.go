// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/typst-gather/typst-gather/internal/config"
	"github.com/typst-gather/typst-gather/internal/extension"
	"github.com/typst-gather/typst-gather/internal/issue"
)

func newInitConfigCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Generate a starter " + config.FileName + " in the current directory",
		Long: `Generate a starter ` + config.FileName + ` for the extension in the current
directory. The extension's Typst templates are scanned for imports: @preview
packages are listed as comments, and every @local package gets a placeholder
entry in the [local] section.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runInitConfig(cmd)
		},
	}
}

func (a *app) runInitConfig(cmd *cobra.Command) error {
	wd, err := os.Getwd()
	if err != nil {
		return a.fail(cmd, err)
	}
	path := filepath.Join(wd, config.FileName)
	if _, err := os.Stat(path); err == nil {
		return a.fail(cmd, configExistsError(path, extension.ErrConfigExists))
	}

	dir, err := extension.FindDir(wd)
	if err != nil {
		ctx := issue.NewErrorContext().WithOperation("find extension directory").Wrap(err)
		if errors.Is(err, extension.ErrAmbiguous) {
			ctx.WithSuggestion("Run this command from within a specific extension directory").
				WithIssue(issue.ExtensionAmbiguousID)
		} else {
			ctx.WithSuggestion("Run this command from a directory containing " + extension.ManifestFileName + " or _extensions/")
		}
		return a.fail(cmd, ctx.BuildError())
	}

	files, err := extension.TypstFiles(dir)
	if err != nil {
		return a.fail(cmd, issue.WrapWithContext(err, "read extension metadata", dir))
	}
	if len(files) == 0 {
		a.logger.Warn("No .typ files found in " + extension.ManifestFileName)
		a.logger.Warn("Edit the generated " + config.FileName + " to configure local or pinned dependencies")
	} else {
		a.logger.Info("Found extension", "path", relativeTo(wd, dir))
	}

	d := extension.Discover(dir, files)
	rootdir := relativeTo(wd, dir)
	if rootdir == "." {
		rootdir = ""
	}
	data, err := extension.GenerateConfig(d, rootdir)
	if err != nil {
		return a.fail(cmd, err)
	}
	if err := extension.WriteConfig(path, data); err != nil {
		if errors.Is(err, extension.ErrConfigExists) {
			return a.fail(cmd, configExistsError(path, err))
		}
		return a.fail(cmd, issue.WrapWithContext(err, "write configuration", path))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, SuccessStyle.Render("Created "+config.FileName))
	if len(d.Scanned) > 0 {
		fmt.Fprintf(out, "  Scanned: %s\n", strings.Join(d.Scanned, ", "))
	}
	if len(d.Preview) > 0 {
		fmt.Fprintf(out, "  Found %d @preview import(s)\n", len(d.Preview))
	}
	if len(d.Local) > 0 {
		fmt.Fprintf(out, "  Found %d @local import(s) - configure paths in [local] section\n", len(d.Local))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, TitleStyle.Render("Next steps:"))
	fmt.Fprintln(out, "  1. Review and edit "+config.FileName)
	if len(d.Local) > 0 {
		fmt.Fprintln(out, "  2. Add paths for @local packages in [local] section")
	}
	fmt.Fprintln(out, "  3. Run: "+CmdStyle.Render("typst-gather"))
	return nil
}

func configExistsError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("create configuration").
		WithResource(path).
		WithSuggestion("Remove it first or edit it manually").
		WithIssue(issue.ConfigExistsID).
		Wrap(err).
		BuildError()
}
