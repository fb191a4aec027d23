// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/typst-gather/typst-gather/internal/config"
	"github.com/typst-gather/typst-gather/internal/gather"
	"github.com/typst-gather/typst-gather/internal/issue"
	"github.com/typst-gather/typst-gather/internal/watch"
)

// errGatherIncomplete marks a run with failed or unconfigured packages.
var errGatherIncomplete = errors.New("gather incomplete")

func (a *app) runGather(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return a.fail(cmd, err)
	}

	rc, err := resolveConfig(args, wd, a.logger)
	if err != nil {
		return a.fail(cmd, err)
	}
	req, err := a.request(rc)
	if err != nil {
		return a.fail(cmd, err)
	}

	g := gather.New(a.newClient(), gather.WithLogger(a.logger), gather.WithWorkDir(wd))
	err = a.gatherAndReport(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), g, req, rc.auto)

	if a.watch {
		return a.watchAndGather(cmd, g, req, rc)
	}
	if err != nil {
		cmd.SilenceErrors = true
		return &ExitError{Code: 1}
	}
	return nil
}

// request turns a resolved configuration into a gather request.
func (a *app) request(rc *resolvedConfig) (gather.Request, error) {
	req, err := gather.RequestFromConfig(rc.Config)
	if errors.Is(err, config.ErrMissingDestination) {
		return gather.Request{}, issue.NewErrorContext().
			WithOperation("start gathering").
			WithResource(rc.Path).
			WithSuggestion("Add a destination key, e.g. destination = \"typst/packages\"").
			WithIssue(issue.MissingDestinationID).
			Wrap(err).
			BuildError()
	}
	if err != nil {
		return gather.Request{}, err
	}
	if rc.auto && len(req.Discover) == 0 {
		return gather.Request{}, errors.New("no files to discover imports from")
	}
	return req, nil
}

// gatherAndReport runs one gather and prints its summary. It returns
// errGatherIncomplete when the run must end with a failing status.
func (a *app) gatherAndReport(ctx context.Context, stdout, stderr io.Writer, g *gather.Gatherer, req gather.Request, auto bool) error {
	res, err := g.Gather(ctx, req)
	if err != nil {
		fmt.Fprintln(stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, a.settings.Verbose))
		return err
	}

	summary := "Done: " + res.Stats.String()
	if res.Stats.Failed > 0 {
		fmt.Fprintln(stdout, WarningStyle.Render(summary))
	} else {
		fmt.Fprintln(stdout, SuccessStyle.Render(summary))
	}

	if len(res.UnconfiguredLocal) > 0 {
		fmt.Fprintln(stderr, ErrorStyle.Render("Error: ")+"@local imports not configured:")
		for _, ref := range res.UnconfiguredLocal {
			fmt.Fprintf(stderr, "  %s (in %s)\n", CmdStyle.Render("@local/"+ref.Name), ref.File)
		}
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Add them to the [local] section of "+config.FileName+".")
		if auto {
			fmt.Fprintln(stderr, VerboseStyle.Render("Tip: run 'typst-gather init-config' to generate a config file"))
			fmt.Fprintln(stderr, VerboseStyle.Render("     with placeholders for your @local package paths."))
		}
		if a.settings.Verbose {
			fmt.Fprintln(stderr, renderIssue(issue.UnconfiguredLocalID))
		}
	}
	if res.Stats.Failed > 0 && a.settings.Verbose {
		fmt.Fprintln(stderr, renderIssue(issue.PackagesFailedID))
	}

	if !res.OK() {
		return errGatherIncomplete
	}
	return nil
}

// watchAndGather re-runs the gather whenever its inputs change, until the
// command context is cancelled. The configuration is resolved again on
// every run so edits to it take effect.
func (a *app) watchAndGather(cmd *cobra.Command, g *gather.Gatherer, req gather.Request, rc *resolvedConfig) error {
	paths := append([]string(nil), req.Discover...)
	for _, e := range req.Entries {
		if l, ok := e.(config.LocalEntry); ok {
			paths = append(paths, l.Dir)
		}
	}
	if rc.Path != "" {
		paths = append(paths, rc.Path)
	}

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	w, err := watch.New(watch.Config{
		Paths:   paths,
		Exclude: []string{req.Destination},
		Logger:  a.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			a.logger.Info("Change detected, gathering again", "files", len(changed))
			next := req
			wd, err := os.Getwd()
			if err == nil {
				if reloaded, err := resolveConfig(cmd.Flags().Args(), wd, a.logger); err == nil {
					if r, err := a.request(reloaded); err == nil {
						next = r
					}
				}
			}
			_ = a.gatherAndReport(ctx, stdout, stderr, g, next, rc.auto) // reported already
			return nil
		},
	})
	if err != nil {
		return a.fail(cmd, err)
	}

	fmt.Fprintln(stderr, SubtitleStyle.Render("Watching for changes (Ctrl-C to stop)"))
	if err := w.Run(cmd.Context()); err != nil {
		return a.fail(cmd, err)
	}
	return nil
}

// renderIssue renders the guide of a known issue for the terminal.
func renderIssue(id issue.ID) string {
	guide := issue.Get(id)
	if guide == nil {
		return ""
	}
	out, err := guide.Render("auto")
	if err != nil {
		return string(guide.MarkdownMsg())
	}
	return out
}
