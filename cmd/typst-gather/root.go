// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/typst-gather/typst-gather/internal/config"
	"github.com/typst-gather/typst-gather/internal/issue"
	"github.com/typst-gather/typst-gather/internal/registry"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// app carries the state shared by all commands of one invocation.
type app struct {
	v        *viper.Viper
	settings config.Settings
	logger   *log.Logger
	watch    bool
}

func newRootCommand() *cobra.Command {
	a := &app{v: config.NewViper(Version)}

	rootCmd := &cobra.Command{
		Use:   "typst-gather [config]",
		Short: "Gather Typst packages for offline use",
		Long: TitleStyle.Render("typst-gather") + SubtitleStyle.Render(" - Gather Typst packages for offline use") + `

typst-gather scans Typst files for package imports and collects every
@preview package they need, transitively, into a local directory. @local
packages are copied from the directories named in the configuration.

` + SubtitleStyle.Render("Configuration is taken from:") + `
  1. The config file given as argument
  2. typst-gather.toml in the current directory
  3. _extension.yml (template and template-partials) of the extension here

` + SubtitleStyle.Render("Examples:") + `
  typst-gather                     Gather using typst-gather.toml or _extension.yml
  typst-gather deps.toml           Gather using an explicit configuration
  typst-gather --watch             Gather again whenever inputs change
  typst-gather init-config         Write a starter typst-gather.toml`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE:              a.runGather,
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "enable debug output")
	flags.String("registry", config.DefaultRegistry, "package registry base URL")
	flags.Duration("timeout", config.DefaultTimeout, "HTTP timeout for a single package download")
	flags.String("user-agent", "", "HTTP User-Agent for registry requests")
	for key, name := range map[string]string{
		config.KeyVerbose:   "verbose",
		config.KeyRegistry:  "registry",
		config.KeyTimeout:   "timeout",
		config.KeyUserAgent: "user-agent",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(name)) // flag names are static
	}
	rootCmd.Flags().BoolVarP(&a.watch, "watch", "w", false, "gather again when discover paths or local packages change")

	rootCmd.AddCommand(newInitConfigCommand(a))
	rootCmd.AddCommand(newListCommand(a))
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the root command and exits with its status.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		newRootCommand(),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// setup resolves settings and the logger before any command runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	settings, err := config.LoadSettings(a.v)
	if err != nil {
		return a.fail(cmd, err)
	}
	a.settings = settings
	a.logger = newLogger(cmd.ErrOrStderr(), settings.Verbose)
	return nil
}

func newLogger(w io.Writer, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{Prefix: "typst-gather"})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func (a *app) newClient() *registry.Client {
	return registry.NewClient(
		registry.WithBaseURL(a.settings.Registry),
		registry.WithUserAgent(a.settings.UserAgent),
		registry.WithTimeout(a.settings.Timeout),
		registry.WithLogger(a.logger),
	)
}

// fail prints err for the user and returns the exit error for it.
func (a *app) fail(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, a.settings.Verbose))
	cmd.SilenceErrors = true
	return &ExitError{Code: 1}
}

// formatErrorForDisplay formats an error for user display.
// ActionableErrors use their Format method; in verbose mode the linked
// issue guide is appended.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return err.Error()
	}
	msg := ae.Format(verboseMode)
	if !verboseMode || ae.Issue == 0 {
		return msg
	}
	if guide := issue.Get(ae.Issue); guide != nil {
		if rendered, renderErr := guide.Render("auto"); renderErr == nil {
			msg += "\n" + rendered
		}
	}
	return msg
}
