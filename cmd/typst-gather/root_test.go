// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/typst-gather/typst-gather/internal/config"
	"github.com/typst-gather/typst-gather/internal/issue"
	"github.com/typst-gather/typst-gather/internal/testutil"
)

const letterManifest = `title: Letter
contributes:
  formats:
    typst:
      template: template.typ
`

func TestExitError(t *testing.T) {
	t.Parallel()

	bare := &ExitError{Code: 3}
	if got := bare.Error(); got != "exit status 3" {
		t.Errorf("Error() = %q, want %q", got, "exit status 3")
	}

	cause := errors.New("boom")
	wrapped := &ExitError{Code: 1, Err: cause}
	if got := wrapped.Error(); got != "boom" {
		t.Errorf("Error() = %q, want %q", got, "boom")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is(ExitError, cause) = false, want true")
	}
}

func TestFormatErrorForDisplay(t *testing.T) {
	t.Parallel()

	plain := errors.New("plain failure")
	if got := formatErrorForDisplay(plain, true); got != "plain failure" {
		t.Errorf("formatErrorForDisplay(plain) = %q, want %q", got, "plain failure")
	}

	ae := issue.NewErrorContext().
		WithOperation("load gather configuration").
		WithResource("deps.toml").
		WithSuggestion("Check the path").
		WithIssue(issue.ConfigNotFoundID).
		Wrap(config.ErrRead).
		BuildError()

	short := formatErrorForDisplay(ae, false)
	if !strings.HasPrefix(short, "failed to load gather configuration: deps.toml") {
		t.Errorf("formatErrorForDisplay() = %q, want operation and resource first", short)
	}
	if !strings.Contains(short, "Check the path") {
		t.Errorf("formatErrorForDisplay() = %q, want suggestion", short)
	}
	if strings.Contains(short, "Error chain:") {
		t.Errorf("formatErrorForDisplay(non-verbose) = %q, want no error chain", short)
	}

	long := formatErrorForDisplay(ae, true)
	if !strings.Contains(long, "Error chain:") {
		t.Errorf("formatErrorForDisplay(verbose) = %q, want error chain", long)
	}
	if len(long) <= len(short) {
		t.Errorf("formatErrorForDisplay(verbose) is not longer than the short form")
	}
}

func TestRelativeTo(t *testing.T) {
	t.Parallel()

	base := filepath.Join(string(filepath.Separator)+"work", "project")
	tests := []struct {
		name string
		p    string
		want string
	}{
		{"below base", filepath.Join(base, "typst", "packages"), filepath.Join("typst", "packages")},
		{"base itself", base, "."},
		{"outside base", filepath.Join(string(filepath.Separator)+"elsewhere", "x"), filepath.Join(string(filepath.Separator)+"elsewhere", "x")},
		{"dotdot prefix name", filepath.Join(filepath.Dir(base), "..project"), filepath.Join(filepath.Dir(base), "..project")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := relativeTo(base, tt.p); got != tt.want {
				t.Errorf("relativeTo(%q, %q) = %q, want %q", base, tt.p, got, tt.want)
			}
		})
	}
}

func TestResolveConfig(t *testing.T) {
	t.Parallel()

	logger := newLogger(io.Discard, false)

	t.Run("explicit argument", func(t *testing.T) {
		t.Parallel()

		wd := t.TempDir()
		testutil.WriteTree(t, wd, map[string]string{
			"deps.toml":                    "destination = \"explicit\"\n",
			config.FileName:                "destination = \"default\"\n",
			"_extensions/a/_extension.yml": letterManifest,
		})

		rc, err := resolveConfig([]string{filepath.Join(wd, "deps.toml")}, wd, logger)
		if err != nil {
			t.Fatalf("resolveConfig() error = %v", err)
		}
		if rc.Destination != "explicit" || rc.auto {
			t.Errorf("resolveConfig() = %q (auto %v), want explicit file", rc.Destination, rc.auto)
		}
	})

	t.Run("default file", func(t *testing.T) {
		t.Parallel()

		wd := t.TempDir()
		testutil.WriteTree(t, wd, map[string]string{
			config.FileName:                "destination = \"default\"\n",
			"_extensions/a/_extension.yml": letterManifest,
		})

		rc, err := resolveConfig(nil, wd, logger)
		if err != nil {
			t.Fatalf("resolveConfig() error = %v", err)
		}
		if rc.Destination != "default" || rc.auto {
			t.Errorf("resolveConfig() = %q (auto %v), want %s", rc.Destination, rc.auto, config.FileName)
		}
	})

	t.Run("extension", func(t *testing.T) {
		t.Parallel()

		wd := t.TempDir()
		testutil.WriteTree(t, wd, map[string]string{
			"_extensions/letter/_extension.yml": letterManifest,
			"_extensions/letter/template.typ":   "= Letter\n",
		})

		rc, err := resolveConfig(nil, wd, logger)
		if err != nil {
			t.Fatalf("resolveConfig() error = %v", err)
		}
		if !rc.auto {
			t.Error("resolveConfig().auto = false, want true")
		}
		dest, err := rc.DestinationPath()
		if err != nil {
			t.Fatalf("DestinationPath() error = %v", err)
		}
		want := filepath.Join(wd, "_extensions", "letter", "typst", "packages")
		if dest != want {
			t.Errorf("DestinationPath() = %q, want %q", dest, want)
		}
	})

	t.Run("nothing found", func(t *testing.T) {
		t.Parallel()

		_, err := resolveConfig(nil, t.TempDir(), logger)
		var ae *issue.ActionableError
		if !errors.As(err, &ae) {
			t.Fatalf("resolveConfig() error = %v, want ActionableError", err)
		}
		if ae.Issue != issue.ConfigNotFoundID {
			t.Errorf("Issue = %v, want ConfigNotFoundID", ae.Issue)
		}
	})

	t.Run("ambiguous", func(t *testing.T) {
		t.Parallel()

		wd := t.TempDir()
		testutil.WriteTree(t, wd, map[string]string{
			"_extensions/a/_extension.yml": letterManifest,
			"_extensions/b/_extension.yml": letterManifest,
		})

		_, err := resolveConfig(nil, wd, logger)
		var ae *issue.ActionableError
		if !errors.As(err, &ae) {
			t.Fatalf("resolveConfig() error = %v, want ActionableError", err)
		}
		if ae.Issue != issue.ExtensionAmbiguousID {
			t.Errorf("Issue = %v, want ExtensionAmbiguousID", ae.Issue)
		}
	})

	t.Run("parse error", func(t *testing.T) {
		t.Parallel()

		wd := t.TempDir()
		testutil.WriteTree(t, wd, map[string]string{config.FileName: "destination = [\n"})

		_, err := resolveConfig(nil, wd, logger)
		if !errors.Is(err, config.ErrParse) {
			t.Errorf("resolveConfig() error = %v, want ErrParse", err)
		}
	})
}

func TestGetVersionString(t *testing.T) {
	t.Parallel()

	if got := getVersionString(); Version == "dev" && got != "dev (built from source)" {
		t.Errorf("getVersionString() = %q, want %q", got, "dev (built from source)")
	}
}
