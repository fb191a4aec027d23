// SPDX-License-Identifier: MPL-2.0

// Package exclude decides which files of a package are left out when the
// package is vendored into the cache.
//
// A [Matcher] combines built-in defaults (version control metadata, CI and
// editor configuration, backup and swap files) with the exclude globs a
// package declares in its manifest. Paths are matched relative to the
// package root using doublestar syntax. A pattern without a slash that
// contains a wildcard also matches the base name at any depth, so "*.bak"
// excludes "docs/old.bak".
package exclude

import (
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultPatterns are excluded from every vendored package.
var defaultPatterns = []string{
	".git",
	".git/**",
	".github",
	".github/**",
	".gitignore",
	".gitattributes",
	".vscode",
	".vscode/**",
	".idea",
	".idea/**",
	"*.bak",
	"*.swp",
	"*~",
}

// Matcher reports whether package-relative paths are excluded.
type Matcher struct {
	patterns []string
	invalid  []string
}

// New returns a matcher for the default patterns plus extra. Invalid
// patterns are dropped and reported by [Matcher.Invalid].
func New(extra ...string) *Matcher {
	m := &Matcher{}
	for _, pat := range slices.Concat(defaultPatterns, extra) {
		pat = normalizePattern(pat)
		if pat == "" || !doublestar.ValidatePattern(pat) {
			m.invalid = append(m.invalid, pat)
			continue
		}
		m.patterns = append(m.patterns, pat)
	}
	return m
}

// Match reports whether rel, a path relative to the package root, is
// excluded. A nil matcher excludes nothing.
func (m *Matcher) Match(rel string) bool {
	if m == nil {
		return false
	}
	normalized := strings.TrimPrefix(filepath.ToSlash(rel), "./")
	if normalized == "" || normalized == "." {
		return false
	}
	base := path.Base(normalized)

	for _, pat := range m.patterns {
		if matched, err := doublestar.Match(pat, normalized); err == nil && matched {
			return true
		}
		if isBasenamePattern(pat) {
			if matched, err := doublestar.Match(pat, base); err == nil && matched {
				return true
			}
		}
	}
	return false
}

// Patterns returns the effective patterns in evaluation order.
func (m *Matcher) Patterns() []string {
	return slices.Clone(m.patterns)
}

// Invalid returns the patterns that were dropped because they do not parse.
func (m *Matcher) Invalid() []string {
	return slices.Clone(m.invalid)
}

// DefaultPatterns returns a copy of the built-in exclude patterns.
func DefaultPatterns() []string {
	return slices.Clone(defaultPatterns)
}

// normalizePattern anchors manifest patterns at the package root. A leading
// slash and a trailing slash carry no meaning for file matching.
func normalizePattern(pat string) string {
	pat = strings.TrimSpace(filepath.ToSlash(pat))
	pat = strings.TrimPrefix(pat, "./")
	pat = strings.TrimPrefix(pat, "/")
	if len(pat) > 1 {
		pat = strings.TrimSuffix(pat, "/")
	}
	return pat
}

func isBasenamePattern(pat string) bool {
	return !strings.Contains(pat, "/") && strings.ContainsAny(pat, "*?[{")
}
