// SPDX-License-Identifier: MPL-2.0

package typstpkg

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/mod/semver"
)

const (
	// NamespacePreview is the registry namespace served by packages.typst.org.
	NamespacePreview Namespace = "preview"
	// NamespaceLocal is the namespace of packages vendored from the filesystem.
	NamespaceLocal Namespace = "local"
)

var (
	// ErrInvalidSpec is the sentinel wrapped by InvalidSpecError.
	ErrInvalidSpec = errors.New("invalid package specification")
	// ErrInvalidVersion is the sentinel wrapped by InvalidVersionError.
	ErrInvalidVersion = errors.New("invalid package version")
)

type (
	// Namespace is the first segment of a package specification.
	Namespace string

	// Version is a fully specified major.minor.patch package version.
	Version struct {
		Major uint32
		Minor uint32
		Patch uint32
	}

	// Spec identifies one package instance. It is immutable once parsed.
	Spec struct {
		Namespace Namespace
		Name      string
		Version   Version
	}

	// InvalidSpecError is returned when a string is not a valid
	// "@namespace/name:version" specification.
	InvalidSpecError struct {
		Input  string
		Reason string
	}

	// InvalidVersionError is returned when a version string is not a valid
	// major.minor.patch triple.
	InvalidVersionError struct {
		Input  string
		Reason string
	}
)

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid package specification %q: %s", e.Input, e.Reason)
}

func (e *InvalidSpecError) Unwrap() error { return ErrInvalidSpec }

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid package version %q: %s", e.Input, e.Reason)
}

func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }

// IsRegistry reports whether packages in this namespace are fetched from the registry.
func (n Namespace) IsRegistry() bool {
	return n == NamespacePreview
}

// ParseVersion parses a "major.minor.patch" version. All three components are
// required and each must fit in an unsigned 32-bit integer.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	kinds := []string{"major", "minor", "patch"}
	if len(parts) > len(kinds) {
		return Version{}, &InvalidVersionError{Input: s, Reason: "version number has unexpected fourth component"}
	}

	var nums [3]uint32
	for i, kind := range kinds {
		if i >= len(parts) || parts[i] == "" {
			return Version{}, &InvalidVersionError{Input: s, Reason: "version number is missing " + kind + " version"}
		}
		n, err := strconv.ParseUint(parts[i], 10, 32)
		if err != nil {
			return Version{}, &InvalidVersionError{Input: s, Reason: fmt.Sprintf("%q is not a valid %s version", parts[i], kind)}
		}
		nums[i] = uint32(n)
	}

	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// String renders the version as "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or +1 depending on whether v sorts before, equal to,
// or after other by semantic version precedence.
func (v Version) Compare(other Version) int {
	return semver.Compare("v"+v.String(), "v"+other.String())
}

// ParseSpec parses a package specification of the form "@namespace/name:version".
func ParseSpec(s string) (Spec, error) {
	rest, ok := strings.CutPrefix(s, "@")
	if !ok {
		return Spec{}, &InvalidSpecError{Input: s, Reason: "package specification must start with '@'"}
	}

	namespace, rest, _ := strings.Cut(rest, "/")
	switch {
	case namespace == "":
		return Spec{}, &InvalidSpecError{Input: s, Reason: "package specification is missing namespace"}
	case !IsIdent(namespace):
		return Spec{}, &InvalidSpecError{Input: s, Reason: fmt.Sprintf("%q is not a valid package namespace", namespace)}
	}

	name, version, _ := strings.Cut(rest, ":")
	switch {
	case name == "":
		return Spec{}, &InvalidSpecError{Input: s, Reason: "package specification is missing name"}
	case !IsIdent(name):
		return Spec{}, &InvalidSpecError{Input: s, Reason: fmt.Sprintf("%q is not a valid package name", name)}
	case version == "":
		return Spec{}, &InvalidSpecError{Input: s, Reason: "package specification is missing version"}
	}

	v, err := ParseVersion(version)
	if err != nil {
		return Spec{}, fmt.Errorf("%w: %w", &InvalidSpecError{Input: s, Reason: "bad version"}, err)
	}

	return Spec{Namespace: Namespace(namespace), Name: name, Version: v}, nil
}

// NewPreviewSpec builds a registry spec from a package name and version string.
func NewPreviewSpec(name, version string) (Spec, error) {
	v, err := ParseVersion(version)
	if err != nil {
		return Spec{}, err
	}
	return Spec{Namespace: NamespacePreview, Name: name, Version: v}, nil
}

// String renders the spec as it appears in an import: "@namespace/name:version".
func (s Spec) String() string {
	return "@" + s.Key()
}

// Key returns the canonical "namespace/name:version" identity of the spec.
func (s Spec) Key() string {
	return fmt.Sprintf("%s/%s:%s", s.Namespace, s.Name, s.Version)
}

// CacheDir returns the directory of this package below a cache root.
func (s Spec) CacheDir(root string) string {
	return filepath.Join(root, string(s.Namespace), s.Name, s.Version.String())
}

// IsIdent reports whether s is a valid Typst identifier: a letter or
// underscore followed by letters, digits, underscores or hyphens.
func IsIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !isIdentStart(r) {
				return false
			}
			continue
		}
		if !isIdentContinue(r) {
			return false
		}
	}
	return true
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.Is(unicode.Nl, r)
}

func isIdentContinue(r rune) bool {
	return isIdentStart(r) || r == '-' ||
		unicode.IsDigit(r) || unicode.In(r, unicode.Mn, unicode.Mc, unicode.Pc)
}
