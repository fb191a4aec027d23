// SPDX-License-Identifier: MPL-2.0

package typstpkg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ManifestFileName is the name of the manifest at the root of every package.
const ManifestFileName = "typst.toml"

var (
	// ErrManifestRead is returned when a manifest file cannot be read.
	ErrManifestRead = errors.New("cannot read package manifest")
	// ErrManifestParse is returned when a manifest is malformed or incomplete.
	ErrManifestParse = errors.New("malformed package manifest")
)

type (
	// Manifest is the validated content of a typst.toml file.
	Manifest struct {
		Name        string
		Version     Version
		Entrypoint  string
		Description string
		// Exclude lists glob patterns, relative to the package root, of files
		// that are not part of the package.
		Exclude []string
	}

	manifestDocument struct {
		Package *manifestPackage `toml:"package"`
	}

	manifestPackage struct {
		Name        string   `toml:"name"`
		Version     string   `toml:"version"`
		Entrypoint  string   `toml:"entrypoint"`
		Description string   `toml:"description"`
		Exclude     []string `toml:"exclude"`
	}
)

// ParseManifest decodes and validates manifest content. The [package] table
// must declare a valid identifier as name and a major.minor.patch version.
// Unknown keys and tables are ignored.
func ParseManifest(data []byte) (*Manifest, error) {
	var doc manifestDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifestParse, err)
	}

	if doc.Package == nil {
		return nil, fmt.Errorf("%w: missing [package] table", ErrManifestParse)
	}
	pkg := doc.Package

	if pkg.Name == "" {
		return nil, fmt.Errorf("%w: missing package name", ErrManifestParse)
	}
	if !IsIdent(pkg.Name) {
		return nil, fmt.Errorf("%w: %q is not a valid package name", ErrManifestParse, pkg.Name)
	}
	if pkg.Version == "" {
		return nil, fmt.Errorf("%w: missing package version", ErrManifestParse)
	}
	version, err := ParseVersion(pkg.Version)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifestParse, err)
	}

	return &Manifest{
		Name:        pkg.Name,
		Version:     version,
		Entrypoint:  pkg.Entrypoint,
		Description: pkg.Description,
		Exclude:     pkg.Exclude,
	}, nil
}

// LoadManifest reads and parses the typst.toml in dir.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifestRead, err)
	}

	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Spec returns the identity of the package described by the manifest in the
// given namespace.
func (m *Manifest) Spec(ns Namespace) Spec {
	return Spec{Namespace: ns, Name: m.Name, Version: m.Version}
}
