// SPDX-License-Identifier: MPL-2.0

package config

type (
	// PackageEntry is an explicitly configured package: a PreviewEntry or a
	// LocalEntry. The set of implementations is closed.
	PackageEntry interface {
		// EntryName returns the configured package name.
		EntryName() string
		isPackageEntry()
	}

	// PreviewEntry is a package fetched from the registry at a pinned version.
	// Version is validated when the entry is gathered, not when parsed.
	PreviewEntry struct {
		Name    string
		Version string
	}

	// LocalEntry is a package vendored from a source directory.
	LocalEntry struct {
		Name string
		Dir  string
	}
)

// EntryName returns the package name.
func (e PreviewEntry) EntryName() string { return e.Name }

// EntryName returns the package name.
func (e LocalEntry) EntryName() string { return e.Name }

func (PreviewEntry) isPackageEntry() {}
func (LocalEntry) isPackageEntry()   {}
