// SPDX-License-Identifier: MPL-2.0

// Package typstpkg models Typst package identities and manifests.
//
// A package is addressed by a [Spec] of the form "@namespace/name:version".
// Two namespaces matter to the gatherer:
//   - [NamespacePreview]: packages published to the Typst registry
//   - [NamespaceLocal]: packages vendored from a directory on disk
//
// The canonical key of a spec ("namespace/name:version", see [Spec.Key])
// is the deduplication identity used throughout a gather run, and
// [Spec.CacheDir] maps it onto the cache layout
// "<destination>/<namespace>/<name>/<version>".
//
// Local packages carry a typst.toml [Manifest] with a [package] table that
// declares the package name, its version and optional exclude globs.
package typstpkg
