// SPDX-License-Identifier: MPL-2.0

// Package registry downloads packages from the Typst package registry and
// maintains the on-disk package cache.
//
// A [Client] fetches "<base>/<namespace>/<name>-<version>.tar.gz" archives
// and unpacks them. A [Cache] maps package specifications to directories
// under a cache root laid out as <namespace>/<name>/<version>, downloading
// only what is not already present. Existing directories are trusted as-is:
// a cached package is never re-validated or refreshed.
package registry
