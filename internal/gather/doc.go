// SPDX-License-Identifier: MPL-2.0

// Package gather collects the transitive closure of Typst package imports
// into a local cache directory.
//
// A run first scans the configured discovery paths, then processes every
// explicit package entry: registry packages are resolved through the
// download cache, local packages are vendored from their source directory.
// Every package that lands in the cache is scanned for further imports,
// recursively, until no new registry package is referenced. Each distinct
// package is handled at most once per run, which also breaks import cycles.
//
// Per-package failures never abort a run; they are logged and counted in
// [Stats]. References to @local packages that have no configured source
// directory are reported in [Result.UnconfiguredLocal].
package gather
