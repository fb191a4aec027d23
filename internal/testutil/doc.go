// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers include working directory and environment management
// (MustChdir, MustSetenv), file fixtures (MustWriteFile, WriteTree,
// WritePackage) and in-memory registry archives (TarGz).
package testutil
