// SPDX-License-Identifier: MPL-2.0

// Command typst-gather collects the Typst packages a document or format
// extension imports, transitively, into a local directory for offline use.
//
// Usage:
//
//	typst-gather [config]          gather packages
//	typst-gather init-config       write a starter typst-gather.toml
//	typst-gather list [config]     show the packages in the destination
package main

func main() {
	Execute()
}
