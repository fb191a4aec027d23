// SPDX-License-Identifier: MPL-2.0

// Package config handles the gather configuration document and tool settings.
//
// The gather document (typst-gather.toml) names the cache destination, the
// paths to scan for imports, and the packages to gather explicitly:
//
//	rootdir = "_extensions/my-format"
//	destination = "typst/packages"
//	discover = ["template.typ", "partials"]
//
//	[preview]
//	cetz = "0.4.1"
//
//	[local]
//	my-pkg = "../my-pkg"
//
// Tool settings (registry URL, User-Agent, timeout, verbosity) are layered
// with Viper: built-in defaults, then TYPST_GATHER_* environment variables,
// then command-line flags bound by the CLI.
package config
