// SPDX-License-Identifier: MPL-2.0

// Package extension derives gather configuration from a format extension.
//
// A format extension is a directory holding an _extension.yml file that may
// declare Typst template files under contributes.formats.typst. When no
// gather document exists, those files seed discovery and packages are
// gathered into the extension's typst/packages directory. The package also
// generates a starter gather document from the imports the templates use.
package extension
