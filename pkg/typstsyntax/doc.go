// SPDX-License-Identifier: MPL-2.0

// Package typstsyntax extracts package references from Typst source files.
//
// [Parse] builds a coarse, error-tolerant syntax tree that understands the
// three Typst modes (markup, code and math) well enough to tell real
// `import` and `include` statements apart from text, comments, raw blocks
// and string contents. Statements are found at any depth: embedded with
// `#` in markup, inside code blocks, function bodies, content blocks and
// math. Malformed input never fails; unterminated constructs run to the end
// of the file and are marked [KindError].
//
// [CollectImports] walks a tree and returns every module source that is a
// string literal of the form "@namespace/name:version", in document order.
// Relative file imports and malformed specifications are dropped silently.
package typstsyntax
