// SPDX-License-Identifier: MPL-2.0

package typstsyntax

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/typst-gather/typst-gather/pkg/typstpkg"
)

// SourceExt is the file extension of Typst source files.
const SourceExt = ".typ"

// IsSourceFile reports whether path names a Typst source file.
func IsSourceFile(path string) bool {
	return filepath.Ext(path) == SourceExt
}

// CollectImports returns the package specifications referenced by the
// import and include statements in the tree, in document order. Only string
// sources starting with '@' that parse as a specification are returned.
func CollectImports(root *Node) []typstpkg.Spec {
	var specs []typstpkg.Spec
	root.Walk(func(n *Node) {
		if n.Kind != KindImport && n.Kind != KindInclude {
			return
		}
		if len(n.Children) == 0 {
			return
		}
		source := n.Children[0]
		if source.Kind != KindStr || !strings.HasPrefix(source.Text, "@") {
			return
		}
		spec, err := typstpkg.ParseSpec(source.Text)
		if err != nil {
			return
		}
		specs = append(specs, spec)
	})
	return specs
}

// ExtractImports parses src and returns the package specifications it
// references. Content that is not valid UTF-8 yields no specifications.
func ExtractImports(src string) []typstpkg.Spec {
	if !utf8.ValidString(src) {
		return nil
	}
	return CollectImports(Parse(src))
}

// ExtractFile reads a source file and returns the package specifications it
// references.
func ExtractFile(path string) ([]typstpkg.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ExtractImports(string(data)), nil
}

// ExtractTree walks dir recursively and returns the package specifications
// referenced by every source file under it, together with the file that
// referenced each one. Unreadable files and directories are skipped.
func ExtractTree(dir string) []Reference {
	var refs []Reference
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsSourceFile(path) {
			return nil
		}
		specs, err := ExtractFile(path)
		if err != nil {
			return nil
		}
		for _, spec := range specs {
			refs = append(refs, Reference{Spec: spec, File: path})
		}
		return nil
	})
	return refs
}

// Reference is a package specification together with the file it was found in.
type Reference struct {
	Spec typstpkg.Spec
	File string
}
