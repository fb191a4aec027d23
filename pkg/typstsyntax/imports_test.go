// SPDX-License-Identifier: MPL-2.0

package typstsyntax

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/typst-gather/typst-gather/pkg/typstpkg"
)

func specKeys(specs []typstpkg.Spec) []string {
	keys := make([]string, 0, len(specs))
	for _, s := range specs {
		keys = append(keys, s.Key())
	}
	return keys
}

func TestExtractImports(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "simple import",
			src:  `#import "@preview/cetz:0.4.1"`,
			want: []string{"preview/cetz:0.4.1"},
		},
		{
			name: "import with items",
			src:  `#import "@preview/cetz:0.4.1": canvas, draw`,
			want: []string{"preview/cetz:0.4.1"},
		},
		{
			name: "relative import ignored",
			src:  "#import \"@preview/cetz:0.4.1\": canvas\n#import \"utils.typ\"\n",
			want: []string{"preview/cetz:0.4.1"},
		},
		{
			name: "multiple imports",
			src:  "\n#import \"@preview/cetz:0.4.1\"\n#import \"@preview/fletcher:0.5.3\"\n",
			want: []string{"preview/cetz:0.4.1", "preview/fletcher:0.5.3"},
		},
		{
			name: "include statement",
			src:  `#include "@preview/template:1.0.0"`,
			want: []string{"preview/template:1.0.0"},
		},
		{
			name: "local namespace",
			src:  `#import "@local/my-pkg:1.0.0"`,
			want: []string{"local/my-pkg:1.0.0"},
		},
		{
			name: "no imports",
			src:  "= Hello World",
		},
		{
			name: "nested in function",
			src:  "\n#let setup() = {\n  import \"@preview/cetz:0.4.1\"\n}\n",
			want: []string{"preview/cetz:0.4.1"},
		},
		{
			name: "missing version dropped",
			src:  `#import "@preview/cetz"`,
		},
		{
			name: "partial version dropped",
			src:  `#import "@preview/cetz:0.4"`,
		},
		{
			name: "import inside content block",
			src:  `#box[Text #import "@preview/inner:1.0.0": x and more]`,
			want: []string{"preview/inner:1.0.0"},
		},
		{
			name: "import inside conditional branch",
			src:  "#if true [\n  #import \"@preview/branch:2.0.0\"\n] else {\n  import \"@preview/other:3.0.0\"\n}\n",
			want: []string{"preview/branch:2.0.0", "preview/other:3.0.0"},
		},
		{
			name: "code block with several statements",
			src:  "#{\n  let x = (1, 2)\n  import \"@preview/a:0.1.0\": f\n  include \"@preview/b:0.2.0\"\n}",
			want: []string{"preview/a:0.1.0", "preview/b:0.2.0"},
		},
		{
			name: "line comment ignored",
			src:  "// #import \"@preview/cetz:0.4.1\"\nText",
		},
		{
			name: "block comment ignored",
			src:  "/* outer /* nested */ #import \"@preview/cetz:0.4.1\" */ Text",
		},
		{
			name: "raw block ignored",
			src:  "```typ\n#import \"@preview/cetz:0.4.1\"\n```\n",
		},
		{
			name: "inline raw ignored",
			src:  "Use `#import \"@preview/cetz:0.4.1\"` to load it.",
		},
		{
			name: "escaped hash is text",
			src:  `\#import "@preview/cetz:0.4.1"`,
		},
		{
			name: "import text inside string ignored",
			src:  `#let s = "#import \"@preview/cetz:0.4.1\""`,
		},
		{
			name: "url is not a comment",
			src:  `See https://typst.app #import "@preview/cetz:0.4.1"`,
			want: []string{"preview/cetz:0.4.1"},
		},
		{
			name: "unicode escape in source",
			src:  `#import "\u{40}preview/cetz:0.4.1"`,
			want: []string{"preview/cetz:0.4.1"},
		},
		{
			name: "unterminated string",
			src:  `#import "@preview/cetz:0.4.1`,
		},
		{
			name: "import from identifier",
			src:  "#import sys: inputs\n",
		},
		{
			name: "import inside math",
			src:  `$ x + #import "@preview/mathpkg:1.0.0": y $`,
			want: []string{"preview/mathpkg:1.0.0"},
		},
		{
			name: "field named import is not a statement",
			src:  `#{ let m = (:); m.import }`,
		},
		{
			name: "invalid utf-8",
			src:  "#import \"@preview/cetz:0.4.1\"\xff\xfe",
		},
		{
			name: "complex document",
			src: `
#import "@preview/cetz:0.4.1": canvas
#import "@preview/fletcher:0.5.3": diagram, node, edge
#import "local-file.typ": helper

= My Document

#include "@preview/template:1.0.0"

Some content here.

#let f() = {
  import "@preview/codly:1.2.0"
}
`,
			want: []string{
				"preview/cetz:0.4.1",
				"preview/fletcher:0.5.3",
				"preview/template:1.0.0",
				"preview/codly:1.2.0",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := specKeys(ExtractImports(tt.src))
			if !slices.Equal(got, tt.want) {
				t.Errorf("ExtractImports() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractImports_SpecFields(t *testing.T) {
	t.Parallel()

	specs := ExtractImports(`#import "@preview/cetz:0.4.1": canvas`)
	if len(specs) != 1 {
		t.Fatalf("ExtractImports() returned %d specs, want 1", len(specs))
	}
	want := typstpkg.Spec{Namespace: typstpkg.NamespacePreview, Name: "cetz", Version: typstpkg.Version{Major: 0, Minor: 4, Patch: 1}}
	if specs[0] != want {
		t.Errorf("ExtractImports()[0] = %+v, want %+v", specs[0], want)
	}
}

func TestParse_UnterminatedConstructs(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"#{ import \"@preview/a:1.0.0\"",
		"#box[unclosed",
		"$ x + y",
		"/* never closed",
		"```typ\nno fence",
		"#f(a, b",
		"#{ ) }",
		"]]]}}})))",
	}

	for _, src := range inputs {
		root := Parse(src)
		if root == nil || root.Kind != KindMarkup {
			t.Errorf("Parse(%q) root = %v, want markup node", src, root)
		}
	}

	// An unclosed code block still contains the complete import statement.
	got := specKeys(ExtractImports(inputs[0]))
	if !slices.Equal(got, []string{"preview/a:1.0.0"}) {
		t.Errorf("ExtractImports(%q) = %v, want [preview/a:1.0.0]", inputs[0], got)
	}
}

func TestParse_MarksErrors(t *testing.T) {
	t.Parallel()

	var kinds []Kind
	Parse(`#import "@preview/cetz:0.4.1`).Walk(func(n *Node) {
		kinds = append(kinds, n.Kind)
	})
	if !slices.Contains(kinds, KindError) {
		t.Errorf("kinds = %v, want an error node for the unterminated string", kinds)
	}
	if !slices.Contains(kinds, KindImport) {
		t.Errorf("kinds = %v, want an import node", kinds)
	}
}

func TestIsSourceFile(t *testing.T) {
	t.Parallel()

	if !IsSourceFile(filepath.Join("dir", "main.typ")) {
		t.Error("IsSourceFile(main.typ) = false, want true")
	}
	for _, name := range []string{"main.typst", "typ", "notes.txt", "main.typ.bak"} {
		if IsSourceFile(name) {
			t.Errorf("IsSourceFile(%q) = true, want false", name)
		}
	}
}

func TestExtractTree(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := map[string]string{
		"a.typ":         `#import "@preview/cetz:0.4.1"`,
		"sub/b.typ":     "#import \"@local/helper:1.0.0\"\n#import \"a.typ\"\n",
		"notes.txt":     `#import "@preview/ignored:1.0.0"`,
		"sub/empty.typ": "",
	}
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	refs := ExtractTree(dir)
	if len(refs) != 2 {
		t.Fatalf("ExtractTree() returned %d refs, want 2: %+v", len(refs), refs)
	}
	if refs[0].Spec.Key() != "preview/cetz:0.4.1" || refs[0].File != filepath.Join(dir, "a.typ") {
		t.Errorf("refs[0] = %+v, want cetz from a.typ", refs[0])
	}
	if refs[1].Spec.Key() != "local/helper:1.0.0" || refs[1].File != filepath.Join(dir, "sub", "b.typ") {
		t.Errorf("refs[1] = %+v, want helper from sub/b.typ", refs[1])
	}
}

func TestExtractTree_MissingDir(t *testing.T) {
	t.Parallel()

	if refs := ExtractTree(filepath.Join(t.TempDir(), "missing")); len(refs) != 0 {
		t.Errorf("ExtractTree(missing) = %v, want none", refs)
	}
}
