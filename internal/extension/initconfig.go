// SPDX-License-Identifier: MPL-2.0

package extension

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/typst-gather/typst-gather/pkg/typstpkg"
	"github.com/typst-gather/typst-gather/pkg/typstsyntax"
)

// ErrConfigExists is returned by WriteConfig when the target already exists.
var ErrConfigExists = errors.New("configuration file already exists")

type (
	// Import is a package import found while scanning extension files.
	Import struct {
		Name    string
		Version string
		// File is the base name of the file the import appears in.
		File string
	}

	// Discovery is the result of scanning extension files for imports.
	Discovery struct {
		Preview []Import
		Local   []Import
		// Scanned lists the scanned files relative to the extension directory.
		Scanned []string
	}

	configHeader struct {
		RootDir     string `toml:"rootdir,omitempty"`
		Destination string `toml:"destination"`
	}

	singleDiscover struct {
		Discover string `toml:"discover"`
	}

	listDiscover struct {
		Discover []string `toml:"discover"`
	}

	localTable struct {
		Local map[string]string `toml:"local" comment:"Set the source directory of each @local package."`
	}
)

// Discover scans files of the extension in dir for package imports. Files
// that do not exist or are not Typst sources are skipped.
func Discover(dir string, files []string) Discovery {
	var d Discovery
	for _, file := range files {
		if !typstsyntax.IsSourceFile(file) {
			continue
		}
		specs, err := typstsyntax.ExtractFile(file)
		if err != nil {
			continue
		}
		name := filepath.Base(file)
		rel, err := filepath.Rel(dir, file)
		if err != nil {
			rel = file
		}
		d.Scanned = append(d.Scanned, rel)
		for _, spec := range specs {
			imp := Import{Name: spec.Name, Version: spec.Version.String(), File: name}
			switch spec.Namespace {
			case typstpkg.NamespacePreview:
				d.Preview = append(d.Preview, imp)
			case typstpkg.NamespaceLocal:
				d.Local = append(d.Local, imp)
			}
		}
	}
	return d
}

// GenerateConfig renders a starter gather document for d. rootdir is the
// extension directory relative to where the document is written; empty
// means the same directory.
func GenerateConfig(d Discovery, rootdir string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# typst-gather configuration\n")
	buf.WriteString("# Run: typst-gather\n\n")

	// TOML strings treat backslashes as escapes, so paths use forward slashes.
	var discover any
	switch len(d.Scanned) {
	case 0:
	case 1:
		discover = singleDiscover{Discover: filepath.ToSlash(d.Scanned[0])}
	default:
		files := make([]string, 0, len(d.Scanned))
		for _, f := range d.Scanned {
			files = append(files, filepath.ToSlash(f))
		}
		discover = listDiscover{Discover: files}
	}

	for _, v := range []any{configHeader{RootDir: filepath.ToSlash(rootdir), Destination: DefaultDestination}, discover} {
		if v == nil {
			buf.WriteString("# discover = \"template.typ\"  # Add your .typ files here\n")
			continue
		}
		data, err := toml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding configuration: %w", err)
		}
		buf.Write(data)
	}

	buf.WriteString("\n# Preview packages are auto-discovered from imports.\n")
	buf.WriteString("# Uncomment to pin specific versions:\n")
	buf.WriteString("# [preview]\n")
	preview := firstByName(d.Preview)
	if len(preview) == 0 {
		buf.WriteString("# cetz = \"0.4.1\"\n")
	}
	for _, imp := range preview {
		fmt.Fprintf(&buf, "# %s = %s\n", imp.Name, strconv.Quote(imp.Version))
	}

	buf.WriteString("\n# Local packages (@local namespace) must be configured manually.\n")
	local := firstByName(d.Local)
	if len(local) == 0 {
		buf.WriteString("# [local]\n")
		buf.WriteString("# my-pkg = \"/path/to/my-pkg\"\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("# Found @local imports:\n")
	table := localTable{Local: make(map[string]string, len(local))}
	for _, imp := range local {
		fmt.Fprintf(&buf, "#   @local/%s:%s (in %s)\n", imp.Name, imp.Version, imp.File)
		table.Local[imp.Name] = "/path/to/" + imp.Name
	}
	data, err := toml.Marshal(table)
	if err != nil {
		return nil, fmt.Errorf("encoding configuration: %w", err)
	}
	buf.Write(data)
	return buf.Bytes(), nil
}

// WriteConfig creates path with data. It never overwrites an existing file.
func WriteConfig(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// firstByName keeps the first import of each name, in order.
func firstByName(imports []Import) []Import {
	seen := make(map[string]struct{}, len(imports))
	var out []Import
	for _, imp := range imports {
		if _, ok := seen[imp.Name]; ok {
			continue
		}
		seen[imp.Name] = struct{}{}
		out = append(out, imp)
	}
	return out
}
