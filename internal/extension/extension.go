// SPDX-License-Identifier: MPL-2.0

package extension

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/typst-gather/typst-gather/internal/config"
)

const (
	// ManifestFileName is the name of the extension metadata file.
	ManifestFileName = "_extension.yml"

	// DefaultDestination is the gather destination, relative to the extension
	// directory, used when configuration is derived from the extension.
	DefaultDestination = "typst/packages"

	// extensionsGlob finds extensions installed below a project.
	extensionsGlob = "_extensions/**/" + ManifestFileName
)

var (
	// ErrNotFound is returned when no extension directory can be located.
	ErrNotFound = errors.New("no extension directory found")
	// ErrAmbiguous is the sentinel wrapped by AmbiguousError.
	ErrAmbiguous = errors.New("multiple extension directories found")
	// ErrNoTypstFiles is returned when an extension declares no Typst template.
	ErrNoTypstFiles = errors.New("no Typst files found in " + ManifestFileName)
)

type (
	// AmbiguousError lists the extension directories found below _extensions
	// when more than one exists.
	AmbiguousError struct {
		Dirs []string
	}

	// Manifest is the part of _extension.yml relevant to gathering.
	Manifest struct {
		Contributes struct {
			Formats struct {
				Typst *TypstFormat `yaml:"typst"`
			} `yaml:"formats"`
		} `yaml:"contributes"`
	}

	// TypstFormat declares the Typst files a format contributes.
	TypstFormat struct {
		Template         string   `yaml:"template"`
		TemplatePartials []string `yaml:"template-partials"`
	}
)

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%d extension directories found: %s", len(e.Dirs), strings.Join(e.Dirs, ", "))
}

func (e *AmbiguousError) Unwrap() error { return ErrAmbiguous }

// FindDir returns the extension directory for wd: wd itself when it holds
// _extension.yml, else the single extension found below wd/_extensions.
func FindDir(wd string) (string, error) {
	if _, err := os.Stat(filepath.Join(wd, ManifestFileName)); err == nil {
		return wd, nil
	}

	matches, err := doublestar.Glob(os.DirFS(wd), extensionsGlob, doublestar.WithFilesOnly())
	if err != nil {
		return "", fmt.Errorf("searching %s: %w", filepath.Join(wd, "_extensions"), err)
	}
	dirs := make([]string, 0, len(matches))
	for _, m := range matches {
		dirs = append(dirs, filepath.Join(wd, filepath.FromSlash(filepath.Dir(m))))
	}
	slices.Sort(dirs)

	switch len(dirs) {
	case 0:
		return "", ErrNotFound
	case 1:
		return dirs[0], nil
	default:
		return "", &AmbiguousError{Dirs: dirs}
	}
}

// LoadManifest reads the _extension.yml of dir.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &m, nil
}

// TypstFiles returns the template and template partials declared by the
// manifest, resolved against dir, template first.
func (m *Manifest) TypstFiles(dir string) []string {
	typst := m.Contributes.Formats.Typst
	if typst == nil {
		return nil
	}
	var files []string
	if typst.Template != "" {
		files = append(files, filepath.Join(dir, typst.Template))
	}
	for _, partial := range typst.TemplatePartials {
		if partial != "" {
			files = append(files, filepath.Join(dir, partial))
		}
	}
	return files
}

// TypstFiles returns the Typst files declared by the extension in dir.
func TypstFiles(dir string) ([]string, error) {
	m, err := LoadManifest(dir)
	if err != nil {
		return nil, err
	}
	return m.TypstFiles(dir), nil
}

// AutoConfig derives a gather configuration from the extension in dir:
// packages go to dir/typst/packages and discovery scans the declared Typst
// files.
func AutoConfig(dir string) (*config.Config, error) {
	files, err := TypstFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoTypstFiles
	}
	return &config.Config{
		Destination: filepath.Join(dir, filepath.FromSlash(DefaultDestination)),
		Discover:    files,
		Preview:     map[string]string{},
		Local:       map[string]string{},
		Path:        filepath.Join(dir, ManifestFileName),
	}, nil
}
