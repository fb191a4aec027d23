// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the conventional name of the gather document.
const FileName = "typst-gather.toml"

var (
	// ErrParse is returned when the gather document is not valid TOML or has
	// values of the wrong type.
	ErrParse = errors.New("invalid gather configuration")
	// ErrRead is returned when the gather document cannot be read.
	ErrRead = errors.New("cannot read gather configuration")
	// ErrMissingDestination is returned when no destination is configured.
	ErrMissingDestination = errors.New("no destination specified in configuration")
)

type (
	// Config is a parsed gather document.
	Config struct {
		// RootDir is the base for relative destination, discover and local
		// paths. Empty means the working directory.
		RootDir string
		// Destination is the cache root, as written.
		Destination string
		// Discover lists files and directories to scan for imports, as written.
		Discover []string
		// Preview maps registry package names to pinned versions.
		Preview map[string]string
		// Local maps local package names to source directories, as written.
		Local map[string]string
		// Path is the file the document was loaded from, if any.
		Path string
	}

	rawConfig struct {
		RootDir     string            `toml:"rootdir"`
		Destination string            `toml:"destination"`
		Discover    any               `toml:"discover"`
		Preview     map[string]string `toml:"preview"`
		Local       map[string]string `toml:"local"`
	}
)

// Parse decodes a gather document. Unknown keys and tables are ignored.
// discover may be a single string or an array of strings.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	discover, err := discoverPaths(raw.Discover)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	cfg := &Config{
		RootDir:     raw.RootDir,
		Destination: raw.Destination,
		Discover:    discover,
		Preview:     raw.Preview,
		Local:       raw.Local,
	}
	if cfg.Preview == nil {
		cfg.Preview = map[string]string{}
	}
	if cfg.Local == nil {
		cfg.Local = map[string]string{}
	}
	return cfg, nil
}

// Load reads and parses the gather document at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.Path = path
	return cfg, nil
}

func discoverPaths(v any) ([]string, error) {
	switch d := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{d}, nil
	case []any:
		paths := make([]string, 0, len(d))
		for i, item := range d {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("discover[%d]: expected a string, got %T", i, item)
			}
			paths = append(paths, s)
		}
		return paths, nil
	default:
		return nil, fmt.Errorf("discover: expected a string or an array of strings, got %T", v)
	}
}

// ResolvePath resolves p against RootDir. Absolute paths are returned
// unchanged; with no RootDir, relative paths stay relative to the working
// directory.
func (c *Config) ResolvePath(p string) string {
	if filepath.IsAbs(p) || c.RootDir == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(c.RootDir, p)
}

// DestinationPath returns the resolved cache root.
func (c *Config) DestinationPath() (string, error) {
	if c.Destination == "" {
		return "", ErrMissingDestination
	}
	return c.ResolvePath(c.Destination), nil
}

// DiscoverPaths returns the resolved discovery paths in configured order.
func (c *Config) DiscoverPaths() []string {
	paths := make([]string, 0, len(c.Discover))
	for _, p := range c.Discover {
		paths = append(paths, c.ResolvePath(p))
	}
	return paths
}

// Entries returns the explicit package entries: registry entries sorted by
// name, then local entries sorted by name with their directories resolved.
func (c *Config) Entries() []PackageEntry {
	entries := make([]PackageEntry, 0, len(c.Preview)+len(c.Local))
	for _, name := range slices.Sorted(maps.Keys(c.Preview)) {
		entries = append(entries, PreviewEntry{Name: name, Version: c.Preview[name]})
	}
	for _, name := range slices.Sorted(maps.Keys(c.Local)) {
		entries = append(entries, LocalEntry{Name: name, Dir: c.ResolvePath(c.Local[name])})
	}
	return entries
}

// LocalNames returns the names declared in the local table, sorted.
func (c *Config) LocalNames() []string {
	return slices.Sorted(maps.Keys(c.Local))
}
