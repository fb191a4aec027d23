// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/typst-gather/typst-gather/internal/testutil"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		toml         string
		wantDest     string
		wantDiscover []string
		wantPreview  map[string]string
		wantLocal    map[string]string
	}{
		{
			name: "empty config",
		},
		{
			name:     "destination only",
			toml:     `destination = "/path/to/cache"`,
			wantDest: "/path/to/cache",
		},
		{
			name:         "discover string",
			toml:         "destination = \"/cache\"\ndiscover = \"/path/to/templates\"\n",
			wantDest:     "/cache",
			wantDiscover: []string{"/path/to/templates"},
		},
		{
			name:         "discover array",
			toml:         "destination = \"/cache\"\ndiscover = [\"/path/to/templates\", \"template.typ\", \"other.typ\"]\n",
			wantDest:     "/cache",
			wantDiscover: []string{"/path/to/templates", "template.typ", "other.typ"},
		},
		{
			name:        "preview only",
			toml:        "destination = \"/cache\"\n\n[preview]\ncetz = \"0.4.1\"\nfletcher = \"0.5.3\"\n",
			wantDest:    "/cache",
			wantPreview: map[string]string{"cetz": "0.4.1", "fletcher": "0.5.3"},
		},
		{
			name:      "local only",
			toml:      "destination = \"/cache\"\n\n[local]\nmy-pkg = \"/path/to/pkg\"\nother = \"../relative/path\"\n",
			wantDest:  "/cache",
			wantLocal: map[string]string{"my-pkg": "/path/to/pkg", "other": "../relative/path"},
		},
		{
			name:        "unknown sections ignored",
			toml:        "destination = \"/cache\"\nextra = 1\n\n[preview]\ncetz = \"0.4.1\"\n\n[unknown_section]\nfoo = \"bar\"\n",
			wantDest:    "/cache",
			wantPreview: map[string]string{"cetz": "0.4.1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := Parse([]byte(tt.toml))
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}
			if cfg.Destination != tt.wantDest {
				t.Errorf("Destination = %q, want %q", cfg.Destination, tt.wantDest)
			}
			if !slices.Equal(cfg.Discover, tt.wantDiscover) {
				t.Errorf("Discover = %v, want %v", cfg.Discover, tt.wantDiscover)
			}
			if len(cfg.Preview) != len(tt.wantPreview) {
				t.Errorf("Preview = %v, want %v", cfg.Preview, tt.wantPreview)
			}
			for name, version := range tt.wantPreview {
				if cfg.Preview[name] != version {
					t.Errorf("Preview[%q] = %q, want %q", name, cfg.Preview[name], version)
				}
			}
			if len(cfg.Local) != len(tt.wantLocal) {
				t.Errorf("Local = %v, want %v", cfg.Local, tt.wantLocal)
			}
			for name, dir := range tt.wantLocal {
				if cfg.Local[name] != dir {
					t.Errorf("Local[%q] = %q, want %q", name, cfg.Local[name], dir)
				}
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"invalid toml":          "not valid toml [[[",
		"discover number":       "discover = 42",
		"discover mixed array":  `discover = ["a.typ", 1]`,
		"preview version table": "[preview]\ncetz = { version = \"0.4.1\" }",
		"local path number":     "[local]\nmy-pkg = 3",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if _, err := Parse([]byte(content)); !errors.Is(err, ErrParse) {
				t.Errorf("Parse() error = %v, want ErrParse", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	testutil.MustWriteFile(t, path, "destination = \"packages\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Path != path {
		t.Errorf("Path = %q, want %q", cfg.Path, path)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); !errors.Is(err, ErrRead) {
		t.Errorf("Load(missing) error = %v, want ErrRead", err)
	}
}

func TestConfig_ResolvePaths(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`
rootdir = "ext"
destination = "typst/packages"
discover = ["template.typ", "/abs/partials"]

[local]
mine = "../mine"
`))
	if err != nil {
		t.Fatal(err)
	}

	dest, err := cfg.DestinationPath()
	if err != nil {
		t.Fatalf("DestinationPath() unexpected error: %v", err)
	}
	if want := filepath.Join("ext", "typst", "packages"); dest != want {
		t.Errorf("DestinationPath() = %q, want %q", dest, want)
	}

	wantDiscover := []string{filepath.Join("ext", "template.typ"), filepath.Clean("/abs/partials")}
	if got := cfg.DiscoverPaths(); !slices.Equal(got, wantDiscover) {
		t.Errorf("DiscoverPaths() = %v, want %v", got, wantDiscover)
	}

	entries := cfg.Entries()
	if len(entries) != 1 {
		t.Fatalf("Entries() = %v, want 1 entry", entries)
	}
	local, ok := entries[0].(LocalEntry)
	if !ok {
		t.Fatalf("Entries()[0] = %T, want LocalEntry", entries[0])
	}
	if local.Dir != "mine" {
		t.Errorf("LocalEntry.Dir = %q, want %q", local.Dir, "mine")
	}
}

func TestConfig_ResolvePathWithoutRootDir(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	if got := cfg.ResolvePath("a/./b"); got != filepath.Join("a", "b") {
		t.Errorf("ResolvePath() = %q, want %q", got, filepath.Join("a", "b"))
	}
}

func TestConfig_MissingDestination(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`discover = "a.typ"`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.DestinationPath(); !errors.Is(err, ErrMissingDestination) {
		t.Errorf("DestinationPath() error = %v, want ErrMissingDestination", err)
	}
}

func TestConfig_Entries(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`
destination = "/cache"

[preview]
fletcher = "0.5.3"
cetz = "0.4.1"

[local]
zeta = "/path/to/zeta"
my-pkg = "/path/to/pkg"
`))
	if err != nil {
		t.Fatal(err)
	}

	want := []PackageEntry{
		PreviewEntry{Name: "cetz", Version: "0.4.1"},
		PreviewEntry{Name: "fletcher", Version: "0.5.3"},
		LocalEntry{Name: "my-pkg", Dir: filepath.Clean("/path/to/pkg")},
		LocalEntry{Name: "zeta", Dir: filepath.Clean("/path/to/zeta")},
	}
	got := cfg.Entries()
	if !slices.Equal(got, want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}

	if names := cfg.LocalNames(); !slices.Equal(names, []string{"my-pkg", "zeta"}) {
		t.Errorf("LocalNames() = %v", names)
	}
	for _, e := range got {
		if e.EntryName() == "" {
			t.Errorf("EntryName() empty for %v", e)
		}
	}
}
