// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/typst-gather/typst-gather/internal/registry"
)

const (
	// EnvPrefix prefixes environment variables that override settings,
	// e.g. TYPST_GATHER_REGISTRY.
	EnvPrefix = "TYPST_GATHER"

	// KeyRegistry is the registry base URL setting.
	KeyRegistry = "registry"
	// KeyUserAgent is the HTTP User-Agent setting.
	KeyUserAgent = "user_agent"
	// KeyTimeout is the per-download HTTP timeout setting.
	KeyTimeout = "timeout"
	// KeyVerbose enables debug logging.
	KeyVerbose = "verbose"

	// DefaultRegistry is the public Typst package registry.
	DefaultRegistry = registry.DefaultBaseURL
	// DefaultTimeout bounds a single package download.
	DefaultTimeout = registry.DefaultTimeout
)

// ErrInvalidSettings is returned when a setting has an unusable value.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings holds tool settings that are not part of the gather document.
type Settings struct {
	Registry  string        `mapstructure:"registry"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Verbose   bool          `mapstructure:"verbose"`
}

// DefaultSettings returns the built-in settings for the given tool version.
func DefaultSettings(version string) Settings {
	return Settings{
		Registry:  DefaultRegistry,
		UserAgent: "typst-gather/" + version,
		Timeout:   DefaultTimeout,
	}
}

// NewViper returns a Viper instance with defaults for version and
// TYPST_GATHER_* environment overrides. Callers bind flags on top.
func NewViper(version string) *viper.Viper {
	v := viper.New()

	defaults := DefaultSettings(version)
	v.SetDefault(KeyRegistry, defaults.Registry)
	v.SetDefault(KeyUserAgent, defaults.UserAgent)
	v.SetDefault(KeyTimeout, defaults.Timeout)
	v.SetDefault(KeyVerbose, defaults.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadSettings decodes and validates the settings held by v.
func LoadSettings(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks that the registry is an absolute http(s) URL and the
// timeout is positive.
func (s Settings) Validate() error {
	u, err := url.Parse(s.Registry)
	if err != nil {
		return fmt.Errorf("%w: registry %q: %w", ErrInvalidSettings, s.Registry, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: registry %q must be an http or https URL", ErrInvalidSettings, s.Registry)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidSettings, s.Timeout)
	}
	return nil
}
