// Package userconfig provides the analytics configuration of the host.
// It is stored in ~/.config/pagermaid/analytics.yaml and can be overridden
// through environment variables.
package userconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/natefinch/atomic"

	"github.com/pagermaid/analytics/pkg/env"
	"github.com/pagermaid/analytics/pkg/paths"
)

// CurrentVersion is the current version of the config format
const CurrentVersion = "v1"

// Environment variables overriding the file.
const (
	EnvAllowAnalytic = "ALLOW_ANALYTIC"
	EnvToken         = "MIXPANEL_API"
	EnvAPIHost       = "MIXPANEL_API_HOST"
)

const (
	DefaultAPIHost        = "api.mixpanel.com"
	DefaultTimeoutSeconds = 10
	DefaultMaxInFlight    = 32
)

// Analytics gates and parameterizes the analytics client.
type Analytics struct {
	// Enabled is the host-wide switch. When false the client is never invoked.
	Enabled bool `yaml:"enabled"`
	// Token is the ingestion project token.
	Token string `yaml:"token,omitempty"`
	// APIHost is the ingestion host, without scheme.
	APIHost string `yaml:"api_host,omitempty"`
	// TimeoutSeconds bounds a single ingestion request.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
	// MaxInFlight bounds concurrent ingestion requests.
	MaxInFlight int `yaml:"max_in_flight,omitempty"`
}

// DefaultAnalytics returns the settings used for missing fields.
func DefaultAnalytics() Analytics {
	return Analytics{
		Enabled:        true,
		APIHost:        DefaultAPIHost,
		TimeoutSeconds: DefaultTimeoutSeconds,
		MaxInFlight:    DefaultMaxInFlight,
	}
}

// Active reports whether events should be emitted at all. A missing token
// disables emission even when the switch is on.
func (a Analytics) Active() bool {
	return a.Enabled && a.Token != ""
}

func (a Analytics) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// Config represents the on-disk configuration file.
type Config struct {
	// mu protects Analytics; commands and hooks may read it concurrently.
	mu sync.Mutex

	// Version is the config format version
	Version   string    `yaml:"version,omitempty"`
	Analytics Analytics `yaml:"analytics"`
}

// Path returns the path to the config file
func Path() string {
	return filepath.Join(paths.GetConfigDir(), "analytics.yaml")
}

// Load loads the configuration from the default path.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads and parses the config file at path. A missing file yields
// the defaults.
func LoadFrom(path string) (*Config, error) {
	config := &Config{Analytics: DefaultAnalytics()}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(Path())
}

// SaveTo atomically writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Ensure version is always set to current version when saving
	c.Version = CurrentVersion

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return atomic.WriteFile(path, bytes.NewReader(data))
}

// Resolve returns the effective analytics settings: the file values with
// environment overrides applied and defaults filled in.
func (c *Config) Resolve(ctx context.Context, provider env.Provider) (Analytics, error) {
	c.mu.Lock()
	settings := c.Analytics
	c.mu.Unlock()

	if provider != nil {
		allow, err := provider.GetEnv(ctx, EnvAllowAnalytic)
		if err != nil {
			return Analytics{}, fmt.Errorf("reading %s: %w", EnvAllowAnalytic, err)
		}
		if allow != "" {
			enabled, err := parseSwitch(allow)
			if err != nil {
				return Analytics{}, fmt.Errorf("invalid %s: %w", EnvAllowAnalytic, err)
			}
			settings.Enabled = enabled
		}

		token, err := provider.GetEnv(ctx, EnvToken)
		if err != nil {
			return Analytics{}, fmt.Errorf("reading %s: %w", EnvToken, err)
		}
		if token != "" {
			settings.Token = token
		}

		host, err := provider.GetEnv(ctx, EnvAPIHost)
		if err != nil {
			return Analytics{}, fmt.Errorf("reading %s: %w", EnvAPIHost, err)
		}
		if host != "" {
			if err := ValidateAPIHost(host); err != nil {
				return Analytics{}, fmt.Errorf("invalid %s: %w", EnvAPIHost, err)
			}
			settings.APIHost = host
		}
	}

	if settings.APIHost == "" {
		settings.APIHost = DefaultAPIHost
	}
	if settings.TimeoutSeconds <= 0 {
		settings.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if settings.MaxInFlight <= 0 {
		settings.MaxInFlight = DefaultMaxInFlight
	}

	return settings, nil
}

func (c *Config) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Analytics.Enabled = enabled
}

func (c *Config) SetToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.Analytics.Token = token
	return nil
}

func (c *Config) SetAPIHost(host string) error {
	if err := ValidateAPIHost(host); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.Analytics.APIHost = host
	return nil
}

// ValidateAPIHost checks that host is a bare host name (optionally with a
// port). Endpoints are always built as https://<host>/<path>.
func ValidateAPIHost(host string) error {
	switch {
	case host == "":
		return errors.New("api host cannot be empty")
	case strings.Contains(host, "://"):
		return fmt.Errorf("api host %q must not include a scheme", host)
	case strings.ContainsAny(host, "/?# \t"):
		return fmt.Errorf("api host %q must be a bare host name", host)
	}
	return nil
}

func parseSwitch(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("unrecognized value %q", value)
}
