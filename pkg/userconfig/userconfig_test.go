package userconfig

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagermaid/analytics/pkg/env"
)

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	config, err := LoadFrom(filepath.Join(t.TempDir(), "analytics.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAnalytics(), config.Analytics)
	assert.False(t, config.Analytics.Active(), "no token means inactive")
}

func TestLoadFrom_PartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	configFile := filepath.Join(t.TempDir(), "analytics.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("analytics:\n  token: abc123\n"), 0o644))

	config, err := LoadFrom(configFile)
	require.NoError(t, err)
	assert.True(t, config.Analytics.Enabled)
	assert.Equal(t, "abc123", config.Analytics.Token)
	assert.Equal(t, DefaultAPIHost, config.Analytics.APIHost)
	assert.True(t, config.Analytics.Active())
}

func TestLoadFrom_Disabled(t *testing.T) {
	t.Parallel()

	configFile := filepath.Join(t.TempDir(), "analytics.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("analytics:\n  enabled: false\n  token: abc123\n"), 0o644))

	config, err := LoadFrom(configFile)
	require.NoError(t, err)
	assert.False(t, config.Analytics.Active())
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	t.Parallel()

	configFile := filepath.Join(t.TempDir(), "analytics.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("analytics: [unclosed\n"), 0o644))

	_, err := LoadFrom(configFile)
	require.ErrorContains(t, err, "failed to parse config file")
}

func TestConfig_SaveAndReload(t *testing.T) {
	t.Parallel()

	configFile := filepath.Join(t.TempDir(), "nested", "analytics.yaml")

	config := &Config{Analytics: DefaultAnalytics()}
	require.NoError(t, config.SetToken("  secret-token  "))
	require.NoError(t, config.SetAPIHost("api-eu.mixpanel.com"))
	config.SetEnabled(false)
	require.NoError(t, config.SaveTo(configFile))

	reloaded, err := LoadFrom(configFile)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, reloaded.Version)
	assert.Equal(t, "secret-token", reloaded.Analytics.Token)
	assert.Equal(t, "api-eu.mixpanel.com", reloaded.Analytics.APIHost)
	assert.False(t, reloaded.Analytics.Enabled)
}

func TestConfig_SetTokenRejectsEmpty(t *testing.T) {
	t.Parallel()

	config := &Config{Analytics: DefaultAnalytics()}
	require.Error(t, config.SetToken("   "))
	assert.Empty(t, config.Analytics.Token)
}

func TestValidateAPIHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host    string
		wantErr bool
	}{
		{"api.mixpanel.com", false},
		{"localhost:8443", false},
		{"", true},
		{"https://api.mixpanel.com", true},
		{"api.mixpanel.com/track", true},
		{"api mixpanel", true},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			t.Parallel()
			err := ValidateAPIHost(tt.host)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolve_EnvironmentOverrides(t *testing.T) {
	t.Parallel()

	config := &Config{Analytics: Analytics{Enabled: true, Token: "file-token"}}

	settings, err := config.Resolve(t.Context(), env.MapProvider{
		EnvToken:   "env-token",
		EnvAPIHost: "api-eu.mixpanel.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "env-token", settings.Token)
	assert.Equal(t, "api-eu.mixpanel.com", settings.APIHost)
	assert.Equal(t, 10*time.Second, settings.Timeout())
	assert.Equal(t, DefaultMaxInFlight, settings.MaxInFlight)
	assert.Equal(t, "file-token", config.Analytics.Token, "resolve must not mutate the file config")
}

func TestResolve_AllowAnalytic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value   string
		enabled bool
		wantErr bool
	}{
		{"", true, false},
		{"false", false, false},
		{"0", false, false},
		{"No", false, false},
		{"true", true, false},
		{"on", true, false},
		{"maybe", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()

			config := &Config{Analytics: Analytics{Enabled: true, Token: "t"}}
			settings, err := config.Resolve(t.Context(), env.MapProvider{EnvAllowAnalytic: tt.value})
			if tt.wantErr {
				require.ErrorContains(t, err, EnvAllowAnalytic)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.enabled, settings.Enabled)
		})
	}
}

func TestResolve_InvalidHostFromEnv(t *testing.T) {
	t.Parallel()

	config := &Config{Analytics: DefaultAnalytics()}
	_, err := config.Resolve(t.Context(), env.MapProvider{EnvAPIHost: "https://evil"})
	require.ErrorContains(t, err, EnvAPIHost)
}

type failingProvider struct{}

func (failingProvider) GetEnv(context.Context, string) (string, error) {
	return "", errors.New("boom")
}

func TestResolve_ProviderError(t *testing.T) {
	t.Parallel()

	config := &Config{Analytics: DefaultAnalytics()}
	_, err := config.Resolve(t.Context(), failingProvider{})
	require.ErrorContains(t, err, "boom")
}

func TestResolve_NilProvider(t *testing.T) {
	t.Parallel()

	config := &Config{}
	settings, err := config.Resolve(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIHost, settings.APIHost)
	assert.Equal(t, DefaultTimeoutSeconds, settings.TimeoutSeconds)
}

func TestLoadAndSave_DefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, filepath.Join(home, ".config", "pagermaid", "analytics.yaml"), Path())

	config, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultAnalytics(), config.Analytics)

	require.NoError(t, config.SetToken("home-token"))
	require.NoError(t, config.Save())

	_, err = os.Stat(Path())
	require.NoError(t, err)

	reloaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "home-token", reloaded.Analytics.Token)
}
