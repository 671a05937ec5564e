package root

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/pagermaid/analytics/pkg/env"
	"github.com/pagermaid/analytics/pkg/mixpanel"
	"github.com/pagermaid/analytics/pkg/userconfig"
)

func (f *rootFlags) configFile() string {
	return cmp.Or(f.configPath, userconfig.Path())
}

func (f *rootFlags) loadConfig() (*userconfig.Config, error) {
	load := userconfig.Load
	if f.configPath != "" {
		load = func() (*userconfig.Config, error) { return userconfig.LoadFrom(f.configPath) }
	}

	config, err := load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return config, nil
}

func (f *rootFlags) saveConfig(config *userconfig.Config) error {
	save := config.Save
	if f.configPath != "" {
		save = func() error { return config.SaveTo(f.configPath) }
	}

	if err := save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// envProvider looks variables up in the process environment first, then in
// the --env-from-file files in order.
func (f *rootFlags) envProvider() (env.Provider, error) {
	fileProviders, err := env.ReadEnvFiles(f.envFiles)
	if err != nil {
		return nil, err
	}
	return env.NewMultiProvider(append([]env.Provider{env.NewEnvVariableProvider()}, fileProviders...)...), nil
}

// settings returns the analytics settings in effect for this process: the
// config file with the environment applied on top.
func (f *rootFlags) settings(ctx context.Context) (userconfig.Analytics, error) {
	config, err := f.loadConfig()
	if err != nil {
		return userconfig.Analytics{}, err
	}
	provider, err := f.envProvider()
	if err != nil {
		return userconfig.Analytics{}, err
	}
	return config.Resolve(ctx, provider)
}

// deliveryFlags are shared by the commands that send payloads.
type deliveryFlags struct {
	printMetrics bool
}

func (d *deliveryFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&d.printMetrics, "metrics", false, "Print delivery metrics in Prometheus text format when done")
}

// session is a client built from resolved settings, with its own metrics
// registry so a run can report on exactly what it sent.
type session struct {
	client   *mixpanel.Client
	registry *prometheus.Registry
}

func newSession(settings userconfig.Analytics) (*session, error) {
	registry := prometheus.NewRegistry()
	metrics, err := mixpanel.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	client := mixpanel.NewClient(settings.Token,
		mixpanel.WithAPIHost(settings.APIHost),
		mixpanel.WithTimeout(settings.Timeout()),
		mixpanel.WithMaxInFlight(settings.MaxInFlight),
		mixpanel.WithLogger(slog.Default()),
		mixpanel.WithMetrics(metrics),
	)

	return &session{client: client, registry: registry}, nil
}

// finish waits for every pending request and optionally dumps the metrics.
func (s *session) finish(out io.Writer, printMetrics bool) error {
	s.client.Wait()
	s.client.Close()

	if !printMetrics {
		return nil
	}
	return writeMetrics(out, s.registry)
}

func writeMetrics(out io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(out, family); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}
