package env

import (
	"context"
	"os"
)

// EnvVariableProvider reads the process environment.
type EnvVariableProvider struct{}

func NewEnvVariableProvider() *EnvVariableProvider {
	return &EnvVariableProvider{}
}

func (p *EnvVariableProvider) GetEnv(_ context.Context, name string) (string, error) {
	return os.Getenv(name), nil
}

// MapProvider serves values from a fixed map, for hosts that carry their
// own settings and for tests.
type MapProvider map[string]string

func (p MapProvider) GetEnv(_ context.Context, name string) (string, error) {
	return p[name], nil
}
