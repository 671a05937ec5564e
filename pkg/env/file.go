package env

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pagermaid/analytics/pkg/paths"
)

// ReadEnvFile parses a KEY=VALUE file into a provider. Blank lines and
// lines starting with # are skipped; surrounding double quotes are removed
// from values.
func ReadEnvFile(path string) (MapProvider, error) {
	path, err := expandTildePath(path)
	if err != nil {
		return nil, err
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	values := MapProvider{}
	for line := range strings.SplitSeq(string(buf), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid env file line: %s", line)
		}

		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)

		if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
			v = v[1 : len(v)-1]
		}

		values[k] = v
	}

	return values, nil
}

// ReadEnvFiles reads every file in order. Earlier files take precedence
// when combined with NewMultiProvider.
func ReadEnvFiles(files []string) ([]Provider, error) {
	var providers []Provider
	for _, path := range files {
		values, err := ReadEnvFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
		}
		providers = append(providers, values)
	}
	return providers, nil
}

// expandTildePath expands ~ in file paths to the user's home directory
func expandTildePath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}

	homeDir := paths.GetHomeDir()
	if homeDir == "" {
		return "", errors.New("failed to get user home directory")
	}

	if p == "~" {
		return homeDir, nil
	}

	if strings.HasPrefix(p, "~/") {
		return filepath.Join(homeDir, p[2:]), nil
	}

	return "", fmt.Errorf("unsupported tilde expansion format: %s", p)
}
