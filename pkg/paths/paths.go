package paths

import (
	"os"
	"path/filepath"
)

// GetConfigDir returns the user's config directory for pagermaid analytics.
//
// If the home directory cannot be determined, it falls back to a directory
// under the system temporary directory.
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(filepath.Join(os.TempDir(), ".pagermaid-config"))
	}
	return filepath.Clean(filepath.Join(homeDir, ".config", "pagermaid"))
}

// GetDataDir returns the user's data directory (debug logs).
func GetDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(filepath.Join(os.TempDir(), ".pagermaid"))
	}
	return filepath.Clean(filepath.Join(homeDir, ".pagermaid"))
}

// GetHomeDir returns the user's home directory, or "" if it cannot be determined.
func GetHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Clean(homeDir)
}
