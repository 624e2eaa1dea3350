package internal

import (
	"fmt"
	"os"
	"path/filepath"
)

// AppPaths holds the resolved local storage locations.
type AppPaths struct {
	BaseDir     string // base application directory
	CacheDir    string // transcript cache directory
	ArchivePath string // local archive database file
}

// ResolveAppPaths determines where local state lives. The DOCCHAT_HOME
// environment variable overrides the default of ~/.docchat.
func ResolveAppPaths() (AppPaths, error) {
	base := os.Getenv("DOCCHAT_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return AppPaths{}, fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".docchat")
	}

	return AppPaths{
		BaseDir:     base,
		CacheDir:    filepath.Join(base, "cache"),
		ArchivePath: filepath.Join(base, "archive.db"),
	}, nil
}

// EnsureBaseDir creates the base directory if it does not exist.
func (p AppPaths) EnsureBaseDir() error {
	return os.MkdirAll(p.BaseDir, 0755)
}
