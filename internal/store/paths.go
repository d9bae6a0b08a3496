package store

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the per-project and per-user data directory.
	DirName = ".tracelink"

	// DBFile is the run history database inside DirName.
	DBFile = "tracelink.db"
)

// GlobalPath returns the path to the global .tracelink directory.
// On Unix: ~/.tracelink
// On Windows: %USERPROFILE%\.tracelink
func GlobalPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName), nil
}

// LocalPath returns the .tracelink directory of a project root.
func LocalPath(projectRoot string) string {
	return filepath.Join(projectRoot, DirName)
}

// DefaultDBPath returns the run history database of a project root.
func DefaultDBPath(projectRoot string) string {
	return filepath.Join(LocalPath(projectRoot), DBFile)
}
