// Package dotdir manages the .cardstream/ and ~/.cardstream directories.
//
// The directory holds config.toml and the recordings/ folder where raw
// improvement streams are captured for later replay by the fixture server.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// Name is the directory looked up in the working directory and in $HOME.
const Name = ".cardstream"

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path of the cardstream directory, creating it
// when missing. The first match wins:
//  1. overrideDir, when not empty
//  2. ./.cardstream, when it already exists
//  3. ~/.cardstream
func (m *Manager) Target(overrideDir string) (string, error) {
	dir, err := m.resolve(overrideDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating cardstream directory %s: %w", dir, err)
	}
	return filepath.Abs(dir)
}

func (m *Manager) resolve(overrideDir string) (string, error) {
	if overrideDir != "" {
		return overrideDir, nil
	}

	if cwd, err := os.Getwd(); err == nil {
		if local := filepath.Join(cwd, Name); isDir(local) {
			return local, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, Name), nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
