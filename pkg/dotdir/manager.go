// Package dotdir manages the .fleet/ and ~/.fleet directories.
//
// Besides config.toml, the directory holds the chat state: the conversation
// "fleet chat" resumes and the last reply it can regenerate. The state is
// persisted as a JSON file next to the config.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DirName is the name of the fleet directory.
	DirName = ".fleet"

	// EnvHome points fleet at a directory without passing --config-dir.
	EnvHome = "FLEET_HOME"
)

// Manager resolves the .fleet/ directory.
type Manager struct{}

// NewManager returns a Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Resolve returns the absolute path of the .fleet/ directory without
// creating it. Precedence:
//  1. overrideDir (--config-dir)
//  2. $FLEET_HOME
//  3. ./.fleet/ when it exists
//  4. ~/.fleet/
func (m *Manager) Resolve(overrideDir string) (string, error) {
	if overrideDir != "" {
		return filepath.Abs(overrideDir)
	}

	if env := strings.TrimSpace(os.Getenv(EnvHome)); env != "" {
		return filepath.Abs(env)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	if info, err := os.Stat(filepath.Join(cwd, DirName)); err == nil && info.IsDir() {
		return filepath.Join(cwd, DirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// Target resolves the .fleet/ directory like Resolve and creates it.
func (m *Manager) Target(overrideDir string) (string, error) {
	dir, err := m.Resolve(overrideDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating fleet directory %s: %w", dir, err)
	}

	return dir, nil
}

// File returns the path of name inside the target .fleet/ directory,
// creating the directory.
func (m *Manager) File(overrideDir, name string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
