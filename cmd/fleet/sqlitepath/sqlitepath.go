// Package sqlitepath locates the SQLite transcript database.
package sqlitepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/fleet/pkg/dotdir"
)

// DefaultName is the file name of the transcript database in a .fleet/ dir.
const DefaultName = "fleet.db"

// ResolveSQLitePath returns the transcript database path:
//  1. override (--sqlite, transcripts.sqlite_path)
//  2. fleet.db in configDir when one is given
//  3. the first existing candidate database
//  4. fleet.db in the resolved .fleet/ directory
func ResolveSQLitePath(override, configDir string) (string, error) {
	if override != "" {
		return override, nil
	}

	ddm := dotdir.NewManager()
	if configDir == "" {
		for _, candidate := range candidates() {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}

	path, err := ddm.File(configDir, DefaultName)
	if err != nil {
		return "", fmt.Errorf("resolving transcript database: %w", err)
	}
	return path, nil
}

// candidates lists existing-database locations, most specific first.
func candidates() []string {
	var dirs []string

	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "fleet"))
	}
	if env := strings.TrimSpace(os.Getenv(dotdir.EnvHome)); env != "" {
		dirs = append(dirs, env)
	}
	dirs = append(dirs, dotdir.DirName)
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, dotdir.DirName))
	}

	var out []string
	for _, dir := range dirs {
		out = append(out,
			filepath.Join(dir, DefaultName),
			filepath.Join(dir, "fleet.sqlite"),
		)
	}
	return out
}
