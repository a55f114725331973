package config

import (
	"os"
	"path/filepath"
)

// localConfigName is the base name of a workspace config file.
const localConfigName = ".ratbuild"

// configExts are tried in order within each directory.
var configExts = []string{"yml", "yaml", "json", "toml"}

// boundaryMarkers end the upward search: a config above the repository
// that contains the working directory belongs to some other workspace.
var boundaryMarkers = []string{".git", ".hg", ".jj"}

// FindLocalConfig returns the nearest workspace config at or above dir. The
// search stops at the first directory holding a repository marker, or at the
// filesystem root. It returns "" when none is found.
func FindLocalConfig(dir string) string {
	dir = filepath.Clean(dir)

	for {
		for _, ext := range configExts {
			path := filepath.Join(dir, localConfigName+"."+ext)

			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				return path
			}
		}

		if isBoundary(dir) {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}

func isBoundary(dir string) bool {
	for _, marker := range boundaryMarkers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}

	return false
}
