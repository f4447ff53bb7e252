package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ProjectRoot walks up from this file to the directory holding go.mod.
// Tests use it to reach repo-level assets such as the prompts directory,
// regardless of which package they run from.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("getting caller path")
	}

	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found above %s", filepath.Dir(filename))
		}
		dir = parent
	}
}
