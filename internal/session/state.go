package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	stateDir  = ".librarian"
	stateFile = "current_session"
)

// StateFilePath returns the path to the current-session state file,
// creating ~/.librarian if it does not exist.
func StateFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	dir := filepath.Join(home, stateDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating state directory: %w", err)
	}

	return filepath.Join(dir, stateFile), nil
}

// LoadCurrentSessionID returns the session the CLI is attached to, or
// (nil, nil) when no current session is recorded.
func LoadCurrentSessionID() (*uuid.UUID, error) {
	path, err := StateFilePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return nil, nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid session ID in state file: %w", err)
	}
	return &id, nil
}

// SaveCurrentSessionID records the session the CLI is attached to.
func SaveCurrentSessionID(id uuid.UUID) error {
	path, err := StateFilePath()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(id.String()), 0o644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}

// ClearCurrentSessionID forgets the current session. Calling it when no
// current session is recorded is not an error.
func ClearCurrentSessionID() error {
	path, err := StateFilePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing state file: %w", err)
	}
	return nil
}
