package session

import (
	"os"
	"testing"

	"github.com/google/uuid"
)

func TestCurrentSessionState(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	id, err := LoadCurrentSessionID()
	if err != nil {
		t.Fatalf("LoadCurrentSessionID with no state: %v", err)
	}
	if id != nil {
		t.Fatalf("LoadCurrentSessionID with no state = %v, want nil", id)
	}

	want := uuid.New()
	if err := SaveCurrentSessionID(want); err != nil {
		t.Fatalf("SaveCurrentSessionID: %v", err)
	}
	id, err = LoadCurrentSessionID()
	if err != nil {
		t.Fatalf("LoadCurrentSessionID: %v", err)
	}
	if id == nil || *id != want {
		t.Fatalf("LoadCurrentSessionID = %v, want %s", id, want)
	}

	if err := ClearCurrentSessionID(); err != nil {
		t.Fatalf("ClearCurrentSessionID: %v", err)
	}
	id, err = LoadCurrentSessionID()
	if err != nil || id != nil {
		t.Fatalf("after clear: id = %v, err = %v, want nil, nil", id, err)
	}

	// Clearing twice is fine.
	if err := ClearCurrentSessionID(); err != nil {
		t.Fatalf("ClearCurrentSessionID(again): %v", err)
	}
}

func TestLoadCurrentSessionID_Malformed(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path, err := StateFilePath()
	if err != nil {
		t.Fatalf("StateFilePath: %v", err)
	}
	if err := os.WriteFile(path, []byte("not-a-uuid\n"), 0o644); err != nil {
		t.Fatalf("writing state file: %v", err)
	}

	if _, err := LoadCurrentSessionID(); err == nil {
		t.Fatal("LoadCurrentSessionID accepted a malformed session ID")
	}
}

func TestLoadCurrentSessionID_EmptyFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path, err := StateFilePath()
	if err != nil {
		t.Fatalf("StateFilePath: %v", err)
	}
	if err := os.WriteFile(path, []byte("  \n"), 0o644); err != nil {
		t.Fatalf("writing state file: %v", err)
	}

	id, err := LoadCurrentSessionID()
	if err != nil || id != nil {
		t.Fatalf("empty state file: id = %v, err = %v, want nil, nil", id, err)
	}
}
