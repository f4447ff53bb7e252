package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// transcriptTimeLayout matches the timestamp column of older transcript
// files, so history written before and after a migration stays uniform.
const transcriptTimeLayout = "2006-01-02 15:04:05"

// newChatMarker separates conversations within one transcript file.
const newChatMarker = "NEW CHAT"

// Transcript appends conversation turns to a CSV file. Every field is
// quoted, including ones that need no quoting, and multi-line text is
// flattened to a single line so one row is always one turn.
type Transcript struct {
	path          string
	addTimestamps bool
}

// NewTranscript returns a transcript writer for the given file. When
// addTimestamps is set, each row gains a leading timestamp column.
func NewTranscript(path string, addTimestamps bool) *Transcript {
	return &Transcript{path: path, addTimestamps: addTimestamps}
}

// Path returns the transcript file location.
func (t *Transcript) Path() string {
	return t.path
}

// Clear truncates an existing transcript file. A missing file is fine.
func (t *Transcript) Clear() error {
	if err := os.Truncate(t.path, 0); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing transcript: %w", err)
	}
	return nil
}

// Start marks the beginning of a new conversation in the transcript.
func (t *Transcript) Start() error {
	return t.writeRow(newChatMarker)
}

// Append records one turn of the conversation under the speaker's name.
func (t *Transcript) Append(speaker, text string) error {
	return t.writeRow(speaker, flattenText(text))
}

func (t *Transcript) writeRow(fields ...string) error {
	if t.addTimestamps {
		fields = append([]string{time.Now().Format(transcriptTimeLayout)}, fields...)
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("creating transcript directory: %w", err)
	}
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening transcript: %w", err)
	}

	quoted := make([]string, len(fields))
	for i, field := range fields {
		quoted[i] = `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
	}
	if _, err := f.WriteString(strings.Join(quoted, ",") + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("writing transcript row: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing transcript: %w", err)
	}
	return nil
}

// flattenText collapses newlines, tabs and runs of spaces to single
// spaces and trims the ends, keeping each CSV field on one line.
func flattenText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
