// Package session persists chat sessions and their message history in
// PostgreSQL, tracks which session the CLI is currently attached to, and
// writes an optional plain-text transcript of each conversation.
package session

import (
	"errors"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("session not found")

// TitleMaxLength is the maximum length of a session title in characters.
// Longer titles are truncated with an ellipsis.
const TitleMaxLength = 50

// historyMessageLimit caps how many messages History loads for a single
// session. Sessions longer than this are truncated by the token budget
// anyway, so loading more would be wasted work.
const historyMessageLimit = 1000

// Session is a single conversation with the librarian.
type Session struct {
	ID           uuid.UUID
	Title        string
	ModelName    string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Message is one turn of a session, stored in the order it occurred.
// Content holds the Genkit message parts as they were sent or received,
// so tool requests and responses survive a round trip through the store.
type Message struct {
	ID             uuid.UUID
	SessionID      uuid.UUID
	Role           string
	Content        []*ai.Part
	SequenceNumber int
	CreatedAt      time.Time
}
