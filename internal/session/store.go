package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// defaultListLimit bounds ListSessions when the caller passes no limit.
const defaultListLimit = 50

// Store persists sessions and messages in PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a session store backed by the given connection pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Store{pool: pool, logger: logger}, nil
}

// CreateSession creates a new session. Empty title and model name are
// stored as NULL; the title is usually set later from the first exchange.
func (s *Store) CreateSession(ctx context.Context, title, modelName string) (*Session, error) {
	id := uuid.New()
	sess := &Session{ID: id}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO sessions (id, title, model_name)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))
		 RETURNING COALESCE(title, ''), COALESCE(model_name, ''), message_count, created_at, updated_at`,
		id, title, modelName,
	).Scan(&sess.Title, &sess.ModelName, &sess.MessageCount, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Debug("session created", "session_id", id, "model", modelName)
	return sess, nil
}

// Session returns a single session by ID.
func (s *Store) Session(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess := &Session{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, COALESCE(title, ''), COALESCE(model_name, ''), message_count, created_at, updated_at
		 FROM sessions WHERE id = $1`,
		id,
	).Scan(&sess.ID, &sess.Title, &sess.ModelName, &sess.MessageCount, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return sess, nil
}

// ListSessions returns sessions ordered by most recently updated.
func (s *Store) ListSessions(ctx context.Context, limit, offset int) ([]*Session, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, COALESCE(title, ''), COALESCE(model_name, ''), message_count, created_at, updated_at
		 FROM sessions
		 ORDER BY updated_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.ModelName, &sess.MessageCount, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// SetTitle updates a session's title.
func (s *Store) SetTitle(ctx context.Context, id uuid.UUID, title string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET title = NULLIF($2, ''), updated_at = now() WHERE id = $1`,
		id, title)
	if err != nil {
		return fmt.Errorf("updating session title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSession removes a session and, via cascade, all its messages.
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.logger.Debug("session deleted", "session_id", id)
	return nil
}

// AppendMessages appends messages to a session in a single transaction.
// The session row is locked for the duration so concurrent appends to the
// same session get distinct, strictly increasing sequence numbers.
func (s *Store) AppendMessages(ctx context.Context, sessionID uuid.UUID, msgs []*ai.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM sessions WHERE id = $1 FOR UPDATE`, sessionID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("locking session: %w", err)
	}

	var maxSeq int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) FROM session_messages WHERE session_id = $1`,
		sessionID).Scan(&maxSeq)
	if err != nil {
		return fmt.Errorf("getting max sequence number: %w", err)
	}

	for i, msg := range msgs {
		content, err := json.Marshal(msg.Content)
		if err != nil {
			return fmt.Errorf("marshaling message content: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO session_messages (session_id, role, content, sequence_number)
			 VALUES ($1, $2, $3, $4)`,
			sessionID, string(msg.Role), content, maxSeq+i+1)
		if err != nil {
			return fmt.Errorf("inserting message: %w", err)
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE sessions SET message_count = message_count + $2, updated_at = now() WHERE id = $1`,
		sessionID, len(msgs))
	if err != nil {
		return fmt.Errorf("updating session counters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("messages appended", "session_id", sessionID, "count", len(msgs))
	return nil
}

// Messages returns a session's messages ordered by sequence number.
func (s *Store) Messages(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*Message, error) {
	if limit <= 0 {
		limit = historyMessageLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, role, content, sequence_number, created_at
		 FROM session_messages
		 WHERE session_id = $1
		 ORDER BY sequence_number ASC
		 LIMIT $2 OFFSET $3`,
		sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		msg := &Message{}
		var content []byte
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &content, &msg.SequenceNumber, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if err := json.Unmarshal(content, &msg.Content); err != nil {
			return nil, fmt.Errorf("unmarshaling message content: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return msgs, nil
}

// History loads a session's messages in the form the model consumes.
func (s *Store) History(ctx context.Context, sessionID uuid.UUID) ([]*ai.Message, error) {
	msgs, err := s.Messages(ctx, sessionID, historyMessageLimit, 0)
	if err != nil {
		return nil, err
	}

	history := make([]*ai.Message, 0, len(msgs))
	for _, msg := range msgs {
		history = append(history, &ai.Message{
			Role:    ai.Role(msg.Role),
			Content: msg.Content,
		})
	}
	return history, nil
}
