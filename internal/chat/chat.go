// Package chat persists conversation sessions and their messages.
package chat

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tempohq/tempo/internal/db"
)

// Session is one conversation thread.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single turn in a session. Role is one of user, assistant,
// system or tool; the schema rejects anything else. Metadata holds a JSON
// object with turn details such as tool calls.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store manages persistence of chat sessions and messages.
type Store struct {
	db *db.DB
}

// NewStore creates a chat store on top of an open database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// CreateSession starts a new conversation thread.
func (s *Store) CreateSession(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		userID = "local"
	}
	now := time.Now().UTC()
	sess := Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, user_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return &sess, nil
}

// GetSession retrieves a session by ID. Returns nil, nil when it does not exist.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM chat_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return &sess, nil
}

// LatestSession returns the most recently touched session for a user,
// or nil, nil when the user has none.
func (s *Store) LatestSession(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		userID = "local"
	}
	var sess Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM chat_sessions
		 WHERE user_id = ? ORDER BY updated_at DESC LIMIT 1`, userID,
	).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest session: %w", err)
	}
	return &sess, nil
}

// ListSessions returns sessions newest-first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM chat_sessions
		 ORDER BY updated_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// AddMessage appends a message to a session and bumps the session timestamp.
func (s *Store) AddMessage(ctx context.Context, msg Message) (*Message, error) {
	if msg.SessionID == "" {
		return nil, fmt.Errorf("adding message: session id is required")
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Metadata == "" {
		msg.Metadata = "{}"
	}
	msg.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.Role, msg.Content, msg.Metadata, msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("adding message: %w", err)
	}

	s.db.ExecContext(ctx, `UPDATE chat_sessions SET updated_at = ? WHERE id = ?`, msg.CreatedAt, msg.SessionID)

	return &msg, nil
}

// Messages returns all messages for a session, oldest first.
func (s *Store) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, metadata, created_at
		 FROM chat_messages WHERE session_id = ? ORDER BY created_at ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

// RecentMessages returns the last limit messages for a session, oldest first.
func (s *Store) RecentMessages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, metadata, created_at FROM (
		     SELECT id, session_id, role, content, metadata, created_at
		     FROM chat_messages WHERE session_id = ?
		     ORDER BY created_at DESC, id DESC LIMIT ?
		 ) ORDER BY created_at ASC, id ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

// DeleteSession removes a session; its messages cascade.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session not found: %s", id)
	}
	return nil
}

// CountSessions returns the total number of chat sessions.
func (s *Store) CountSessions(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_sessions`).Scan(&count)
	return count, err
}

// Spend aggregates the model usage recorded on assistant messages.
type Spend struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// TotalSpend sums token counts and estimated cost across every
// assistant message that carries usage metadata. Messages without it
// count as zero.
func (s *Store) TotalSpend(ctx context.Context) (*Spend, error) {
	var sp Spend
	err := s.db.QueryRowContext(ctx,
		`SELECT
		     COALESCE(SUM(CAST(json_extract(metadata, '$.input_tokens') AS INTEGER)), 0),
		     COALESCE(SUM(CAST(json_extract(metadata, '$.output_tokens') AS INTEGER)), 0),
		     COALESCE(SUM(CAST(json_extract(metadata, '$.cost_usd') AS REAL)), 0)
		 FROM chat_messages WHERE role = 'assistant'`,
	).Scan(&sp.InputTokens, &sp.OutputTokens, &sp.CostUSD)
	if err != nil {
		return nil, fmt.Errorf("summing spend: %w", err)
	}
	return &sp, nil
}

func collectMessages(rows *sql.Rows) ([]Message, error) {
	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Metadata, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
