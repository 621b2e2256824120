package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tempohq/tempo/internal/db"
)

// Store provides CRUD operations for action log entries.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Log inserts a new entry. Empty ID, Timestamp, ActorType and Outcome
// get defaults.
func (s *Store) Log(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.ActorType == "" {
		entry.ActorType = ActorSystem
	}
	if entry.Outcome == "" {
		entry.Outcome = OutcomeAuto
	}

	var conversationID, previousValue, newValue sql.NullString
	if entry.ConversationID != "" {
		conversationID = sql.NullString{String: entry.ConversationID, Valid: true}
	}
	if entry.PreviousValue != "" {
		previousValue = sql.NullString{String: entry.PreviousValue, Valid: true}
	}
	if entry.NewValue != "" {
		newValue = sql.NullString{String: entry.NewValue, Valid: true}
	}

	success := 0
	if entry.Success {
		success = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO action_log (
			id, timestamp, actor_type, actor_id, tool, target, impact,
			outcome, success, duration_ms, summary, detail,
			conversation_id, previous_value, new_value
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Timestamp.UTC().Format(time.DateTime),
		string(entry.ActorType),
		entry.ActorID,
		entry.Tool,
		entry.Target,
		entry.Impact,
		string(entry.Outcome),
		success,
		entry.DurationMs,
		entry.Summary,
		entry.Detail,
		conversationID,
		previousValue,
		newValue,
	)
	if err != nil {
		return fmt.Errorf("inserting action log entry: %w", err)
	}
	return nil
}

// GetByID retrieves a single entry.
func (s *Store) GetByID(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, timestamp, actor_type, actor_id, tool, target, impact,
			   outcome, success, duration_ms, summary, detail,
			   conversation_id, previous_value, new_value
		FROM action_log WHERE id = ?`, id)

	return scanInto(row)
}

// QueryFilter controls which entries are returned by Query.
type QueryFilter struct {
	ActorID        string
	Tool           string
	Outcome        Outcome
	ConversationID string
	OnlyFailures   bool
	Since          *time.Time
	Until          *time.Time
	Limit          int
	Offset         int
}

// Query returns entries matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.ActorID != "" {
		clauses = append(clauses, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.Tool != "" {
		clauses = append(clauses, "tool = ?")
		args = append(args, filter.Tool)
	}
	if filter.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}
	if filter.ConversationID != "" {
		clauses = append(clauses, "conversation_id = ?")
		args = append(args, filter.ConversationID)
	}
	if filter.OnlyFailures {
		clauses = append(clauses, "success = 0")
	}
	if filter.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, filter.Since.UTC().Format(time.DateTime))
	}
	if filter.Until != nil {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, filter.Until.UTC().Format(time.DateTime))
	}

	query := "SELECT id, timestamp, actor_type, actor_id, tool, target, impact, outcome, success, duration_ms, summary, detail, conversation_id, previous_value, new_value FROM action_log"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY timestamp DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite rejects OFFSET without LIMIT; -1 means unlimited.
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying action log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// DeleteBefore removes all entries older than the given time.
// Returns the number of deleted rows.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM action_log WHERE timestamp < ?",
		before.UTC().Format(time.DateTime),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old action log entries: %w", err)
	}
	return res.RowsAffected()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Entry, error) {
	var (
		e                                       Entry
		actorType, outcome, ts                  string
		success                                 int
		conversationID, previousValue, newValue sql.NullString
	)

	err := sc.Scan(
		&e.ID, &ts, &actorType, &e.ActorID, &e.Tool, &e.Target, &e.Impact,
		&outcome, &success, &e.DurationMs, &e.Summary, &e.Detail,
		&conversationID, &previousValue, &newValue,
	)
	if err != nil {
		return nil, err
	}

	e.ActorType = ActorType(actorType)
	e.Outcome = Outcome(outcome)
	e.Success = success != 0

	if t, parseErr := time.Parse(time.DateTime, ts); parseErr == nil {
		e.Timestamp = t
	} else if t, parseErr := time.Parse(time.RFC3339, ts); parseErr == nil {
		e.Timestamp = t
	}

	if conversationID.Valid {
		e.ConversationID = conversationID.String
	}
	if previousValue.Valid {
		e.PreviousValue = previousValue.String
	}
	if newValue.Valid {
		e.NewValue = newValue.String
	}

	return &e, nil
}
