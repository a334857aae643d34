package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Event is one entry of the session safety event log.
type Event struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	FromState string    `json:"from"`
	ToState   string    `json:"to"`
	Episode   int       `json:"episode"`
	ClosedMs  int64     `json:"closed_ms"`
	Score     float64   `json:"score"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// EventRepository provides access to the event log.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Append adds an event to the log.
func (r *EventRepository) Append(e *Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO events (id, session_id, kind, from_state, to_state, episode, closed_ms, score, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Kind, e.FromState, e.ToState, e.Episode, e.ClosedMs, e.Score, e.Message, e.CreatedAt,
	)
	return err
}

// ListBySession returns a session's events oldest first.
func (r *EventRepository) ListBySession(sessionID string) ([]*Event, error) {
	return r.query(
		`SELECT id, session_id, kind, from_state, to_state, episode, closed_ms, score, message, created_at
		 FROM events WHERE session_id = ? ORDER BY created_at ASC, rowid ASC`,
		sessionID,
	)
}

// ListByKind returns a session's events of one kind, oldest first.
func (r *EventRepository) ListByKind(sessionID, kind string) ([]*Event, error) {
	return r.query(
		`SELECT id, session_id, kind, from_state, to_state, episode, closed_ms, score, message, created_at
		 FROM events WHERE session_id = ? AND kind = ? ORDER BY created_at ASC, rowid ASC`,
		sessionID, kind,
	)
}

func (r *EventRepository) query(q string, args ...any) ([]*Event, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &e.FromState, &e.ToState,
			&e.Episode, &e.ClosedMs, &e.Score, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
