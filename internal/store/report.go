package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Report is a stored incident report.
type Report struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	Episode       int       `json:"episode"`
	ClosedSeconds float64   `json:"closed_seconds"`
	Location      string    `json:"location"`
	Text          string    `json:"text"`
	Fallback      bool      `json:"fallback"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReportRepository provides access to incident reports.
type ReportRepository struct {
	db *sql.DB
}

// Reports returns the report repository for this store.
func (s *Store) Reports() *ReportRepository {
	return &ReportRepository{db: s.db}
}

// Append stores a report. A second report for the same session episode is rejected.
func (r *ReportRepository) Append(rep *Report) error {
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO reports (id, session_id, episode, closed_seconds, location, text, fallback, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.SessionID, rep.Episode, rep.ClosedSeconds, rep.Location, rep.Text, boolToInt(rep.Fallback), rep.CreatedAt,
	)
	return err
}

// ListBySession returns a session's reports ordered by episode.
func (r *ReportRepository) ListBySession(sessionID string) ([]*Report, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, episode, closed_seconds, location, text, fallback, created_at
		 FROM reports WHERE session_id = ? ORDER BY episode ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}

	return reports, rows.Err()
}

// GetByEpisode retrieves the report for one CRITICAL episode.
func (r *ReportRepository) GetByEpisode(sessionID string, episode int) (*Report, error) {
	row := r.db.QueryRow(
		`SELECT id, session_id, episode, closed_seconds, location, text, fallback, created_at
		 FROM reports WHERE session_id = ? AND episode = ?`,
		sessionID, episode,
	)

	rep, err := scanReport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rep, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*Report, error) {
	rep := &Report{}
	var fallback int

	if err := s.Scan(&rep.ID, &rep.SessionID, &rep.Episode, &rep.ClosedSeconds,
		&rep.Location, &rep.Text, &fallback, &rep.CreatedAt); err != nil {
		return nil, err
	}

	rep.Fallback = fallback != 0
	return rep, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
