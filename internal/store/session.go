package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session records one pipeline run.
type Session struct {
	ID           string     `json:"id"`
	Source       string     `json:"source"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	Frames       int        `json:"frames"`
	HandFrames   int        `json:"hand_frames"`
	LevelUpdates int        `json:"level_updates"`
	Errors       int        `json:"errors"`
	LastLevel    float64    `json:"last_level"`
}

// SessionRepository stores sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

const sessionColumns = `id, source, started_at, ended_at, frames, hand_frames, level_updates, errors, last_level`

// Create inserts a new session.
func (r *SessionRepository) Create(s *Session) error {
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}
	_, err := r.db.Exec(
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Source, s.StartedAt, nullTime(s.EndedAt), s.Frames, s.HandFrames, s.LevelUpdates, s.Errors, s.LastLevel,
	)
	return err
}

// Update writes the counters and end time of an existing session.
func (r *SessionRepository) Update(s *Session) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ?, frames = ?, hand_frames = ?, level_updates = ?, errors = ?, last_level = ?
		 WHERE id = ?`,
		nullTime(s.EndedAt), s.Frames, s.HandFrames, s.LevelUpdates, s.Errors, s.LastLevel, s.ID,
	)
	if err != nil {
		return err
	}
	return mustAffect(result)
}

// Get retrieves a session by ID.
func (r *SessionRepository) Get(id string) (*Session, error) {
	s, err := scanSession(r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// List returns the most recent sessions first, at most limit of them.
// A non-positive limit returns all sessions.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT `+sessionColumns+` FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	s := &Session{}
	var ended sql.NullTime
	err := row.Scan(&s.ID, &s.Source, &s.StartedAt, &ended, &s.Frames, &s.HandFrames, &s.LevelUpdates, &s.Errors, &s.LastLevel)
	if err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		s.EndedAt = &t
	}
	return s, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
