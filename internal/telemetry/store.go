// Package telemetry records and summarizes the controller's published
// outputs for offline analysis.
package telemetry

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store is a SQLite database holding per-session steering records.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database at dbPath and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per controller run
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			note TEXT NOT NULL DEFAULT '',
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME
		)`,

		// Frames table - one row per processed frame
		`CREATE TABLE IF NOT EXISTS frames (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			frame_index INTEGER NOT NULL,
			steering REAL NOT NULL,
			lane_detected INTEGER NOT NULL,
			turn_state TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_frames_session_id ON frames(session_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}

// Session represents one controller run.
type Session struct {
	ID        string     `json:"id"`
	Note      string     `json:"note"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// SessionRepository provides CRUD operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session and returns it.
func (r *SessionRepository) Create(note string) (Session, error) {
	sess := Session{
		ID:        uuid.New().String(),
		Note:      note,
		StartedAt: time.Now(),
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, note, started_at) VALUES (?, ?, ?)`,
		sess.ID, sess.Note, sess.StartedAt,
	)
	if err != nil {
		return Session{}, err
	}

	return sess, nil
}

// End marks a session as finished.
func (r *SessionRepository) End(id string) error {
	_, err := r.db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

// List returns all sessions, newest first.
func (r *SessionRepository) List() ([]Session, error) {
	rows, err := r.db.Query(
		`SELECT id, note, started_at, ended_at FROM sessions ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var ended sql.NullTime
		if err := rows.Scan(&sess.ID, &sess.Note, &sess.StartedAt, &ended); err != nil {
			return nil, err
		}
		if ended.Valid {
			sess.EndedAt = &ended.Time
		}
		sessions = append(sessions, sess)
	}

	return sessions, rows.Err()
}

// Record is one frame's published output.
type Record struct {
	SessionID    string  `json:"session_id"`
	FrameIndex   int     `json:"frame_index"`
	Steering     float64 `json:"steering"`
	LaneDetected bool    `json:"lane_detected"`
	TurnState    string  `json:"turn_state"`
}

// FrameRepository provides persistence for per-frame records.
type FrameRepository struct {
	db *sql.DB
}

// Frames returns the frame repository for this store.
func (s *Store) Frames() *FrameRepository {
	return &FrameRepository{db: s.db}
}

// Record inserts one frame record.
func (r *FrameRepository) Record(rec Record) error {
	detected := 0
	if rec.LaneDetected {
		detected = 1
	}

	_, err := r.db.Exec(
		`INSERT INTO frames (session_id, frame_index, steering, lane_detected, turn_state)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.SessionID, rec.FrameIndex, rec.Steering, detected, rec.TurnState,
	)
	return err
}

// ListBySession returns all records for a session in frame order.
func (r *FrameRepository) ListBySession(sessionID string) ([]Record, error) {
	rows, err := r.db.Query(
		`SELECT session_id, frame_index, steering, lane_detected, turn_state
		 FROM frames
		 WHERE session_id = ?
		 ORDER BY frame_index`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var detected int
		if err := rows.Scan(&rec.SessionID, &rec.FrameIndex, &rec.Steering, &detected, &rec.TurnState); err != nil {
			return nil, err
		}
		rec.LaneDetected = detected != 0
		records = append(records, rec)
	}

	return records, rows.Err()
}

// DeleteBySession removes all records for a session.
func (r *FrameRepository) DeleteBySession(sessionID string) error {
	_, err := r.db.Exec(`DELETE FROM frames WHERE session_id = ?`, sessionID)
	return err
}
