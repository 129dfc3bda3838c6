// Package journal persists conversation transcripts to SQLite.
//
// Only what was said is stored; the guide's mood and topic memory live in
// process and are never written here.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

var (
	ErrInvalidID       = errors.New("journal: invalid id")
	ErrSessionNotFound = errors.New("journal: session not found")
)

// Role of a recorded turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Session is one visitor encounter, from entering range to leaving it
type Session struct {
	ID        string     `json:"id"`
	Agent     string     `json:"agent"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

// Turn is a single utterance within a session
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Emotion   string    `json:"emotion,omitempty"`
	Gesture   string    `json:"gesture,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Option func(*Journal)

func WithClock(c clockwork.Clock) Option {
	return func(j *Journal) {
		if c != nil {
			j.clock = c
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(j *Journal) { j.log = l }
}

// Journal is a SQLite-backed transcript store
type Journal struct {
	db    *sql.DB
	clock clockwork.Clock
	log   zerolog.Logger
}

// Open opens or creates the database at path. The parent directory is
// created when missing. ":memory:" gives a throwaway journal.
func Open(path string, opts ...Option) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// one connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}

	j := &Journal{db: db, clock: clockwork.NewRealClock(), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(j)
	}
	j.log = j.log.With().Str("component", "journal").Logger()

	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return j, nil
}

func (j *Journal) migrate() error {
	schema := `
	PRAGMA foreign_keys = ON;

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		agent TEXT NOT NULL,
		started_at TEXT NOT NULL,
		ended_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at DESC);

	CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		emotion TEXT NOT NULL DEFAULT '',
		gesture TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_turns_session_id ON turns(session_id);
	`
	_, err := j.db.Exec(schema)
	return err
}

// StartSession opens a new session for agent
func (j *Journal) StartSession(ctx context.Context, agent string) (Session, error) {
	s := Session{ID: uuid.NewString(), Agent: agent, StartedAt: j.clock.Now().UTC()}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO sessions (id, agent, started_at) VALUES (?, ?, ?)`,
		s.ID, s.Agent, s.StartedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Session{}, fmt.Errorf("start session: %w", err)
	}
	j.log.Debug().Str("session", s.ID).Str("agent", agent).Msg("session started")
	return s, nil
}

// EndSession stamps the session's end time. Ending twice moves the stamp.
func (j *Journal) EndSession(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidID
	}
	res, err := j.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ? WHERE id = ?`,
		j.clock.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// RecordTurn appends a turn to a session. Missing ID and CreatedAt are
// filled in; a turn with an existing ID is overwritten.
func (j *Journal) RecordTurn(ctx context.Context, t Turn) (Turn, error) {
	if t.SessionID == "" {
		return Turn{}, ErrInvalidID
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = j.clock.Now()
	}
	t.CreatedAt = t.CreatedAt.UTC()

	_, err := j.db.ExecContext(ctx, `
	INSERT INTO turns (id, session_id, role, content, emotion, gesture, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		role = excluded.role,
		content = excluded.content,
		emotion = excluded.emotion,
		gesture = excluded.gesture
	`, t.ID, t.SessionID, string(t.Role), t.Content, t.Emotion, t.Gesture, t.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Turn{}, fmt.Errorf("record turn: %w", err)
	}
	return t, nil
}

// Session loads one session
func (j *Journal) Session(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, ErrInvalidID
	}
	var (
		s         Session
		startedAt string
		endedAt   sql.NullString
	)
	err := j.db.QueryRowContext(ctx,
		`SELECT id, agent, started_at, ended_at FROM sessions WHERE id = ?`, id).
		Scan(&s.ID, &s.Agent, &startedAt, &endedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	if s.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return Session{}, fmt.Errorf("parse started_at: %w", err)
	}
	if endedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, endedAt.String)
		if err != nil {
			return Session{}, fmt.Errorf("parse ended_at: %w", err)
		}
		s.EndedAt = &t
	}
	return s, nil
}

// Turns returns a session's turns in recording order
func (j *Journal) Turns(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := j.db.QueryContext(ctx, `
	SELECT id, session_id, role, content, emotion, gesture, created_at
	FROM turns
	WHERE session_id = ?
	ORDER BY rowid ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			t         Turn
			role      string
			createdAt string
		)
		if err := rows.Scan(&t.ID, &t.SessionID, &role, &t.Content, &t.Emotion, &t.Gesture, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Role = Role(role)
		if t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (j *Journal) Close() error {
	return j.db.Close()
}
