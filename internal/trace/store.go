// Package trace persists register accesses to SQLite so a run can be
// inspected after the fact.
package trace

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"csrngemu/internal/bus"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    name        TEXT PRIMARY KEY,
    started_ns  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS accesses (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    session      TEXT NOT NULL REFERENCES sessions(name),
    timestamp_ns INTEGER NOT NULL,
    reg_offset   INTEGER NOT NULL,
    reg_name     TEXT NOT NULL,
    op           TEXT NOT NULL,
    value        INTEGER NOT NULL,
    error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_accesses_session ON accesses(session, id);
`

// Access is one recorded register access.
type Access struct {
	ID        int64
	Session   string
	Timestamp time.Time
	Offset    uint32
	Register  string
	Op        string
	Value     uint32
	Error     string
}

// Session summarizes one traced run.
type Session struct {
	Name     string
	Started  time.Time
	Accesses int
}

// Store is the SQLite-backed trace log.
type Store struct {
	db *sql.DB

	mu  sync.Mutex
	err error
}

// Open opens or creates the trace database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// NewSessionName returns a session label derived from t.
func NewSessionName(t time.Time) string {
	return t.UTC().Format("20060102T150405.000000000Z")
}

// Begin registers session, creating it if needed.
func (s *Store) Begin(session string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO sessions (name, started_ns) VALUES (?, ?)`,
		session, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Record appends tx to session. The session must exist.
func (s *Store) Record(session string, tx bus.Transaction) error {
	var errText sql.NullString
	if tx.Err != nil {
		errText = sql.NullString{String: tx.Err.Error(), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO accesses (session, timestamp_ns, reg_offset, reg_name, op, value, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session, time.Now().UnixNano(), int64(tx.Offset), tx.Name, tx.Op.String(), int64(tx.Value), errText,
	)
	if err != nil {
		return fmt.Errorf("insert access: %w", err)
	}
	return nil
}

// Observer registers session and returns a bus.Observer recording into
// it. Observers cannot fail, so the first write error is kept for Err.
func (s *Store) Observer(session string) (bus.Observer, error) {
	if err := s.Begin(session); err != nil {
		return nil, err
	}
	return bus.ObserverFunc(func(tx bus.Transaction) {
		if err := s.Record(session, tx); err != nil {
			s.mu.Lock()
			if s.err == nil {
				s.err = err
			}
			s.mu.Unlock()
		}
	}), nil
}

// Err returns the first error hit by an Observer.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Accesses returns the accesses of session in the order they happened.
func (s *Store) Accesses(session string) ([]Access, error) {
	rows, err := s.db.Query(`
		SELECT id, session, timestamp_ns, reg_offset, reg_name, op, value, error
		FROM accesses WHERE session = ? ORDER BY id`, session)
	if err != nil {
		return nil, fmt.Errorf("query accesses: %w", err)
	}
	defer rows.Close()

	var out []Access
	for rows.Next() {
		var (
			a       Access
			ts      int64
			offset  int64
			value   int64
			errText sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Session, &ts, &offset, &a.Register, &a.Op, &value, &errText); err != nil {
			return nil, fmt.Errorf("scan access: %w", err)
		}
		a.Timestamp = time.Unix(0, ts)
		a.Offset = uint32(offset)
		a.Value = uint32(value)
		a.Error = errText.String
		out = append(out, a)
	}
	return out, rows.Err()
}

// Sessions lists recorded sessions, oldest first.
func (s *Store) Sessions() ([]Session, error) {
	rows, err := s.db.Query(`
		SELECT s.name, s.started_ns, COUNT(a.id)
		FROM sessions s LEFT JOIN accesses a ON a.session = s.name
		GROUP BY s.name
		ORDER BY s.started_ns, s.name`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			sess Session
			ts   int64
		)
		if err := rows.Scan(&sess.Name, &ts, &sess.Accesses); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.Started = time.Unix(0, ts)
		out = append(out, sess)
	}
	return out, rows.Err()
}
