package logging

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// SQLiteSink stores records in a SQLite database: one row per frame in
// frames and one row per decoded value in signal_values.
type SQLiteSink struct {
	db      *sql.DB
	mu      sync.Mutex
	session string
}

// NewSQLiteSink opens (creating if needed) the database at path. Use
// ":memory:" for an in-memory database. Rows are tagged with session.
func NewSQLiteSink(path, session string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	// each connection to ":memory:" is its own database
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		PRAGMA foreign_keys = ON;
		PRAGMA journal_mode = WAL;
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "configuring database")
	}

	s := &SQLiteSink{db: db, session: session}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrating database")
	}
	return s, nil
}

func (s *SQLiteSink) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS frames (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session TEXT NOT NULL,
		received_at DATETIME NOT NULL,
		can_id INTEGER NOT NULL,
		extended INTEGER NOT NULL DEFAULT 0,
		rtr INTEGER NOT NULL DEFAULT 0,
		data BLOB,
		message TEXT
	);

	CREATE TABLE IF NOT EXISTS signal_values (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		frame_id INTEGER NOT NULL REFERENCES frames(id) ON DELETE CASCADE,
		signal TEXT NOT NULL,
		raw TEXT NOT NULL,
		physical REAL NOT NULL,
		unit TEXT,
		label TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_frames_session ON frames(session);
	CREATE INDEX IF NOT EXISTS idx_signal_values_frame_id ON signal_values(frame_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteSink) Write(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return wrapSink(err, "sqlite")
	}
	defer tx.Rollback()

	var message sql.NullString
	if r.Message != nil {
		message = sql.NullString{String: r.Message.Name, Valid: true}
	}
	res, err := tx.Exec(`
		INSERT INTO frames (session, received_at, can_id, extended, rtr, data, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.session, r.Time.UTC(), r.Frame.ID, r.Frame.Extended, r.Frame.RTR,
		r.Frame.Payload(), message)
	if err != nil {
		return wrapSink(err, "sqlite")
	}
	frameID, err := res.LastInsertId()
	if err != nil {
		return wrapSink(err, "sqlite")
	}

	for _, v := range r.Values {
		_, err = tx.Exec(`
			INSERT INTO signal_values (frame_id, signal, raw, physical, unit, label)
			VALUES (?, ?, ?, ?, ?, ?)
		`, frameID, v.Signal.Name, v.Raw.String(), v.Physical, string(v.Unit), v.Label)
		if err != nil {
			return wrapSink(err, "sqlite")
		}
	}

	return wrapSink(tx.Commit(), "sqlite")
}

// StoredValue is a signal value read back from the database.
type StoredValue struct {
	Time     time.Time
	Raw      string
	Physical float64
	Unit     string
	Label    string
}

// History returns every stored value of message.signal for this sink's
// session, oldest first.
func (s *SQLiteSink) History(message, signal string) ([]StoredValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT f.received_at, v.raw, v.physical, v.unit, v.label
		FROM signal_values v JOIN frames f ON f.id = v.frame_id
		WHERE f.session = ? AND f.message = ? AND v.signal = ?
		ORDER BY f.id
	`, s.session, message, signal)
	if err != nil {
		return nil, errors.Wrap(err, "querying history")
	}
	defer rows.Close()

	var values []StoredValue
	for rows.Next() {
		var v StoredValue
		var unit, label sql.NullString
		if err := rows.Scan(&v.Time, &v.Raw, &v.Physical, &unit, &label); err != nil {
			return nil, errors.Wrap(err, "scanning history")
		}
		v.Unit, v.Label = unit.String, label.String
		values = append(values, v)
	}
	return values, errors.Wrap(rows.Err(), "reading history")
}

// FrameCount returns how many frames were stored for this sink's session.
func (s *SQLiteSink) FrameCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM frames WHERE session = ?`, s.session).Scan(&n)
	return n, errors.Wrap(err, "counting frames")
}

func (s *SQLiteSink) Close() error {
	return wrapSink(s.db.Close(), "sqlite")
}
