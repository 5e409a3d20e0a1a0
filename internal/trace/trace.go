// Package trace persists a record of every model call so a user can audit
// what the companion sent and received.
package trace

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"deskmate/internal/logging"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Call kinds recorded in the store.
const (
	KindChat   = "chat"   // composite prompt expecting a spoken reply
	KindVision = "vision" // screenshot description call
	KindTasks  = "tasks"  // tasks-only call, no speech expected
)

// Record is one captured model call.
type Record struct {
	ID         string    `json:"id"`
	Tick       uint64    `json:"tick"`
	Kind       string    `json:"kind"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model,omitempty"`
	PromptLen  int       `json:"prompt_len"`
	ReplyLen   int       `json:"reply_len"`
	DurationMs int64     `json:"duration_ms"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists call records in SQLite. Thread-safe.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// Open opens (or creates) the trace database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace database: %w", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure trace schema: %w", err)
	}

	logging.Store("trace store opened at %s", path)
	return s, nil
}

func (s *Store) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS model_calls (
		id TEXT PRIMARY KEY,
		tick INTEGER NOT NULL,
		kind TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT,
		prompt_len INTEGER NOT NULL,
		reply_len INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		success BOOLEAN NOT NULL,
		error TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_calls_tick ON model_calls(tick);
	CREATE INDEX IF NOT EXISTS idx_calls_kind ON model_calls(kind);
	CREATE INDEX IF NOT EXISTS idx_calls_created ON model_calls(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append stores one call record. A missing ID is filled in.
func (s *Store) Append(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO model_calls
		(id, tick, kind, provider, model, prompt_len, reply_len, duration_ms, success, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Tick, rec.Kind, rec.Provider, rec.Model,
		rec.PromptLen, rec.ReplyLen, rec.DurationMs, rec.Success, rec.Error,
	)
	if err != nil {
		logging.StoreError("failed to store call record %s: %v", rec.ID, err)
		return err
	}

	logging.StoreDebug("call recorded: tick=%d kind=%s duration=%dms success=%v",
		rec.Tick, rec.Kind, rec.DurationMs, rec.Success)
	return nil
}

// Recent returns the newest call records, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, tick, kind, provider, model, prompt_len, reply_len,
		       duration_ms, success, error, created_at
		FROM model_calls ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var model, errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.Tick, &r.Kind, &r.Provider, &model,
			&r.PromptLen, &r.ReplyLen, &r.DurationMs, &r.Success, &errMsg, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Model = model.String
		r.Error = errMsg.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
