// Package memory holds the companion's two memory slots: a volatile
// short-term string and a long-term string persisted to disk. Both are
// mutated only via bracket commands.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"deskmate/internal/logging"
)

// memoryFile is the persisted shape of the long-term slot.
type memoryFile struct {
	LongTermMemory string `json:"long_term_memory"`
}

// Store owns both memory slots and the long-term file.
type Store struct {
	mu        sync.RWMutex
	shortTerm string
	longTerm  string
	path      string
}

// NewStore creates a memory store persisting long-term memory to path.
// Call Load before use.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads long-term memory from disk. A missing file is created empty; a
// corrupt file is reset rather than failing startup.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		if writeErr := s.writeLocked(""); writeErr != nil {
			logging.MemoryWarn("could not create %s: %v", s.path, writeErr)
		}
	case err != nil:
		logging.MemoryWarn("could not read %s: %v", s.path, err)
	default:
		var mf memoryFile
		if jsonErr := json.Unmarshal(data, &mf); jsonErr != nil {
			logging.MemoryWarn("corrupt memory file %s (%v), reset", s.path, jsonErr)
			if writeErr := s.writeLocked(""); writeErr != nil {
				logging.MemoryError("reset of %s failed: %v", s.path, writeErr)
			}
		} else {
			s.longTerm = mf.LongTermMemory
		}
	}
	return nil
}

// ShortTerm returns the volatile short-term slot.
func (s *Store) ShortTerm() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shortTerm
}

// LongTerm returns the persisted long-term slot.
func (s *Store) LongTerm() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.longTerm
}

// SetShortTerm replaces the short-term slot in place. Process lifetime only.
func (s *Store) SetShortTerm(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shortTerm = text
	logging.Memory("updated short-term memory (%d chars)", len(text))
}

// SetLongTerm replaces the long-term slot and persists it immediately,
// overwriting the previous value. There is no append or merge. A failed disk
// write is logged; the in-memory value stays authoritative and the next
// successful save reconciles.
func (s *Store) SetLongTerm(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.longTerm = text
	if err := s.writeLocked(text); err != nil {
		logging.MemoryError("failed to persist long-term memory: %v", err)
		return
	}
	logging.Memory("updated long-term memory (%d chars)", len(text))
}

func (s *Store) writeLocked(longTerm string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create memory directory: %w", err)
	}
	data, err := json.Marshal(memoryFile{LongTermMemory: longTerm})
	if err != nil {
		return fmt.Errorf("marshal memory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
