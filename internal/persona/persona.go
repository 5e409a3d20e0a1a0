// Package persona loads and selects personalities: the character templates
// the companion speaks through, plus the rolling history of its last spoken
// lines.
package persona

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"deskmate/internal/logging"
)

// historySize is how many prior spoken lines are kept and injected into
// prompts as "must not repeat".
const historySize = 5

// Personality is one character definition loaded from JSON.
type Personality struct {
	Name string `json:"name"`

	// Prompt is the text-mode template. Its single %s slot receives the
	// visual/contextual description.
	Prompt string `json:"prompt"`

	// MultimodalPrompt is the single-call template used when the screenshot
	// travels with the prompt; it has no description slot.
	MultimodalPrompt string `json:"multimodal_prompt"`
}

// Manager owns the available personalities, the active selection, and the
// rolling utterance history.
type Manager struct {
	mu        sync.RWMutex
	dir       string
	available []Personality
	selected  *Personality
	history   []string
}

// NewManager creates a manager loading personalities from dir.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Load reads all personality JSON files from the personalities directory.
// A missing directory is not an error; the companion falls back to the
// configured fallback prompt.
func (m *Manager) Load() error {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			logging.PersonaWarn("personalities directory %s not found", m.dir)
			return nil
		}
		return fmt.Errorf("read personalities directory: %w", err)
	}

	var loaded []Personality
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".json") {
			continue
		}
		path := filepath.Join(m.dir, entry.Name())
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			logging.PersonaError("error reading personality %s: %v", entry.Name(), readErr)
			continue
		}
		var p Personality
		if jsonErr := json.Unmarshal(data, &p); jsonErr != nil {
			logging.PersonaError("error parsing personality %s: %v", entry.Name(), jsonErr)
			continue
		}
		if p.Name == "" {
			continue
		}
		loaded = append(loaded, p)
		logging.Persona("loaded personality: %s", p.Name)
	}
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].Name < loaded[j].Name })

	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = loaded

	// Keep the current selection across reloads when it still exists.
	if m.selected != nil {
		name := m.selected.Name
		m.selected = nil
		for i := range m.available {
			if strings.EqualFold(m.available[i].Name, name) {
				m.selected = &m.available[i]
				break
			}
		}
	}
	return nil
}

// Available returns the loaded personality names.
func (m *Manager) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.available))
	for _, p := range m.available {
		names = append(names, p.Name)
	}
	return names
}

// Select activates a personality by name (case-insensitive). With an empty
// or unknown name the first available personality is selected, if any.
func (m *Manager) Select(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.selected = nil
	for i := range m.available {
		if strings.EqualFold(m.available[i].Name, name) {
			m.selected = &m.available[i]
			break
		}
	}
	if m.selected == nil && len(m.available) > 0 {
		m.selected = &m.available[0]
	}
	if m.selected != nil {
		logging.Persona("personality selected: %s", m.selected.Name)
	}
}

// SelectedName returns the active personality's name, or "".
func (m *Manager) SelectedName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.selected == nil {
		return ""
	}
	return m.selected.Name
}

// PromptTemplate returns the active text-mode template, or "" when no
// personality is selected.
func (m *Manager) PromptTemplate() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.selected == nil {
		return ""
	}
	return m.selected.Prompt
}

// MultimodalTemplate returns the active multimodal template, or "".
func (m *Manager) MultimodalTemplate() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.selected == nil {
		return ""
	}
	return m.selected.MultimodalPrompt
}

// RecordUtterance appends a spoken line to the rolling history, keeping the
// newest historySize entries. Process-local, not durable.
func (m *Manager) RecordUtterance(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, text)
	if len(m.history) > historySize {
		m.history = m.history[len(m.history)-historySize:]
	}
}

// RecentUtterances returns the last spoken lines, newest last.
func (m *Manager) RecentUtterances() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.history...)
}

// LastUtterance returns the most recent spoken line, or "".
func (m *Manager) LastUtterance() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.history) == 0 {
		return ""
	}
	return m.history[len(m.history)-1]
}
