package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Chat frequency names accepted in user settings.
const (
	FrequencyFrequent = "frequent"
	FrequencyMedium   = "medium"
	FrequencyScarse   = "scarse"
)

// UserSettings holds per-user preferences, persisted as human-editable JSON.
// Absent file means defaults; a corrupt file is replaced with defaults.
type UserSettings struct {
	ChatFrequency       string  `json:"chat_frequency,omitempty"` // frequent, medium, scarse
	UseMultimodal       bool    `json:"use_multimodal"`
	UseTTS              bool    `json:"use_tts"`
	TTSVoice            string  `json:"tts_voice,omitempty"`
	TTSSpeed            float64 `json:"tts_speed,omitempty"`
	Language            string  `json:"language,omitempty"`
	SelectedPersonality string  `json:"selected_personality,omitempty"`
	DebugMode           bool    `json:"debug_mode"`
}

// DefaultUserSettings returns the defaults applied when no settings exist.
func DefaultUserSettings() *UserSettings {
	return &UserSettings{
		ChatFrequency: FrequencyMedium,
		UseTTS:        true,
		TTSSpeed:      1.0,
		Language:      "English",
	}
}

// LoadUserSettings loads settings from a JSON file.
func LoadUserSettings(path string) (*UserSettings, error) {
	s := DefaultUserSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read user settings: %w", err)
	}

	if err := json.Unmarshal(data, s); err != nil {
		// Corrupt settings are replaced, not fatal.
		return DefaultUserSettings(), nil
	}
	if s.ChatFrequency == "" {
		s.ChatFrequency = FrequencyMedium
	}
	if s.TTSSpeed <= 0 {
		s.TTSSpeed = 1.0
	}
	return s, nil
}

// Save writes settings to a JSON file.
func (s *UserSettings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write user settings: %w", err)
	}
	return nil
}

// ChatFrequencyDivisor maps the configured cadence name to the tick divisor:
// frequent->2, medium->3 (default), scarse->5.
func (s *UserSettings) ChatFrequencyDivisor() int {
	switch strings.ToLower(s.ChatFrequency) {
	case FrequencyFrequent:
		return 2
	case FrequencyScarse:
		return 5
	default:
		return 3
	}
}
