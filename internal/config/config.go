// Package config holds deskmate's configuration surfaces: the YAML app
// config (service endpoints, models, data layout), the JSON user settings
// (cadence, toggles, voice), and the prompts file the composite prompt is
// assembled from.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all deskmate configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// DataDir is the root for all persisted state (levels, memory, logs,
	// personalities, trace database).
	DataDir string `yaml:"data_dir"`

	// TickInterval is the scheduler cadence.
	TickInterval string `yaml:"tick_interval"`

	LLM    LLMConfig    `yaml:"llm"`
	TTS    TTSConfig    `yaml:"tts"`
	Levels LevelsConfig `yaml:"levels"`

	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the model clients.
type LLMConfig struct {
	Provider        string `yaml:"provider"` // openai, gemini
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	Model           string `yaml:"model"`            // text generation
	VisionModel     string `yaml:"vision_model"`     // image description
	MultimodalModel string `yaml:"multimodal_model"` // single-call image+text
	Timeout         string `yaml:"timeout"`
}

// TTSConfig configures the speech sidecar.
type TTSConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// LevelsConfig holds the static attribute list the progression engine feeds.
type LevelsConfig struct {
	Attributes []string `yaml:"attributes"`
}

// LoggingConfig configures category file logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:         "deskmate",
		Version:      "1.0.0",
		DataDir:      "data",
		TickInterval: "20s",

		LLM: LLMConfig{
			Provider:        "openai",
			BaseURL:         "http://localhost:11434/v1",
			Model:           "llama3.1",
			VisionModel:     "llava",
			MultimodalModel: "llava",
			Timeout:         "120s",
		},

		TTS: TTSConfig{
			BaseURL: "http://localhost:5005",
			Timeout: "60s",
		},

		Levels: LevelsConfig{
			Attributes: []string{
				"Intelligence", "Creativity", "Focus", "Social", "Vitality",
			},
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "openai"
		}
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}
	if url := os.Getenv("DESKMATE_LLM_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if url := os.Getenv("DESKMATE_TTS_URL"); url != "" {
		c.TTS.BaseURL = url
	}
	if dir := os.Getenv("DESKMATE_DATA"); dir != "" {
		c.DataDir = dir
	}
}

// GetLLMTimeout returns the model-call timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetTTSTimeout returns the speech timeout as a duration.
func (c *Config) GetTTSTimeout() time.Duration {
	d, err := time.ParseDuration(c.TTS.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetTickInterval returns the scheduler cadence as a duration.
func (c *Config) GetTickInterval() time.Duration {
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil {
		return 20 * time.Second
	}
	return d
}

// ValidProviders lists all supported model providers.
var ValidProviders = []string{"openai", "gemini"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}
	if len(c.Levels.Attributes) == 0 {
		return fmt.Errorf("at least one attribute must be configured")
	}
	return nil
}

// --- Data layout ---

// Paths resolves the file layout under the data directory.
type Paths struct {
	DataDir string
}

// NewPaths builds the path resolver for a data directory.
func NewPaths(dataDir string) Paths {
	return Paths{DataDir: dataDir}
}

func (p Paths) Settings() string      { return filepath.Join(p.DataDir, "settings.json") }
func (p Paths) Prompts() string       { return filepath.Join(p.DataDir, "prompts.json") }
func (p Paths) UserLevels() string    { return filepath.Join(p.DataDir, "system", "userLevels.json") }
func (p Paths) UserMemory() string    { return filepath.Join(p.DataDir, "system", "userMemory.json") }
func (p Paths) Personalities() string { return filepath.Join(p.DataDir, "personalities") }
func (p Paths) TraceDB() string       { return filepath.Join(p.DataDir, "system", "trace.db") }
