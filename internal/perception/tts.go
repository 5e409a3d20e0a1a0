package perception

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"deskmate/internal/logging"
)

// SpeechClient talks to the local TTS sidecar. Speak blocks for the whole
// synthesis plus playback window so the caller can use it for backpressure.
type SpeechClient struct {
	baseURL    string
	httpClient *http.Client
	speaking   atomic.Bool

	// Player overrides the platform audio player. The WAV path is appended
	// as the final argument.
	Player []string
}

// SpeechConfig holds configuration for the TTS sidecar client.
type SpeechConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultSpeechConfig returns sensible defaults for a local sidecar.
func DefaultSpeechConfig() SpeechConfig {
	return SpeechConfig{
		BaseURL: "http://localhost:5005",
		Timeout: 60 * time.Second,
	}
}

// NewSpeechClient creates a TTS client with custom config.
func NewSpeechClient(config SpeechConfig) *SpeechClient {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultSpeechConfig().BaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultSpeechConfig().Timeout
	}
	return &SpeechClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type synthesizeRequest struct {
	Text      string  `json:"text"`
	Character string  `json:"character"`
	Speed     float64 `json:"speed"`
	Language  string  `json:"language,omitempty"`
}

// Speaking reports whether a spoken line is currently being synthesized
// or played.
func (c *SpeechClient) Speaking() bool {
	return c.speaking.Load()
}

// Speak synthesizes text with the given voice, speed and language and plays
// it. It blocks until playback finishes; Speaking reports true for the
// duration.
func (c *SpeechClient) Speak(ctx context.Context, text, voice string, speed float64, language string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if speed <= 0 {
		speed = 1.0
	}

	c.speaking.Store(true)
	defer c.speaking.Store(false)

	logging.Speech("synthesizing %d chars (voice=%s speed=%.2f lang=%s)", len(text), voice, speed, language)

	audio, err := c.synthesize(ctx, text, voice, speed, language)
	if err != nil {
		return err
	}

	if err := c.play(ctx, audio); err != nil {
		// The line was synthesized; a playback failure should not fail
		// the tick.
		logging.SpeechWarn("playback failed: %v", err)
	}
	return nil
}

func (c *SpeechClient) synthesize(ctx context.Context, text, voice string, speed float64, language string) ([]byte, error) {
	reqBody := synthesizeRequest{Text: text, Character: voice, Speed: speed, Language: language}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/synthesize", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TTS request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("TTS request failed with status %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("TTS returned no audio")
	}
	return audio, nil
}

// Characters lists the voices the sidecar offers.
func (c *SpeechClient) Characters(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/characters", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TTS request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("TTS request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var characters []string
	if err := json.NewDecoder(resp.Body).Decode(&characters); err != nil {
		return nil, fmt.Errorf("failed to parse characters: %w", err)
	}
	return characters, nil
}

func (c *SpeechClient) play(ctx context.Context, audio []byte) error {
	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("deskmate-tts-%d.wav", time.Now().UnixNano()))
	if err := os.WriteFile(tmp, audio, 0644); err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	defer os.Remove(tmp)

	args := c.playerFor(tmp)
	if len(args) == 0 {
		return fmt.Errorf("no audio player for platform %s", runtime.GOOS)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("player %s failed: %v (%s)", args[0], err, string(out))
	}
	return nil
}

func (c *SpeechClient) playerFor(path string) []string {
	if len(c.Player) > 0 {
		return append(append([]string(nil), c.Player...), path)
	}
	switch runtime.GOOS {
	case "darwin":
		return []string{"afplay", path}
	case "linux":
		return []string{"aplay", "-q", path}
	case "windows":
		return []string{"powershell", "-NoProfile", "-Command",
			"(New-Object Media.SoundPlayer '" + path + "').PlaySync()"}
	default:
		return nil
	}
}
