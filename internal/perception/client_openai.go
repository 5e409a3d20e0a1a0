package perception

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"deskmate/internal/logging"
)

// OpenAIClient implements ModelClient for OpenAI-compatible APIs, which
// includes local servers such as Ollama and LM Studio.
type OpenAIClient struct {
	apiKey          string
	baseURL         string
	model           string
	visionModel     string
	multimodalModel string
	httpClient      *http.Client
	mu              sync.Mutex
	lastRequest     time.Time
}

// OpenAIConfig holds configuration for the OpenAI-compatible client.
type OpenAIConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	VisionModel     string
	MultimodalModel string
	Timeout         time.Duration
}

// DefaultOpenAIConfig returns sensible defaults targeting a local Ollama
// instance, which needs no API key.
func DefaultOpenAIConfig(apiKey string) OpenAIConfig {
	return OpenAIConfig{
		APIKey:          apiKey,
		BaseURL:         "http://localhost:11434/v1",
		Model:           "llama3.1",
		VisionModel:     "llava",
		MultimodalModel: "llava",
		Timeout:         120 * time.Second,
	}
}

// NewOpenAIClient creates a new client with default config.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return NewOpenAIClientWithConfig(DefaultOpenAIConfig(apiKey))
}

// NewOpenAIClientWithConfig creates a new client with custom config.
func NewOpenAIClientWithConfig(config OpenAIConfig) *OpenAIClient {
	model := strings.TrimSpace(config.Model)
	if model == "" {
		model = "llama3.1"
	}
	visionModel := strings.TrimSpace(config.VisionModel)
	if visionModel == "" {
		visionModel = model
	}
	multimodalModel := strings.TrimSpace(config.MultimodalModel)
	if multimodalModel == "" {
		multimodalModel = visionModel
	}
	return &OpenAIClient{
		apiKey:          config.APIKey,
		baseURL:         strings.TrimRight(config.BaseURL, "/"),
		model:           model,
		visionModel:     visionModel,
		multimodalModel: multimodalModel,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// openAIRequest represents the chat completions request structure.
type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

// openAIMessage is one message in the conversation. Content is either a
// plain string or a list of content parts when an image is attached.
type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

// openAIResponse represents the chat completions response structure.
type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// GenerateResponse sends a text-only prompt to the generation model.
func (c *OpenAIClient) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	messages := []openAIMessage{{Role: "user", Content: prompt}}
	return c.complete(ctx, c.model, messages)
}

// AnalyzeImage sends the screenshot with a description prompt to the
// vision model.
func (c *OpenAIClient) AnalyzeImage(ctx context.Context, image []byte, prompt string) (string, error) {
	return c.complete(ctx, c.visionModel, imageMessages(image, prompt))
}

// AnalyzeImageMultimodal sends the screenshot and the full composite
// prompt in a single call to the multimodal model.
func (c *OpenAIClient) AnalyzeImageMultimodal(ctx context.Context, image []byte, prompt string) (string, error) {
	return c.complete(ctx, c.multimodalModel, imageMessages(image, prompt))
}

// imageMessages builds a user message carrying the prompt text plus the
// image as a base64 data URL content part.
func imageMessages(image []byte, prompt string) []openAIMessage {
	encoded := base64.StdEncoding.EncodeToString(image)
	parts := []openAIContentPart{
		{Type: "text", Text: prompt},
		{Type: "image_url", ImageURL: &openAIImageURL{
			URL: "data:image/png;base64," + encoded,
		}},
	}
	return []openAIMessage{{Role: "user", Content: parts}}
}

func (c *OpenAIClient) complete(ctx context.Context, model string, messages []openAIMessage) (string, error) {
	// Rate limiting: ensure at least 600ms between requests
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 600*time.Millisecond {
		time.Sleep(600*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	reqBody := openAIRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   1024,
		Temperature: 0.7,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	// Retry loop for 429 errors
	maxRetries := 3
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			// Exponential backoff: 1s, 2s, 4s
			time.Sleep(time.Duration(1<<uint(i-1)) * time.Second)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			logging.APIWarn("model %s rate limited, retry %d/%d", model, i+1, maxRetries)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var apiResp openAIResponse
		if err := json.Unmarshal(body, &apiResp); err != nil {
			return "", fmt.Errorf("failed to parse response: %w", err)
		}

		if apiResp.Error != nil {
			return "", fmt.Errorf("API error: %s", apiResp.Error.Message)
		}

		// Empty content is "no reply this time", not a failure.
		if len(apiResp.Choices) == 0 {
			return "", nil
		}

		return strings.TrimSpace(apiResp.Choices[0].Message.Content), nil
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}
