package perception

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAIClient(url string) *OpenAIClient {
	cfg := DefaultOpenAIConfig("test-key")
	cfg.BaseURL = url
	cfg.Model = "test-model"
	cfg.VisionModel = "test-vision"
	cfg.Timeout = 5 * time.Second
	return NewOpenAIClientWithConfig(cfg)
}

func openAIReply(content string) string {
	return `{"choices":[{"message":{"role":"assistant","content":"` + content + `"}}]}`
}

func TestOpenAIGenerateResponse(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		w.Write([]byte(openAIReply("hello back")))
	}))
	defer server.Close()

	c := newTestOpenAIClient(server.URL)
	reply, err := c.GenerateResponse(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello back", reply)
	assert.Equal(t, "test-model", gotBody["model"])
}

func TestOpenAIAnalyzeImageSendsDataURL(t *testing.T) {
	var raw string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		raw = string(body)
		w.Write([]byte(openAIReply("a screenshot of an editor")))
	}))
	defer server.Close()

	c := newTestOpenAIClient(server.URL)
	reply, err := c.AnalyzeImage(context.Background(), []byte("fake-png"), "describe this")
	require.NoError(t, err)
	assert.Equal(t, "a screenshot of an editor", reply)
	assert.Contains(t, raw, "test-vision")
	assert.Contains(t, raw, "data:image/png;base64,")
	assert.Contains(t, raw, "describe this")
}

func TestOpenAIEmptyChoicesIsNoReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	c := newTestOpenAIClient(server.URL)
	reply, err := c.GenerateResponse(context.Background(), "hello")
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestOpenAIRetriesRateLimit(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(openAIReply("finally")))
	}))
	defer server.Close()

	c := newTestOpenAIClient(server.URL)
	reply, err := c.GenerateResponse(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "finally", reply)
	assert.Equal(t, 2, attempts)
}

func TestOpenAIServerErrorFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	c := newTestOpenAIClient(server.URL)
	_, err := c.GenerateResponse(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestGeminiGenerateResponse(t *testing.T) {
	var path, raw string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		raw = string(body)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"gemini says hi"}]}}]}`))
	}))
	defer server.Close()

	cfg := DefaultGeminiConfig("gem-key")
	cfg.BaseURL = server.URL
	cfg.Model = "gem-model"
	c := NewGeminiClientWithConfig(cfg)

	reply, err := c.GenerateResponse(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "gemini says hi", reply)
	assert.True(t, strings.HasSuffix(path, "/models/gem-model:generateContent"))
	assert.Contains(t, raw, `"hello"`)
}

func TestGeminiAnalyzeImageInlinesData(t *testing.T) {
	var raw string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		raw = string(body)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"a desktop"}]}}]}`))
	}))
	defer server.Close()

	cfg := DefaultGeminiConfig("gem-key")
	cfg.BaseURL = server.URL
	c := NewGeminiClientWithConfig(cfg)

	reply, err := c.AnalyzeImage(context.Background(), []byte("png-bytes"), "describe")
	require.NoError(t, err)
	assert.Equal(t, "a desktop", reply)
	assert.Contains(t, raw, "inline_data")
	assert.Contains(t, raw, "image/png")
}

func TestGeminiRequiresAPIKey(t *testing.T) {
	cfg := DefaultGeminiConfig("")
	c := NewGeminiClientWithConfig(cfg)
	_, err := c.GenerateResponse(context.Background(), "hello")
	assert.Error(t, err)
}

func TestGeminiNoCandidatesIsNoReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	cfg := DefaultGeminiConfig("gem-key")
	cfg.BaseURL = server.URL
	c := NewGeminiClientWithConfig(cfg)

	reply, err := c.GenerateResponse(context.Background(), "hello")
	require.NoError(t, err)
	assert.Empty(t, reply)
}
