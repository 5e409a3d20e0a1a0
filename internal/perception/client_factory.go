package perception

import (
	"fmt"

	"deskmate/internal/config"
)

// NewModelClient creates the model client for the configured provider.
func NewModelClient(cfg *config.Config) (ModelClient, error) {
	switch cfg.LLM.Provider {
	case "openai", "":
		oc := DefaultOpenAIConfig(cfg.LLM.APIKey)
		if cfg.LLM.BaseURL != "" {
			oc.BaseURL = cfg.LLM.BaseURL
		}
		oc.Model = cfg.LLM.Model
		oc.VisionModel = cfg.LLM.VisionModel
		oc.MultimodalModel = cfg.LLM.MultimodalModel
		oc.Timeout = cfg.GetLLMTimeout()
		return NewOpenAIClientWithConfig(oc), nil

	case "gemini":
		gc := DefaultGeminiConfig(cfg.LLM.APIKey)
		if cfg.LLM.BaseURL != "" && cfg.LLM.BaseURL != config.DefaultConfig().LLM.BaseURL {
			gc.BaseURL = cfg.LLM.BaseURL
		}
		if cfg.LLM.Model != "" {
			gc.Model = cfg.LLM.Model
		}
		if cfg.LLM.VisionModel != "" {
			gc.VisionModel = cfg.LLM.VisionModel
		}
		if cfg.LLM.MultimodalModel != "" {
			gc.MultimodalModel = cfg.LLM.MultimodalModel
		}
		gc.Timeout = cfg.GetLLMTimeout()
		return NewGeminiClientWithConfig(gc), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLM.Provider)
	}
}
