package engine

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"

	"github.com/quorumtrade/quorumtrade/internal/config"
)

// NewFromConfig builds the live reasoning engine for the configured provider.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Engine, error) {
	switch cfg.LLMProvider {
	case "openai":
		maxTokens := 8192
		baseURL := cfg.BackendURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		m, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:   baseURL,
			APIKey:    cfg.OpenAIAPIKey,
			Model:     cfg.Model,
			MaxTokens: &maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("init openai model: %w", err)
		}
		return NewChatEngine(m), nil
	case "deepseek":
		m, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:  cfg.DeepSeekAPIKey,
			Model:   cfg.Model,
			BaseURL: "https://api.deepseek.com/",
		})
		if err != nil {
			return nil, fmt.Errorf("init deepseek model: %w", err)
		}
		return NewChatEngine(m), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}
