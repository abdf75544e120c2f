package providers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ChamsBouzaiene/easywatch/internal/config"
	"github.com/ChamsBouzaiene/easywatch/internal/engine"
)

// New creates the LLM client selected by cfg.Provider, wrapped in the
// retrying decorator.
func New(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (engine.LLMClient, error) {
	base, err := newBase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.MaxRetries <= 0 {
		return base, nil
	}

	policy := engine.DefaultRetryPolicy()
	policy.MaxRetries = cfg.MaxRetries
	return &engine.RetryingClient{
		Next:   base,
		Policy: policy,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			if logger != nil {
				logger.Warn("retrying model call", "provider", cfg.Provider, "attempt", attempt, "delay", delay, "error", err)
			}
		},
	}, nil
}

func newBase(ctx context.Context, cfg config.LLMConfig) (engine.LLMClient, error) {
	switch cfg.Provider {
	case "groq":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY not set")
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = GroqBaseURL
		}
		return NewOpenAIClient(cfg.APIKey, baseURL), nil

	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
		return NewOpenAIClient(cfg.APIKey, cfg.BaseURL), nil

	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		return NewAnthropicClient(cfg.APIKey, cfg.BaseURL), nil

	case "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY not set")
		}
		client, err := NewGeminiClient(ctx, cfg.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return client, nil

	case "mock":
		return NewMockLLM(), nil

	default:
		return nil, fmt.Errorf("unknown llm provider: %s (supported: groq, openai, anthropic, gemini, mock)", cfg.Provider)
	}
}
