package llm

import (
	"context"
	"strings"

	"smartcalendar/config"
	"smartcalendar/models"

	"go.uber.org/zap"
)

// Client is what every provider implements.
type Client interface {
	Complete(ctx context.Context, prompt string, priorTurns []models.ChatMessage) (string, error)
}

// NewFromConfig builds the client selected by LLM_PROVIDER. It returns nil for
// "none", in which case every turn goes through the fallback parser.
func NewFromConfig(logger *zap.Logger) Client {
	c := config.AppConfig
	base := Config{
		Temperature: c.LLMTemperature,
		MaxTokens:   c.LLMMaxTokens,
		Timeout:     config.LLMTimeout(),
		MaxRetries:  c.LLMMaxRetries,
	}

	switch strings.ToLower(c.LLMProvider) {
	case "none", "":
		logger.Info("No language model configured, using fallback parser only")
		return nil
	case "gemini":
		base.APIKey = c.GeminiAPIKey
		base.Model = c.GeminiModel
		logger.Info("Using Gemini language model", zap.String("model", base.Model))
		return NewGeminiClient(base)
	default:
		if c.LLMProvider != "deepseek" {
			logger.Warn("Unknown LLM_PROVIDER, defaulting to deepseek", zap.String("provider", c.LLMProvider))
		}
		base.APIKey = c.DeepSeekAPIKey
		base.BaseURL = c.DeepSeekAPIURL
		base.Model = c.DeepSeekModel
		logger.Info("Using DeepSeek language model", zap.String("model", base.Model), zap.Bool("keyConfigured", base.APIKey != ""))
		return NewDeepSeekClient(base, logger)
	}
}
