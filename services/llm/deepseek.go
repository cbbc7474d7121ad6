package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"smartcalendar/models"

	"go.uber.org/zap"
)

// ErrUnavailable is returned when the client cannot be used at all, e.g. no API key.
var ErrUnavailable = errors.New("language model not configured")

const systemPrompt = "Você é um assistente de agendamento para uma barbearia. Interprete comandos em linguagem natural e responda apenas com o objeto JSON pedido."

// Config holds the settings shared by every provider.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// DeepSeekClient talks to an OpenAI-compatible /chat/completions endpoint.
type DeepSeekClient struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

func NewDeepSeekClient(cfg Config, logger *zap.Logger) *DeepSeekClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeepSeekClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Complete sends the system prompt, the prior turns and prompt, and returns the
// first choice's content.
func (c *DeepSeekClient) Complete(ctx context.Context, prompt string, priorTurns []models.ChatMessage) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrUnavailable
	}

	messages := make([]chatMessage, 0, len(priorTurns)+2)
	messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	for _, m := range priorTurns {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		text, retry, err := c.send(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retry {
			break
		}
		c.logger.Warn("DeepSeek request failed, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return "", lastErr
}

// send performs one request. retry reports whether the failure is transient.
func (c *DeepSeekClient) send(ctx context.Context, body []byte) (text string, retry bool, err error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", ctx.Err() == nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return "", true, fmt.Errorf("deepseek status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	case resp.StatusCode != http.StatusOK:
		return "", false, fmt.Errorf("deepseek status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", false, fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", false, fmt.Errorf("deepseek error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", false, errors.New("deepseek returned no choices")
	}
	return parsed.Choices[0].Message.Content, false, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
