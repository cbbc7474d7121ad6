package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"smartcalendar/models"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiClient struct {
	cfg Config

	once   sync.Once
	client *genai.Client
	err    error
}

// NewGeminiClient defers dialing until the first call so a bad key degrades
// to the fallback parser instead of failing startup.
func NewGeminiClient(cfg Config) *GeminiClient {
	if cfg.Model == "" {
		cfg.Model = "models/gemini-1.5-pro"
	}
	return &GeminiClient{cfg: cfg}
}

func (g *GeminiClient) Complete(ctx context.Context, prompt string, priorTurns []models.ChatMessage) (string, error) {
	if g.cfg.APIKey == "" {
		return "", ErrUnavailable
	}
	g.once.Do(func() {
		g.client, g.err = genai.NewClient(context.Background(), option.WithAPIKey(g.cfg.APIKey))
	})
	if g.err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", g.err)
	}

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	model := g.client.GenerativeModel(g.cfg.Model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))
	model.SetTemperature(float32(g.cfg.Temperature))
	if g.cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(g.cfg.MaxTokens))
	}

	session := model.StartChat()
	session.History = geminiHistory(priorTurns)

	resp, err := session.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	return sb.String(), nil
}

// Close releases the underlying client, if one was created.
func (g *GeminiClient) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func geminiHistory(turns []models.ChatMessage) []*genai.Content {
	history := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == "assistant" {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(t.Content)}})
	}
	return history
}
