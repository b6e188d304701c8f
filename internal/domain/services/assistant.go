package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"grchub/internal/config"
	"grchub/pkg/logger"
)

const assistantSystemPrompt = `You are a governance, risk and compliance assistant. ` +
	`Answer questions about risk management practice concisely. ` +
	`If asked about specific register entries you cannot see, say so.`

const assistantApology = "Sorry, I can't help with that right now. Please try again in a moment."

// Assistant answers free-form GRC questions through an OpenAI-compatible
// chat completions API. A collaborator failure is degraded to an apology
// string rather than surfaced as an error, so the caller always gets a
// well-formed reply.
type Assistant struct {
	httpClient *http.Client
	config     config.AssistantConfig
	logger     *logger.Logger
}

// NewAssistant creates a new Assistant
func NewAssistant(cfg config.AssistantConfig, log *logger.Logger) *Assistant {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	return &Assistant{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		logger:     log.WithComponent("assistant"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Ask sends a question to the text-generation collaborator and returns the
// answer, or the apology string if the collaborator is disabled or fails.
func (a *Assistant) Ask(ctx context.Context, question string) string {
	if !a.config.Enabled {
		return assistantApology
	}

	answer, err := a.complete(ctx, question)
	if err != nil {
		a.logger.Error().Err(err).Msg("assistant completion failed")
		return assistantApology
	}
	return answer
}

func (a *Assistant) complete(ctx context.Context, question string) (string, error) {
	payload := chatRequest{
		Model: a.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: assistantSystemPrompt},
			{Role: "user", Content: question},
		},
		Temperature: a.config.Temperature,
		MaxTokens:   a.config.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("completion API returned status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to parse completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
