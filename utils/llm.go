package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"collectra/config"
	"collectra/engine"
)

// GenerationClient talks to an OpenAI-compatible chat-completions API
// and implements engine.Generator. The model is asked for a JSON
// object matching the channel's output contract; anything else is a
// per-step failure for the caller to record.
type GenerationClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *log.Logger
}

func NewGenerationClient(logger *log.Logger) *GenerationClient {
	cfg := config.AppConfig.Generation
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &GenerationClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.APIURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (gc *GenerationClient) Generate(ctx context.Context, req engine.GenerationRequest) (*engine.GenerationResult, error) {
	body := chatRequest{
		Model: gc.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemInstructions},
			{Role: "user", Content: req.UserInstructions},
		},
		Temperature: 0.7,
	}
	body.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		gc.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+gc.apiKey)

	resp, err := gc.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generation backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading generation response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("malformed generation response (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return nil, fmt.Errorf("generation backend error: %s", parsed.Error.Message)
		}
		return nil, fmt.Errorf("generation backend returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("generation backend returned no choices")
	}

	var result engine.GenerationResult
	content := parsed.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("generation output is not the expected JSON shape: %w", err)
	}

	if req.Channel == "sms" {
		if n := utf8.RuneCountInString(result.Body); n > 160 {
			gc.logger.Printf("SMS generation exceeded 160 chars (%d), truncating", n)
			result.Body = truncateSMSBody(result.Body)
		}
	}

	return &result, nil
}

// truncateSMSBody caps an SMS body at 160 characters, cutting on a
// rune boundary so a multibyte character is never split.
func truncateSMSBody(body string) string {
	runes := []rune(body)
	if len(runes) <= 160 {
		return body
	}
	return string(runes[:160])
}
