package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
)

const defaultDeepSeekBaseURL = "https://api.deepseek.com"

type deepseekConfig struct {
	APIKey      string  `json:"api_key"`
	BaseURL     string  `json:"base_url"`
	Temperature float64 `json:"temperature"`
}

// deepseekProvider speaks the OpenAI-compatible chat completions wire
// format with function calling support.
type deepseekProvider struct {
	apiKey      string
	baseURL     string
	temperature float64
}

type deepseekChatRequest struct {
	Model       string           `json:"model"`
	Messages    []ChatMessage    `json:"messages"`
	Temperature float64          `json:"temperature"`
	Tools       []map[string]any `json:"tools,omitempty"`
	ToolChoice  string           `json:"tool_choice,omitempty"`
	Stream      bool             `json:"stream"`
}

type deepseekChatResponse struct {
	Choices []struct {
		Message struct {
			Content   string     `json:"content"`
			ToolCalls []ToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *deepseekProvider) Name() string {
	return "deepseek"
}

func (p *deepseekProvider) ChatCompletion(ctx context.Context, model string, messages []ChatMessage, tools []map[string]any, toolChoice string) (*ChatResult, error) {
	if p.apiKey == "" {
		return nil, appErr.ErrUnavailable
	}
	endpoint := strings.TrimRight(p.baseURL, "/") + "/chat/completions"
	reqBody := deepseekChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: p.temperature,
		Stream:      false,
	}
	if len(tools) > 0 {
		reqBody.Tools = tools
		reqBody.ToolChoice = toolChoice
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("deepseek request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var out deepseekChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("deepseek response has no choices")
	}
	choice := out.Choices[0].Message
	return &ChatResult{
		Content:      strings.TrimSpace(choice.Content),
		ToolCalls:    choice.ToolCalls,
		InputTokens:  out.Usage.PromptTokens,
		OutputTokens: out.Usage.CompletionTokens,
	}, nil
}

func createDeepSeekFactory(args interface{}) (IChatProvider, error) {
	cfg := &deepseekConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultDeepSeekBaseURL
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.6
	}
	return &deepseekProvider{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		baseURL:     baseURL,
		temperature: temperature,
	}, nil
}

func init() {
	RegisterChat("deepseek", createDeepSeekFactory)
}
