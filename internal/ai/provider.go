package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ChatMessage is one entry of the conversation sent to a chat provider.
// A tool message must reference the id of the assistant tool call that
// produced it.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatResult carries the provider's answer plus its token usage for the
// single call; callers aggregate across calls.
type ChatResult struct {
	Content      string
	ToolCalls    []ToolCall
	InputTokens  int
	OutputTokens int
}

type IChatProvider interface {
	Name() string
	ChatCompletion(ctx context.Context, model string, messages []ChatMessage, tools []map[string]any, toolChoice string) (*ChatResult, error)
}

type IEmbedProvider interface {
	Name() string
	// Embed returns one vector per input text plus the tokens consumed.
	Embed(ctx context.Context, model string, texts []string, inputType string) ([][]float32, int, error)
}

// RerankResult points back into the original candidate slice; losing that
// mapping corrupts citation metadata downstream.
type RerankResult struct {
	Index int
	Score float64
}

type IRerankProvider interface {
	Name() string
	Rerank(ctx context.Context, model string, query string, docs []string, topK int) ([]RerankResult, int, error)
}

// IGenProvider serves plain single-prompt generation, used by the voice
// transcript analysis path.
type IGenProvider interface {
	Name() string
	Generate(ctx context.Context, model string, prompt string) (string, error)
}

type (
	ChatFactory   func(args interface{}) (IChatProvider, error)
	EmbedFactory  func(args interface{}) (IEmbedProvider, error)
	RerankFactory func(args interface{}) (IRerankProvider, error)
	GenFactory    func(args interface{}) (IGenProvider, error)
)

var (
	chatRegistry   = map[string]ChatFactory{}
	embedRegistry  = map[string]EmbedFactory{}
	rerankRegistry = map[string]RerankFactory{}
	genRegistry    = map[string]GenFactory{}
)

func RegisterChat(name string, factory ChatFactory) {
	key := normalizeName(name)
	if key == "" || factory == nil {
		return
	}
	chatRegistry[key] = factory
}

func RegisterEmbed(name string, factory EmbedFactory) {
	key := normalizeName(name)
	if key == "" || factory == nil {
		return
	}
	embedRegistry[key] = factory
}

func RegisterRerank(name string, factory RerankFactory) {
	key := normalizeName(name)
	if key == "" || factory == nil {
		return
	}
	rerankRegistry[key] = factory
}

func RegisterGen(name string, factory GenFactory) {
	key := normalizeName(name)
	if key == "" || factory == nil {
		return
	}
	genRegistry[key] = factory
}

func NewChatProvider(name string, args interface{}) (IChatProvider, error) {
	factory := chatRegistry[normalizeName(name)]
	if factory == nil {
		return nil, fmt.Errorf("unsupported chat provider: %s", name)
	}
	return factory(args)
}

func NewEmbedProvider(name string, args interface{}) (IEmbedProvider, error) {
	factory := embedRegistry[normalizeName(name)]
	if factory == nil {
		return nil, fmt.Errorf("unsupported embed provider: %s", name)
	}
	return factory(args)
}

func NewRerankProvider(name string, args interface{}) (IRerankProvider, error) {
	factory := rerankRegistry[normalizeName(name)]
	if factory == nil {
		return nil, fmt.Errorf("unsupported rerank provider: %s", name)
	}
	return factory(args)
}

func NewGenProvider(name string, args interface{}) (IGenProvider, error) {
	factory := genRegistry[normalizeName(name)]
	if factory == nil {
		return nil, fmt.Errorf("unsupported generate provider: %s", name)
	}
	return factory(args)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
