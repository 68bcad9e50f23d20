// Package rag runs the tool-calling conversation that answers one user
// query and resolves the answer's citations against retrieved context.
package rag

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docchat/internal/ai"
	"github.com/xxxsen/docchat/internal/model"
	"github.com/xxxsen/docchat/internal/tools"
)

// Chain drives at most one round of tool execution per request: a first
// model call decides on tools, their results are fed back, a second call
// produces the final answer. No multi-hop chaining, which keeps latency
// and token cost bounded.
type Chain struct {
	provider ai.IChatProvider
	model    string
	registry *tools.Registry
	retry    ai.RetryConfig
}

func NewChain(provider ai.IChatProvider, model string, registry *tools.Registry, retry ai.RetryConfig) *Chain {
	return &Chain{provider: provider, model: model, registry: registry, retry: retry}
}

// Result carries the raw final answer, the ordered context gathered by
// tool execution and the request's accumulated token usage. The context
// holds the last retrieval call's items first, then the items of other
// tools; that order is the citation join key and must not be changed
// afterwards.
type Result struct {
	Answer  string
	Context []model.ContextItem
	Usage   model.TokenUsage
}

func (c *Chain) Run(ctx context.Context, userQuery string, fileIDs []string) (*Result, error) {
	logger := logutil.GetLogger(ctx)
	messages := []ai.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userQuery},
	}
	res := &Result{}

	first, err := ai.ChatWithRetry(ctx, c.provider, c.retry, c.model, messages, c.registry.Schemas(), "auto")
	if err != nil {
		return nil, err
	}
	res.Usage.LLMInputTokens += first.InputTokens
	res.Usage.LLMOutputTokens += first.OutputTokens

	if len(first.ToolCalls) == 0 {
		logger.Info("no tool calls, using direct answer")
		res.Answer = first.Content
		return res, nil
	}

	logger.Info("executing tool calls", zap.Int("count", len(first.ToolCalls)))
	var retrieved, extra []model.ContextItem
	for _, call := range first.ToolCalls {
		args := c.patchRetrieveArgs(ctx, call, fileIDs)

		// The assistant message carrying the call id must precede its
		// tool message or the follow-up model call is rejected.
		messages = append(messages, ai.ChatMessage{
			Role:      "assistant",
			ToolCalls: []ai.ToolCall{call},
		})

		toolRes := c.registry.Dispatch(ctx, call.Function.Name, args)
		res.Usage.Add(toolRes.Usage)

		text := toolRes.Text
		if call.Function.Name == tools.NameRetrieveDocuments {
			// Reference numbers label retrieval Context blocks, so only
			// the latest retrieval result may occupy those positions.
			retrieved = toolRes.Items
			text = fmt.Sprintf("\n**Retrieved Context:**\n%s\n", text)
		} else {
			extra = append(extra, toolRes.Items...)
		}
		messages = append(messages, ai.ChatMessage{
			Role:       "tool",
			ToolCallID: call.ID,
			Content:    text,
		})
	}
	res.Context = append(res.Context, retrieved...)
	res.Context = append(res.Context, extra...)

	final, err := ai.ChatWithRetry(ctx, c.provider, c.retry, c.model, messages, nil, "")
	if err != nil {
		return nil, err
	}
	res.Usage.LLMInputTokens += final.InputTokens
	res.Usage.LLMOutputTokens += final.OutputTokens
	res.Answer = final.Content
	return res, nil
}

// patchRetrieveArgs scopes retrieval to the request's file set when the
// model did not pick files itself.
func (c *Chain) patchRetrieveArgs(ctx context.Context, call ai.ToolCall, fileIDs []string) json.RawMessage {
	raw := json.RawMessage(call.Function.Arguments)
	if call.Function.Name != tools.NameRetrieveDocuments || len(fileIDs) == 0 {
		return raw
	}
	var args map[string]interface{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return raw
	}
	if v, ok := args["file_ids"].([]interface{}); ok && len(v) > 0 {
		return raw
	}
	args["file_ids"] = fileIDs
	patched, err := json.Marshal(args)
	if err != nil {
		return raw
	}
	logutil.GetLogger(ctx).Debug("scoped retrieval to request files", zap.Strings("file_ids", fileIDs))
	return patched
}
