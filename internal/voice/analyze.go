package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xxxsen/docchat/internal/ai"
	"github.com/xxxsen/docchat/internal/pkg/jsonx"
)

const analysisPromptTemplate = `You are an expert business analyst. Analyze the following voice conversation between a user and an assistant and extract structured insights.

Conversation:
%s

Respond with a single JSON object:
{
  "summary": "<2-3 sentence summary of the conversation>",
  "topics": ["<topic>", ...],
  "sentiment": "positive" | "neutral" | "negative",
  "action_items": ["<follow-up the user asked for>", ...]
}`

// Analyzer produces a structured post-session report from the
// conversation transcript.
type Analyzer struct {
	provider ai.IGenProvider
	model    string
}

func NewAnalyzer(provider ai.IGenProvider, model string) *Analyzer {
	return &Analyzer{provider: provider, model: model}
}

func (a *Analyzer) Analyze(ctx context.Context, history []turnEntry) (map[string]interface{}, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("no conversation history")
	}
	lines := make([]string, 0, len(history))
	for _, entry := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(entry.Role), entry.Content))
	}
	prompt := fmt.Sprintf(analysisPromptTemplate, strings.Join(lines, "\n"))

	raw, err := a.provider.Generate(ctx, a.model, prompt)
	if err != nil {
		return nil, fmt.Errorf("analyze transcript: %w", err)
	}
	result := map[string]interface{}{}
	if err := json.Unmarshal([]byte(jsonx.CleanJSONString(raw)), &result); err != nil {
		// Keep the report even when the model ignored the JSON contract.
		result = map[string]interface{}{"raw_analysis": raw}
	}
	result["message_count"] = len(history)
	return result, nil
}
