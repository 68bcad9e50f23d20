package model

// TokenUsage aggregates the four token counters tracked per request.
// Stages return their own deltas and callers fold them in with Add; the
// counters are never shared or mutated across goroutines.
type TokenUsage struct {
	LLMInputTokens  int `json:"llm_input_tokens"`
	LLMOutputTokens int `json:"llm_output_tokens"`
	EmbeddingTokens int `json:"embedding_tokens"`
	RerankTokens    int `json:"rerank_tokens"`
}

func (u *TokenUsage) Add(delta TokenUsage) {
	u.LLMInputTokens += delta.LLMInputTokens
	u.LLMOutputTokens += delta.LLMOutputTokens
	u.EmbeddingTokens += delta.EmbeddingTokens
	u.RerankTokens += delta.RerankTokens
}
