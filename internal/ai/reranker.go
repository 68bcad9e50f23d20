package ai

import (
	"context"
	"fmt"

	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
)

// Reranker re-scores a candidate set against the query with a
// cross-encoder model. It receives bare text to keep the request small;
// every result keeps the original candidate index so callers can recover
// full metadata.
type Reranker struct {
	provider IRerankProvider
	model    string
	topK     int
}

func NewReranker(provider IRerankProvider, model string, topK int) *Reranker {
	if topK <= 0 {
		topK = 6
	}
	return &Reranker{provider: provider, model: model, topK: topK}
}

func (r *Reranker) TopK() int {
	return r.topK
}

// Rerank returns up to topK results ordered by descending relevance,
// together with the rerank token cost.
func (r *Reranker) Rerank(ctx context.Context, query string, docs []string) ([]RerankResult, int, error) {
	if len(docs) == 0 {
		return nil, 0, nil
	}
	results, tokens, err := r.provider.Rerank(ctx, r.model, query, docs, r.topK)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", appErr.ErrRerank, err)
	}
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(docs) {
			return nil, 0, fmt.Errorf("%w: result index %d out of range", appErr.ErrRerank, res.Index)
		}
	}
	if len(results) > r.topK {
		results = results[:r.topK]
	}
	return results, tokens, nil
}
