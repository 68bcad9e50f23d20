package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
)

type scriptedRerank struct {
	results []RerankResult
	tokens  int
	err     error
	gotTopK int
}

func (s *scriptedRerank) Name() string { return "scripted" }

func (s *scriptedRerank) Rerank(ctx context.Context, model string, query string, docs []string, topK int) ([]RerankResult, int, error) {
	s.gotTopK = topK
	return s.results, s.tokens, s.err
}

func TestRerankOrdersAndKeepsIndices(t *testing.T) {
	provider := &scriptedRerank{
		results: []RerankResult{{Index: 2, Score: 0.9}, {Index: 0, Score: 0.4}},
		tokens:  17,
	}
	r := NewReranker(provider, "rerank-2", 6)

	results, tokens, err := r.Rerank(context.Background(), "q", []string{"d0", "d1", "d2"})
	require.NoError(t, err)
	require.Equal(t, 17, tokens)
	require.Equal(t, 6, provider.gotTopK)
	require.Equal(t, []RerankResult{{Index: 2, Score: 0.9}, {Index: 0, Score: 0.4}}, results)
}

func TestRerankTruncatesToTopK(t *testing.T) {
	provider := &scriptedRerank{
		results: []RerankResult{{Index: 0}, {Index: 1}, {Index: 2}},
	}
	r := NewReranker(provider, "rerank-2", 2)

	results, _, err := r.Rerank(context.Background(), "q", []string{"d0", "d1", "d2"})
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestRerankRejectsOutOfRangeIndex(t *testing.T) {
	provider := &scriptedRerank{results: []RerankResult{{Index: 5}}}
	r := NewReranker(provider, "rerank-2", 6)

	_, _, err := r.Rerank(context.Background(), "q", []string{"d0"})
	require.ErrorIs(t, err, appErr.ErrRerank)
}

func TestRerankEmptyDocs(t *testing.T) {
	provider := &scriptedRerank{}
	r := NewReranker(provider, "rerank-2", 6)

	results, tokens, err := r.Rerank(context.Background(), "q", nil)
	require.NoError(t, err)
	require.Nil(t, results)
	require.Zero(t, tokens)
}

func TestRerankProviderFailure(t *testing.T) {
	provider := &scriptedRerank{err: errors.New("boom")}
	r := NewReranker(provider, "rerank-2", 6)

	_, _, err := r.Rerank(context.Background(), "q", []string{"d0"})
	require.ErrorIs(t, err, appErr.ErrRerank)
}

func TestRerankDefaultTopK(t *testing.T) {
	r := NewReranker(&scriptedRerank{}, "rerank-2", 0)
	require.Equal(t, 6, r.TopK())
}
