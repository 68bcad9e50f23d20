package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
)

type countingEmbed struct {
	calls   int
	batches [][]string
	types   []string
	err     error
}

func (c *countingEmbed) Name() string { return "counting" }

func (c *countingEmbed) Embed(ctx context.Context, model string, texts []string, inputType string) ([][]float32, int, error) {
	c.calls++
	c.batches = append(c.batches, texts)
	c.types = append(c.types, inputType)
	if c.err != nil {
		return nil, 0, c.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i]))}
	}
	return vectors, 10 * len(texts), nil
}

func TestEmbedQueryCachesVectors(t *testing.T) {
	provider := &countingEmbed{}
	e := NewEmbedder(provider, "voyage-3-large", 0)

	vec1, tokens1, err := e.EmbedQuery(context.Background(), "solar output")
	require.NoError(t, err)
	require.Equal(t, 10, tokens1)
	require.Equal(t, 1, provider.calls)
	require.Equal(t, "query", provider.types[0])

	vec2, tokens2, err := e.EmbedQuery(context.Background(), "solar output")
	require.NoError(t, err)
	require.Equal(t, vec1, vec2)
	// Cache hit costs no tokens and no provider call.
	require.Equal(t, 0, tokens2)
	require.Equal(t, 1, provider.calls)
}

func TestEmbedDocumentsBatches(t *testing.T) {
	provider := &countingEmbed{}
	e := NewEmbedder(provider, "voyage-3-large", 2)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, tokens, err := e.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 5)
	require.Equal(t, 50, tokens)
	require.Equal(t, 3, provider.calls)
	require.Equal(t, []string{"a", "bb"}, provider.batches[0])
	require.Equal(t, []string{"eeeee"}, provider.batches[2])
	require.Equal(t, "document", provider.types[0])
}

func TestEmbedDocumentsBatchFailure(t *testing.T) {
	provider := &countingEmbed{err: errors.New("payload too large")}
	e := NewEmbedder(provider, "voyage-3-large", 2)

	_, _, err := e.EmbedDocuments(context.Background(), []string{"a", "b", "c"})
	require.ErrorIs(t, err, appErr.ErrEmbedding)
}

func TestEmbedQueryProviderFailure(t *testing.T) {
	provider := &countingEmbed{err: errors.New("boom")}
	e := NewEmbedder(provider, "voyage-3-large", 0)

	_, _, err := e.EmbedQuery(context.Background(), "q")
	require.ErrorIs(t, err, appErr.ErrEmbedding)
}
