package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
)

const (
	inputTypeQuery    = "query"
	inputTypeDocument = "document"

	defaultBatchSize = 128
	queryCacheSize   = 4096
	queryCacheTTL    = 2 * time.Hour
)

// Embedder is the gateway between text and fixed-length vectors. Document
// embedding is batched to respect upstream payload limits; query vectors
// are cached so repeated questions cost no tokens. Token counts are
// returned per call, never accumulated in shared state.
type Embedder struct {
	provider  IEmbedProvider
	model     string
	batchSize int
	cache     *expirable.LRU[string, []float32]
}

func NewEmbedder(provider IEmbedProvider, model string, batchSize int) *Embedder {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Embedder{
		provider:  provider,
		model:     model,
		batchSize: batchSize,
		cache:     expirable.NewLRU[string, []float32](queryCacheSize, nil, queryCacheTTL),
	}
}

func (e *Embedder) ModelName() string {
	return e.model
}

// EmbedQuery embeds a single query text. A cache hit reports zero tokens.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, int, error) {
	key := e.cacheKey(text)
	if vec, ok := e.cache.Get(key); ok {
		return vec, 0, nil
	}
	vectors, tokens, err := e.provider.Embed(ctx, e.model, []string{text}, inputTypeQuery)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", appErr.ErrEmbedding, err)
	}
	if len(vectors) != 1 {
		return nil, 0, fmt.Errorf("%w: expected 1 vector, got %d", appErr.ErrEmbedding, len(vectors))
	}
	e.cache.Add(key, vectors[0])
	return vectors[0], tokens, nil
}

// EmbedDocuments embeds texts in batches. Any batch failure aborts the
// whole call; callers decide whether to retry the entire set.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, int, error) {
	logger := logutil.GetLogger(ctx)
	vectors := make([][]float32, 0, len(texts))
	totalTokens := 0
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, tokens, err := e.provider.Embed(ctx, e.model, texts[start:end], inputTypeDocument)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: batch %d: %v", appErr.ErrEmbedding, start/e.batchSize+1, err)
		}
		vectors = append(vectors, batch...)
		totalTokens += tokens
		logger.Debug("embedded document batch",
			zap.Int("batch", start/e.batchSize+1),
			zap.Int("size", end-start),
			zap.Int("tokens", tokens),
		)
	}
	return vectors, totalTokens, nil
}

func (e *Embedder) cacheKey(text string) string {
	hash := sha256.Sum256([]byte(e.model + "|" + text))
	return hex.EncodeToString(hash[:])
}
