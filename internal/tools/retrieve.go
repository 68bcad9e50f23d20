package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docchat/internal/ai"
	"github.com/xxxsen/docchat/internal/index"
	"github.com/xxxsen/docchat/internal/model"
	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
)

const (
	NameRetrieveDocuments = "retrieve_documents"

	// SourceRetrieval marks context items produced by the document index.
	SourceRetrieval = "retrieval"

	noDocumentsText = "No relevant documents found."

	defaultSearchK = 10
)

type retrieveArgs struct {
	Query   string   `json:"query"`
	FileIDs []string `json:"file_ids"`
}

// RetrieveTool runs the embed, search, rerank pipeline against the
// vector index and formats the survivors as numbered context blocks.
type RetrieveTool struct {
	embedder *ai.Embedder
	reranker *ai.Reranker
	store    *index.Store
	searchK  int
}

func NewRetrieveTool(embedder *ai.Embedder, reranker *ai.Reranker, store *index.Store, searchK int) *RetrieveTool {
	if searchK <= 0 {
		searchK = defaultSearchK
	}
	return &RetrieveTool{embedder: embedder, reranker: reranker, store: store, searchK: searchK}
}

func (t *RetrieveTool) Name() string {
	return NameRetrieveDocuments
}

func (t *RetrieveTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "function",
		"function": map[string]interface{}{
			"name":        NameRetrieveDocuments,
			"description": "Retrieve relevant documents from the knowledge base to answer user questions. Use this when the user asks about specific documents or topics that might be in the uploaded files.",
			"parameters": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "The search query to find relevant documents",
					},
					"file_ids": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Optional list of specific file IDs to search within",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

func (t *RetrieveTool) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	logger := logutil.GetLogger(ctx)
	params := &retrieveArgs{}
	if err := json.Unmarshal(args, params); err != nil {
		return nil, fmt.Errorf("decode retrieve args: %w", err)
	}
	if params.Query == "" {
		return nil, fmt.Errorf("%w: empty retrieval query", appErr.ErrInvalid)
	}

	res := &Result{}
	vector, embedTokens, err := t.embedder.EmbedQuery(ctx, params.Query)
	if err != nil {
		return nil, err
	}
	res.Usage.EmbeddingTokens += embedTokens

	hits, err := t.store.Search(ctx, vector, t.searchK, params.FileIDs)
	if err != nil {
		if appErr.IsIndexUnavailable(err) {
			// An empty or unreachable index is an answerable condition,
			// not a request failure.
			logger.Warn("index unavailable, degrading to empty retrieval", zap.Error(err))
			res.Text = noDocumentsText
			return res, nil
		}
		return nil, err
	}
	if len(hits) == 0 {
		res.Text = noDocumentsText
		return res, nil
	}

	texts := make([]string, 0, len(hits))
	for _, hit := range hits {
		texts = append(texts, hit.Document.Content)
	}
	ranked, rerankTokens, err := t.reranker.Rerank(ctx, params.Query, texts)
	if err != nil {
		return nil, err
	}
	res.Usage.RerankTokens += rerankTokens

	for _, rr := range ranked {
		doc := hits[rr.Index].Document
		res.Items = append(res.Items, model.ContextItem{
			Text:     doc.Content,
			Exact:    doc.Metadata.ExactData,
			Page:     doc.Metadata.PageNumber,
			FileID:   doc.Metadata.FileID,
			FileName: doc.Metadata.FileName,
			FilePath: doc.Metadata.FilePath,
			Source:   SourceRetrieval,
			Score:    rr.Score,
		})
	}
	res.Text = formatContextBlocks(res.Items)
	logger.Info("retrieval finished",
		zap.String("query", params.Query),
		zap.Int("candidates", len(hits)),
		zap.Int("kept", len(res.Items)),
	)
	return res, nil
}

// formatContextBlocks renders the ordered context list as the numbered
// blocks the prompt contract expects. Numbering is 1-based; the citation
// resolver relies on block N mapping to item N-1.
func formatContextBlocks(items []model.ContextItem) string {
	if len(items) == 0 {
		return noDocumentsText
	}
	blocks := make([]string, 0, len(items))
	for i, item := range items {
		blocks = append(blocks, fmt.Sprintf(
			"Context %d:\n  Document: %s\n  Reference: %v\n  Content: %s\n",
			i+1, item.FileName, item.Page, item.Text,
		))
	}
	return strings.Join(blocks, "\n")
}
