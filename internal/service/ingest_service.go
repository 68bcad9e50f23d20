package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docchat/internal/ai"
	"github.com/xxxsen/docchat/internal/chunker"
	"github.com/xxxsen/docchat/internal/filestore"
	"github.com/xxxsen/docchat/internal/index"
	"github.com/xxxsen/docchat/internal/model"
	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
)

// IngestService turns one uploaded document into indexed chunks: page
// extraction, chunking, embedding, upsert, plus archiving the raw
// payload so the original can be re-fetched later.
type IngestService struct {
	chunker  *chunker.Chunker
	embedder *ai.Embedder
	store    *index.Store
	files    filestore.Store
}

func NewIngestService(ck *chunker.Chunker, embedder *ai.Embedder, store *index.Store, files filestore.Store) *IngestService {
	return &IngestService{chunker: ck, embedder: embedder, store: store, files: files}
}

func (s *IngestService) Ingest(ctx context.Context, req *model.IngestRequest) (*model.IngestResponse, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("file_id", req.FileID), zap.String("file_name", req.FileName))
	if req.FileID == "" || req.FileName == "" {
		return nil, fmt.Errorf("%w: file_id and file_name are required", appErr.ErrInvalid)
	}
	pages, err := s.resolvePages(req)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no page text to ingest", appErr.ErrInvalid)
	}

	filePath, err := s.archive(ctx, req)
	if err != nil {
		logger.Error("failed to archive payload", zap.Error(err))
		return nil, err
	}

	docs, err := s.chunker.Chunk(ctx, pages, req.FileID, req.FileName, filePath)
	if err != nil {
		return nil, err
	}
	rsp := &model.IngestResponse{
		FileID:   req.FileID,
		FileName: req.FileName,
		FilePath: filePath,
	}
	if len(docs) == 0 {
		logger.Warn("document produced no chunks")
		return rsp, nil
	}

	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		texts = append(texts, doc.Content)
	}
	vectors, embedTokens, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	rsp.TokenUsage.EmbeddingTokens = embedTokens

	if err := s.store.Upsert(ctx, docs, vectors); err != nil {
		return nil, err
	}
	rsp.ChunksStored = len(docs)
	logger.Info("document ingested",
		zap.Int("pages", len(pages)),
		zap.Int("chunks", len(docs)),
		zap.Int("embedding_tokens", embedTokens),
	)
	return rsp, nil
}

// Delete removes every indexed chunk of the file. Unknown ids are a
// no-op returning count 0.
func (s *IngestService) Delete(ctx context.Context, fileID string) (int64, error) {
	if fileID == "" {
		return 0, fmt.Errorf("%w: file_id is required", appErr.ErrInvalid)
	}
	count, err := s.store.DeleteByFileID(ctx, fileID)
	if err != nil {
		return 0, err
	}
	logutil.GetLogger(ctx).Info("document chunks deleted",
		zap.String("file_id", fileID),
		zap.Int64("count", count),
	)
	return count, nil
}

// resolvePages prefers pre-extracted page texts; otherwise the payload
// is parsed according to its declared format.
func (s *IngestService) resolvePages(req *model.IngestRequest) ([]string, error) {
	if len(req.Pages) > 0 {
		return req.Pages, nil
	}
	if req.Payload == "" {
		return nil, nil
	}
	switch strings.ToLower(req.Format) {
	case "xhtml", "html":
		pages, err := chunker.PagesFromXHTML(req.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: parse xhtml payload: %v", appErr.ErrInvalid, err)
		}
		return pages, nil
	case "markdown", "md":
		return []string{chunker.TextFromMarkdown(req.Payload)}, nil
	default:
		return []string{req.Payload}, nil
	}
}

func (s *IngestService) archive(ctx context.Context, req *model.IngestRequest) (string, error) {
	key := path.Join("documents", req.FileID, req.FileName)
	if s.files == nil || req.Payload == "" {
		return key, nil
	}
	reader := filestore.BytesReader([]byte(req.Payload))
	if err := s.files.Save(ctx, key, reader, int64(len(req.Payload))); err != nil {
		return "", fmt.Errorf("archive payload: %w", err)
	}
	return key, nil
}
