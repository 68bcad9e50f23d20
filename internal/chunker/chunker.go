// Package chunker splits per-page document text into sentence-aware,
// word-bounded chunks suitable for embedding and retrieval.
package chunker

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docchat/internal/model"
	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
)

const (
	defaultWordLimit  = 150
	minChunkChars     = 20
	defaultMaxPageLen = 1 << 20
)

var (
	reSentence = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)
	reCitation = regexp.MustCompile(`\[\d+\]`)
	reSpaces   = regexp.MustCompile(`\s+`)
)

type Chunker struct {
	wordLimit  int
	maxPageLen int
}

type Option func(*Chunker)

func WithWordLimit(limit int) Option {
	return func(c *Chunker) {
		if limit > 0 {
			c.wordLimit = limit
		}
	}
}

func WithMaxPageLen(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxPageLen = n
		}
	}
}

func New(opts ...Option) *Chunker {
	c := &Chunker{
		wordLimit:  defaultWordLimit,
		maxPageLen: defaultMaxPageLen,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chunk converts ordered per-page texts into documents. Page numbers are
// 1-based; empty pages yield no documents. Each document carries the
// verbatim chunk text in metadata and the cleaned form in Content.
func (c *Chunker) Chunk(ctx context.Context, pages []string, fileID, fileName, filePath string) ([]model.Document, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("file_id", fileID))
	var all []model.Document
	for i, text := range pages {
		pageNumber := i + 1
		if len(text) > c.maxPageLen {
			return nil, fmt.Errorf("%w: page %d exceeds %d bytes", appErr.ErrChunking, pageNumber, c.maxPageLen)
		}
		chunks := c.chunkPage(text)
		for idx, chunk := range chunks {
			all = append(all, model.Document{
				Content: CleanText(chunk),
				Metadata: model.Metadata{
					ChunkNumber: idx + 1,
					FileID:      fileID,
					FileName:    fileName,
					FilePath:    filePath,
					PageNumber:  pageNumber,
					ExactData:   chunk,
				},
			})
		}
	}
	logger.Info("chunking completed", zap.Int("pages", len(pages)), zap.Int("chunks", len(all)))
	return all, nil
}

// chunkPage accumulates sentences until the running word count reaches the
// limit, then emits the buffer as one chunk. The trailing partial buffer
// becomes a final chunk. Chunks shorter than minChunkChars are dropped and
// exact duplicates within the page are removed, keeping first occurrence.
func (c *Chunker) chunkPage(text string) []string {
	sentences := SplitSentences(text)
	var chunks []string
	var current []string
	wordCount := 0
	for _, sent := range sentences {
		wordCount += len(strings.Fields(sent))
		current = append(current, sent)
		if wordCount >= c.wordLimit {
			if chunk := strings.Join(current, " "); len(chunk) >= minChunkChars {
				chunks = append(chunks, chunk)
			}
			current, wordCount = nil, 0
		}
	}
	if len(current) > 0 {
		if chunk := strings.Join(current, " "); len(chunk) >= minChunkChars {
			chunks = append(chunks, chunk)
		}
	}
	return dedupe(chunks)
}

func dedupe(chunks []string) []string {
	seen := make(map[string]struct{}, len(chunks))
	out := chunks[:0]
	for _, chunk := range chunks {
		if _, ok := seen[chunk]; ok {
			continue
		}
		seen[chunk] = struct{}{}
		out = append(out, chunk)
	}
	return out
}

// SplitSentences performs boundary detection on ".", "!" and "?". Text
// without terminal punctuation comes back as a single sentence.
func SplitSentences(text string) []string {
	matches := reSentence.FindAllString(text, -1)
	sentences := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimSpace(m)
		if m != "" {
			sentences = append(sentences, m)
		}
	}
	return sentences
}

// CleanText strips bracketed numeric citation markers and collapses runs
// of whitespace. It is idempotent: CleanText(CleanText(x)) == CleanText(x).
func CleanText(text string) string {
	text = reCitation.ReplaceAllString(text, "")
	text = reSpaces.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
