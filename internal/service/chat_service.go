package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docchat/internal/model"
	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
	"github.com/xxxsen/docchat/internal/rag"
)

// ChatService answers one user query through the tool-calling chain and
// formats the result with citations and token usage.
type ChatService struct {
	chain *rag.Chain
}

func NewChatService(chain *rag.Chain) *ChatService {
	return &ChatService{chain: chain}
}

func (s *ChatService) Chat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	logger := logutil.GetLogger(ctx)
	query := strings.TrimSpace(req.UserQuery)
	if query == "" {
		return nil, fmt.Errorf("%w: user_query is required", appErr.ErrInvalid)
	}
	result, err := s.chain.Run(ctx, query, req.FileIDs)
	if err != nil {
		logger.Error("chat chain failed", zap.Error(err))
		return nil, err
	}
	rsp := rag.BuildResponse(result.Answer, result.Context, result.Usage, true)
	logger.Info("chat answered",
		zap.Int("context_items", len(result.Context)),
		zap.Int("citations", len(rsp.MetaData)),
		zap.Int("llm_input_tokens", rsp.TokenUsage.LLMInputTokens),
		zap.Int("llm_output_tokens", rsp.TokenUsage.LLMOutputTokens),
	)
	return rsp, nil
}
