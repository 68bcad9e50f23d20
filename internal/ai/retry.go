package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
)

// RetryConfig bounds the exponential backoff applied to chat model calls.
// Other upstream calls (embedding, rerank, tools) are not retried; their
// failures degrade at the caller.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      int
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     4,
		InitialInterval: 2 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2,
	}
}

// ChatWithRetry runs one chat completion, retrying transient failures.
// After exhausting attempts the error wraps ErrModelCall so callers can
// surface it as a service failure.
func ChatWithRetry(ctx context.Context, provider IChatProvider, cfg RetryConfig, model string, messages []ChatMessage, tools []map[string]any, toolChoice string) (*ChatResult, error) {
	logger := logutil.GetLogger(ctx)
	delay := cfg.InitialInterval
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		resp, err := provider.ChatCompletion(ctx, model, messages, tools, toolChoice)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryableError(err) {
			return nil, fmt.Errorf("%w: %v", appErr.ErrModelCall, err)
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		logger.Warn("chat call failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", appErr.ErrModelCall, ctx.Err())
		case <-time.After(delay):
			delay = delay * time.Duration(cfg.Multiplier)
			if delay > cfg.MaxInterval {
				delay = cfg.MaxInterval
			}
		}
	}
	return nil, fmt.Errorf("%w: %d attempts exhausted: %v", appErr.ErrModelCall, cfg.MaxAttempts, lastErr)
}

func retryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, appErr.ErrUnavailable) {
		// Missing credentials never heal on retry.
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"rate limit", "quota exceeded", "429",
		"500", "502", "503", "504", "unavailable",
		"connection reset", "timeout", "temporary",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
