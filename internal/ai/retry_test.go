package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
)

type flakyChat struct {
	failures int
	err      error
	calls    int
}

func (f *flakyChat) Name() string { return "flaky" }

func (f *flakyChat) ChatCompletion(ctx context.Context, model string, messages []ChatMessage, tools []map[string]any, toolChoice string) (*ChatResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &ChatResult{Content: "ok"}, nil
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     4 * time.Millisecond,
		Multiplier:      2,
	}
}

func TestChatWithRetryRecoversFromTransientFailure(t *testing.T) {
	provider := &flakyChat{failures: 2, err: errors.New("upstream 503 unavailable")}
	res, err := ChatWithRetry(context.Background(), provider, fastRetry(4), "m", nil, nil, "")
	require.NoError(t, err)
	require.Equal(t, "ok", res.Content)
	require.Equal(t, 3, provider.calls)
}

func TestChatWithRetryExhaustsAttempts(t *testing.T) {
	provider := &flakyChat{failures: 10, err: errors.New("rate limit exceeded")}
	_, err := ChatWithRetry(context.Background(), provider, fastRetry(3), "m", nil, nil, "")
	require.ErrorIs(t, err, appErr.ErrModelCall)
	require.Equal(t, 3, provider.calls)
}

func TestChatWithRetryNonRetryableFailsFast(t *testing.T) {
	provider := &flakyChat{failures: 10, err: errors.New("invalid request body")}
	_, err := ChatWithRetry(context.Background(), provider, fastRetry(4), "m", nil, nil, "")
	require.ErrorIs(t, err, appErr.ErrModelCall)
	require.Equal(t, 1, provider.calls)
}

func TestChatWithRetryMissingCredentialsFailsFast(t *testing.T) {
	provider := &flakyChat{failures: 10, err: fmt.Errorf("%w: api key not configured", appErr.ErrUnavailable)}
	_, err := ChatWithRetry(context.Background(), provider, fastRetry(4), "m", nil, nil, "")
	require.ErrorIs(t, err, appErr.ErrModelCall)
	require.Equal(t, 1, provider.calls)
}

func TestRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "rate limit", err: errors.New("429 Too Many Requests"), want: true},
		{name: "gateway", err: errors.New("upstream returned 502"), want: true},
		{name: "timeout", err: errors.New("context deadline: timeout"), want: true},
		{name: "bad request", err: errors.New("400 bad request"), want: false},
		{name: "unavailable sentinel", err: appErr.ErrUnavailable, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, retryableError(tc.err))
		})
	}
}
