package errors

import "errors"

var (
	ErrInvalid          = errors.New("invalid")
	ErrNotFound         = errors.New("not found")
	ErrTooMany          = errors.New("too many requests")
	ErrInternal         = errors.New("internal")
	ErrChunking         = errors.New("chunking failed")
	ErrEmbedding        = errors.New("embedding failed")
	ErrRerank           = errors.New("rerank failed")
	ErrIndexUnavailable = errors.New("vector index unavailable")
	ErrToolExecution    = errors.New("tool execution failed")
	ErrModelCall        = errors.New("model call failed")
	ErrUnavailable      = errors.New("provider unavailable")
)

func IsIndexUnavailable(err error) bool {
	return errors.Is(err, ErrIndexUnavailable)
}

func IsModelCall(err error) bool {
	return errors.Is(err, ErrModelCall)
}
