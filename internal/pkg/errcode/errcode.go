package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrInvalid
	ErrNotFound
	ErrTooMany
	ErrInternal
	ErrChunkingFailed
	ErrEmbeddingFailed
	ErrIndexUnavailable
	ErrModelCallFailed
	ErrAIUnavailable
)
