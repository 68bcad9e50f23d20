package voice

import "context"

// SpeechEvent is one unit of backend output: audio to play, a
// transcript fragment for either speaker, or turn bookkeeping.
type SpeechEvent struct {
	Audio           []byte
	UserTranscript  string
	ModelTranscript string
	InputTokens     int
	OutputTokens    int
	TurnComplete    bool
}

// SpeechStream is an open bidirectional connection to a speech model.
type SpeechStream interface {
	Send(ctx context.Context, audio []byte) error
	Recv(ctx context.Context) (*SpeechEvent, error)
	Close() error
}

type SpeechDialer interface {
	Dial(ctx context.Context) (SpeechStream, error)
}
