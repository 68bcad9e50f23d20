// Package voice manages long-lived bidirectional audio sessions: client
// audio is streamed to a speech backend, backend audio and transcripts
// are streamed back as typed events.
package voice

const (
	EventTranscript = "transcript"
	EventResponse   = "response"
	EventAudioChunk = "audio_chunk"
	EventTokenUsage = "token_usage"
	EventError      = "error"
	EventAnalysis   = "transcript_analysis"
	EventStats      = "session_stats"
)

// Event is one message pushed to the client transport. Fields are
// populated per type; unused ones are omitted on the wire.
type Event struct {
	Type         string      `json:"type"`
	Text         string      `json:"text,omitempty"`
	Role         string      `json:"role,omitempty"`
	Audio        string      `json:"audio,omitempty"`
	Encoding     string      `json:"encoding,omitempty"`
	SampleRate   int         `json:"sample_rate,omitempty"`
	Turn         int         `json:"turn,omitempty"`
	InputTokens  int         `json:"input_tokens,omitempty"`
	OutputTokens int         `json:"output_tokens,omitempty"`
	TotalInput   int         `json:"total_input,omitempty"`
	TotalOutput  int         `json:"total_output,omitempty"`
	Message      string      `json:"message,omitempty"`
	Payload      interface{} `json:"payload,omitempty"`
}

// EventSink delivers events to the client transport. Implementations
// must be safe for use from multiple session goroutines.
type EventSink interface {
	Emit(evt Event) error
}
