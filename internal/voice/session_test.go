package voice

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	events    chan *SpeechEvent
	closed    chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	sent [][]byte
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		events: make(chan *SpeechEvent, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeStream) Send(ctx context.Context, audio []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, audio)
	return nil
}

func (f *fakeStream) Recv(ctx context.Context) (*SpeechEvent, error) {
	select {
	case evt, ok := <-f.events:
		if !ok {
			return nil, io.EOF
		}
		return evt, nil
	case <-f.closed:
		return nil, errors.New("stream closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeStream) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeStream) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureSink) Emit(evt Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *captureSink) byType(typ string) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, evt := range c.events {
		if evt.Type == typ {
			out = append(out, evt)
		}
	}
	return out
}

func (c *captureSink) waitFor(t *testing.T, typ string, n int) []Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if evts := c.byType(typ); len(evts) >= n {
			return evts
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d %q events", n, typ)
	return nil
}

func runSession(t *testing.T, stream SpeechStream, sink EventSink) (*Session, chan struct{}) {
	t.Helper()
	s := NewSession("test-session", stream, sink, nil)
	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()
	return s, done
}

func TestSessionEmitsTranscriptsAndStats(t *testing.T) {
	stream := newFakeStream()
	sink := &captureSink{}
	s, done := runSession(t, stream, sink)

	stream.events <- &SpeechEvent{UserTranscript: "Hello "}
	stream.events <- &SpeechEvent{UserTranscript: "there"}
	stream.events <- &SpeechEvent{ModelTranscript: "Hi!"}
	stream.events <- &SpeechEvent{InputTokens: 5, OutputTokens: 9}
	stream.events <- &SpeechEvent{TurnComplete: true}
	// Processed after the turn above; seeing it proves the turn was folded
	// into the history before the session stops.
	stream.events <- &SpeechEvent{UserTranscript: "next"}

	usage := sink.waitFor(t, EventTokenUsage, 1)
	require.Equal(t, 1, usage[0].Turn)
	require.Equal(t, 5, usage[0].InputTokens)
	require.Equal(t, 9, usage[0].OutputTokens)
	require.Equal(t, 5, usage[0].TotalInput)
	require.Equal(t, 9, usage[0].TotalOutput)

	transcripts := sink.waitFor(t, EventTranscript, 3)
	require.Equal(t, "user", transcripts[0].Role)
	require.Equal(t, "Hello ", transcripts[0].Text)
	responses := sink.waitFor(t, EventResponse, 1)
	require.Equal(t, "assistant", responses[0].Role)

	s.Stop()
	<-done

	stats := sink.byType(EventStats)
	require.Len(t, stats, 1)
	payload := stats[0].Payload.(map[string]interface{})
	require.Equal(t, "test-session", payload["session_id"])
	require.Equal(t, 1, payload["turn_count"])
	require.Equal(t, 2, payload["message_count"])
	require.Equal(t, 5, payload["total_input_tokens"])
	require.Equal(t, 9, payload["total_output_tokens"])
}

func TestSessionEmitsAudioChunks(t *testing.T) {
	stream := newFakeStream()
	sink := &captureSink{}
	s, done := runSession(t, stream, sink)

	stream.events <- &SpeechEvent{Audio: []byte{1, 2, 3}}

	chunks := sink.waitFor(t, EventAudioChunk, 1)
	require.Equal(t, "AQID", chunks[0].Audio)
	require.Equal(t, "linear16", chunks[0].Encoding)
	require.Equal(t, ReceiveSampleRate, chunks[0].SampleRate)

	s.Stop()
	<-done
}

func TestSessionForwardAudio(t *testing.T) {
	stream := newFakeStream()
	sink := &captureSink{}
	s, done := runSession(t, stream, sink)

	require.NoError(t, s.ForwardAudio(context.Background(), []byte{9}))
	require.Equal(t, 1, stream.sentCount())

	// Chunks arriving while the model speaks are dropped.
	s.aiSpeaking.Store(true)
	require.NoError(t, s.ForwardAudio(context.Background(), []byte{9}))
	require.Equal(t, 1, stream.sentCount())

	s.Stop()
	<-done
}

func TestSessionBackendFailureStopsSession(t *testing.T) {
	stream := newFakeStream()
	sink := &captureSink{}
	_, done := runSession(t, stream, sink)

	close(stream.events)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop after backend failure")
	}
	errs := sink.byType(EventError)
	require.Len(t, errs, 1)
	require.Equal(t, "voice backend connection lost", errs[0].Message)
}
