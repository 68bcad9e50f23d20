package voice

import (
	"context"
	"encoding/base64"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const (
	audioOutQueueSize = 256
	// Idle gap after which the model is considered done speaking and
	// client audio is forwarded again.
	speakingIdleGap = 100 * time.Millisecond
)

type turnEntry struct {
	Role    string
	Content string
	Turn    int
}

// Session owns one live voice conversation. One goroutine pumps backend
// events, a second drains the audio-out queue towards the client, and
// Stop shuts both down and releases the backend connection before the
// closing transcript analysis runs.
type Session struct {
	id       string
	stream   SpeechStream
	sink     EventSink
	analyzer *Analyzer

	audioOut chan []byte
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	aiSpeaking atomic.Bool

	// Mutated by the receive loop only, read after it has exited.
	history     []turnEntry
	turnCount   int
	totalInput  int
	totalOutput int
}

func NewSession(id string, stream SpeechStream, sink EventSink, analyzer *Analyzer) *Session {
	return &Session{
		id:       id,
		stream:   stream,
		sink:     sink,
		analyzer: analyzer,
		audioOut: make(chan []byte, audioOutQueueSize),
		stop:     make(chan struct{}),
	}
}

// Run pumps the session until Stop is called, the context ends or the
// backend stream fails. It always releases the backend connection and
// finishes with the transcript analysis and session stats events.
func (s *Session) Run(ctx context.Context) {
	logger := logutil.GetLogger(ctx).With(zap.String("session_id", s.id))
	runCtx, cancel := context.WithCancel(ctx)

	s.wg.Add(2)
	go s.receiveLoop(runCtx, logger)
	go s.drainAudio(runCtx)

	select {
	case <-s.stop:
	case <-runCtx.Done():
	}
	cancel()
	// Unblocks the receive loop's pending read.
	s.stream.Close()
	s.wg.Wait()

	s.finish(ctx, logger)
}

// Stop signals the session to shut down. Safe to call multiple times.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// ForwardAudio pushes one client audio chunk to the backend. Chunks
// arriving while the model is speaking are dropped, mirroring the
// half-duplex behavior expected by the client.
func (s *Session) ForwardAudio(ctx context.Context, audio []byte) error {
	if s.aiSpeaking.Load() {
		return nil
	}
	return s.stream.Send(ctx, audio)
}

func (s *Session) receiveLoop(ctx context.Context, logger *zap.Logger) {
	defer s.wg.Done()
	var userText, modelText string
	for {
		evt, err := s.stream.Recv(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("voice backend receive failed", zap.Error(err))
				s.emit(Event{Type: EventError, Message: "voice backend connection lost"})
				s.Stop()
			}
			return
		}
		if len(evt.Audio) > 0 {
			select {
			case s.audioOut <- evt.Audio:
			default:
				logger.Warn("audio out queue full, dropping chunk")
			}
		}
		if evt.UserTranscript != "" {
			userText += evt.UserTranscript
			s.emit(Event{Type: EventTranscript, Text: evt.UserTranscript, Role: "user"})
		}
		if evt.ModelTranscript != "" {
			modelText += evt.ModelTranscript
			s.emit(Event{Type: EventResponse, Text: evt.ModelTranscript, Role: "assistant"})
		}
		if evt.InputTokens > 0 || evt.OutputTokens > 0 {
			s.turnCount++
			s.totalInput += evt.InputTokens
			s.totalOutput += evt.OutputTokens
			s.emit(Event{
				Type:         EventTokenUsage,
				Turn:         s.turnCount,
				InputTokens:  evt.InputTokens,
				OutputTokens: evt.OutputTokens,
				TotalInput:   s.totalInput,
				TotalOutput:  s.totalOutput,
			})
		}
		if evt.TurnComplete {
			if userText != "" {
				s.history = append(s.history, turnEntry{Role: "user", Content: userText, Turn: s.turnCount + 1})
				userText = ""
			}
			if modelText != "" {
				s.history = append(s.history, turnEntry{Role: "assistant", Content: modelText, Turn: s.turnCount + 1})
				modelText = ""
			}
			s.flushAudioQueue()
		}
	}
}

func (s *Session) drainAudio(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case audio := <-s.audioOut:
			s.aiSpeaking.Store(true)
			s.emit(Event{
				Type:       EventAudioChunk,
				Audio:      base64.StdEncoding.EncodeToString(audio),
				Encoding:   "linear16",
				SampleRate: ReceiveSampleRate,
			})
		case <-time.After(speakingIdleGap):
			s.aiSpeaking.Store(false)
		}
	}
}

// flushAudioQueue discards queued playback after an interruption so the
// next turn starts clean.
func (s *Session) flushAudioQueue() {
	for {
		select {
		case <-s.audioOut:
		default:
			return
		}
	}
}

func (s *Session) finish(ctx context.Context, logger *zap.Logger) {
	if s.analyzer != nil && len(s.history) > 0 {
		analysis, err := s.analyzer.Analyze(ctx, s.history)
		if err != nil {
			logger.Error("transcript analysis failed", zap.Error(err))
		} else {
			s.emit(Event{Type: EventAnalysis, Payload: analysis})
		}
	}
	s.emit(Event{Type: EventStats, Payload: map[string]interface{}{
		"session_id":          s.id,
		"turn_count":          s.turnCount,
		"message_count":       len(s.history),
		"total_input_tokens":  s.totalInput,
		"total_output_tokens": s.totalOutput,
	}})
	logger.Info("voice session closed",
		zap.Int("turns", s.turnCount),
		zap.Int("total_tokens", s.totalInput+s.totalOutput),
	)
}

func (s *Session) emit(evt Event) {
	// The client may already be gone during shutdown; a failed emit is
	// not a session error.
	_ = s.sink.Emit(evt)
}
