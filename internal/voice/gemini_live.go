package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
)

const (
	defaultLiveEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	defaultLiveModel    = "gemini-2.0-flash-live-001"

	// Linear 16-bit PCM rates of the live protocol.
	SendSampleRate    = 16000
	ReceiveSampleRate = 24000
)

type GeminiLiveConfig struct {
	APIKey   string `json:"api_key"`
	Endpoint string `json:"endpoint"`
	Model    string `json:"model"`
	Voice    string `json:"voice"`
}

// GeminiLiveDialer opens realtime audio sessions against the Gemini
// Live websocket API.
type GeminiLiveDialer struct {
	cfg GeminiLiveConfig
}

func NewGeminiLiveDialer(cfg GeminiLiveConfig) *GeminiLiveDialer {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultLiveEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = defaultLiveModel
	}
	return &GeminiLiveDialer{cfg: cfg}
}

func (d *GeminiLiveDialer) Dial(ctx context.Context) (SpeechStream, error) {
	if strings.TrimSpace(d.cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: gemini live api key not configured", appErr.ErrUnavailable)
	}
	endpoint := d.cfg.Endpoint + "?key=" + url.QueryEscape(d.cfg.APIKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial gemini live: %w", err)
	}
	stream := &geminiLiveStream{conn: conn}
	if err := stream.setup(d.cfg); err != nil {
		conn.Close()
		return nil, err
	}
	return stream, nil
}

type geminiLiveStream struct {
	conn     *websocket.Conn
	sendLock sync.Mutex
}

type liveSetupMessage struct {
	Setup struct {
		Model            string `json:"model"`
		GenerationConfig struct {
			ResponseModalities []string `json:"response_modalities"`
			SpeechConfig       *struct {
				VoiceConfig struct {
					PrebuiltVoiceConfig struct {
						VoiceName string `json:"voice_name"`
					} `json:"prebuilt_voice_config"`
				} `json:"voice_config"`
			} `json:"speech_config,omitempty"`
		} `json:"generation_config"`
		InputAudioTranscription  struct{} `json:"input_audio_transcription"`
		OutputAudioTranscription struct{} `json:"output_audio_transcription"`
	} `json:"setup"`
}

type liveRealtimeInput struct {
	RealtimeInput struct {
		MediaChunks []liveMediaChunk `json:"media_chunks"`
	} `json:"realtime_input"`
}

type liveMediaChunk struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type liveServerMessage struct {
	SetupComplete *struct{} `json:"setupComplete"`
	ServerContent *struct {
		ModelTurn *struct {
			Parts []struct {
				InlineData *struct {
					Data string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"modelTurn"`
		InputTranscription *struct {
			Text string `json:"text"`
		} `json:"inputTranscription"`
		OutputTranscription *struct {
			Text string `json:"text"`
		} `json:"outputTranscription"`
		TurnComplete bool `json:"turnComplete"`
	} `json:"serverContent"`
	UsageMetadata *struct {
		PromptTokenCount   int `json:"promptTokenCount"`
		ResponseTokenCount int `json:"responseTokenCount"`
	} `json:"usageMetadata"`
}

func (s *geminiLiveStream) setup(cfg GeminiLiveConfig) error {
	msg := liveSetupMessage{}
	msg.Setup.Model = "models/" + cfg.Model
	msg.Setup.GenerationConfig.ResponseModalities = []string{"AUDIO"}
	if cfg.Voice != "" {
		speech := &struct {
			VoiceConfig struct {
				PrebuiltVoiceConfig struct {
					VoiceName string `json:"voice_name"`
				} `json:"prebuilt_voice_config"`
			} `json:"voice_config"`
		}{}
		speech.VoiceConfig.PrebuiltVoiceConfig.VoiceName = cfg.Voice
		msg.Setup.GenerationConfig.SpeechConfig = speech
	}
	if err := s.writeJSON(msg); err != nil {
		return fmt.Errorf("send live setup: %w", err)
	}
	// The server acks the setup before any media flows.
	reply := &liveServerMessage{}
	if err := s.conn.ReadJSON(reply); err != nil {
		return fmt.Errorf("read live setup ack: %w", err)
	}
	if reply.SetupComplete == nil {
		return fmt.Errorf("unexpected live setup reply")
	}
	return nil
}

func (s *geminiLiveStream) Send(ctx context.Context, audio []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := liveRealtimeInput{}
	msg.RealtimeInput.MediaChunks = []liveMediaChunk{{
		MimeType: "audio/pcm",
		Data:     base64.StdEncoding.EncodeToString(audio),
	}}
	return s.writeJSON(msg)
}

func (s *geminiLiveStream) Recv(ctx context.Context) (*SpeechEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	msg := &liveServerMessage{}
	if err := s.conn.ReadJSON(msg); err != nil {
		return nil, fmt.Errorf("read live message: %w", err)
	}
	evt := &SpeechEvent{}
	if sc := msg.ServerContent; sc != nil {
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part.InlineData == nil {
					continue
				}
				data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					return nil, fmt.Errorf("decode live audio: %w", err)
				}
				evt.Audio = append(evt.Audio, data...)
			}
		}
		if sc.InputTranscription != nil {
			evt.UserTranscript = sc.InputTranscription.Text
		}
		if sc.OutputTranscription != nil {
			evt.ModelTranscript = sc.OutputTranscription.Text
		}
		evt.TurnComplete = sc.TurnComplete
	}
	if usage := msg.UsageMetadata; usage != nil {
		evt.InputTokens = usage.PromptTokenCount
		evt.OutputTokens = usage.ResponseTokenCount
	}
	return evt, nil
}

func (s *geminiLiveStream) Close() error {
	return s.conn.Close()
}

func (s *geminiLiveStream) writeJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.sendLock.Lock()
	defer s.sendLock.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}
