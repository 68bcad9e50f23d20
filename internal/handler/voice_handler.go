package handler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docchat/internal/voice"
)

var voiceUpgrader = websocket.Upgrader{
	ReadBufferSize:  16 * 1024,
	WriteBufferSize: 16 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type VoiceHandler struct {
	dialer   voice.SpeechDialer
	analyzer *voice.Analyzer
}

func NewVoiceHandler(dialer voice.SpeechDialer, analyzer *voice.Analyzer) *VoiceHandler {
	return &VoiceHandler{dialer: dialer, analyzer: analyzer}
}

// wsSink serializes event writes; session goroutines emit concurrently
// but a websocket connection allows one writer at a time.
type wsSink struct {
	lock sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Emit(evt voice.Event) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.conn.WriteJSON(evt)
}

type voiceClientMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// Session upgrades the request to a websocket and bridges it to a live
// speech backend. Binary frames and base64 "audio_chunk" messages are
// forwarded as microphone audio; a "stop" message or client disconnect
// ends the session.
func (h *VoiceHandler) Session(c *gin.Context) {
	ctx := c.Request.Context()
	logger := logutil.GetLogger(ctx)

	conn, err := voiceUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("failed to upgrade voice session", zap.Error(err))
		return
	}
	defer conn.Close()
	sink := &wsSink{conn: conn}

	stream, err := h.dialer.Dial(ctx)
	if err != nil {
		logger.Error("failed to open speech backend", zap.Error(err))
		_ = sink.Emit(voice.Event{Type: voice.EventError, Message: "voice backend unavailable"})
		return
	}

	sessionID := newSessionID()
	logger.Info("voice session started", zap.String("session_id", sessionID))
	session := voice.NewSession(sessionID, stream, sink, h.analyzer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		session.Run(ctx)
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			session.Stop()
			break
		}
		switch msgType {
		case websocket.BinaryMessage:
			if err := session.ForwardAudio(ctx, data); err != nil {
				logger.Error("failed to forward audio", zap.Error(err))
			}
		case websocket.TextMessage:
			var msg voiceClientMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			switch msg.Type {
			case "stop":
				session.Stop()
			case "audio_chunk":
				audio, err := base64.StdEncoding.DecodeString(msg.Audio)
				if err != nil {
					continue
				}
				if err := session.ForwardAudio(ctx, audio); err != nil {
					logger.Error("failed to forward audio", zap.Error(err))
				}
			}
		}
		select {
		case <-done:
		default:
			continue
		}
		break
	}
	<-done
}

func newSessionID() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
