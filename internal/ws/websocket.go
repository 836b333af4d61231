package ws

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"sttstream/config"
	"sttstream/internal/audio"
	"sttstream/internal/dispatcher"
	"sttstream/internal/logger"
	"sttstream/internal/recognizer"
	"sttstream/internal/session"

	"github.com/gorilla/websocket"
)

// Handler upgrades incoming HTTP requests to the bidirectional streaming
// channel (spec.md §6.1), wiring a session, its recognizer, and the
// dispatcher's transcription loop together for the connection's lifetime.
// Grounded on the teacher's internal/ws/websocket.go for the upgrade and
// read-loop shape.
type Handler struct {
	cfg      *config.Config
	sessions *session.Manager
	factory  *recognizer.Factory
	disp     *dispatcher.Dispatcher
	upgrader websocket.Upgrader
}

func NewHandler(cfg *config.Config, sessions *session.Manager, factory *recognizer.Factory, disp *dispatcher.Dispatcher) *Handler {
	return &Handler{
		cfg:      cfg,
		sessions: sessions,
		factory:  factory,
		disp:     disp,
		upgrader: websocket.Upgrader{
			CheckOrigin:       func(r *http.Request) bool { return true },
			ReadBufferSize:    cfg.Server.WebSocket.ReadBufferSize,
			WriteBufferSize:   cfg.Server.WebSocket.WriteBufferSize,
			EnableCompression: cfg.Server.WebSocket.EnableCompression,
		},
	}
}

// GenerateSessionID returns a random hex session identifier.
func GenerateSessionID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func (h *Handler) defaultMetadata() session.Metadata {
	a := h.cfg.Audio
	return session.Metadata{
		SampleRate: a.SampleRate,
		Channels:   a.Channels,
		Encoding:   audio.Encoding(a.Encoding),
		Language:   a.Language,
	}
}

func (h *Handler) defaultTranscribeConfig() session.TranscriptionConfig {
	t := h.cfg.Transcribe
	return session.TranscriptionConfig{
		Engine:          t.Engine,
		ModelSize:       t.ModelSize,
		PartialResults:  t.PartialResults,
		VADEnabled:      t.VADEnabled,
		VADThreshold:    t.VADThreshold,
		SilenceDuration: t.SilenceDuration,
		BufferOverlap:   t.BufferOverlap,
		WindowSize:      t.WindowSize,
	}
}

// controlMessage is the inbound JSON envelope for non-audio frames
// (spec.md §6.1): {"type": "...", "data": {...}}. The data fields are
// pointers so that an omitted field leaves the corresponding
// Metadata/TranscriptionConfig field untouched rather than zeroing it,
// grounded on original_source/core/voice/routes/websocket.py's
// process_client_message, which only overwrites the keys a client
// actually sends.
type controlMessage struct {
	Type string             `json:"type"`
	Data controlMessageData `json:"data"`
}

type controlMessageData struct {
	// metadata fields
	SampleRate *int    `json:"sample_rate"`
	Channels   *int    `json:"channels"`
	Encoding   *string `json:"encoding"`
	Language   *string `json:"language"`

	// config fields
	Engine          *string  `json:"engine"`
	ModelSize       *string  `json:"model_size"`
	PartialResults  *bool    `json:"partial_results"`
	VADEnabled      *bool    `json:"vad_enabled"`
	VADThreshold    *float64 `json:"vad_threshold"`
	SilenceDuration *float64 `json:"silence_duration"`
	BufferOverlap   *float64 `json:"buffer_overlap"`
	WindowSize      *float64 `json:"window_size"`
}

// HandleWebSocket upgrades the connection, creates (or reattaches to) the
// session named by the "session_id" query parameter, starts its
// dispatcher loop and send loop, and then reads frames until the client
// disconnects.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket_upgrade_failed", "error", err)
		return
	}
	defer conn.Close()

	wsCfg := h.cfg.Server.WebSocket
	if wsCfg.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(time.Duration(wsCfg.ReadTimeout) * time.Second))
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = GenerateSessionID()
	}

	sess, err := h.sessions.CreateSession(sessionID, h.defaultMetadata(), h.defaultTranscribeConfig())
	if err != nil {
		logger.Error("failed_to_create_session", "session_id", sessionID, "error", err)
		conn.WriteJSON(map[string]any{"type": "error", "message": err.Error()})
		return
	}

	defer func() {
		h.sessions.RemoveSession(sessionID)
		logger.Info("websocket_connection_closed", "session_id", sessionID)
	}()

	go h.disp.Run(sess)
	go h.sendLoop(conn, sess)

	logger.Info("websocket_connection_established", "session_id", sessionID)
	h.enqueue(sess, map[string]any{
		"type":              "connection_status",
		"session_id":        sessionID,
		"status":            "connected",
		"engines_available": h.factory.AvailableEngines(),
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			logger.Warn("websocket_read_error", "session_id", sessionID)
			return
		}

		if wsCfg.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(time.Duration(wsCfg.ReadTimeout) * time.Second))
		}
		if wsCfg.MaxMessageSize > 0 && len(data) > wsCfg.MaxMessageSize {
			logger.Warn("websocket_message_too_large", "session_id", sessionID, "size", len(data))
			return
		}
		sess.Touch()

		switch msgType {
		case websocket.BinaryMessage:
			if len(data) > 0 {
				sess.AddChunk(data)
			}
		case websocket.TextMessage:
			h.handleControlFrame(sess, data)
		}
	}
}

// handleControlFrame decodes and applies one JSON control message. A
// malformed payload is logged and the connection continues, matching the
// original's "catch JSONDecodeError, log, continue" policy rather than
// tearing down the session over one bad frame.
func (h *Handler) handleControlFrame(sess *session.Session, data []byte) {
	var msg controlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Warn("invalid_control_message", "session_id", sess.ID, "error", err)
		return
	}

	rebuild := func() (recognizer.Recognizer, session.Metadata, session.TranscriptionConfig, error) {
		d := msg.Data
		meta := sess.Metadata
		cfg := sess.Config

		if d.SampleRate != nil {
			meta.SampleRate = *d.SampleRate
		}
		if d.Channels != nil {
			meta.Channels = *d.Channels
		}
		if d.Encoding != nil {
			meta.Encoding = audio.Encoding(*d.Encoding)
		}
		if d.Language != nil {
			meta.Language = *d.Language
		}
		if d.Engine != nil {
			cfg.Engine = *d.Engine
		}
		if d.ModelSize != nil {
			cfg.ModelSize = *d.ModelSize
		}
		if d.PartialResults != nil {
			cfg.PartialResults = *d.PartialResults
		}
		if d.VADEnabled != nil {
			cfg.VADEnabled = *d.VADEnabled
		}
		if d.VADThreshold != nil {
			cfg.VADThreshold = *d.VADThreshold
		}
		if d.SilenceDuration != nil {
			cfg.SilenceDuration = *d.SilenceDuration
		}
		if d.BufferOverlap != nil {
			cfg.BufferOverlap = *d.BufferOverlap
		}
		if d.WindowSize != nil {
			cfg.WindowSize = *d.WindowSize
		}

		rec, err := h.factory.Create(cfg.Engine, recognizer.Options{
			Language:     meta.Language,
			SampleRate:   meta.SampleRate,
			ModelSize:    cfg.ModelSize,
			PartialWords: cfg.PartialResults,
			Encoding:     meta.Encoding,
		})
		return rec, meta, cfg, err
	}

	h.disp.HandleControl(sess, msg.Type, rebuild)
}

// sendLoop drains sess.SendQueue to the client until the session's context
// is canceled, mirroring the teacher's Session.sendLoop
// (internal/session/manager.go) serialization guarantee: a session's
// writes are never interleaved from two goroutines.
func (h *Handler) sendLoop(conn *websocket.Conn, sess *session.Session) {
	ctx := sess.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sess.SendQueue:
			if err := conn.WriteJSON(msg); err != nil {
				logger.Warn("websocket_write_error", "session_id", sess.ID, "error", err)
				return
			}
		}
	}
}

func (h *Handler) enqueue(sess *session.Session, msg any) {
	select {
	case sess.SendQueue <- msg:
	default:
		logger.Warn("session_send_queue_full", "session_id", sess.ID)
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.HandleWebSocket(w, r)
}
