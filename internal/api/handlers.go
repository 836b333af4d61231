// Package api implements the REST surface of the streaming server:
// file transcription, session introspection, and health reporting.
// Grounded on the teacher's internal/speaker/handler.go for the gin
// handler shape and the WAV-decode path.
package api

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"sttstream/config"
	"sttstream/internal/audio"
	"sttstream/internal/recognizer"
	"sttstream/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/go-audio/wav"
)

// Handler serves the non-streaming HTTP endpoints.
type Handler struct {
	cfg      *config.Config
	sessions *session.Manager
	factory  *recognizer.Factory
}

func NewHandler(cfg *config.Config, sessions *session.Manager, factory *recognizer.Factory) *Handler {
	return &Handler{cfg: cfg, sessions: sessions, factory: factory}
}

// RegisterRoutes wires the handler's endpoints onto the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.POST("/transcribe", h.Transcribe)
	router.GET("/audio/:session_id/info", h.SessionInfo)
	router.GET("/audio/:session_id/transcript", h.SessionTranscript)
}

// Health reports process-wide liveness, grounded on the original's
// /health endpoint (engines available + active session count).
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
		"engines_available": h.factory.AvailableEngines(),
		"active_sessions":   h.sessions.Count(),
	})
}

// SessionInfo returns metadata and VAD state for a live session.
func (h *Handler) SessionInfo(c *gin.Context) {
	sess, ok := h.sessions.GetSession(c.Param("session_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":  sess.ID,
		"created_at":  sess.CreatedAt,
		"engine":      sess.Config.Engine,
		"language":    sess.Metadata.Language,
		"sample_rate": sess.Metadata.SampleRate,
		"phase":       sess.VADPhaseNow().String(),
		"packets":     sess.PacketsReceived,
		"bytes":       sess.TotalBytes,
		"duration_s":  sess.TotalAudioDurationS,
	})
}

// SessionTranscript returns the accumulated transcript for a live session.
func (h *Handler) SessionTranscript(c *gin.Context) {
	sess, ok := h.sessions.GetSession(c.Param("session_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	history, current, partial := sess.TranscriptSnapshot()
	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.ID,
		"history":    history,
		"current":    current,
		"partial":    partial,
	})
}

// Transcribe runs one-shot, whole-file recognition against a multipart
// WAV upload. The requested engine must both exist and implement
// FileTranscriber; streaming-only engines (e.g. the streaming FST backend)
// report 501 rather than silently falling back to streaming semantics.
func (h *Handler) Transcribe(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	samples, sampleRate, err := decodeWAV(file, header)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("failed to parse audio file: %v", err)})
		return
	}

	engine := c.PostForm("engine")
	if engine == "" {
		engine = h.cfg.Transcribe.Engine
	}
	language := c.DefaultPostForm("language", h.cfg.Audio.Language)

	rec, err := h.factory.Create(engine, recognizer.Options{
		Language:   language,
		SampleRate: sampleRate,
		ModelSize:  h.cfg.Transcribe.ModelSize,
		Encoding:   audio.EncodingFloat32,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	transcriber, ok := rec.(recognizer.FileTranscriber)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": fmt.Sprintf("engine %q does not support whole-file transcription", engine)})
		return
	}

	text, segments, err := transcriber.TranscribeFile(c.Request.Context(), samples, sampleRate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("transcription failed: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"text":     text,
		"segments": segments,
		"language": language,
		"engine":   engine,
	})
}

// decodeWAV reads a multipart WAV upload into mono float32 PCM,
// adapted from the teacher's speaker.Handler.parseAudioFile.
func decodeWAV(file multipart.File, header *multipart.FileHeader) ([]float32, int, error) {
	filename := strings.ToLower(header.Filename)
	if !strings.HasSuffix(filename, ".wav") {
		return nil, 0, fmt.Errorf("only WAV files are supported")
	}

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid WAV file")
	}

	sampleRate := int(decoder.SampleRate)
	numChannels := int(decoder.NumChans)
	if numChannels > 2 {
		return nil, 0, fmt.Errorf("unsupported number of channels: %d", numChannels)
	}

	buffer, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode audio: %v", err)
	}

	const pcm16NormalizeFactor = 32768.0
	samples := make([]float32, len(buffer.Data))
	for i, sample := range buffer.Data {
		samples[i] = float32(sample) / pcm16NormalizeFactor
	}

	if numChannels == 2 {
		mono := make([]float32, len(samples)/2)
		for i := range mono {
			mono[i] = (samples[i*2] + samples[i*2+1]) / 2.0
		}
		samples = mono
	}

	return samples, sampleRate, nil
}
