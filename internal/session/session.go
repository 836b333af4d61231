// Package session holds the per-connection audio buffer, transcript
// history and VAD state machine (Session), and the registry that owns
// sessions for their lifetime (Manager). Grounded on the teacher's
// internal/session/manager.go for the concurrency primitives (send queue,
// last-seen clock, session context/cancel) and on
// original_source/core/voice/models/audio_session.py for the exact
// windowing, transcript and VAD-transition semantics the distilled spec
// compresses into one bullet each.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"sttstream/internal/audio"
	"sttstream/internal/recognizer"
)

// VADPhase is the session's voice-activity state, driving when a window is
// dispatched for recognition and when the recognizer is reset.
type VADPhase int

const (
	PhaseIdle VADPhase = iota
	PhaseSpeaking
	PhaseTrailingSilence
)

func (p VADPhase) String() string {
	switch p {
	case PhaseSpeaking:
		return "speaking"
	case PhaseTrailingSilence:
		return "trailing_silence"
	default:
		return "idle"
	}
}

// Metadata mirrors the AudioMetadata wire type (spec.md §3 / §6.1).
type Metadata struct {
	SampleRate int
	Channels   int
	Encoding   audio.Encoding
	Language   string
}

// TranscriptionConfig mirrors the TranscriptionConfig wire type, with the
// exact defaults from original_source/core/voice/models/schemas.py.
type TranscriptionConfig struct {
	Engine          string
	ModelSize       string
	PartialResults  bool
	VADEnabled      bool
	VADThreshold    float64
	SilenceDuration float64
	BufferOverlap   float64
	WindowSize      float64
}

// DefaultTranscriptionConfig returns the wire-level defaults.
func DefaultTranscriptionConfig() TranscriptionConfig {
	return TranscriptionConfig{
		Engine:          "auto",
		ModelSize:       "small",
		PartialResults:  true,
		VADEnabled:      true,
		VADThreshold:    0.3,
		SilenceDuration: 0.5,
		BufferOverlap:   0.25,
		WindowSize:      0.5,
	}
}

// TranscriptEntry is one finalized utterance in a session's history.
type TranscriptEntry struct {
	Text      string
	Timestamp time.Time
}

// Session is a single client's streaming connection: its raw audio buffer,
// transcript history, VAD state and owned recognizer. A Session is driven
// by exactly one dispatcher goroutine (see internal/dispatcher); the
// fields below are therefore not independently synchronized except where
// noted -- callers outside the owning goroutine must go through Manager.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu sync.Mutex // guards everything below except ctx/cancel/SendQueue

	Metadata Metadata
	Config   TranscriptionConfig
	Rec      recognizer.Recognizer

	rawBuffer []byte

	TranscriptHistory  []TranscriptEntry
	CurrentTranscript  string
	PartialTranscript  string

	Phase             VADPhase
	silenceFrameCount int

	PacketsReceived      uint64
	TotalBytes           uint64
	TotalAudioDurationS  float64

	lastSeen int64 // unix nanos, read/written under mu via IdleSince()/Touch()

	ctx    context.Context
	cancel context.CancelFunc

	SendQueue chan any
	closed    bool
}

// NewSession constructs a Session with its buffers zeroed and a
// cancellable context scoped to its lifetime, used by the dispatcher to
// stop an in-flight recognition loop on removal.
func NewSession(id string, meta Metadata, cfg TranscriptionConfig, rec recognizer.Recognizer) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		Metadata:  meta,
		Config:    cfg,
		Rec:       rec,
		ctx:       ctx,
		cancel:    cancel,
		SendQueue: make(chan any, 64),
	}
	s.Touch()
	return s
}

// Context is canceled when the session is removed, signaling the
// dispatcher's transcription loop to exit.
func (s *Session) Context() context.Context { return s.ctx }

// Touch refreshes the idle-reaper clock. Safe to call concurrently.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now().UnixNano()
	s.mu.Unlock()
}

// IdleSince returns how long it has been since the session last saw
// traffic.
func (s *Session) IdleSince() time.Duration {
	s.mu.Lock()
	last := s.lastSeen
	s.mu.Unlock()
	return time.Since(time.Unix(0, last))
}

// AddChunk appends pcm to the raw buffer and updates packet/byte/duration
// counters, deriving bytes-per-sample from the session's declared encoding
// rather than hardcoding 4 (Open Question (a); see
// original_source/core/voice/models/audio_session.py's add_audio_chunk,
// which hardcodes sample_rate*4).
func (s *Session) AddChunk(pcm []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rawBuffer = append(s.rawBuffer, pcm...)
	s.PacketsReceived++
	s.TotalBytes += uint64(len(pcm))

	bps := audio.BytesPerSample(s.Metadata.Encoding)
	s.TotalAudioDurationS += audio.Duration(len(pcm), s.Metadata.SampleRate, bps)
}

// ExtractWindow returns the next window_size seconds of audio to process,
// retaining buffer_overlap seconds of trailing overlap in rawBuffer for
// the next call. Returns (nil, false) when fewer than window_size seconds
// are buffered yet. This is a direct port of
// original_source/core/voice/models/audio_session.py's
// get_audio_for_processing, generalized to the session's real
// bytes-per-sample instead of a hardcoded 4.
func (s *Session) ExtractWindow() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bps := audio.BytesPerSample(s.Metadata.Encoding)
	bytesPerSecond := s.Metadata.SampleRate * bps
	if bytesPerSecond <= 0 {
		return nil, false
	}

	bytesNeeded := int(s.Config.WindowSize * float64(bytesPerSecond))
	if len(s.rawBuffer) < bytesNeeded {
		return nil, false
	}

	overlapBytes := int(s.Config.BufferOverlap * float64(bytesPerSecond))
	processBytes := bytesNeeded - overlapBytes
	if processBytes <= 0 {
		processBytes = bytesNeeded
	}

	window := make([]byte, bytesNeeded)
	copy(window, s.rawBuffer[:bytesNeeded])

	if processBytes > len(s.rawBuffer) {
		processBytes = len(s.rawBuffer)
	}
	s.rawBuffer = s.rawBuffer[processBytes:]

	return window, true
}

// ResetBuffers clears the raw audio buffer and transcript scratch state
// without touching TranscriptHistory, mirroring
// AudioSession.reset_buffers.
func (s *Session) ResetBuffers() {
	s.mu.Lock()
	s.rawBuffer = nil
	s.CurrentTranscript = ""
	s.PartialTranscript = ""
	s.Phase = PhaseIdle
	s.silenceFrameCount = 0
	s.mu.Unlock()
}

// AddTranscript records a partial or final recognition result. A partial
// result overwrites the scratch partial transcript; a non-empty final
// result is appended to history and clears the partial, matching
// AudioSession.add_transcript (which silently ignores empty final text).
func (s *Session) AddTranscript(text string, isFinal bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !isFinal {
		s.PartialTranscript = text
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.CurrentTranscript = text
	s.PartialTranscript = ""
	s.TranscriptHistory = append(s.TranscriptHistory, TranscriptEntry{Text: text, Timestamp: time.Now()})
}

// TranscriptSnapshot returns the full history plus current/partial
// transcript, for the GET /audio/{id}/transcript REST endpoint.
func (s *Session) TranscriptSnapshot() (history []TranscriptEntry, current, partial string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history = make([]TranscriptEntry, len(s.TranscriptHistory))
	copy(history, s.TranscriptHistory)
	return history, s.CurrentTranscript, s.PartialTranscript
}

// RebuildRecognizer swaps in a freshly constructed recognizer (used by the
// "metadata"/"config" control messages, which may change language or
// engine mid-session) and releases the old one.
func (s *Session) RebuildRecognizer(rec recognizer.Recognizer) {
	s.mu.Lock()
	old := s.Rec
	s.Rec = rec
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

// SetMetadata replaces the session's AudioMetadata, used by the "metadata"
// control message (spec.md §4.4: "metadata -> replace metadata and rebuild
// recognizer").
func (s *Session) SetMetadata(meta Metadata) {
	s.mu.Lock()
	s.Metadata = meta
	s.mu.Unlock()
}

// SetConfig replaces the session's TranscriptionConfig, used by the
// "config" control message (spec.md §4.4: "config -> replace config").
func (s *Session) SetConfig(cfg TranscriptionConfig) {
	s.mu.Lock()
	s.Config = cfg
	s.mu.Unlock()
}

// SetVADPhase updates the VAD state machine's current phase.
func (s *Session) SetVADPhase(p VADPhase) {
	s.mu.Lock()
	s.Phase = p
	s.mu.Unlock()
}

// VADPhaseNow returns the current VAD phase.
func (s *Session) VADPhaseNow() VADPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Phase
}

// Close cancels the session's context and marks it closed. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	if s.Rec != nil {
		s.Rec.Close()
	}
}
