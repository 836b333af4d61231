// Package dispatcher runs the per-session transcription loop: pull a
// window of audio off the session's buffer, run it through the VAD state
// machine, and dispatch to the owned recognizer when speech has been
// detected. Grounded on
// original_source/core/voice/routes/websocket.py's process_audio_vosk for
// the loop body and state transitions, adapted from Python asyncio tasks
// to a goroutine-per-session model using the teacher's session send-queue
// pattern (internal/session/manager.go's sendLoop/SendQueue) for outbound
// delivery.
package dispatcher

import (
	"context"
	"time"

	"sttstream/internal/audio"
	"sttstream/internal/logger"
	"sttstream/internal/recognizer"
	"sttstream/internal/session"
)

// DefaultMaxRecognitionWorkers bounds concurrent in-flight recognizer
// calls across all sessions, generalizing the teacher's
// Manager.recognitionWorkers semaphore (internal/session/manager.go) so
// that one session's slow inference (in particular, a Whisper flush)
// cannot starve the loops driving other sessions (spec.md §5 design note).
const DefaultMaxRecognitionWorkers = 50

// phaseTracker counts consecutive non-speech windows since speech stopped.
// silenceFrameLimit gives how many of them end a SPEAKING segment, derived
// from TranscriptionConfig.SilenceDuration / WindowSize; the check runs only
// while in TRAILING_SILENCE, so at least two silent windows are needed.
// The limit is recomputed on every window rather than cached at loop-start,
// so a "config" control message changing either value takes effect on the
// session's very next window instead of only after a reconnect.
type phaseTracker struct {
	silenceFrameCount int
}

func newPhaseTracker() *phaseTracker {
	return &phaseTracker{}
}

func silenceFrameLimit(cfg session.TranscriptionConfig) int {
	if cfg.WindowSize <= 0 {
		return 1
	}
	limit := int(cfg.SilenceDuration/cfg.WindowSize + 0.5)
	if limit < 1 {
		limit = 1
	}
	return limit
}

// Dispatcher drives the transcription loop for every live session.
type Dispatcher struct {
	workers chan struct{}
	tick    time.Duration
}

func New() *Dispatcher {
	return &Dispatcher{
		workers: make(chan struct{}, DefaultMaxRecognitionWorkers),
		tick:    50 * time.Millisecond,
	}
}

// Run drives s's transcription loop until s.Context() is canceled (the
// session is removed). Intended to be launched as `go d.Run(s)` once per
// session, immediately after creation.
func (d *Dispatcher) Run(s *session.Session) {
	ctx := s.Context()
	tracker := newPhaseTracker()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		window, ok := s.ExtractWindow()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		d.processWindow(ctx, s, tracker, window)

		select {
		case <-ctx.Done():
			return
		case <-time.After(d.tick):
		}
	}
}

// processWindow runs one window through the VAD state machine (when VAD is
// enabled) and dispatches it to the recognizer when in or entering speech.
// recognizer.Reset is called exactly on the TRAILING_SILENCE -> IDLE
// transition, matching process_audio_vosk precisely.
func (d *Dispatcher) processWindow(ctx context.Context, s *session.Session, tracker *phaseTracker, window []byte) {
	if !s.Config.VADEnabled {
		d.recognize(ctx, s, window)
		return
	}

	floatBytes := window
	if s.Metadata.Encoding == audio.EncodingInt16 {
		floatBytes = audio.Int16ToFloat32(window)
	}
	active, _ := audio.DetectVoiceActivity(floatBytes, s.Config.VADThreshold)

	phase := s.VADPhaseNow()
	switch phase {
	case session.PhaseIdle:
		if active {
			s.SetVADPhase(session.PhaseSpeaking)
			tracker.silenceFrameCount = 0
			d.recognize(ctx, s, window)
		}
	case session.PhaseSpeaking:
		if active {
			tracker.silenceFrameCount = 0
			d.recognize(ctx, s, window)
		} else {
			tracker.silenceFrameCount++
			s.SetVADPhase(session.PhaseTrailingSilence)
		}
	case session.PhaseTrailingSilence:
		if active {
			tracker.silenceFrameCount = 0
			s.SetVADPhase(session.PhaseSpeaking)
			d.recognize(ctx, s, window)
			return
		}
		tracker.silenceFrameCount++
		if tracker.silenceFrameCount >= silenceFrameLimit(s.Config) {
			s.SetVADPhase(session.PhaseIdle)
			tracker.silenceFrameCount = 0
			if s.Rec != nil {
				s.Rec.Reset()
			}
		}
	}
}

// recognize offloads one recognizer.Process call through the bounded
// worker semaphore and queues the resulting transcript for delivery.
func (d *Dispatcher) recognize(ctx context.Context, s *session.Session, window []byte) {
	select {
	case d.workers <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-d.workers }()

	if s.Rec == nil {
		return
	}

	select {
	case <-ctx.Done():
		return
	default:
	}

	result, err := s.Rec.Process(ctx, window)
	if err != nil {
		logger.Warn("recognition_failed", "session_id", s.ID, "error", err)
		return
	}
	if result.Text == "" {
		return
	}

	select {
	case <-ctx.Done():
		return
	default:
	}

	s.AddTranscript(result.Text, result.IsFinal)
	d.enqueue(s, map[string]any{
		"type":      "transcript",
		"text":      result.Text,
		"is_final":  result.IsFinal,
		"timestamp": time.Now().UnixMilli(),
	})
}

// enqueue delivers msg to s.SendQueue without blocking the dispatcher loop;
// a full queue (a stalled client) drops the message rather than backing up
// recognition for every other session, matching the teacher's non-blocking
// select around SendQueue (internal/session/manager.go's
// handleRecognitionResult).
func (d *Dispatcher) enqueue(s *session.Session, msg any) {
	select {
	case s.SendQueue <- msg:
	default:
		logger.Warn("send_queue_full_dropping_message", "session_id", s.ID)
	}
}

// RebuildFunc recomputes the session's Metadata/TranscriptionConfig from an
// inbound control message's fields layered onto the session's current
// values, and constructs the recognizer those merged values call for.
type RebuildFunc func() (recognizer.Recognizer, session.Metadata, session.TranscriptionConfig, error)

// HandleControl applies one decoded control message (spec.md §6.1's
// "ping" / "metadata" / "config" / "reset" message types) to s, grounded on
// original_source/core/voice/routes/websocket.py's
// process_client_message. Per spec.md §4.4, "metadata" and "config"
// replace the session's corresponding state before the recognizer is
// rebuilt against it.
func (d *Dispatcher) HandleControl(s *session.Session, msgType string, rebuild RebuildFunc) {
	switch msgType {
	case "ping":
		d.enqueue(s, map[string]any{"type": "pong"})
	case "metadata", "config":
		if rebuild == nil {
			return
		}
		rec, meta, cfg, err := rebuild()
		if err != nil {
			d.enqueue(s, map[string]any{"type": "error", "message": err.Error()})
			return
		}
		s.SetMetadata(meta)
		s.SetConfig(cfg)
		s.RebuildRecognizer(rec)
	case "reset":
		s.ResetBuffers()
		if rebuild != nil {
			if rec, meta, cfg, err := rebuild(); err == nil {
				s.SetMetadata(meta)
				s.SetConfig(cfg)
				s.RebuildRecognizer(rec)
			} else if s.Rec != nil {
				s.Rec.Reset()
			}
		} else if s.Rec != nil {
			s.Rec.Reset()
		}
		d.enqueue(s, map[string]any{
			"type":      "status",
			"status":    "reset_completed",
			"timestamp": time.Now().UnixMilli(),
		})
	}
}
