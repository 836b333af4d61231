// Package recognizer defines the pluggable speech-to-text engine contract
// and the three concrete back-ends (streaming Kaldi-style, chunked
// buffered Whisper, and a cloud HTTP fallback), generalized from the
// teacher's VAD-instance abstraction (internal/pool) into a recognizer
// abstraction: same registration/factory shape, different payload.
package recognizer

import (
	"context"
	"errors"
)

// Result is the output of a single Process call. Confidence is best-effort;
// back-ends that don't report one (the streaming and chunked engines)
// leave it at zero.
type Result struct {
	Text       string
	IsFinal    bool
	Confidence float64
}

// Recognizer is implemented by every speech-to-text back-end. A Recognizer
// is owned exclusively by one session for its lifetime: it is never called
// from two goroutines at once, so implementations do not need internal
// locking around their own state.
type Recognizer interface {
	// EngineName identifies the back-end, e.g. "kaldi-streaming", "whisper",
	// "cloud-http".
	EngineName() string

	// Process consumes one chunk of PCM audio (format per the session's
	// AudioMetadata) and returns whatever transcript progress the engine
	// is ready to report. A back-end that only emits output in bursts
	// (e.g. on an internal buffer flush) may return a zero Result with
	// Text == "" when it has nothing new to say.
	Process(ctx context.Context, pcm []byte) (Result, error)

	// Reset discards any buffered audio and internal recognizer state
	// without releasing the engine's loaded model. Called by the
	// dispatcher on the TRAILING_SILENCE -> IDLE transition and by the
	// "reset" control message.
	Reset() error

	// Close releases any resources (native contexts, file handles,
	// network clients) held by the recognizer. Called when its owning
	// session is removed.
	Close() error

	// IsAvailable reports whether the constructed instance is actually
	// usable (model loaded, native handles non-nil, endpoint configured).
	// The registry checks this immediately after construction, in
	// addition to the pre-construction AvailabilityProbe, since a probe
	// that passed a moment ago can still fail to produce a working
	// instance.
	IsAvailable() bool
}

// Segment is one timed span of a whole-file transcription result, used by
// back-ends whose underlying engine reports segment-level timing (only
// Whisper does; others return a single segment spanning the whole input).
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// FileTranscriber is implemented by back-ends that can additionally
// transcribe a complete, already-decoded audio file in one call, used by
// the POST /transcribe REST endpoint. Not every back-end supports this
// (a back-end without this capability causes /transcribe to respond 501,
// mirroring the original's transcribe_file fallback). samples are decoded
// PCM, matching what the WAV decoder in internal/api already produces --
// there is no reason to make callers re-encode to wire bytes just to have
// every back-end decode them again.
type FileTranscriber interface {
	TranscribeFile(ctx context.Context, samples []float32, sampleRate int) (text string, segments []Segment, err error)
}

// ErrEngineUnavailable is returned by a Factory when the requested engine's
// preconditions (model file present, endpoint configured, etc.) are not
// met. The registry surfaces this as-is so callers can map it to a 400.
var ErrEngineUnavailable = errors.New("recognizer: engine unavailable")

// LanguageCode maps a short language tag used throughout the session API
// to the locale code the cloud-http back-end's upstream API expects.
// Verbatim from the original Python recognizer's _map_language_code.
func LanguageCode(lang string) string {
	switch lang {
	case "vi":
		return "vi-VN"
	case "en":
		return "en-US"
	default:
		return "en-US"
	}
}
