package session

import (
	"testing"

	"sttstream/internal/audio"
)

func newTestSession(windowSize, overlap float64) *Session {
	meta := Metadata{SampleRate: 16000, Channels: 1, Encoding: audio.EncodingInt16, Language: "en"}
	cfg := DefaultTranscriptionConfig()
	cfg.WindowSize = windowSize
	cfg.BufferOverlap = overlap
	return NewSession("test", meta, cfg, nil)
}

func TestExtractWindowInsufficientBuffer(t *testing.T) {
	s := newTestSession(0.5, 0.25)
	s.AddChunk(make([]byte, 100))
	if _, ok := s.ExtractWindow(); ok {
		t.Fatal("expected no window with insufficient buffered audio")
	}
}

func TestExtractWindowOverlapMath(t *testing.T) {
	// 16000 Hz, int16 (2 bytes/sample) => 32000 bytes/sec.
	// window_size=0.5s => 16000 bytes needed; overlap=0.25s => 8000 bytes retained.
	s := newTestSession(0.5, 0.25)
	s.AddChunk(make([]byte, 20000))

	window, ok := s.ExtractWindow()
	if !ok {
		t.Fatal("expected a window to be extracted")
	}
	if len(window) != 16000 {
		t.Fatalf("expected window of 16000 bytes, got %d", len(window))
	}

	s.mu.Lock()
	remaining := len(s.rawBuffer)
	s.mu.Unlock()
	// 20000 buffered - (16000-8000) consumed = 12000 remaining
	if remaining != 12000 {
		t.Fatalf("expected 12000 bytes remaining in buffer, got %d", remaining)
	}
}

func TestAddTranscriptIgnoresEmptyFinal(t *testing.T) {
	s := newTestSession(0.5, 0.25)
	s.AddTranscript("", true)
	history, current, _ := s.TranscriptSnapshot()
	if len(history) != 0 || current != "" {
		t.Fatal("expected empty final text to be ignored")
	}
}

func TestAddTranscriptIgnoresWhitespaceOnlyFinal(t *testing.T) {
	s := newTestSession(0.5, 0.25)
	s.AddTranscript("   ", true)
	history, current, _ := s.TranscriptSnapshot()
	if len(history) != 0 || current != "" {
		t.Fatal("expected whitespace-only final text to be ignored")
	}
}

func TestAddTranscriptTrimsFinal(t *testing.T) {
	s := newTestSession(0.5, 0.25)
	s.AddTranscript("  hello  ", true)
	history, current, _ := s.TranscriptSnapshot()
	if current != "hello" || len(history) != 1 || history[0].Text != "hello" {
		t.Fatalf("expected trimmed final text, got current=%q history=%v", current, history)
	}
}

func TestAddTranscriptPartialThenFinal(t *testing.T) {
	s := newTestSession(0.5, 0.25)
	s.AddTranscript("hel", false)
	_, _, partial := s.TranscriptSnapshot()
	if partial != "hel" {
		t.Fatalf("expected partial transcript 'hel', got %q", partial)
	}

	s.AddTranscript("hello", true)
	history, current, partial := s.TranscriptSnapshot()
	if current != "hello" || partial != "" || len(history) != 1 || history[0].Text != "hello" {
		t.Fatalf("unexpected state after final transcript: current=%q partial=%q history=%v", current, partial, history)
	}
}

func TestResetBuffersClearsStateNotHistory(t *testing.T) {
	s := newTestSession(0.5, 0.25)
	s.AddChunk(make([]byte, 100))
	s.AddTranscript("hello", true)
	s.SetVADPhase(PhaseSpeaking)

	s.ResetBuffers()

	s.mu.Lock()
	bufLen := len(s.rawBuffer)
	s.mu.Unlock()
	if bufLen != 0 {
		t.Fatal("expected raw buffer cleared")
	}
	if s.VADPhaseNow() != PhaseIdle {
		t.Fatal("expected VAD phase reset to idle")
	}
	history, _, _ := s.TranscriptSnapshot()
	if len(history) != 1 {
		t.Fatal("expected transcript history to survive ResetBuffers")
	}
}
