package session

import (
	"context"
	"testing"
	"time"

	"sttstream/internal/audio"
	"sttstream/internal/recognizer"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	reg := recognizer.NewRegistry([]string{"fake"})
	reg.Register("fake", func(recognizer.Options) (recognizer.Recognizer, error) {
		return &fakeRec{}, nil
	}, func() bool { return true })
	m := NewManager(recognizer.NewFactory(reg))
	t.Cleanup(m.Shutdown)
	return m
}

type fakeRec struct{ closed bool }

func (f *fakeRec) EngineName() string { return "fake" }
func (f *fakeRec) Process(_ context.Context, _ []byte) (recognizer.Result, error) {
	return recognizer.Result{}, nil
}
func (f *fakeRec) Reset() error       { return nil }
func (f *fakeRec) Close() error       { f.closed = true; return nil }
func (f *fakeRec) IsAvailable() bool  { return true }

func testMeta() Metadata {
	return Metadata{SampleRate: 16000, Channels: 1, Encoding: audio.EncodingInt16, Language: "en"}
}

func TestCreateSessionIsIdempotent(t *testing.T) {
	m := newTestManager(t)
	cfg := DefaultTranscriptionConfig()
	cfg.Engine = "fake"

	s1, err := m.CreateSession("abc", testMeta(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := m.CreateSession("abc", testMeta(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if s1 != s2 {
		t.Fatal("expected CreateSession to return the existing session for a repeated id")
	}
	if m.Count() != 1 {
		t.Fatalf("expected exactly 1 session, got %d", m.Count())
	}
}

func TestRemoveSessionIsIdempotent(t *testing.T) {
	m := newTestManager(t)
	cfg := DefaultTranscriptionConfig()
	cfg.Engine = "fake"
	if _, err := m.CreateSession("x", testMeta(), cfg); err != nil {
		t.Fatal(err)
	}
	m.RemoveSession("x")
	m.RemoveSession("x") // must not panic or double-count
	if m.Count() != 0 {
		t.Fatalf("expected 0 sessions after removal, got %d", m.Count())
	}
}

func TestCreateSessionDegradesGracefullyWhenEngineUnavailable(t *testing.T) {
	reg := recognizer.NewRegistry(nil)
	m := NewManager(recognizer.NewFactory(reg))
	t.Cleanup(m.Shutdown)

	cfg := DefaultTranscriptionConfig()
	cfg.Engine = "auto" // nothing registered, so factory.Create returns ErrEngineUnavailable

	s, err := m.CreateSession("degraded", testMeta(), cfg)
	if err != nil {
		t.Fatalf("expected session creation to succeed with Rec == nil, got error: %v", err)
	}
	if s.Rec != nil {
		t.Fatal("expected Rec to be nil when no engine is available")
	}
	if m.Count() != 1 {
		t.Fatalf("expected the degraded session to still be registered, count=%d", m.Count())
	}
}

func TestReaperRemovesIdleSessions(t *testing.T) {
	m := newTestManager(t)
	m.maxAge = 10 * time.Millisecond
	cfg := DefaultTranscriptionConfig()
	cfg.Engine = "fake"
	if _, err := m.CreateSession("idle", testMeta(), cfg); err != nil {
		t.Fatal(err)
	}

	time.Sleep(20 * time.Millisecond)
	m.cleanupInactiveSessions()

	if m.Count() != 0 {
		t.Fatalf("expected idle session to be reaped, count=%d", m.Count())
	}
}
