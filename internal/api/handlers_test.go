package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"sttstream/config"
	"sttstream/internal/recognizer"
	"sttstream/internal/session"

	"github.com/gin-gonic/gin"
)

type fakeRec struct{}

func (f *fakeRec) EngineName() string                                         { return "fake" }
func (f *fakeRec) Process(context.Context, []byte) (recognizer.Result, error) { return recognizer.Result{}, nil }
func (f *fakeRec) Reset() error                                               { return nil }
func (f *fakeRec) Close() error                                               { return nil }
func (f *fakeRec) IsAvailable() bool                                          { return true }

func newTestHandler(t *testing.T) (*Handler, *session.Manager) {
	t.Helper()
	reg := recognizer.NewRegistry([]string{"fake"})
	reg.Register("fake", func(recognizer.Options) (recognizer.Recognizer, error) {
		return &fakeRec{}, nil
	}, func() bool { return true })
	factory := recognizer.NewFactory(reg)

	sessions := session.NewManager(factory)
	t.Cleanup(sessions.Shutdown)

	cfg := &config.Config{}
	cfg.Transcribe.Engine = "fake"
	cfg.Audio.Language = "en"

	return NewHandler(cfg, sessions, factory), sessions
}

func TestHealthReportsEngines(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newTestHandler(t)
	router := gin.New()
	h.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
}

func TestSessionInfoNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newTestHandler(t)
	router := gin.New()
	h.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/audio/missing/info", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSessionInfoReturnsLiveSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, sessions := newTestHandler(t)
	meta := session.Metadata{SampleRate: 16000, Channels: 1, Language: "en"}
	cfg := session.DefaultTranscriptionConfig()
	cfg.Engine = "fake"
	if _, err := sessions.CreateSession("s1", meta, cfg); err != nil {
		t.Fatalf("create session: %v", err)
	}

	router := gin.New()
	h.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/audio/s1/info", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTranscribeRejectsMissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newTestHandler(t)
	router := gin.New()
	h.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodPost, "/transcribe", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
