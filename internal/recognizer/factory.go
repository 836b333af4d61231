package recognizer

import (
	"fmt"
	"sync"
)

// Config groups the engine-specific settings the factory needs to build a
// Registry. It is populated from config.RecognitionConfig at startup.
type Config struct {
	Priority []string

	Kaldi struct {
		ModelDir   string
		TokensPath string
		NumThreads int
	}
	Whisper struct {
		ModelPath           string
		SilenceThresholdMs  int
		MaxBufferDurationMs int
	}
	CloudHTTP struct {
		Endpoint   string
		APIKey     string
		TimeoutSec int
	}
}

// normalizeEngineName maps the aliases the original accepted
// ("speechrecognition" -> "sr") onto this repo's engine keys.
func normalizeEngineName(name string) string {
	switch name {
	case "speechrecognition", "sr", "cloud", "google":
		return EngineCloudHTTP
	case "vosk", "kaldi":
		return EngineStreamingFST
	case "whisper":
		return EngineWhisper
	default:
		return name
	}
}

const (
	EngineStreamingFST = "kaldi-streaming"
	EngineWhisper      = "whisper"
	EngineCloudHTTP    = "cloud-http"
)

// NewRegistryFromConfig builds and populates a Registry from cfg, registering all
// three back-ends with their availability probes. Construction of a given
// engine is deferred until Create is actually called for it (or for
// "auto"), so a missing model file only fails the session that needed it.
func NewRegistryFromConfig(cfg Config) *Registry {
	priority := cfg.Priority
	if len(priority) == 0 {
		priority = []string{EngineWhisper, EngineStreamingFST, EngineCloudHTTP}
	}
	reg := NewRegistry(priority)

	reg.Register(EngineStreamingFST,
		func(opts Options) (Recognizer, error) { return newStreamingFST(cfg, opts) },
		func() bool { return streamingFSTAvailable(cfg) },
	)
	reg.Register(EngineWhisper,
		func(opts Options) (Recognizer, error) { return newChunkedWhisper(cfg, opts) },
		func() bool { return chunkedWhisperAvailable(cfg) },
	)
	reg.Register(EngineCloudHTTP,
		func(opts Options) (Recognizer, error) { return newCloudHTTP(cfg, opts) },
		func() bool { return cloudHTTPAvailable(cfg) },
	)
	return reg
}

// Factory wraps a Registry with the memoized get-or-create cache the
// original factory.get_or_create_recognizer implements, keyed by
// engine/language/sample_rate/model_size. The session manager, the
// WebSocket control handler and the /transcribe REST handler all use
// Create, so each call gets a fresh recognizer; GetOrCreate is the
// memoized alternative for reusing a warmed-up recognizer across calls
// with identical parameters.
type Factory struct {
	registry *Registry

	mu    sync.Mutex
	cache map[string]Recognizer
}

func NewFactory(registry *Registry) *Factory {
	return &Factory{registry: registry, cache: make(map[string]Recognizer)}
}

func cacheKey(engine string, opts Options) string {
	return fmt.Sprintf("%s_%s_%d_%s", engine, opts.Language, opts.SampleRate, opts.ModelSize)
}

// Create always returns a fresh recognizer; use GetOrCreate for the
// memoized variant.
func (f *Factory) Create(engine string, opts Options) (Recognizer, error) {
	return f.registry.Create(normalizeEngineName(engine), opts)
}

// GetOrCreate returns a cached recognizer for (engine, opts) if one exists,
// constructing and caching it otherwise.
func (f *Factory) GetOrCreate(engine string, opts Options) (Recognizer, error) {
	engine = normalizeEngineName(engine)
	key := cacheKey(engine, opts)

	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.cache[key]; ok {
		return rec, nil
	}
	rec, err := f.registry.Create(engine, opts)
	if err != nil {
		return nil, err
	}
	f.cache[key] = rec
	return rec, nil
}

// AvailableEngines reports availability for every registered engine, for
// the "engines_available" field sent on WebSocket connect and in /health.
func (f *Factory) AvailableEngines() map[string]bool {
	return f.registry.Available()
}
