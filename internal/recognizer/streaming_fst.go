package recognizer

import (
	"context"
	"fmt"
	"os"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"sttstream/internal/audio"
)

// streamingFST implements Recognizer on top of sherpa-onnx-go's online
// (streaming) recognizer, generalizing the teacher's offline
// OfflineRecognizer/OfflineStream usage (internal/session/manager.go's
// submitRecognitionTask) to the library's streaming counterpart, which is
// what a session-owned "Kaldi-style streaming recognizer" needs: state
// persists across Process calls instead of being rebuilt from scratch per
// chunk.
type streamingFST struct {
	recognizer *sherpa.OnlineRecognizer
	stream     *sherpa.OnlineStream
	encoding   audio.Encoding
	sampleRate int
}

func streamingFSTAvailable(cfg Config) bool {
	if cfg.Kaldi.ModelDir == "" || cfg.Kaldi.TokensPath == "" {
		return false
	}
	if _, err := os.Stat(cfg.Kaldi.TokensPath); err != nil {
		return false
	}
	return true
}

func newStreamingFST(cfg Config, opts Options) (Recognizer, error) {
	if !streamingFSTAvailable(cfg) {
		return nil, fmt.Errorf("%w: kaldi-streaming (model dir/tokens not found)", ErrEngineUnavailable)
	}

	rc := sherpa.OnlineRecognizerConfig{}
	rc.FeatConfig.SampleRate = opts.SampleRate
	rc.FeatConfig.FeatureDim = 80
	rc.ModelConfig.Transducer.Encoder = cfg.Kaldi.ModelDir + "/encoder.onnx"
	rc.ModelConfig.Transducer.Decoder = cfg.Kaldi.ModelDir + "/decoder.onnx"
	rc.ModelConfig.Transducer.Joiner = cfg.Kaldi.ModelDir + "/joiner.onnx"
	rc.ModelConfig.Tokens = cfg.Kaldi.TokensPath
	rc.ModelConfig.NumThreads = cfg.Kaldi.NumThreads
	if rc.ModelConfig.NumThreads <= 0 {
		rc.ModelConfig.NumThreads = 1
	}
	rc.EnableEndpoint = 1
	rc.DecodingMethod = "greedy_search"

	rec := sherpa.NewOnlineRecognizer(&rc)
	if rec == nil {
		return nil, fmt.Errorf("recognizer: failed to create streaming recognizer")
	}

	sampleRate := opts.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	stream := sherpa.NewOnlineStream(rec)
	return &streamingFST{recognizer: rec, stream: stream, encoding: opts.Encoding, sampleRate: sampleRate}, nil
}

// EngineName implements Recognizer.
func (s *streamingFST) EngineName() string { return EngineStreamingFST }

// Process feeds one window of PCM audio to the online stream and decodes as
// many frames as the recognizer reports ready, returning the latest partial
// or final transcript. Finality is driven by the recognizer's own endpoint
// detector rather than the session's VAD state, since the streaming engine
// tracks its own acoustic context.
func (s *streamingFST) Process(ctx context.Context, pcm []byte) (Result, error) {
	samples := audio.SamplesToFloat32(pcm, s.encoding)
	s.stream.AcceptWaveform(s.sampleRate, samples)

	for s.recognizer.IsReady(s.stream) {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}
		s.recognizer.Decode(s.stream)
	}

	result := s.recognizer.GetResult(s.stream)
	isFinal := s.recognizer.IsEndpoint(s.stream)
	if isFinal {
		s.recognizer.Reset(s.stream)
	}

	if result == nil {
		return Result{}, nil
	}
	return Result{Text: result.Text, IsFinal: isFinal}, nil
}

// Reset discards buffered acoustic context, called on TRAILING_SILENCE ->
// IDLE and on the "reset" control message.
func (s *streamingFST) Reset() error {
	s.recognizer.Reset(s.stream)
	return nil
}

// Close releases the native stream and recognizer handles.
func (s *streamingFST) Close() error {
	sherpa.DeleteOnlineStream(s.stream)
	sherpa.DeleteOnlineRecognizer(s.recognizer)
	return nil
}

// IsAvailable reports whether the native recognizer and stream handles
// were actually allocated.
func (s *streamingFST) IsAvailable() bool {
	return s.recognizer != nil && s.stream != nil
}
