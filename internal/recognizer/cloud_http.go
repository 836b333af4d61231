package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"sttstream/internal/audio"
	"sttstream/internal/logger"
)

// cloudHTTP implements Recognizer by POSTing raw PCM to a configurable
// cloud speech-to-text HTTP endpoint, one request per Process call. This is
// the back-end the spec names "Cloud HTTP recognizer" (§4.2, back-end C),
// grounded on original_source/core/voice/recognition/sr_recognizer.py's
// SpeechRecognitionRecognizer: a stateless wrapper around one blocking
// network call per chunk, with UnknownValue-style empty results treated as
// "no speech" rather than an error, and RequestError-style failures logged
// and swallowed rather than propagated as a fatal recognizer error (the
// spec's TransientRecognizerFailure class, §7).
//
// Plain net/http is used deliberately rather than a pack SDK: see
// DESIGN.md for why the examples' only cloud ASR client
// (cloud.google.com/go/speech/apiv1) is a poor fit for this exact
// HTTP-envelope contract.
type cloudHTTP struct {
	client     *http.Client
	endpoint   string
	apiKey     string
	language   string
	encoding   audio.Encoding
	sampleRate int
}

func cloudHTTPAvailable(cfg Config) bool {
	return cfg.CloudHTTP.Endpoint != ""
}

func newCloudHTTP(cfg Config, opts Options) (Recognizer, error) {
	if !cloudHTTPAvailable(cfg) {
		return nil, fmt.Errorf("%w: cloud-http (endpoint not configured)", ErrEngineUnavailable)
	}
	timeout := time.Duration(cfg.CloudHTTP.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sr := opts.SampleRate
	if sr <= 0 {
		sr = 16000
	}
	return &cloudHTTP{
		client:     &http.Client{Timeout: timeout},
		endpoint:   cfg.CloudHTTP.Endpoint,
		apiKey:     cfg.CloudHTTP.APIKey,
		language:   LanguageCode(opts.Language),
		encoding:   opts.Encoding,
		sampleRate: sr,
	}, nil
}

// EngineName implements Recognizer.
func (c *cloudHTTP) EngineName() string { return EngineCloudHTTP }

type cloudRequest struct {
	Audio      []byte `json:"audio"`
	SampleRate int    `json:"sample_rate"`
	SampleW    int    `json:"sample_width"`
	Language   string `json:"language"`
}

type cloudResponse struct {
	Text string `json:"text"`
}

// Process sends pcm (int16 PCM, per the wire contract) as a single
// synchronous request and returns the transcript, always as a final
// result -- the cloud endpoint has no notion of partials. A request that
// times out or errors degrades to an empty, non-final Result rather than
// surfacing an error, matching the original's "log + return empty" policy
// for RequestError.
func (c *cloudHTTP) Process(ctx context.Context, pcm []byte) (Result, error) {
	int16PCM := audio.Float32SamplesToInt16Bytes(audio.SamplesToFloat32(pcm, c.encoding))
	text, err := c.transcribe(ctx, int16PCM)
	if err != nil || text == "" {
		return Result{}, err
	}
	return Result{Text: text, IsFinal: true, Confidence: 1.0}, nil
}

// transcribe issues the single blocking request every call path (streamed
// Process and whole-file TranscribeFile) funnels through. A request that
// times out or errors degrades to ("", nil) rather than surfacing an
// error, matching the original's "log + return empty" policy for
// RequestError.
func (c *cloudHTTP) transcribe(ctx context.Context, int16PCM []byte) (string, error) {
	body, err := json.Marshal(cloudRequest{
		Audio:      int16PCM,
		SampleRate: c.sampleRate,
		SampleW:    2,
		Language:   c.language,
	})
	if err != nil {
		return "", fmt.Errorf("cloud-http: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("cloud-http: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Warn("cloud_http_request_failed", "error", err)
		return "", nil // transient network failure: no speech this round, not fatal
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		logger.Warn("cloud_http_bad_status", "status", resp.StatusCode)
		return "", nil
	}

	var out cloudResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		logger.Warn("cloud_http_decode_failed", "error", err)
		return "", nil
	}
	return out.Text, nil
}

// TranscribeFile implements FileTranscriber: the cloud back-end issues the
// same single-request call regardless of whether it is fed a streamed
// chunk or a whole decoded file, synthesizing one segment spanning the
// whole input since the upstream envelope reports no segment-level timing.
func (c *cloudHTTP) TranscribeFile(ctx context.Context, samples []float32, sampleRate int) (string, []Segment, error) {
	int16PCM := audio.Float32SamplesToInt16Bytes(samples)
	text, err := c.transcribe(ctx, int16PCM)
	if err != nil || text == "" {
		return "", nil, err
	}
	durationS := audio.Duration(len(samples), sampleRate, 1)
	return text, []Segment{{Start: 0, End: durationS, Text: text}}, nil
}

// Reset is a no-op: the cloud back-end holds no buffered state between
// calls.
func (c *cloudHTTP) Reset() error { return nil }

// Close is a no-op: http.Client needs no explicit teardown.
func (c *cloudHTTP) Close() error { return nil }

// IsAvailable reports whether the endpoint is configured and a client was
// constructed.
func (c *cloudHTTP) IsAvailable() bool {
	return c.client != nil && c.endpoint != ""
}
