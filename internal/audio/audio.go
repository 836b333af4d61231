// Package audio holds stateless PCM conversion and energy helpers shared by
// the session buffer and the recognizer back-ends. Nothing here holds state
// or talks to a recognizer; it exists so that window math and VAD decisions
// use one audited implementation instead of being duplicated per back-end.
package audio

import (
	"encoding/binary"
	"log/slog"
	"math"
)

// Encoding identifies how raw bytes in a chunk should be interpreted.
type Encoding string

const (
	EncodingFloat32 Encoding = "float32"
	EncodingInt16   Encoding = "int16"
)

// BytesPerSample returns the wire width of one mono sample for encoding.
// Unknown encodings default to float32 width (4), matching the metadata
// default used throughout the streaming channel (see config defaults).
func BytesPerSample(enc Encoding) int {
	switch enc {
	case EncodingInt16:
		return 2
	case EncodingFloat32:
		return 4
	default:
		return 4
	}
}

// Float32ToInt16 converts little-endian float32 PCM samples in [-1, 1] to
// little-endian int16 PCM. On malformed input (length not a multiple of 4)
// it logs and returns the input unchanged, matching the original Python
// recognizer's fallback behavior rather than panicking mid-stream.
func Float32ToInt16(data []byte) []byte {
	if len(data)%4 != 0 {
		slog.Error("audio: float32_to_int16 received misaligned buffer", "len", len(data))
		return data
	}
	n := len(data) / 4
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		f := math.Float32frombits(bits)
		if f > 1 {
			f = 1
		} else if f < -1 {
			f = -1
		}
		s := int16(f * 32767)
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(s))
	}
	return out
}

// Int16ToFloat32 converts little-endian int16 PCM to little-endian float32
// PCM in [-1, 1]. On malformed input it logs and returns the input
// unchanged.
func Int16ToFloat32(data []byte) []byte {
	if len(data)%2 != 0 {
		slog.Error("audio: int16_to_float32 received misaligned buffer", "len", len(data))
		return data
	}
	n := len(data) / 2
	out := make([]byte, n*4)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
		f := float32(s) / 32767
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], math.Float32bits(f))
	}
	return out
}

// Int16SamplesToFloat32 decodes little-endian int16 PCM directly into a
// []float32 sample slice, skipping the byte round-trip Int16ToFloat32
// would otherwise require. Used by recognizer back-ends that accept
// samples rather than wire bytes (e.g. sherpa-onnx, whisper.cpp).
func Int16SamplesToFloat32(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
		out[i] = float32(s) / 32767
	}
	return out
}

// Float32SamplesFromBytes decodes little-endian float32 PCM directly into a
// []float32 sample slice.
func Float32SamplesFromBytes(data []byte) []float32 {
	n := len(data) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
	}
	return out
}

// SamplesToFloat32 decodes pcm bytes into float32 samples according to
// enc, dispatching between the int16 and float32 wire formats. Recognizer
// back-ends use this instead of assuming one format, since a session's
// declared AudioMetadata.Encoding is the primary signal for how its
// buffered chunks must be interpreted.
func SamplesToFloat32(data []byte, enc Encoding) []float32 {
	if enc == EncodingInt16 {
		return Int16SamplesToFloat32(data)
	}
	return Float32SamplesFromBytes(data)
}

// Float32SamplesToInt16Bytes encodes float32 samples in [-1, 1] as
// little-endian int16 PCM bytes, the inverse of Int16SamplesToFloat32.
func Float32SamplesToInt16Bytes(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, f := range samples {
		if f > 1 {
			f = 1
		} else if f < -1 {
			f = -1
		}
		s := int16(f * 32767)
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(s))
	}
	return out
}

// RMSEnergy computes the root-mean-square energy of float32 PCM samples
// (as little-endian bytes). Returns 0 for an empty buffer.
func RMSEnergy(data []byte) float64 {
	samples := Float32SamplesFromBytes(data)
	if len(samples) == 0 {
		return 0
	}
	var sumSquares float64
	for _, s := range samples {
		sumSquares += float64(s) * float64(s)
	}
	return math.Sqrt(sumSquares / float64(len(samples)))
}

// DetectVoiceActivity reports whether float32 PCM bytes exceed the given RMS
// threshold, along with the measured RMS value. Errors in the underlying
// samples (handled defensively, matching the original's broad except)
// degrade to (false, 0) rather than surfacing to the caller.
func DetectVoiceActivity(data []byte, threshold float64) (bool, float64) {
	if len(data)%4 != 0 {
		slog.Warn("audio: detect_voice_activity received misaligned buffer", "len", len(data))
		return false, 0
	}
	rms := RMSEnergy(data)
	return rms > threshold, rms
}

// Duration returns the playback duration of a byte buffer given the sample
// rate and the wire width of one mono sample, replacing the original's
// hardcoded 4-bytes-per-sample assumption (see Open Question (a)).
func Duration(byteLen, sampleRate, bytesPerSample int) float64 {
	if sampleRate <= 0 || bytesPerSample <= 0 {
		return 0
	}
	samples := byteLen / bytesPerSample
	return float64(samples) / float64(sampleRate)
}
