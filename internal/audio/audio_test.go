package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func encodeFloat32(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], math.Float32bits(s))
	}
	return out
}

func TestFloat32ToInt16RoundTrip(t *testing.T) {
	in := encodeFloat32([]float32{0, 0.5, -0.5, 1, -1})
	i16 := Float32ToInt16(in)
	back := Int16ToFloat32(i16)
	orig := Float32SamplesFromBytes(in)
	got := Float32SamplesFromBytes(back)
	if len(orig) != len(got) {
		t.Fatalf("length mismatch: %d vs %d", len(orig), len(got))
	}
	for i := range orig {
		diff := math.Abs(float64(orig[i] - got[i]))
		if diff > 1.0/32767+1e-6 {
			t.Errorf("sample %d: round trip drifted by %f, want <= 1 LSB", i, diff)
		}
	}
}

func TestFloat32ToInt16MisalignedReturnsUnchanged(t *testing.T) {
	bad := []byte{1, 2, 3}
	got := Float32ToInt16(bad)
	if len(got) != len(bad) {
		t.Fatalf("expected unchanged buffer on misaligned input, got len %d", len(got))
	}
}

func TestRMSEnergySilence(t *testing.T) {
	silence := encodeFloat32(make([]float32, 160))
	rms := RMSEnergy(silence)
	if rms != 0 {
		t.Errorf("expected 0 RMS for silence, got %f", rms)
	}
}

func TestDetectVoiceActivity(t *testing.T) {
	loud := encodeFloat32([]float32{0.9, -0.9, 0.9, -0.9})
	active, rms := DetectVoiceActivity(loud, 0.3)
	if !active {
		t.Errorf("expected voice activity detected, rms=%f", rms)
	}

	quiet := encodeFloat32([]float32{0.01, -0.01, 0.01, -0.01})
	active, rms = DetectVoiceActivity(quiet, 0.3)
	if active {
		t.Errorf("expected no voice activity, rms=%f", rms)
	}
}

func TestDurationDerivesFromBytesPerSample(t *testing.T) {
	// 16000 samples/sec, int16 (2 bytes/sample): 1 second == 32000 bytes.
	d := Duration(32000, 16000, BytesPerSample(EncodingInt16))
	if d != 1 {
		t.Errorf("expected 1s duration, got %f", d)
	}
	// Same byte length interpreted as float32 (4 bytes/sample) is half as
	// many samples, so half the duration -- this is exactly the bug
	// Open Question (a) calls out when bytes_per_sample is hardcoded.
	d = Duration(32000, 16000, BytesPerSample(EncodingFloat32))
	if d != 0.5 {
		t.Errorf("expected 0.5s duration for float32 encoding, got %f", d)
	}
}
