package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestWAVRoundTrip(t *testing.T) {
	t.Parallel()

	samples := make([]float32, 300)
	for i := range samples {
		samples[i] = float32(math.Sin(float64(i) / 10))
	}

	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := WriteWAV(path, samples, 44100); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, rate, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if rate != 44100 {
		t.Fatalf("sample rate %d, want 44100", rate)
	}
	if len(got) != len(samples) {
		t.Fatalf("length %d, want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("sample %d: got %g, want %g", i, got[i], samples[i])
		}
	}
}

func TestDecodePCM16(t *testing.T) {
	t.Parallel()

	// Hand-build a minimal stereo PCM16 file; the decoder keeps channel 0.
	body := make([]byte, 44+8)
	copy(body[0:], "RIFF")
	binary.LittleEndian.PutUint32(body[4:], uint32(36+8))
	copy(body[8:], "WAVE")
	copy(body[12:], "fmt ")
	binary.LittleEndian.PutUint32(body[16:], 16)
	binary.LittleEndian.PutUint16(body[20:], 1)
	binary.LittleEndian.PutUint16(body[22:], 2)
	binary.LittleEndian.PutUint32(body[24:], 22050)
	binary.LittleEndian.PutUint32(body[28:], 22050*2*2)
	binary.LittleEndian.PutUint16(body[32:], 4)
	binary.LittleEndian.PutUint16(body[34:], 16)
	copy(body[36:], "data")
	binary.LittleEndian.PutUint32(body[40:], 8)
	binary.LittleEndian.PutUint16(body[44:], uint16(int16(16384)))  // frame 0 left
	binary.LittleEndian.PutUint16(body[46:], 0xFFFF)                // frame 0 right: int16(-1)
	binary.LittleEndian.PutUint16(body[48:], 0x8000)                // frame 1 left: int16(-32768)
	binary.LittleEndian.PutUint16(body[50:], uint16(int16(0)))      // frame 1 right

	samples, rate, err := DecodeWAV(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rate != 22050 {
		t.Fatalf("sample rate %d, want 22050", rate)
	}
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	if samples[0] != 0.5 || samples[1] != -1 {
		t.Fatalf("samples %v, want [0.5 -1]", samples)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, _, err := DecodeWAV([]byte("not a wav file at all, padded w/ junk")); !errors.Is(err, ErrBadWAV) {
		t.Fatalf("got %v, want ErrBadWAV", err)
	}

	// Truncated data chunk.
	good := EncodeWAV(make([]float32, 64), 8000)
	if _, _, err := DecodeWAV(good[:len(good)-10]); !errors.Is(err, ErrBadWAV) {
		t.Fatalf("truncated: got %v, want ErrBadWAV", err)
	}
}

func TestReadWAVMissingFile(t *testing.T) {
	t.Parallel()

	_, _, err := ReadWAV(filepath.Join(t.TempDir(), "nope.wav"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("got %v, want os.ErrNotExist", err)
	}
}
