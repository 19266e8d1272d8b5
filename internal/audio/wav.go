// Package audio provides minimal WAV I/O for the CLI. Mono only; 32-bit
// float written, 16-bit PCM and 32-bit float read.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
)

var ErrBadWAV = errors.New("audio: unsupported or corrupt WAV file")

// EncodeWAV renders mono float32 samples as a 32-bit float WAV file body.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	const channels = 1
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3) // IEEE float
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}

// WriteWAV writes mono samples to path.
func WriteWAV(path string, samples []float32, sampleRate int) error {
	return os.WriteFile(path, EncodeWAV(samples, sampleRate), 0o644)
}

// ReadWAV loads the first channel of a PCM16 or float32 WAV file.
func ReadWAV(path string) ([]float32, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	return DecodeWAV(data)
}

// DecodeWAV parses a WAV body, returning mono samples and the sample rate.
func DecodeWAV(data []byte) ([]float32, int, error) {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, ErrBadWAV
	}

	var (
		format     uint16
		channels   int
		sampleRate int
		bits       int
	)

	// Walk chunks; fmt must precede data.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			return nil, 0, fmt.Errorf("%w: chunk %q overruns file", ErrBadWAV, id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, ErrBadWAV
			}
			format = binary.LittleEndian.Uint16(data[body:])
			channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bits = int(binary.LittleEndian.Uint16(data[body+14:]))
		case "data":
			if channels == 0 {
				return nil, 0, fmt.Errorf("%w: data before fmt", ErrBadWAV)
			}
			samples, err := decodeSamples(data[body:body+size], format, channels, bits)
			if err != nil {
				return nil, 0, err
			}
			return samples, sampleRate, nil
		}
		off = body + size
		if size%2 == 1 {
			off++
		}
	}
	return nil, 0, fmt.Errorf("%w: no data chunk", ErrBadWAV)
}

func decodeSamples(body []byte, format uint16, channels, bits int) ([]float32, error) {
	switch {
	case format == 1 && bits == 16:
		stride := 2 * channels
		n := len(body) / stride
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			v := int16(binary.LittleEndian.Uint16(body[i*stride:]))
			out[i] = float32(v) / 32768
		}
		return out, nil
	case format == 3 && bits == 32:
		stride := 4 * channels
		n := len(body) / stride
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[i*stride:]))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: format %d bits %d", ErrBadWAV, format, bits)
	}
}
