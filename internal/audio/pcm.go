// Package audio prepares client microphone frames for speech recognition.
package audio

import (
	"errors"
	"fmt"
	"math"
)

// Client frame encodings
const (
	EncodingLinear16 = "linear16" // 16-bit signed little-endian PCM
	EncodingMulaw    = "mulaw"    // G.711 μ-law
)

// ErrOddFrame is returned for linear16 frames that split a sample
var ErrOddFrame = errors.New("linear16 frame length must be even")

// ToLinear16 returns frame as 16-bit little-endian PCM
func ToLinear16(frame []byte, encoding string) ([]byte, error) {
	switch encoding {
	case EncodingLinear16:
		if len(frame)%2 != 0 {
			return nil, ErrOddFrame
		}
		return frame, nil
	case EncodingMulaw:
		return MulawToLinear16(frame), nil
	default:
		return nil, fmt.Errorf("unsupported audio encoding %q", encoding)
	}
}

// MulawToLinear16 expands G.711 μ-law bytes to 16-bit little-endian PCM
func MulawToLinear16(frame []byte) []byte {
	out := make([]byte, len(frame)*2)
	for i, b := range frame {
		sample := mulawToLinear(b)
		out[i*2] = byte(sample)
		out[i*2+1] = byte(sample >> 8)
	}
	return out
}

// mulawToLinear decodes one μ-law byte (ITU-T G.711)
func mulawToLinear(b byte) int16 {
	// μ-law is stored bit-inverted
	b = ^b

	sign := b & 0x80
	segment := int32((b >> 4) & 0x07)
	mantissa := int32(b & 0x0F)

	// 16-bit expansion with the standard bias of 0x84
	magnitude := ((mantissa<<3)+0x84)<<segment - 0x84

	if sign != 0 {
		return int16(-magnitude)
	}
	return int16(magnitude)
}

// Samples decodes 16-bit little-endian PCM
func Samples(pcm []byte) ([]int16, error) {
	if len(pcm)%2 != 0 {
		return nil, ErrOddFrame
	}

	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
	}
	return samples, nil
}

// RMS returns the root mean square level of samples
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}

	sum := 0.0
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
