package audio

import (
	"bytes"
	"errors"
	"testing"
)

// pcmFrame builds a linear16 frame of n samples at a constant amplitude
func pcmFrame(n int, amplitude int16) []byte {
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		out[i*2] = byte(amplitude)
		out[i*2+1] = byte(amplitude >> 8)
	}
	return out
}

func TestMulawToLinear(t *testing.T) {
	tests := []struct {
		in       byte
		expected int16
	}{
		{0xFF, 0},
		{0x7F, 0},
		{0x80, 32124},
		{0x00, -32124},
		{0xEF, 132},
		{0xFE, 8},
		{0x7E, -8},
	}

	for _, tt := range tests {
		if got := mulawToLinear(tt.in); got != tt.expected {
			t.Errorf("mulawToLinear(%#x): expected %d, got %d", tt.in, tt.expected, got)
		}
	}
}

func TestMulawToLinear16_Length(t *testing.T) {
	out := MulawToLinear16([]byte{0xFF, 0x00, 0x80})
	if len(out) != 6 {
		t.Fatalf("Expected 6 bytes, got %d", len(out))
	}
	samples, err := Samples(out)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if samples[0] != 0 {
		t.Errorf("Expected silence for 0xFF, got %d", samples[0])
	}
	if samples[1] == 0 || samples[2] == 0 {
		t.Errorf("Expected loud samples, got %v", samples)
	}
	if (samples[1] > 0) == (samples[2] > 0) {
		t.Errorf("Expected opposite signs, got %v", samples)
	}
}

func TestToLinear16(t *testing.T) {
	frame := pcmFrame(4, 100)
	out, err := ToLinear16(frame, EncodingLinear16)
	if err != nil || !bytes.Equal(out, frame) {
		t.Errorf("Expected linear16 pass-through, got %v (%v)", out, err)
	}

	if _, err := ToLinear16([]byte{1, 2, 3}, EncodingLinear16); !errors.Is(err, ErrOddFrame) {
		t.Errorf("Expected ErrOddFrame, got %v", err)
	}

	if _, err := ToLinear16(frame, "opus"); err == nil {
		t.Error("Expected error for unsupported encoding")
	}
}

func TestSamplesAndRMS(t *testing.T) {
	samples, err := Samples(pcmFrame(3, -1200))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	for _, s := range samples {
		if s != -1200 {
			t.Errorf("Expected -1200, got %d", s)
		}
	}

	if rms := RMS(samples); rms != 1200 {
		t.Errorf("Expected RMS 1200, got %f", rms)
	}
	if RMS(nil) != 0 {
		t.Error("Expected RMS 0 for no samples")
	}
}

func TestVADDetector_SpeechToSilence(t *testing.T) {
	vad := NewVADDetector(VADConfig{EnergyThreshold: 500, SilenceFrames: 3})
	loud := make([]int16, 160)
	for i := range loud {
		loud[i] = 5000
	}
	quiet := make([]int16, 160)

	act := vad.ProcessFrame(loud)
	if !act.Started || !act.Speaking {
		t.Fatalf("Expected speech to start, got %+v", act)
	}
	if act = vad.ProcessFrame(loud); act.Started {
		t.Error("Expected Started only on the first loud frame")
	}

	for i := 0; i < 2; i++ {
		if act = vad.ProcessFrame(quiet); !act.Speaking || act.Ended {
			t.Errorf("Frame %d: expected hangover to keep speech, got %+v", i, act)
		}
	}
	if act = vad.ProcessFrame(quiet); !act.Ended || act.Speaking {
		t.Errorf("Expected speech to end, got %+v", act)
	}

	vad.ProcessFrame(loud)
	vad.Reset()
	if vad.IsSpeaking() {
		t.Error("Expected Reset to clear speech")
	}
}

func TestRingBuffer_KeepsMostRecent(t *testing.T) {
	rb := NewRingBuffer(4)
	rb.Write([]byte{1, 2, 3})
	rb.Write([]byte{4, 5})

	if rb.Len() != 4 {
		t.Errorf("Expected length 4, got %d", rb.Len())
	}
	if got := rb.Drain(); !bytes.Equal(got, []byte{2, 3, 4, 5}) {
		t.Errorf("Expected [2 3 4 5], got %v", got)
	}
	if rb.Len() != 0 {
		t.Error("Expected Drain to empty the buffer")
	}

	rb.Write([]byte{9, 8, 7, 6, 5, 4})
	if got := rb.Drain(); !bytes.Equal(got, []byte{7, 6, 5, 4}) {
		t.Errorf("Expected [7 6 5 4], got %v", got)
	}

	empty := NewRingBuffer(0)
	empty.Write([]byte{1})
	if len(empty.Drain()) != 0 {
		t.Error("Expected zero-size buffer to hold nothing")
	}
}

func TestGate_HoldsLeadingSilence(t *testing.T) {
	g := NewGate(GateConfig{
		Encoding:     EncodingLinear16,
		VAD:          VADConfig{EnergyThreshold: 500, SilenceFrames: 2},
		PrerollBytes: 7, // rounded down to 6
	})
	quiet := pcmFrame(2, 10)
	loud := pcmFrame(2, 4000)

	for i := 0; i < 3; i++ {
		res, err := g.Process(quiet)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(res.Audio) != 0 {
			t.Errorf("Expected silence to be held, got %d bytes", len(res.Audio))
		}
	}
	if g.Open() {
		t.Fatal("Expected gate closed before speech")
	}

	res, _ := g.Process(loud)
	if !g.Open() {
		t.Fatal("Expected gate open after speech")
	}
	// 6 bytes of preroll plus the 4 byte frame
	if len(res.Audio) != 10 {
		t.Errorf("Expected 10 bytes with preroll, got %d", len(res.Audio))
	}

	res, _ = g.Process(quiet)
	if res.Ended || len(res.Audio) != 4 {
		t.Errorf("Expected trailing silence to be forwarded, got %+v", res)
	}
	res, _ = g.Process(quiet)
	if !res.Ended {
		t.Error("Expected end of speech")
	}

	g.Reset()
	if g.Open() {
		t.Error("Expected Reset to close the gate")
	}
}

func TestGate_Disabled(t *testing.T) {
	g := NewGate(GateConfig{Encoding: EncodingMulaw})

	res, err := g.Process([]byte{0xFF, 0xFF})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(res.Audio) != 4 {
		t.Errorf("Expected decoded silence forwarded, got %d bytes", len(res.Audio))
	}
}

func TestGate_RejectsBadFrame(t *testing.T) {
	g := NewGate(GateConfig{VAD: DefaultVADConfig()})
	if _, err := g.Process([]byte{1}); !errors.Is(err, ErrOddFrame) {
		t.Errorf("Expected ErrOddFrame, got %v", err)
	}
}
