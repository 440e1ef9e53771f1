package audio

// GateConfig configures a speech gate
type GateConfig struct {
	Encoding     string // client frame encoding
	VAD          VADConfig
	PrerollBytes int // linear16 audio kept from before speech starts
}

// GateResult is the outcome of one frame
type GateResult struct {
	Audio []byte // linear16 audio to forward, empty while held back
	Ended bool   // speech stopped after having started
}

// Gate normalizes client frames to linear16 and holds back leading silence.
// Once speech starts the buffered preroll and every following frame are
// forwarded until the detector reports the end of speech. A zero energy
// threshold forwards everything. Gate is not safe for concurrent use.
type Gate struct {
	config  GateConfig
	vad     *VADDetector
	preroll *RingBuffer
	open    bool
}

// NewGate creates a gate
func NewGate(config GateConfig) *Gate {
	if config.Encoding == "" {
		config.Encoding = EncodingLinear16
	}
	// keep whole samples
	config.PrerollBytes -= config.PrerollBytes % 2

	return &Gate{
		config:  config,
		vad:     NewVADDetector(config.VAD),
		preroll: NewRingBuffer(config.PrerollBytes),
	}
}

// Process runs one client frame through the gate
func (g *Gate) Process(frame []byte) (GateResult, error) {
	pcm, err := ToLinear16(frame, g.config.Encoding)
	if err != nil {
		return GateResult{}, err
	}

	if g.config.VAD.EnergyThreshold <= 0 {
		return GateResult{Audio: pcm}, nil
	}

	samples, err := Samples(pcm)
	if err != nil {
		return GateResult{}, err
	}
	act := g.vad.ProcessFrame(samples)

	if !g.open {
		if !act.Started {
			g.preroll.Write(pcm)
			return GateResult{}, nil
		}
		g.open = true
		held := g.preroll.Drain()
		return GateResult{Audio: append(held, pcm...)}, nil
	}

	return GateResult{Audio: pcm, Ended: act.Ended}, nil
}

// Reset prepares the gate for a new utterance
func (g *Gate) Reset() {
	g.vad.Reset()
	g.preroll.Clear()
	g.open = false
}

// Open reports whether speech has started since the last reset
func (g *Gate) Open() bool {
	return g.open
}
