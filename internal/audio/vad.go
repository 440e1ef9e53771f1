package audio

// VADConfig holds configuration for energy based voice activity detection
type VADConfig struct {
	EnergyThreshold float64 // RMS level above which a frame counts as speech
	SilenceFrames   int     // Consecutive quiet frames that end speech
}

// DefaultVADConfig returns a default VAD configuration
func DefaultVADConfig() VADConfig {
	return VADConfig{
		EnergyThreshold: 500.0,
		SilenceFrames:   40, // 800ms of 20ms frames
	}
}

// Activity is the detector's verdict for one frame
type Activity struct {
	Speaking bool
	Started  bool
	Ended    bool
}

// VADDetector tracks speech across frames. It is not safe for concurrent use.
type VADDetector struct {
	config         VADConfig
	silenceCounter int
	speaking       bool
}

// NewVADDetector creates a new VAD detector
func NewVADDetector(config VADConfig) *VADDetector {
	if config.SilenceFrames <= 0 {
		config.SilenceFrames = DefaultVADConfig().SilenceFrames
	}
	return &VADDetector{config: config}
}

// ProcessFrame classifies one frame of samples
func (v *VADDetector) ProcessFrame(samples []int16) Activity {
	var act Activity

	if RMS(samples) > v.config.EnergyThreshold {
		v.silenceCounter = 0
		if !v.speaking {
			v.speaking = true
			act.Started = true
		}
	} else {
		v.silenceCounter++
		if v.speaking && v.silenceCounter >= v.config.SilenceFrames {
			v.speaking = false
			v.silenceCounter = 0
			act.Ended = true
		}
	}

	act.Speaking = v.speaking
	return act
}

// Reset clears the detector state
func (v *VADDetector) Reset() {
	v.silenceCounter = 0
	v.speaking = false
}

// IsSpeaking returns whether speech is currently detected
func (v *VADDetector) IsSpeaking() bool {
	return v.speaking
}
