package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Transcription provider modes
const (
	TranscriptionSimulated = "simulated"
	TranscriptionLive      = "live"
)

// Summary provider modes
const (
	SummarySimulated = "simulated"
	SummaryLLM       = "llm"
)

// Notes document modes
const (
	NotesDerived  = "derived"
	NotesEditable = "editable"
)

// Config holds all configuration for the session gateway service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Public base URL for this service, used only when logging the WebSocket endpoint.
	// Optional; if unset, logs ws://localhost:PORT/sessions/ws.
	PublicURL string `envconfig:"PUBLIC_URL" default:""`

	// Port for the grpc.health.v1 server. Empty disables it.
	GRPCHealthPort string `envconfig:"GRPC_HEALTH_PORT" default:"9090"`

	// Origins allowed to open a session socket. Empty allows all origins.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:""`

	// Provider selection
	TranscriptionMode string `envconfig:"TRANSCRIPTION_MODE" default:"simulated"` // simulated, live
	SummaryMode       string `envconfig:"SUMMARY_MODE" default:"simulated"`       // simulated, llm
	NotesMode         string `envconfig:"NOTES_MODE" default:"derived"`           // derived, editable

	// Upper bound on a single transcription or summary call
	ProviderTimeout int `envconfig:"PROVIDER_TIMEOUT" default:"20"` // seconds

	// Simulated provider latency
	SimulatedTranscriptionDelay int `envconfig:"SIMULATED_TRANSCRIPTION_DELAY_MS" default:"3000"`
	SimulatedSummaryDelay       int `envconfig:"SIMULATED_SUMMARY_DELAY_MS" default:"2000"`

	// Session defaults (used when the query parameters are missing)
	DefaultSourceLanguage string `envconfig:"DEFAULT_SOURCE_LANGUAGE" default:"en"`
	DefaultTargetLanguage string `envconfig:"DEFAULT_TARGET_LANGUAGE" default:"es"`
	LanguagesFile         string `envconfig:"LANGUAGES_FILE" default:""`

	// Free-text clinical context forwarded to providers
	InitialGreeting string `envconfig:"INITIAL_GREETING" default:""`

	// Deepgram STT API configuration
	DeepgramAPIKey  string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramModel   string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	AudioEncoding   string `envconfig:"AUDIO_ENCODING" default:"linear16"` // client frames: linear16, mulaw
	AudioSampleRate int    `envconfig:"AUDIO_SAMPLE_RATE" default:"16000"`

	// Speech gate applied to client audio in live mode
	VADEnergyThreshold float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"500"` // 0 forwards all audio
	VADSilenceFrames   int     `envconfig:"VAD_SILENCE_FRAMES" default:"40"`    // quiet frames that end an utterance
	PrerollMs          int     `envconfig:"PREROLL_MS" default:"300"`           // audio kept from before speech starts

	// OpenAI configuration (translation and note generation)
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:""`

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum retry attempts
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds
	ReconnectMaxAttempts       int `envconfig:"RECONNECT_MAX_ATTEMPTS" default:"5"`         // Maximum stream open attempts
	ReconnectBackoff           int `envconfig:"RECONNECT_BACKOFF" default:"1000"`           // Stream open backoff in milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks mode values and the credentials each mode needs
func (c *Config) Validate() error {
	switch c.TranscriptionMode {
	case TranscriptionSimulated:
	case TranscriptionLive:
		if c.DeepgramAPIKey == "" {
			return fmt.Errorf("DEEPGRAM_API_KEY is required when TRANSCRIPTION_MODE=live")
		}
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when TRANSCRIPTION_MODE=live")
		}
	default:
		return fmt.Errorf("invalid TRANSCRIPTION_MODE %q (want %s or %s)", c.TranscriptionMode, TranscriptionSimulated, TranscriptionLive)
	}

	switch c.SummaryMode {
	case SummarySimulated:
	case SummaryLLM:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when SUMMARY_MODE=llm")
		}
	default:
		return fmt.Errorf("invalid SUMMARY_MODE %q (want %s or %s)", c.SummaryMode, SummarySimulated, SummaryLLM)
	}

	if c.NotesMode != NotesDerived && c.NotesMode != NotesEditable {
		return fmt.Errorf("invalid NOTES_MODE %q (want %s or %s)", c.NotesMode, NotesDerived, NotesEditable)
	}

	if c.AudioEncoding != "linear16" && c.AudioEncoding != "mulaw" {
		return fmt.Errorf("invalid AUDIO_ENCODING %q (want linear16 or mulaw)", c.AudioEncoding)
	}

	if c.VADEnergyThreshold < 0 {
		return fmt.Errorf("VAD_ENERGY_THRESHOLD must not be negative, got %v", c.VADEnergyThreshold)
	}

	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive, got %d", c.ProviderTimeout)
	}

	return nil
}

// ProviderTimeoutDuration returns the provider call bound as a time.Duration
func (c *Config) ProviderTimeoutDuration() time.Duration {
	return time.Duration(c.ProviderTimeout) * time.Second
}

// PrerollBytes returns the preroll length in bytes of 16-bit mono audio
func (c *Config) PrerollBytes() int {
	return c.AudioSampleRate * 2 * c.PrerollMs / 1000
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
