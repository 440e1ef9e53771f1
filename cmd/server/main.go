package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/curalingo/session-gateway/internal/audio"
	"github.com/curalingo/session-gateway/internal/config"
	"github.com/curalingo/session-gateway/internal/gateway"
	"github.com/curalingo/session-gateway/internal/interpreter"
	"github.com/curalingo/session-gateway/internal/language"
	"github.com/curalingo/session-gateway/internal/llm"
	"github.com/curalingo/session-gateway/internal/observability"
	"github.com/curalingo/session-gateway/internal/session"
	"github.com/curalingo/session-gateway/internal/simulated"
	"github.com/curalingo/session-gateway/internal/stt"
)

const (
	shutdownTimeout    = 30 * time.Second
	healthPollInterval = 15 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	languages, err := loadLanguages(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load language directory")
	}

	providers, checks, err := buildProviders(cfg, languages)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create providers")
	}

	logger.Info().
		Str("port", cfg.Port).
		Str("transcription_mode", cfg.TranscriptionMode).
		Str("summary_mode", cfg.SummaryMode).
		Str("notes_mode", cfg.NotesMode).
		Int("languages", len(languages.List())).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Session Gateway Service starting")

	handler := gateway.NewHandler(gateway.Options{
		Languages:      languages,
		Providers:      providers,
		NotesMode:      session.NotesMode(cfg.NotesMode),
		DefaultSource:  language.Code(cfg.DefaultSourceLanguage),
		DefaultTarget:  language.Code(cfg.DefaultTargetLanguage),
		Context:        cfg.InitialGreeting,
		Timeout:        cfg.ProviderTimeoutDuration(),
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// Create HTTP server
	mux := http.NewServeMux()
	mux.Handle("/sessions/ws", handler)
	mux.HandleFunc("/languages", handler.LanguagesHandler())
	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(checks...))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		endpoint := cfg.PublicURL
		if endpoint == "" {
			endpoint = fmt.Sprintf("ws://localhost:%s", cfg.Port)
		}
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", endpoint+"/sessions/ws").
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if cfg.GRPCHealthPort != "" {
		grpcHealth := observability.NewGRPCHealthServer(healthPollInterval, checks...)
		g.Go(func() error {
			return grpcHealth.Serve(gctx, ":"+cfg.GRPCHealthPort)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down server...")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		if err := handler.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("sessions did not close: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("Server stopped with error")
	}

	logger.Info().Msg("Server exited gracefully")
}

func loadLanguages(cfg *config.Config) (*language.Directory, error) {
	if cfg.LanguagesFile == "" {
		return language.Default(), nil
	}
	return language.LoadFile(cfg.LanguagesFile)
}

// buildProviders wires the transcription and summary providers for the
// configured modes and returns the readiness checks for the live ones
func buildProviders(cfg *config.Config, languages *language.Directory) (gateway.Providers, []observability.HealthCheck, error) {
	var (
		providers gateway.Providers
		checks    []observability.HealthCheck
		client    *llm.Client
	)

	if cfg.TranscriptionMode == config.TranscriptionLive || cfg.SummaryMode == config.SummaryLLM {
		c, err := llm.NewClient(cfg, languages)
		if err != nil {
			return providers, nil, err
		}
		client = c
		checks = append(checks, observability.HealthCheck{Name: "openai", Check: client.HealthCheck})
	}

	switch cfg.TranscriptionMode {
	case config.TranscriptionLive:
		recognizer := stt.NewDeepgramRecognizer(cfg)
		translator := llm.NewTranslator(client)
		checks = append(checks, observability.HealthCheck{Name: "deepgram", Check: recognizer.HealthCheck})

		gateConfig := audio.GateConfig{
			Encoding: cfg.AudioEncoding,
			VAD: audio.VADConfig{
				EnergyThreshold: cfg.VADEnergyThreshold,
				SilenceFrames:   cfg.VADSilenceFrames,
			},
			PrerollBytes: cfg.PrerollBytes(),
		}

		providers.NewTranscriber = func() (session.TranscriptionProvider, gateway.AudioSink) {
			feed := interpreter.NewAudioFeed(audio.NewGate(gateConfig))
			return interpreter.New(recognizer, translator, feed), feed
		}

	default:
		delay := time.Duration(cfg.SimulatedTranscriptionDelay) * time.Millisecond
		providers.NewTranscriber = func() (session.TranscriptionProvider, gateway.AudioSink) {
			return simulated.NewTranscriber(delay), nil
		}
	}

	switch cfg.SummaryMode {
	case config.SummaryLLM:
		providers.Summarizer = llm.NewSummarizer(client)
	default:
		providers.Summarizer = simulated.NewSummarizer(time.Duration(cfg.SimulatedSummaryDelay) * time.Millisecond)
	}

	return providers, checks, nil
}
