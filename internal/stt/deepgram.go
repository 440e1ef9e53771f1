package stt

import (
	"context"
	"errors"
	"fmt"
	"time"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/curalingo/session-gateway/internal/audio"
	"github.com/curalingo/session-gateway/internal/config"
	"github.com/curalingo/session-gateway/internal/language"
	"github.com/curalingo/session-gateway/internal/observability"
	"github.com/curalingo/session-gateway/internal/resilience"
)

// drainGrace is how long to wait for trailing finals after the audio feed closes
const drainGrace = 1500 * time.Millisecond

// streamCallback implements the LiveMessageCallback interface.
// It embeds the default handler and overrides only the methods we need.
type streamCallback struct {
	*websocketv1api.DefaultCallbackHandler
	collector *collector
	errs      chan error
	logger    zerolog.Logger
}

// Message feeds transcription results into the collector
func (c *streamCallback) Message(msg *msginterfaces.MessageResponse) error {
	seg, ok := segmentFromMessage(msg)
	if !ok {
		return nil
	}
	if seg.IsFinal {
		c.logger.Debug().Str("text", seg.Text).Float64("confidence", seg.Confidence).Msg("Final segment")
	}
	c.collector.add(seg)
	return nil
}

// UtteranceEnd ends the utterance after a silence gap
func (c *streamCallback) UtteranceEnd(*msginterfaces.UtteranceEndResponse) error {
	c.collector.utteranceEnd()
	return nil
}

// Error reports a stream failure to the waiting turn
func (c *streamCallback) Error(er *msginterfaces.ErrorResponse) error {
	err := fmt.Errorf("deepgram stream error: %+v", er)
	select {
	case c.errs <- err:
	default:
	}
	return nil
}

// segmentFromMessage extracts the best alternative of a Results message
func segmentFromMessage(msg *msginterfaces.MessageResponse) (Segment, bool) {
	if msg == nil || len(msg.Channel.Alternatives) == 0 {
		return Segment{}, false
	}
	if msg.Type != "" && msg.Type != "Results" && msg.Type != "Message" {
		return Segment{}, false
	}

	alt := msg.Channel.Alternatives[0]
	seg := Segment{
		Text:        alt.Transcript,
		IsFinal:     msg.IsFinal,
		SpeechFinal: msg.SpeechFinal,
		Confidence:  alt.Confidence,
		StartTime:   msg.Start,
		Duration:    msg.Duration,
	}
	if seg.Text == "" && !seg.SpeechFinal {
		return Segment{}, false
	}
	return seg, true
}

// DeepgramRecognizer opens one Deepgram live stream per utterance
type DeepgramRecognizer struct {
	apiKey     string
	model      string
	encoding   string
	sampleRate int

	reconnect      *resilience.ReconnectConfig
	circuitBreaker *resilience.CircuitBreaker
	logger         zerolog.Logger
}

// NewDeepgramRecognizer creates a recognizer from service configuration
func NewDeepgramRecognizer(cfg *config.Config) *DeepgramRecognizer {
	return &DeepgramRecognizer{
		apiKey:     cfg.DeepgramAPIKey,
		model:      cfg.DeepgramModel,
		encoding:   audio.EncodingLinear16, // the audio feed normalizes client frames
		sampleRate: cfg.AudioSampleRate,
		reconnect: &resilience.ReconnectConfig{
			MaxAttempts: cfg.ReconnectMaxAttempts,
			Backoff:     time.Duration(cfg.ReconnectBackoff) * time.Millisecond,
			Multiplier:  2.0,
			MaxBackoff:  10 * time.Second,
		},
		circuitBreaker: resilience.NewCircuitBreaker(
			"deepgram",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
		logger: observability.WithComponent("deepgram"),
	}
}

// Recognize streams audio to Deepgram until the utterance is complete
func (d *DeepgramRecognizer) Recognize(ctx context.Context, lang language.Code, frames <-chan []byte) (Result, error) {
	result, err := resilience.Guard(ctx, d.circuitBreaker, func(ctx context.Context) (Result, error) {
		return d.recognize(ctx, lang, frames)
	})
	if err != nil {
		return Result{}, err
	}
	if result.Text == "" {
		return Result{}, ErrNoSpeech
	}
	return result, nil
}

func (d *DeepgramRecognizer) recognize(ctx context.Context, lang language.Code, frames <-chan []byte) (Result, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          d.model,
		Language:       string(lang),
		Punctuate:      true,
		InterimResults: true,
		UtteranceEndMs: "1000", // End utterance after 1 second of silence
		VadEvents:      true,
		Encoding:       d.encoding,
		Channels:       1,
		SampleRate:     d.sampleRate,
	}

	col := newCollector()
	callback := &streamCallback{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		collector:              col,
		errs:                   make(chan error, 1),
		logger:                 d.logger,
	}

	client, err := resilience.Reconnect(streamCtx, "deepgram", d.reconnect, func(ctx context.Context) (*listenClient.WSCallback, error) {
		c, err := listenClient.NewWSUsingCallback(ctx, d.apiKey, nil, tOptions, callback)
		if err != nil {
			return nil, fmt.Errorf("failed to create Deepgram client: %w", err)
		}
		if !c.Connect() {
			return nil, errors.New("failed to connect to Deepgram")
		}
		return c, nil
	})
	if err != nil {
		return Result{}, err
	}
	defer client.Finish()

	d.logger.Debug().Str("language", string(lang)).Str("model", d.model).Msg("Deepgram stream opened")

	var drain <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()

		case err := <-callback.errs:
			return Result{}, err

		case <-col.done:
			return col.result(), nil

		case <-drain:
			return col.result(), nil

		case frame, ok := <-frames:
			if !ok {
				frames = nil
				drain = time.After(drainGrace)
				continue
			}
			if _, err := client.Write(frame); err != nil {
				return Result{}, fmt.Errorf("failed to send audio to Deepgram: %w", err)
			}
		}
	}
}

// HealthCheck reports the recognizer's circuit state
func (d *DeepgramRecognizer) HealthCheck(ctx context.Context) (bool, error) {
	return d.circuitBreaker.HealthCheck(ctx)
}
