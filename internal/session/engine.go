package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/curalingo/session-gateway/internal/language"
	"github.com/curalingo/session-gateway/internal/observability"
)

// DefaultProviderTimeout bounds a single provider call when none is configured
const DefaultProviderTimeout = 20 * time.Second

// EngineOptions configures a TurnEngine
type EngineOptions struct {
	SessionID string
	Source    language.Code
	Target    language.Code
	Languages *language.Directory
	Context   string
	Timeout   time.Duration
	Metrics   *observability.SessionMetrics
}

// TurnEngine alternates the floor between provider and patient. At most one
// transcription is in flight; its result is dropped if the turn it belongs to
// was cancelled in the meantime.
type TurnEngine struct {
	provider   TranscriptionProvider
	transcript *Transcript
	sink       EventSink
	opts       EngineOptions
	logger     zerolog.Logger

	baseCtx context.Context

	mu         sync.Mutex
	state      TurnState
	speaker    Role
	generation uint64
	cancel     context.CancelFunc
	suspended  bool

	wg sync.WaitGroup
}

// NewTurnEngine creates an engine in Idle(Provider). Provider calls are bounded by
// ctx as well as by the configured timeout.
func NewTurnEngine(ctx context.Context, provider TranscriptionProvider, transcript *Transcript, sink EventSink, opts EngineOptions) *TurnEngine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultProviderTimeout
	}
	if opts.Languages == nil {
		opts.Languages = language.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewSessionMetrics(opts.SessionID)
	}
	if sink == nil {
		sink = NopSink{}
	}

	return &TurnEngine{
		provider:   provider,
		transcript: transcript,
		sink:       sink,
		opts:       opts,
		logger:     observability.WithSessionID(opts.SessionID).With().Str("component", "turn_engine").Logger(),
		baseCtx:    ctx,
		state:      Idle,
		speaker:    Provider,
	}
}

// LanguageFor returns the language a role speaks: the provider speaks the source
// language and the patient the target language.
func (e *TurnEngine) LanguageFor(r Role) language.Code {
	if r == Provider {
		return e.opts.Source
	}
	return e.opts.Target
}

// Status returns the current turn state
func (e *TurnEngine) Status() TurnStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

func (e *TurnEngine) statusLocked() TurnStatus {
	return TurnStatus{State: e.state, Speaker: e.speaker, Language: e.LanguageFor(e.speaker)}
}

// ToggleListening starts a turn for the current speaker when idle, or cancels
// the running turn when listening.
func (e *TurnEngine) ToggleListening() (TurnStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.suspended {
		return e.statusLocked(), ErrSessionNotOpen
	}

	if e.state == Listening {
		e.cancelTurnLocked()
		e.opts.Metrics.RecordTranscriptionEnd("cancelled")
		e.logger.Info().Str("speaker", e.speaker.String()).Msg("Turn cancelled")
		status := e.statusLocked()
		e.sink.TurnChanged(status)
		return status, nil
	}

	e.generation++
	gen := e.generation
	ctx, cancel := context.WithTimeout(e.baseCtx, e.opts.Timeout)
	e.cancel = cancel
	e.state = Listening

	speakerLang := e.LanguageFor(e.speaker)
	req := TranscriptionRequest{
		Role:             e.speaker,
		SpeakerLanguage:  speakerLang,
		ListenerLanguage: e.LanguageFor(e.speaker.Other()),
		Source:           e.opts.Source,
		Target:           e.opts.Target,
		Context:          e.opts.Context,
	}

	e.opts.Metrics.RecordTranscriptionStart()
	e.logger.Info().
		Str("speaker", e.speaker.String()).
		Str("language", string(speakerLang)).
		Uint64("turn", gen).
		Msg("Listening")

	status := e.statusLocked()
	e.sink.Notify(Notice{
		Kind:        NoticeListeningStarted,
		Title:       fmt.Sprintf("Now listening for %s speech", e.speaker),
		Description: fmt.Sprintf("Speak now in %s", e.opts.Languages.Name(speakerLang)),
	})
	e.sink.TurnChanged(status)

	e.wg.Add(1)
	go e.run(ctx, cancel, gen, req)

	return status, nil
}

func (e *TurnEngine) run(ctx context.Context, cancel context.CancelFunc, gen uint64, req TranscriptionRequest) {
	defer e.wg.Done()
	defer cancel()

	res, err := e.provider.Transcribe(ctx, req)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s: %v", ErrProviderTimeout, e.opts.Timeout, err)
	}
	e.complete(gen, req.Role, res, err)
}

// complete applies a provider result to the turn it was started for
func (e *TurnEngine) complete(gen uint64, role Role, res TranscriptionResult, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation || e.state != Listening {
		e.logger.Debug().Uint64("turn", gen).Msg("Dropping result of cancelled turn")
		return
	}
	e.cancel = nil
	e.state = Idle

	if err != nil {
		status := "error"
		if errors.Is(err, ErrProviderTimeout) {
			status = "timeout"
		}
		e.opts.Metrics.RecordTranscriptionEnd(status)
		e.opts.Metrics.RecordError(status, "transcription")
		e.logger.Warn().Err(err).Str("speaker", role.String()).Msg("Transcription failed")

		e.sink.Notify(Notice{
			Kind:        NoticeTranscriptionFailed,
			Title:       "Transcription failed",
			Description: "Could not capture or translate speech. Tap the microphone to try again.",
		})
		e.sink.TurnChanged(e.statusLocked())
		return
	}

	u := e.transcript.Append(role, res.SourceText, res.TranslatedText)
	e.speaker = role.Other()

	e.opts.Metrics.RecordTranscriptionEnd("success")
	e.opts.Metrics.RecordUtterance(role.String())
	e.logger.Info().
		Str("speaker", role.String()).
		Int("sequence", u.Sequence).
		Msg("Utterance added")

	e.sink.UtteranceAdded(u)
	e.sink.TurnChanged(e.statusLocked())
}

// cancelTurnLocked abandons the running turn, if any
func (e *TurnEngine) cancelTurnLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.generation++
	e.state = Idle
}

// SelectSpeaker hands the floor to role. It is only allowed while idle.
func (e *TurnEngine) SelectSpeaker(role Role) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectLocked(role)
}

// SwitchSpeaker hands the floor to the other party. It is only allowed while idle.
func (e *TurnEngine) SwitchSpeaker() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectLocked(e.speaker.Other())
}

func (e *TurnEngine) selectLocked(role Role) error {
	if e.suspended {
		return ErrSessionNotOpen
	}
	if e.state != Idle {
		return ErrTurnInProgress
	}
	if role != Provider && role != Patient {
		return ErrUnknownRole
	}

	e.speaker = role
	e.sink.Notify(Notice{
		Kind:        NoticeSpeakerSwitched,
		Title:       fmt.Sprintf("Switched to %s mode", role),
		Description: fmt.Sprintf("Now recording for %s", role),
	})
	e.sink.TurnChanged(e.statusLocked())
	return nil
}

// Suspend cancels any running turn and refuses new ones until Resume
func (e *TurnEngine) Suspend() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.suspended {
		return
	}
	e.suspended = true
	if e.state == Listening {
		e.cancelTurnLocked()
		e.opts.Metrics.RecordTranscriptionEnd("cancelled")
		e.sink.TurnChanged(e.statusLocked())
	}
}

// Resume re-enables turns after Suspend
func (e *TurnEngine) Resume() {
	e.mu.Lock()
	e.suspended = false
	e.mu.Unlock()
}

// Wait blocks until every started provider call has returned
func (e *TurnEngine) Wait() {
	e.wg.Wait()
}
