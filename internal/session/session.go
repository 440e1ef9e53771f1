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

// Options configures a Session
type Options struct {
	ID          string
	Source      language.Code
	Target      language.Code
	Languages   *language.Directory
	Transcriber TranscriptionProvider
	Summarizer  SummaryProvider // required in derived notes mode
	NotesMode   NotesMode
	Context     string        // free-text clinical context forwarded to providers
	Timeout     time.Duration // per provider call
	TickPeriod  time.Duration
	Sink        EventSink
}

// Snapshot is a consistent view of the whole session
type Snapshot struct {
	ID             string        `json:"id"`
	Phase          Phase         `json:"phase"`
	Turn           TurnStatus    `json:"turn"`
	Source         language.Code `json:"source"`
	Target         language.Code `json:"target"`
	SourceName     string        `json:"source_name"`
	TargetName     string        `json:"target_name"`
	ElapsedSeconds int           `json:"elapsed_seconds"`
	Elapsed        string        `json:"elapsed"`
	Gesture        GestureState  `json:"gesture"`
	Notes          NotesView     `json:"notes"`
	Transcript     []Utterance   `json:"transcript"`
}

// Session composes the turn engine, transcript, clock, end gesture and notes
// for one clinician/patient conversation.
type Session struct {
	id         string
	opts       Options
	sink       EventSink
	logger     zerolog.Logger
	metrics    *observability.SessionMetrics
	transcript *Transcript
	engine     *TurnEngine
	clock      *Clock

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	phase   Phase
	gesture Gesture
	notes   *NotesDocument

	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// New creates an open session. Call Start to run the clock.
func New(opts Options) (*Session, error) {
	if opts.Transcriber == nil {
		return nil, errors.New("transcription provider is required")
	}
	if opts.NotesMode == "" {
		opts.NotesMode = NotesDerived
	}
	if opts.NotesMode != NotesDerived && opts.NotesMode != NotesEditable {
		return nil, fmt.Errorf("invalid notes mode %q", opts.NotesMode)
	}
	if opts.NotesMode == NotesDerived && opts.Summarizer == nil {
		return nil, errors.New("summary provider is required in derived notes mode")
	}
	if opts.Source == "" || opts.Target == "" {
		return nil, errors.New("source and target languages are required")
	}
	if opts.ID == "" {
		opts.ID = observability.NewSessionID()
	}
	if opts.Languages == nil {
		opts.Languages = language.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultProviderTimeout
	}
	if opts.Sink == nil {
		opts.Sink = NopSink{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:         opts.ID,
		opts:       opts,
		sink:       opts.Sink,
		logger:     observability.WithSessionID(opts.ID),
		metrics:    observability.NewSessionMetrics(opts.ID),
		transcript: NewTranscript(),
		ctx:        ctx,
		cancel:     cancel,
		phase:      PhaseOpen,
		notes:      NewNotesDocument(opts.NotesMode),
		done:       make(chan struct{}),
	}
	s.metrics.RecordSessionStart()
	s.clock = NewClock(opts.TickPeriod, s.sink.ClockTicked)
	s.engine = NewTurnEngine(ctx, opts.Transcriber, s.transcript, s.sink, EngineOptions{
		SessionID: opts.ID,
		Source:    opts.Source,
		Target:    opts.Target,
		Languages: opts.Languages,
		Context:   opts.Context,
		Timeout:   opts.Timeout,
		Metrics:   s.metrics,
	})
	return s, nil
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Metrics returns the session's metric recorder
func (s *Session) Metrics() *observability.SessionMetrics {
	return s.metrics
}

// Start runs the session clock until ctx is done or the session ends
func (s *Session) Start(ctx context.Context) {
	s.clock.Start(ctx)
	s.logger.Info().
		Str("source", string(s.opts.Source)).
		Str("target", string(s.opts.Target)).
		Str("notes_mode", string(s.opts.NotesMode)).
		Msg("Session started")
}

// Done is closed once the session has ended or been closed
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Phase returns the lifecycle phase
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// ToggleListening starts or cancels a turn
func (s *Session) ToggleListening() (TurnStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseOpen {
		return s.engine.Status(), ErrSessionNotOpen
	}
	return s.engine.ToggleListening()
}

// SelectSpeaker gives the floor to role while idle
func (s *Session) SelectSpeaker(role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseOpen {
		return ErrSessionNotOpen
	}
	return s.engine.SelectSpeaker(role)
}

// SwitchSpeaker gives the floor to the other party while idle
func (s *Session) SwitchSpeaker() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseOpen {
		return ErrSessionNotOpen
	}
	return s.engine.SwitchSpeaker()
}

// DragStart marks the end-session slider as held
func (s *Session) DragStart() (GestureState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseOpen {
		return s.gesture.State(), ErrSessionNotOpen
	}
	g := s.gesture.DragStart()
	s.sink.GestureChanged(g)
	return g, nil
}

// DragMove reports a new slider position
func (s *Session) DragMove(position int) (GestureState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseOpen {
		return s.gesture.State(), ErrSessionNotOpen
	}
	g, outcome := s.gesture.PositionChanged(position)
	s.applyGestureLocked(g, outcome)
	return g, nil
}

// DragEnd releases the slider
func (s *Session) DragEnd() (GestureState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseOpen {
		return s.gesture.State(), ErrSessionNotOpen
	}
	g, outcome := s.gesture.DragEnd()
	s.applyGestureLocked(g, outcome)
	return g, nil
}

func (s *Session) applyGestureLocked(g GestureState, outcome GestureOutcome) {
	switch outcome {
	case GestureIgnored:
		return
	case GestureCommitted:
		s.phase = PhaseCommitted
		s.engine.Suspend()
		s.metrics.RecordGesture("committed")
		s.logger.Info().Msg("End of session gesture committed")
	case GestureSnappedBack:
		s.metrics.RecordGesture("snapped_back")
	}
	s.sink.GestureChanged(g)
}

// CancelEnd backs out of a committed gesture and reopens the session
func (s *Session) CancelEnd() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseCommitted {
		return ErrNotCommitted
	}
	s.reopenLocked()
	s.logger.Info().Msg("End of session cancelled")
	return nil
}

func (s *Session) reopenLocked() {
	s.phase = PhaseOpen
	s.engine.Resume()
	s.sink.GestureChanged(s.gesture.Reset())
}

// ConfirmEnd ends a committed session. In derived notes mode it requests the
// summary first and returns before the summary arrives; on summary failure the
// session is reopened.
func (s *Session) ConfirmEnd() error {
	s.mu.Lock()

	if s.phase != PhaseCommitted {
		s.mu.Unlock()
		return ErrNotCommitted
	}

	if s.notes.Mode() == NotesEditable {
		s.finishLocked(false)
		s.mu.Unlock()
		s.teardown()
		return nil
	}

	s.phase = PhaseSummarizing
	req := SummaryRequest{
		Transcript: s.transcript.Chronological(),
		Source:     s.opts.Source,
		Target:     s.opts.Target,
		Context:    s.opts.Context,
	}
	s.metrics.RecordSummaryStart()
	s.logger.Info().Int("utterances", len(req.Transcript)).Msg("Generating notes")
	s.sink.Notify(Notice{
		Kind:        NoticeSummaryStarted,
		Title:       "Generating notes",
		Description: "Summarizing the conversation into clinical notes.",
	})

	s.wg.Add(1)
	s.mu.Unlock()

	go s.summarize(req)
	return nil
}

func (s *Session) summarize(req SummaryRequest) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(s.ctx, s.opts.Timeout)
	defer cancel()

	notes, err := s.opts.Summarizer.Summarize(ctx, req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %v", ErrProviderTimeout, s.opts.Timeout, err)
		} else {
			err = fmt.Errorf("%w: %w", ErrSummaryFailed, err)
		}
	}

	s.mu.Lock()
	if s.phase != PhaseSummarizing {
		s.mu.Unlock()
		return
	}

	if err != nil {
		s.metrics.RecordSummaryEnd(false)
		s.metrics.RecordError("summary_failed", "summary")
		s.logger.Warn().Err(err).Msg("Notes generation failed")
		s.sink.Notify(Notice{
			Kind:        NoticeSummaryFailed,
			Title:       "Could not generate notes",
			Description: "The session is still open. Slide to end again to retry.",
		})
		s.reopenLocked()
		s.mu.Unlock()
		return
	}

	s.metrics.RecordSummaryEnd(true)
	s.notes.Apply(notes)
	s.sink.NotesChanged(s.notes.View())
	s.sink.Notify(Notice{
		Kind:        NoticeSummaryReady,
		Title:       "Notes ready",
		Description: "Clinical notes have been generated from the conversation.",
	})
	s.finishLocked(true)
	s.mu.Unlock()
	s.teardown()
}

// finishLocked reports the outcome. The caller must run teardown after
// releasing the lock.
func (s *Session) finishLocked(summarized bool) {
	s.phase = PhaseEnded
	outcome := Outcome{
		Notes:          s.notes.Current(),
		ElapsedSeconds: s.clock.Elapsed(),
		Summarized:     summarized,
		Utterances:     s.transcript.Len(),
	}

	s.logger.Info().
		Int("elapsed_seconds", outcome.ElapsedSeconds).
		Int("utterances", outcome.Utterances).
		Bool("summarized", summarized).
		Msg("Session ended")

	s.sink.Notify(Notice{
		Kind:        NoticeSessionEnded,
		Title:       "Session ended",
		Description: "Translation session has been completed.",
	})
	s.sink.SessionEnded(outcome)
}

// EditNotes writes clinician text into one section (editable mode only)
func (s *Session) EditNotes(section Section, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseEnded || s.phase == PhaseSummarizing {
		return ErrSessionNotOpen
	}
	if err := s.notes.Edit(section, text); err != nil {
		return err
	}
	s.sink.NotesChanged(s.notes.View())
	return nil
}

// Snapshot returns the full session state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := s.clock.Elapsed()
	return Snapshot{
		ID:             s.id,
		Phase:          s.phase,
		Turn:           s.engine.Status(),
		Source:         s.opts.Source,
		Target:         s.opts.Target,
		SourceName:     s.opts.Languages.Name(s.opts.Source),
		TargetName:     s.opts.Languages.Name(s.opts.Target),
		ElapsedSeconds: elapsed,
		Elapsed:        FormatElapsed(elapsed),
		Gesture:        s.gesture.State(),
		Notes:          s.notes.View(),
		Transcript:     s.transcript.Chronological(),
	}
}

// Transcript exposes the session transcript for read access
func (s *Session) Transcript() *Transcript {
	return s.transcript
}

// Close discards the session without an outcome, as when the user navigates
// away. It is safe to call more than once and after the session has ended.
func (s *Session) Close() {
	s.mu.Lock()
	if s.phase != PhaseEnded {
		s.phase = PhaseEnded
		s.logger.Info().Int("elapsed_seconds", s.clock.Elapsed()).Msg("Session closed")
	}
	s.mu.Unlock()
	s.teardown()
}

func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.engine.Suspend()
		s.clock.Stop()

		s.mu.Lock()
		s.transcript.Clear()
		s.notes.Reset()
		s.mu.Unlock()

		s.metrics.RecordSessionEnd()
		close(s.done)
	})
}

// Wait blocks until in-flight provider calls have settled
func (s *Session) Wait() {
	s.engine.Wait()
	s.wg.Wait()
}
