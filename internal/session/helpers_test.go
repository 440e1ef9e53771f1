package session

import (
	"context"
	"sync"
)

// recordingSink keeps every event for later assertions
type recordingSink struct {
	mu         sync.Mutex
	notices    []Notice
	turns      []TurnStatus
	utterances []Utterance
	ticks      []int
	gestures   []GestureState
	notes      []NotesView
	outcomes   []Outcome
}

func (r *recordingSink) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingSink) TurnChanged(s TurnStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns = append(r.turns, s)
}

func (r *recordingSink) UtteranceAdded(u Utterance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.utterances = append(r.utterances, u)
}

func (r *recordingSink) ClockTicked(elapsed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, elapsed)
}

func (r *recordingSink) GestureChanged(g GestureState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gestures = append(r.gestures, g)
}

func (r *recordingSink) NotesChanged(v NotesView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, v)
}

func (r *recordingSink) SessionEnded(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recordingSink) noticeKinds() []NoticeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]NoticeKind, len(r.notices))
	for i, n := range r.notices {
		kinds[i] = n.Kind
	}
	return kinds
}

func (r *recordingSink) hasNotice(kind NoticeKind) bool {
	for _, k := range r.noticeKinds() {
		if k == kind {
			return true
		}
	}
	return false
}

func (r *recordingSink) lastOutcome() (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.outcomes) == 0 {
		return Outcome{}, false
	}
	return r.outcomes[len(r.outcomes)-1], true
}

// reply is one scripted provider answer
type reply struct {
	result TranscriptionResult
	err    error
}

// scriptedTranscriber blocks each call until a reply is pushed, or until ctx is
// done. It records every request it receives.
type scriptedTranscriber struct {
	replies chan reply

	mu       sync.Mutex
	requests []TranscriptionRequest
	started  chan struct{}
}

func newScriptedTranscriber() *scriptedTranscriber {
	return &scriptedTranscriber{
		replies: make(chan reply, 16),
		started: make(chan struct{}, 16),
	}
}

func (s *scriptedTranscriber) Transcribe(ctx context.Context, req TranscriptionRequest) (TranscriptionResult, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	s.started <- struct{}{}

	select {
	case <-ctx.Done():
		return TranscriptionResult{}, ctx.Err()
	case r := <-s.replies:
		return r.result, r.err
	}
}

func (s *scriptedTranscriber) succeed(source, translated string) {
	s.replies <- reply{result: TranscriptionResult{SourceText: source, TranslatedText: translated}}
}

func (s *scriptedTranscriber) fail(err error) {
	s.replies <- reply{err: err}
}

func (s *scriptedTranscriber) lastRequest() TranscriptionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

// echoTranscriber answers immediately with text derived from the role
type echoTranscriber struct{}

func (echoTranscriber) Transcribe(ctx context.Context, req TranscriptionRequest) (TranscriptionResult, error) {
	return TranscriptionResult{
		SourceText:     req.Role.String() + " says hi",
		TranslatedText: req.Role.String() + " translated",
	}, nil
}
