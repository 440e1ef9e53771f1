package session

import "github.com/curalingo/session-gateway/internal/language"

// NoticeKind classifies a transient user-facing status message
type NoticeKind string

const (
	NoticeListeningStarted    NoticeKind = "listening_started"
	NoticeTranscriptionFailed NoticeKind = "transcription_failed"
	NoticeSummaryStarted      NoticeKind = "summary_started"
	NoticeSummaryReady        NoticeKind = "summary_ready"
	NoticeSummaryFailed       NoticeKind = "summary_failed"
	NoticeSpeakerSwitched     NoticeKind = "speaker_switched"
	NoticeSessionEnded        NoticeKind = "session_ended"
)

// Notice is an ephemeral, non-blocking message for the user
type Notice struct {
	Kind        NoticeKind `json:"kind"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
}

// TurnStatus is the engine state as shown to the user
type TurnStatus struct {
	State    TurnState     `json:"state"`
	Speaker  Role          `json:"speaker"`
	Language language.Code `json:"language"`
}

// Outcome is reported once when a session ends through the gesture flow
type Outcome struct {
	Notes          Notes `json:"notes"`
	ElapsedSeconds int   `json:"elapsed_seconds"`
	Summarized     bool  `json:"summarized"`
	Utterances     int   `json:"utterances"`
}

// EventSink receives state changes from a session. Methods are called
// synchronously, possibly from provider goroutines, and must not block or call
// back into the session.
type EventSink interface {
	Notify(n Notice)
	TurnChanged(s TurnStatus)
	UtteranceAdded(u Utterance)
	ClockTicked(elapsedSeconds int)
	GestureChanged(g GestureState)
	NotesChanged(v NotesView)
	SessionEnded(o Outcome)
}

// NopSink discards every event
type NopSink struct{}

func (NopSink) Notify(Notice) {}
func (NopSink) TurnChanged(TurnStatus) {}
func (NopSink) UtteranceAdded(Utterance) {}
func (NopSink) ClockTicked(int) {}
func (NopSink) GestureChanged(GestureState) {}
func (NopSink) NotesChanged(NotesView) {}
func (NopSink) SessionEnded(Outcome) {}
