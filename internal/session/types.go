// Package session implements the bilingual consultation state machine: turn
// taking between clinician and patient, the transcript, the session clock, the
// end-of-session gesture and the clinical notes document.
package session

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrProviderTimeout is reported when a transcription or summary call outlives
	// the configured provider timeout
	ErrProviderTimeout     = fmt.Errorf("provider timed out: %w", context.DeadlineExceeded)
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrSummaryFailed       = errors.New("summary failed")
	ErrSessionNotOpen      = errors.New("session is not open")
	ErrTurnInProgress      = errors.New("a turn is in progress")
	ErrNotCommitted        = errors.New("end of session has not been confirmed by gesture")
	ErrNotesReadOnly       = errors.New("notes are generated from the transcript and cannot be edited")
	ErrUnknownSection      = errors.New("unknown notes section")
	ErrUnknownRole         = errors.New("unknown speaker role")
)

// Role identifies which party is speaking
type Role int

const (
	Provider Role = iota
	Patient
)

// Other returns the opposite party
func (r Role) Other() Role {
	if r == Provider {
		return Patient
	}
	return Provider
}

func (r Role) String() string {
	switch r {
	case Provider:
		return "provider"
	case Patient:
		return "patient"
	default:
		return "unknown"
	}
}

// ParseRole parses "provider" or "patient"
func ParseRole(s string) (Role, error) {
	switch s {
	case "provider":
		return Provider, nil
	case "patient":
		return Patient, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Utterance is one transcribed and translated statement. It is never modified
// after it has been appended.
type Utterance struct {
	Role           Role   `json:"role"`
	SourceText     string `json:"source_text"`
	TranslatedText string `json:"translated_text"`
	Sequence       int    `json:"sequence"`
}

// TurnState is the externally visible state of the turn engine. Work in flight
// with a provider is reported as Listening.
type TurnState int

const (
	Idle TurnState = iota
	Listening
)

func (s TurnState) String() string {
	if s == Listening {
		return "listening"
	}
	return "idle"
}

func (s TurnState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *TurnState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = Idle
	case "listening":
		*s = Listening
	default:
		return fmt.Errorf("unknown turn state %q", text)
	}
	return nil
}

// Phase is the lifecycle stage of a whole session
type Phase string

const (
	PhaseOpen        Phase = "open"
	PhaseCommitted   Phase = "committed" // gesture complete, awaiting confirm
	PhaseSummarizing Phase = "summarizing"
	PhaseEnded       Phase = "ended"
)
