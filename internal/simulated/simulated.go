// Package simulated provides offline transcription and summary providers that
// answer with canned text after a fixed delay.
package simulated

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/curalingo/session-gateway/internal/session"
)

// Canned lines, one per role
const (
	ProviderSource     = "Hello, how have you been feeling this past week?"
	ProviderTranslated = "Hola, ¿cómo te has sentido esta última semana?"
	PatientSource      = "Me he sentido un poco mejor, pero todavía tengo dolor."
	PatientTranslated  = "I've been feeling a bit better, but I still have pain."
)

// Transcriber returns a fixed utterance per role
type Transcriber struct {
	Delay time.Duration
}

// NewTranscriber creates a simulated transcriber
func NewTranscriber(delay time.Duration) *Transcriber {
	return &Transcriber{Delay: delay}
}

func (t *Transcriber) Transcribe(ctx context.Context, req session.TranscriptionRequest) (session.TranscriptionResult, error) {
	if err := wait(ctx, t.Delay); err != nil {
		return session.TranscriptionResult{}, err
	}

	if req.Role == session.Patient {
		return session.TranscriptionResult{SourceText: PatientSource, TranslatedText: PatientTranslated}, nil
	}
	return session.TranscriptionResult{SourceText: ProviderSource, TranslatedText: ProviderTranslated}, nil
}

// Summarizer builds a deterministic SOAP note from the transcript
type Summarizer struct {
	Delay time.Duration
}

// NewSummarizer creates a simulated summarizer
func NewSummarizer(delay time.Duration) *Summarizer {
	return &Summarizer{Delay: delay}
}

func (s *Summarizer) Summarize(ctx context.Context, req session.SummaryRequest) (session.Notes, error) {
	if err := wait(ctx, s.Delay); err != nil {
		return session.Notes{}, err
	}

	var patient []string
	providerTurns := 0
	for _, u := range req.Transcript {
		if u.Role == session.Patient {
			patient = append(patient, clinicianSide(u))
		} else {
			providerTurns++
		}
	}

	subjective := "No patient statements were recorded."
	if len(patient) > 0 {
		subjective = "Patient reports: " + strings.Join(patient, " ")
	}

	return session.Notes{
		Subjective: subjective,
		Objective: fmt.Sprintf("Interpreted consultation (%s/%s): %d clinician and %d patient utterances.",
			req.Source, req.Target, providerTurns, len(patient)),
		Assessment: "Assessment requires clinician review.",
		Plan:       "Follow up as discussed during the consultation.",
	}, nil
}

// clinicianSide returns the text of u in the clinician's language
func clinicianSide(u session.Utterance) string {
	if u.Role == session.Patient {
		return u.TranslatedText
	}
	return u.SourceText
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
