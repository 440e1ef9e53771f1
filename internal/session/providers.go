package session

import (
	"context"

	"github.com/curalingo/session-gateway/internal/language"
)

// TranscriptionRequest describes one turn to capture and translate.
// SpeakerLanguage is what the speaking role talks in; ListenerLanguage is what
// the other party reads.
type TranscriptionRequest struct {
	Role             Role
	SpeakerLanguage  language.Code
	ListenerLanguage language.Code
	Source           language.Code // session source language (Provider side)
	Target           language.Code // session target language (Patient side)
	Context          string
}

// TranscriptionResult is the text heard and its translation
type TranscriptionResult struct {
	SourceText     string
	TranslatedText string
}

// TranscriptionProvider captures one utterance for a role. Implementations must
// return promptly once ctx is done.
type TranscriptionProvider interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (TranscriptionResult, error)
}

// SummaryRequest carries the chronological transcript to summarize
type SummaryRequest struct {
	Transcript []Utterance
	Source     language.Code
	Target     language.Code
	Context    string
}

// SummaryProvider turns a transcript into structured clinical notes
type SummaryProvider interface {
	Summarize(ctx context.Context, req SummaryRequest) (Notes, error)
}

// TranscriptionFunc adapts a function to TranscriptionProvider
type TranscriptionFunc func(ctx context.Context, req TranscriptionRequest) (TranscriptionResult, error)

func (f TranscriptionFunc) Transcribe(ctx context.Context, req TranscriptionRequest) (TranscriptionResult, error) {
	return f(ctx, req)
}

// SummaryFunc adapts a function to SummaryProvider
type SummaryFunc func(ctx context.Context, req SummaryRequest) (Notes, error)

func (f SummaryFunc) Summarize(ctx context.Context, req SummaryRequest) (Notes, error) {
	return f(ctx, req)
}
