package stt

import (
	"context"
	"errors"

	"github.com/curalingo/session-gateway/internal/language"
)

// ErrNoSpeech is returned when a turn ends without any final transcript
var ErrNoSpeech = errors.New("no speech recognized")

// Segment is one transcription result from the recognizer
type Segment struct {
	// Text is the transcribed text
	Text string

	// IsFinal indicates the text for this audio span will not change
	IsFinal bool

	// SpeechFinal indicates the speaker paused at the end of this segment
	SpeechFinal bool

	// Confidence is the confidence score (0.0 to 1.0) if available
	Confidence float64

	// StartTime is the start time of the segment in seconds
	StartTime float64

	// Duration is the duration of the segment in seconds
	Duration float64
}

// Result is the recognized text of one utterance
type Result struct {
	Text       string
	Confidence float64 // mean over final segments
}

// Recognizer turns one utterance of streamed audio into text. Recognize returns
// when the speaker has finished, frames is closed, or ctx is done.
type Recognizer interface {
	Recognize(ctx context.Context, lang language.Code, frames <-chan []byte) (Result, error)
}
