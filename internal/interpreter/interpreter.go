// Package interpreter is the live transcription provider: it recognizes the
// speaker's audio and translates the text for the other party.
package interpreter

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/curalingo/session-gateway/internal/audio"
	"github.com/curalingo/session-gateway/internal/llm"
	"github.com/curalingo/session-gateway/internal/observability"
	"github.com/curalingo/session-gateway/internal/session"
	"github.com/curalingo/session-gateway/internal/stt"
)

// feedBuffer is the number of frames queued per turn before frames are dropped
const feedBuffer = 256

// Translator translates one utterance
type Translator interface {
	Translate(ctx context.Context, req llm.TranslateRequest) (string, error)
}

// AudioFeed carries client audio frames to the turn that is listening. Frames
// pushed while no turn is listening are discarded. With a gate, frames are
// normalized to linear16, leading silence is held back and the turn's audio
// ends when the speaker stops.
type AudioFeed struct {
	mu      sync.Mutex
	ch      chan []byte
	gate    *audio.Gate
	dropped int
}

// NewAudioFeed creates an idle feed. gate may be nil to forward frames as-is.
func NewAudioFeed(gate *audio.Gate) *AudioFeed {
	return &AudioFeed{gate: gate}
}

// Push offers a frame to the listening turn. It reports whether the frame was
// accepted and never blocks.
func (f *AudioFeed) Push(frame []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ch == nil || len(frame) == 0 {
		return false
	}

	data := frame
	ended := false
	if f.gate != nil {
		res, err := f.gate.Process(frame)
		if err != nil {
			f.dropped++
			return false
		}
		if len(res.Audio) == 0 {
			return true
		}
		data, ended = res.Audio, res.Ended
	}

	accepted := f.sendLocked(append([]byte(nil), data...))
	if ended {
		close(f.ch)
		f.ch = nil
	}
	return accepted
}

func (f *AudioFeed) sendLocked(data []byte) bool {
	select {
	case f.ch <- data:
		return true
	default:
		f.dropped++
		return false
	}
}

// Dropped returns how many frames were dropped on a full buffer or because
// they could not be decoded
func (f *AudioFeed) Dropped() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}

// open starts a turn. Any previous turn's channel is closed first.
func (f *AudioFeed) open() <-chan []byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ch != nil {
		close(f.ch)
	}
	if f.gate != nil {
		f.gate.Reset()
	}
	f.ch = make(chan []byte, feedBuffer)
	return f.ch
}

// close ends the turn that owns ch
func (f *AudioFeed) close(ch <-chan []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ch != nil && (<-chan []byte)(f.ch) == ch {
		close(f.ch)
		f.ch = nil
	}
}

// Interpreter implements session.TranscriptionProvider for one session
type Interpreter struct {
	recognizer stt.Recognizer
	translator Translator
	feed       *AudioFeed
	logger     zerolog.Logger
}

// New creates an interpreter that listens on feed
func New(recognizer stt.Recognizer, translator Translator, feed *AudioFeed) *Interpreter {
	return &Interpreter{
		recognizer: recognizer,
		translator: translator,
		feed:       feed,
		logger:     observability.WithComponent("interpreter"),
	}
}

// Feed returns the audio feed this interpreter listens on
func (i *Interpreter) Feed() *AudioFeed {
	return i.feed
}

// Transcribe recognizes one utterance in the speaker's language and translates
// it into the listener's language
func (i *Interpreter) Transcribe(ctx context.Context, req session.TranscriptionRequest) (session.TranscriptionResult, error) {
	frames := i.feed.open()
	res, err := i.recognizer.Recognize(ctx, req.SpeakerLanguage, frames)
	i.feed.close(frames)
	if err != nil {
		return session.TranscriptionResult{}, fmt.Errorf("%w: %w", session.ErrTranscriptionFailed, err)
	}

	translated, err := i.translator.Translate(ctx, llm.TranslateRequest{
		Text:    res.Text,
		From:    req.SpeakerLanguage,
		To:      req.ListenerLanguage,
		Context: req.Context,
	})
	if err != nil {
		return session.TranscriptionResult{}, fmt.Errorf("%w: %w", session.ErrTranscriptionFailed, err)
	}

	i.logger.Debug().
		Str("speaker", req.Role.String()).
		Str("from", string(req.SpeakerLanguage)).
		Str("to", string(req.ListenerLanguage)).
		Float64("confidence", res.Confidence).
		Msg("Utterance interpreted")

	return session.TranscriptionResult{SourceText: res.Text, TranslatedText: translated}, nil
}

var (
	_ session.TranscriptionProvider = (*Interpreter)(nil)
	_ Translator                    = (*llm.Translator)(nil)
	_ stt.Recognizer                = (*stt.DeepgramRecognizer)(nil)
)
