package interpreter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/curalingo/session-gateway/internal/audio"
	"github.com/curalingo/session-gateway/internal/language"
	"github.com/curalingo/session-gateway/internal/llm"
	"github.com/curalingo/session-gateway/internal/session"
	"github.com/curalingo/session-gateway/internal/stt"
)

// fakeRecognizer reads frames until it has seen want of them
type fakeRecognizer struct {
	want   int
	text   string
	err    error
	lang   language.Code
	frames [][]byte
	ready  chan struct{}
}

func (f *fakeRecognizer) Recognize(ctx context.Context, lang language.Code, frames <-chan []byte) (stt.Result, error) {
	f.lang = lang
	if f.ready != nil {
		close(f.ready)
	}
	if f.err != nil {
		return stt.Result{}, f.err
	}
	for len(f.frames) < f.want {
		select {
		case <-ctx.Done():
			return stt.Result{}, ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return stt.Result{Text: f.text}, nil
			}
			f.frames = append(f.frames, frame)
		}
	}
	return stt.Result{Text: f.text, Confidence: 0.9}, nil
}

type fakeTranslator struct {
	got llm.TranslateRequest
	err error
}

func (f *fakeTranslator) Translate(ctx context.Context, req llm.TranslateRequest) (string, error) {
	f.got = req
	if f.err != nil {
		return "", f.err
	}
	return "translated: " + req.Text, nil
}

func TestAudioFeed_DropsWhenIdle(t *testing.T) {
	feed := NewAudioFeed(nil)

	if feed.Push([]byte{1, 2}) {
		t.Error("Expected frame to be rejected while no turn is listening")
	}

	ch := feed.open()
	if !feed.Push([]byte{1, 2}) {
		t.Error("Expected frame to be accepted while listening")
	}
	if feed.Push(nil) {
		t.Error("Expected empty frame to be rejected")
	}

	feed.close(ch)
	if feed.Push([]byte{3}) {
		t.Error("Expected frame to be rejected after the turn closed")
	}

	frame, ok := <-ch
	if !ok || len(frame) != 2 {
		t.Errorf("Expected buffered frame to survive close, got %v", frame)
	}
	if _, ok := <-ch; ok {
		t.Error("Expected channel to be closed")
	}
}

func TestAudioFeed_Gated(t *testing.T) {
	gate := audio.NewGate(audio.GateConfig{
		Encoding:     audio.EncodingLinear16,
		VAD:          audio.VADConfig{EnergyThreshold: 500, SilenceFrames: 1},
		PrerollBytes: 4,
	})
	feed := NewAudioFeed(gate)
	ch := feed.open()

	quiet := []byte{0, 0, 0, 0}
	loud := []byte{0x10, 0x27, 0x10, 0x27} // two samples of 10000

	if !feed.Push(quiet) {
		t.Error("Expected held silence to count as accepted")
	}
	if len(ch) != 0 {
		t.Errorf("Expected silence to be held back, got %d queued", len(ch))
	}

	if !feed.Push(loud) {
		t.Fatal("Expected speech to be accepted")
	}
	if frame := <-ch; len(frame) != 8 {
		t.Errorf("Expected preroll plus speech (8 bytes), got %d", len(frame))
	}

	// one quiet frame ends speech and closes the turn's audio
	feed.Push(quiet)
	<-ch
	if _, ok := <-ch; ok {
		t.Error("Expected channel closed at end of speech")
	}
	if feed.Push(loud) {
		t.Error("Expected feed idle after end of speech")
	}

	if feed.Dropped() != 0 {
		t.Errorf("Expected no drops, got %d", feed.Dropped())
	}

	feed.open()
	if feed.Push([]byte{1}) {
		t.Error("Expected odd linear16 frame to be rejected")
	}
	if feed.Dropped() != 1 {
		t.Errorf("Expected 1 dropped frame, got %d", feed.Dropped())
	}
}

func TestAudioFeed_FullBuffer(t *testing.T) {
	feed := NewAudioFeed(nil)
	feed.open()

	for i := 0; i < feedBuffer; i++ {
		feed.Push([]byte{byte(i)})
	}
	if feed.Push([]byte{0}) {
		t.Error("Expected push to fail on a full buffer")
	}
	if feed.Dropped() != 1 {
		t.Errorf("Expected 1 dropped frame, got %d", feed.Dropped())
	}
}

func TestInterpreter_Transcribe(t *testing.T) {
	rec := &fakeRecognizer{want: 2, text: "Me duele la cabeza", ready: make(chan struct{})}
	tr := &fakeTranslator{}
	feed := NewAudioFeed(nil)
	i := New(rec, tr, feed)

	type outcome struct {
		res session.TranscriptionResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := i.Transcribe(context.Background(), session.TranscriptionRequest{
			Role:             session.Patient,
			SpeakerLanguage:  "es",
			ListenerLanguage: "en",
			Context:          "follow-up",
		})
		done <- outcome{res, err}
	}()

	<-rec.ready
	deadline := time.Now().Add(time.Second)
	for pushed := 0; pushed < 2; {
		if feed.Push([]byte{byte(pushed)}) {
			pushed++
		} else if time.Now().After(deadline) {
			t.Fatal("Expected feed to accept frames")
		}
	}

	var o outcome
	select {
	case o = <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected transcription to finish")
	}

	if o.err != nil {
		t.Fatalf("Expected no error, got %v", o.err)
	}
	if o.res.SourceText != "Me duele la cabeza" || o.res.TranslatedText != "translated: Me duele la cabeza" {
		t.Errorf("Unexpected result %+v", o.res)
	}
	if rec.lang != "es" {
		t.Errorf("Expected recognition in es, got %s", rec.lang)
	}
	if tr.got.From != "es" || tr.got.To != "en" || tr.got.Context != "follow-up" {
		t.Errorf("Unexpected translate request %+v", tr.got)
	}
	if feed.Push([]byte{9}) {
		t.Error("Expected feed to be idle after the turn")
	}
}

func TestInterpreter_Errors(t *testing.T) {
	i := New(&fakeRecognizer{err: stt.ErrNoSpeech}, &fakeTranslator{}, NewAudioFeed(nil))
	_, err := i.Transcribe(context.Background(), session.TranscriptionRequest{SpeakerLanguage: "en", ListenerLanguage: "es"})
	if !errors.Is(err, session.ErrTranscriptionFailed) || !errors.Is(err, stt.ErrNoSpeech) {
		t.Errorf("Expected wrapped ErrNoSpeech, got %v", err)
	}

	i = New(&fakeRecognizer{}, &fakeTranslator{err: errors.New("quota")}, NewAudioFeed(nil))
	_, err = i.Transcribe(context.Background(), session.TranscriptionRequest{SpeakerLanguage: "en", ListenerLanguage: "es"})
	if !errors.Is(err, session.ErrTranscriptionFailed) {
		t.Errorf("Expected ErrTranscriptionFailed, got %v", err)
	}
}
