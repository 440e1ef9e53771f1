package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/curalingo/session-gateway/internal/config"
	"github.com/curalingo/session-gateway/internal/language"
	"github.com/curalingo/session-gateway/internal/session"
)

func TestFormatTranscript(t *testing.T) {
	got := FormatTranscript([]session.Utterance{
		{Role: session.Provider, SourceText: "How are you?", TranslatedText: "¿Cómo está?", Sequence: 0},
		{Role: session.Patient, SourceText: "Bien.", TranslatedText: "Fine.", Sequence: 1},
	}, "en", "es")

	expected := "[provider en→es] How are you? ⇒ ¿Cómo está?\n" +
		"[patient es→en] Bien. ⇒ Fine.\n"
	if got != expected {
		t.Errorf("Expected:\n%s\ngot:\n%s", expected, got)
	}

	if FormatTranscript(nil, "en", "es") != "" {
		t.Error("Expected empty output for empty transcript")
	}
}

func TestParseNotes(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		plan  string
	}{
		{"plain", `{"subjective":"s","objective":"o","assessment":"a","plan":"rest"}`, "rest"},
		{"fenced", "```json\n{\"subjective\":\"s\",\"plan\":\"fluids\"}\n```", "fluids"},
		{"prose", "Here is the note: {\"plan\": \"follow up\"} Thanks.", "follow up"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notes, err := ParseNotes(tt.reply)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if notes.Plan != tt.plan {
				t.Errorf("Expected plan %q, got %q", tt.plan, notes.Plan)
			}
		})
	}
}

func TestParseNotes_Malformed(t *testing.T) {
	for _, reply := range []string{"", "no json here", "} backwards {", `{"plan": }`} {
		if _, err := ParseNotes(reply); !errors.Is(err, ErrMalformedNotes) {
			t.Errorf("ParseNotes(%q): expected ErrMalformedNotes, got %v", reply, err)
		}
	}
}

func TestTranslationPrompt(t *testing.T) {
	p := translationPrompt(language.Default(), TranslateRequest{From: "es", To: "en", Context: "home visit"})

	if !strings.Contains(p, "from Spanish to English") {
		t.Errorf("Expected language names in prompt, got %q", p)
	}
	if !strings.Contains(p, "home visit") {
		t.Errorf("Expected context in prompt, got %q", p)
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	if _, err := NewClient(&config.Config{}, nil); err == nil {
		t.Error("Expected error without API key")
	}
}

func TestTranslator_ShortCircuits(t *testing.T) {
	client, err := NewClient(&config.Config{
		OpenAIAPIKey:              "test-key",
		OpenAIModel:               "gpt-4o-mini",
		OpenAIBaseURL:             "http://127.0.0.1:1",
		RetryMaxAttempts:          1,
		CircuitBreakerMaxFailures: 1,
	}, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	tr := NewTranslator(client)

	out, err := tr.Translate(context.Background(), TranslateRequest{Text: "  ", From: "en", To: "es"})
	if err != nil || out != "" {
		t.Errorf("Expected empty text to skip the model, got %q (%v)", out, err)
	}

	out, err = tr.Translate(context.Background(), TranslateRequest{Text: "hola", From: "es", To: "es"})
	if err != nil || out != "hola" {
		t.Errorf("Expected same-language text to pass through, got %q (%v)", out, err)
	}
}
