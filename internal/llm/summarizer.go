package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/curalingo/session-gateway/internal/language"
	"github.com/curalingo/session-gateway/internal/session"
)

// ErrMalformedNotes is returned when the model reply holds no usable JSON note
var ErrMalformedNotes = errors.New("model reply is not a JSON SOAP note")

const summaryPrompt = `You write clinical documentation from interpreted consultations.
Summarize the transcript into a SOAP note written in %s.
Reply with a single JSON object with exactly these string fields:
"subjective", "objective", "assessment", "plan".
Use an empty string for a section the conversation does not support. Do not invent findings.`

// Summarizer generates SOAP notes from a session transcript
type Summarizer struct {
	client *Client
}

// NewSummarizer creates a summarizer on top of client
func NewSummarizer(client *Client) *Summarizer {
	return &Summarizer{client: client}
}

// Summarize implements session.SummaryProvider
func (s *Summarizer) Summarize(ctx context.Context, req session.SummaryRequest) (session.Notes, error) {
	system := fmt.Sprintf(summaryPrompt, s.client.languages.Name(req.Source))
	if req.Context != "" {
		system += "\nConsultation context: " + req.Context
	}

	user := FormatTranscript(req.Transcript, req.Source, req.Target)
	if user == "" {
		user = "(no conversation was recorded)"
	}

	reply, err := s.client.complete(ctx, system, user, 0.2)
	if err != nil {
		return session.Notes{}, fmt.Errorf("summarize: %w", err)
	}
	return ParseNotes(reply)
}

// FormatTranscript renders utterances one per line as
// "[role speaker→listener] source ⇒ translation".
func FormatTranscript(utterances []session.Utterance, source, target language.Code) string {
	var b strings.Builder
	for _, u := range utterances {
		from, to := source, target
		if u.Role == session.Patient {
			from, to = target, source
		}
		fmt.Fprintf(&b, "[%s %s→%s] %s ⇒ %s\n", u.Role, from, to, u.SourceText, u.TranslatedText)
	}
	return b.String()
}

// ParseNotes extracts the first JSON object from a reply, tolerating code fences
// and surrounding prose
func ParseNotes(reply string) (session.Notes, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return session.Notes{}, ErrMalformedNotes
	}

	var notes session.Notes
	if err := json.Unmarshal([]byte(reply[start:end+1]), &notes); err != nil {
		return session.Notes{}, fmt.Errorf("%w: %v", ErrMalformedNotes, err)
	}
	return notes, nil
}
