package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/curalingo/session-gateway/internal/language"
)

// TranslateRequest is one utterance to translate
type TranslateRequest struct {
	Text    string
	From    language.Code
	To      language.Code
	Context string
}

// Translator translates single utterances between the two session languages
type Translator struct {
	client *Client
}

// NewTranslator creates a translator on top of client
func NewTranslator(client *Client) *Translator {
	return &Translator{client: client}
}

// Translate returns req.Text in the target language
func (t *Translator) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", nil
	}
	if req.From == req.To {
		return req.Text, nil
	}

	out, err := t.client.complete(ctx, translationPrompt(t.client.languages, req), req.Text, 0)
	if err != nil {
		return "", fmt.Errorf("translate %s→%s: %w", req.From, req.To, err)
	}
	return out, nil
}

func translationPrompt(dir *language.Directory, req TranslateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a medical interpreter. Translate the user's message from %s to %s. ",
		dir.Name(req.From), dir.Name(req.To))
	b.WriteString("Preserve clinical meaning, dosages and negations exactly. ")
	b.WriteString("Reply with the translation only, without quotes or commentary.")
	if req.Context != "" {
		fmt.Fprintf(&b, "\nConsultation context: %s", req.Context)
	}
	return b.String()
}
