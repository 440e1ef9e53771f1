package session

import "sync"

// Transcript is the append-only record of a session's utterances. Sequence
// numbers are global across both roles and start at 0.
type Transcript struct {
	mu    sync.Mutex
	items []Utterance
	next  int
}

// NewTranscript creates an empty transcript
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append stores a new utterance under the next sequence number
func (t *Transcript) Append(role Role, sourceText, translatedText string) Utterance {
	t.mu.Lock()
	defer t.mu.Unlock()

	u := Utterance{
		Role:           role,
		SourceText:     sourceText,
		TranslatedText: translatedText,
		Sequence:       t.next,
	}
	t.next++
	t.items = append(t.items, u)
	return u
}

// AllForRole returns the role's utterances ordered by sequence
func (t *Transcript) AllForRole(role Role) []Utterance {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Utterance
	for _, u := range t.items {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out
}

// Chronological returns every utterance ordered by sequence.
// Items are stored in append order, which is sequence order.
func (t *Transcript) Chronological() []Utterance {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Utterance, len(t.items))
	copy(out, t.items)
	return out
}

// Len returns the number of utterances
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// Clear empties the transcript and restarts numbering
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = nil
	t.next = 0
}
