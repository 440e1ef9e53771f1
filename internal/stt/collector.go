package stt

import (
	"strings"
	"sync"
)

// collector accumulates final segments of a single utterance. It is fed from
// recognizer callback goroutines.
type collector struct {
	mu         sync.Mutex
	finals     []string
	confidence float64
	interim    string
	done       chan struct{}
	doneOnce   sync.Once
}

func newCollector() *collector {
	return &collector{done: make(chan struct{})}
}

// add records a segment. The utterance completes at the first speech-final
// segment once some final text exists.
func (c *collector) add(seg Segment) {
	text := strings.TrimSpace(seg.Text)

	c.mu.Lock()
	if seg.IsFinal || seg.SpeechFinal {
		if text != "" {
			c.finals = append(c.finals, text)
			c.confidence += seg.Confidence
		}
		c.interim = ""
	} else {
		c.interim = text
	}
	complete := seg.SpeechFinal && len(c.finals) > 0
	c.mu.Unlock()

	if complete {
		c.finish()
	}
}

// utteranceEnd marks a silence gap; it completes the utterance if any final
// text has arrived
func (c *collector) utteranceEnd() {
	c.mu.Lock()
	complete := len(c.finals) > 0
	c.mu.Unlock()

	if complete {
		c.finish()
	}
}

func (c *collector) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}

// result joins the final segments. Pending interim text is used only when no
// final text arrived.
func (c *collector) result() Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.finals) == 0 {
		return Result{Text: c.interim}
	}
	return Result{
		Text:       strings.Join(c.finals, " "),
		Confidence: c.confidence / float64(len(c.finals)),
	}
}
