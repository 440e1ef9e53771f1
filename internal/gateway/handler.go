// Package gateway exposes translation sessions to browsers over WebSocket.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/curalingo/session-gateway/internal/language"
	"github.com/curalingo/session-gateway/internal/observability"
	"github.com/curalingo/session-gateway/internal/session"
)

const maxLanguageCodeLen = 16

// AudioSink accepts client audio frames for the listening turn
type AudioSink interface {
	Push(frame []byte) bool
}

// Providers builds the collaborators of each new session
type Providers struct {
	// NewTranscriber returns the transcription provider for one session and the
	// sink binary frames are pushed into. The sink is nil when audio is not used.
	NewTranscriber func() (session.TranscriptionProvider, AudioSink)
	Summarizer     session.SummaryProvider
}

// Options configures the gateway
type Options struct {
	Languages      *language.Directory
	Providers      Providers
	NotesMode      session.NotesMode
	DefaultSource  language.Code
	DefaultTarget  language.Code
	Context        string
	Timeout        time.Duration
	TickPeriod     time.Duration
	AllowedOrigins []string
}

// LanguageEntry is one item of the /languages response
type LanguageEntry struct {
	Code language.Code `json:"code"`
	Name string        `json:"name"`
	Flag string        `json:"flag"`
}

// Handler serves session sockets and the language list
type Handler struct {
	opts     Options
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu    sync.Mutex
	conns map[*conn]struct{}
	wg    sync.WaitGroup
}

// NewHandler creates a gateway handler
func NewHandler(opts Options) *Handler {
	if opts.Languages == nil {
		opts.Languages = language.Default()
	}
	if opts.DefaultSource == "" {
		opts.DefaultSource = "en"
	}
	if opts.DefaultTarget == "" {
		opts.DefaultTarget = "es"
	}

	h := &Handler{
		opts:   opts,
		logger: observability.WithComponent("gateway"),
		conns:  make(map[*conn]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin:     h.checkOrigin,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	return h
}

// checkOrigin allows every origin when none are configured
func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range h.opts.AllowedOrigins {
		allowed = strings.TrimRight(strings.TrimSpace(allowed), "/")
		if allowed == "*" || strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host) {
			return true
		}
	}
	return false
}

// LanguagesHandler lists the language directory
func (h *Handler) LanguagesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		list := h.opts.Languages.List()
		out := make([]LanguageEntry, 0, len(list))
		for _, l := range list {
			out = append(out, LanguageEntry{Code: l.Code, Name: l.Name, Flag: h.opts.Languages.Flag(l.Code)})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

func (h *Handler) languagesFromQuery(q url.Values) (language.Code, language.Code, bool) {
	source := language.Code(strings.TrimSpace(q.Get("source")))
	target := language.Code(strings.TrimSpace(q.Get("target")))
	if source == "" {
		source = h.opts.DefaultSource
	}
	if target == "" {
		target = h.opts.DefaultTarget
	}
	if len(source) > maxLanguageCodeLen || len(target) > maxLanguageCodeLen {
		return "", "", false
	}
	return source, target, true
}

// ServeHTTP upgrades the request and runs one session until the socket closes
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	source, target, ok := h.languagesFromQuery(r.URL.Query())
	if !ok {
		http.Error(w, "invalid language code", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response
		h.logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	sessionID := observability.NewSessionID()
	logger := observability.WithSessionID(sessionID)
	c := newConn(ws, logger)

	transcriber, audio := h.opts.Providers.NewTranscriber()
	c.audio = audio

	sess, err := session.New(session.Options{
		ID:          sessionID,
		Source:      source,
		Target:      target,
		Languages:   h.opts.Languages,
		Transcriber: transcriber,
		Summarizer:  h.opts.Providers.Summarizer,
		NotesMode:   h.opts.NotesMode,
		Context:     h.opts.Context,
		Timeout:     h.opts.Timeout,
		TickPeriod:  h.opts.TickPeriod,
		Sink:        c,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create session")
		ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "session unavailable"))
		ws.Close()
		return
	}
	c.session = sess

	h.track(c)
	defer h.untrack(c)

	c.enqueue(EventSessionStarted, sess.Snapshot())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess.Start(ctx)

	go c.writeLoop()
	go func() {
		select {
		case <-sess.Done():
			c.enqueueClose()
		case <-c.done:
		}
	}()

	logger.Info().
		Str("source", string(source)).
		Str("target", string(target)).
		Str("remote_addr", r.RemoteAddr).
		Msg("Session socket connected")

	c.readLoop()

	sess.Close()
	sess.Wait()
	c.close()

	logger.Info().Msg("Session socket closed")
}

func (h *Handler) track(c *conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.wg.Add(1)
	h.mu.Unlock()
}

func (h *Handler) untrack(c *conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
	h.wg.Done()
}

// ActiveSessions returns the number of connected sessions
func (h *Handler) ActiveSessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Shutdown closes every session socket and waits for their sessions to settle
// or ctx to expire
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	for c := range h.conns {
		c.close()
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
