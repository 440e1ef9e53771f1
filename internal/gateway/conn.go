package gateway

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/curalingo/session-gateway/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	closeGrace     = 2 * time.Second
	sendBufferSize = 256
	maxMessageSize = 64 * 1024
)

type outbound struct {
	data  []byte
	close bool
}

// conn is one browser connection. It implements session.EventSink by queueing
// events for a single writer goroutine.
type conn struct {
	ws      *websocket.Conn
	session *session.Session
	audio   AudioSink
	logger  zerolog.Logger

	send      chan outbound
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn, logger zerolog.Logger) *conn {
	return &conn{
		ws:     ws,
		logger: logger,
		send:   make(chan outbound, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// enqueue queues an event without blocking. Events are dropped when the
// client is not keeping up.
func (c *conn) enqueue(eventType string, data any) {
	payload, err := encodeEvent(eventType, data)
	if err != nil {
		c.logger.Error().Err(err).Str("event", eventType).Msg("Failed to encode event")
		return
	}

	select {
	case <-c.done:
	case c.send <- outbound{data: payload}:
	default:
		c.logger.Warn().Str("event", eventType).Msg("Send buffer full, dropping event")
	}
}

// enqueueClose asks the writer to send a close frame after pending events
func (c *conn) enqueueClose() {
	select {
	case <-c.done:
	case c.send <- outbound{close: true}:
	default:
		c.close()
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

func (c *conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if msg.close {
				c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
				c.ws.SetReadDeadline(time.Now().Add(closeGrace))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg.data); err != nil {
				c.logger.Warn().Err(err).Msg("WebSocket write error")
				c.close()
				return
			}

		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.close()
				return
			}
		}
	}
}

// readLoop handles client frames until the socket fails or closes
func (c *conn) readLoop() {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		if mt == websocket.BinaryMessage {
			if c.audio != nil && c.audio.Push(data) {
				c.session.Metrics().RecordAudioBytes(int64(len(data)))
			}
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug().Err(err).Msg("Failed to parse client message")
			c.enqueue(EventError, ErrorData{Message: "invalid message"})
			continue
		}

		if err := dispatch(c.session, msg); err != nil {
			c.logger.Debug().Err(err).Str("type", msg.Type).Msg("Client message rejected")
			c.enqueue(EventError, ErrorData{Message: err.Error()})
		}
	}
}

// session.EventSink

func (c *conn) Notify(n session.Notice) {
	c.enqueue(EventNotice, n)
}

func (c *conn) TurnChanged(s session.TurnStatus) {
	c.enqueue(EventTurn, s)
}

func (c *conn) UtteranceAdded(u session.Utterance) {
	c.enqueue(EventUtterance, u)
}

func (c *conn) ClockTicked(elapsed int) {
	c.enqueue(EventClock, ClockData{ElapsedSeconds: elapsed, Display: session.FormatElapsed(elapsed)})
}

func (c *conn) GestureChanged(g session.GestureState) {
	c.enqueue(EventGesture, g)
}

func (c *conn) NotesChanged(v session.NotesView) {
	c.enqueue(EventNotes, v)
}

func (c *conn) SessionEnded(o session.Outcome) {
	c.enqueue(EventSessionEnded, EndedData{Outcome: o, Elapsed: session.FormatElapsed(o.ElapsedSeconds)})
}
