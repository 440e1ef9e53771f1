package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/curalingo/session-gateway/internal/session"
)

// Client message types
const (
	MsgToggleListening = "toggle_listening"
	MsgSelectSpeaker   = "select_speaker"
	MsgSwitchSpeaker   = "switch_speaker"
	MsgDragStart       = "drag_start"
	MsgDragMove        = "drag_move"
	MsgDragEnd         = "drag_end"
	MsgConfirmEnd      = "confirm_end"
	MsgCancelEnd       = "cancel_end"
	MsgEditNotes       = "edit_notes"
)

// Server event types
const (
	EventSessionStarted = "session_started"
	EventTurn           = "turn"
	EventUtterance      = "utterance"
	EventClock          = "clock"
	EventGesture        = "gesture"
	EventNotes          = "notes"
	EventNotice         = "notice"
	EventSessionEnded   = "session_ended"
	EventError          = "error"
)

// ClientMessage is a JSON text frame sent by the browser
type ClientMessage struct {
	Type     string `json:"type"`
	Role     string `json:"role,omitempty"`
	Position *int   `json:"position,omitempty"`
	Section  string `json:"section,omitempty"`
	Text     string `json:"text,omitempty"`
}

// ServerEvent is a JSON text frame sent to the browser
type ServerEvent struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ClockData is the payload of a clock event
type ClockData struct {
	ElapsedSeconds int    `json:"elapsed_seconds"`
	Display        string `json:"display"`
}

// EndedData is the payload of a session_ended event
type EndedData struct {
	session.Outcome
	Elapsed string `json:"elapsed"`
}

// ErrorData is the payload of an error event
type ErrorData struct {
	Message string `json:"message"`
}

// dispatch applies one client message to the session
func dispatch(s *session.Session, msg ClientMessage) error {
	var err error
	switch msg.Type {
	case MsgToggleListening:
		_, err = s.ToggleListening()

	case MsgSelectSpeaker:
		var role session.Role
		role, err = session.ParseRole(msg.Role)
		if err == nil {
			err = s.SelectSpeaker(role)
		}

	case MsgSwitchSpeaker:
		err = s.SwitchSpeaker()

	case MsgDragStart:
		_, err = s.DragStart()

	case MsgDragMove:
		if msg.Position == nil {
			return fmt.Errorf("%s requires a position", msg.Type)
		}
		_, err = s.DragMove(*msg.Position)

	case MsgDragEnd:
		_, err = s.DragEnd()

	case MsgConfirmEnd:
		err = s.ConfirmEnd()

	case MsgCancelEnd:
		err = s.CancelEnd()

	case MsgEditNotes:
		var section session.Section
		section, err = session.ParseSection(msg.Section)
		if err == nil {
			err = s.EditNotes(section, msg.Text)
		}

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return err
}

func encodeEvent(eventType string, data any) ([]byte, error) {
	return json.Marshal(ServerEvent{Type: eventType, Data: data})
}
