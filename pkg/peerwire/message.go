// Package peerwire defines the line-delimited JSON messages two peers
// exchange during a game.
package peerwire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformedMessage = errors.New("malformed peer message")
	ErrChatTooLong      = errors.New("chat text too long")
)

// MaxChatBytes bounds the text of one chat message.
const MaxChatBytes = 4 * 1024

type MessageType string

const (
	TypeMove       MessageType = "move"
	TypeChat       MessageType = "chat"
	TypeGameAction MessageType = "game_action"
)

type Action string

const (
	ActionResign     Action = "resign"
	ActionOfferDraw  Action = "offer_draw"
	ActionAcceptDraw Action = "accept_draw"
	ActionRejectDraw Action = "reject_draw"
)

func (a Action) Valid() bool {
	switch a {
	case ActionResign, ActionOfferDraw, ActionAcceptDraw, ActionRejectDraw:
		return true
	}
	return false
}

// MovePayload carries board coordinates only; the receiver derives the rest.
type MovePayload struct {
	FromRow int
	FromCol int
	ToRow   int
	ToCol   int
}

// Message is the decoded form of one wire line. Only the fields belonging
// to Type are meaningful.
type Message struct {
	Type   MessageType
	Move   MovePayload
	Text   string
	Action Action
}

func NewMove(fromRow, fromCol, toRow, toCol int) Message {
	return Message{Type: TypeMove, Move: MovePayload{FromRow: fromRow, FromCol: fromCol, ToRow: toRow, ToCol: toCol}}
}

func NewChat(text string) Message { return Message{Type: TypeChat, Text: text} }

func NewAction(a Action) Message { return Message{Type: TypeGameAction, Action: a} }

type moveFrame struct {
	Type    MessageType `json:"type"`
	FromRow int         `json:"fromRow"`
	FromCol int         `json:"fromCol"`
	ToRow   int         `json:"toRow"`
	ToCol   int         `json:"toCol"`
}

type chatFrame struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

type actionFrame struct {
	Type   MessageType `json:"type"`
	Action Action      `json:"action"`
}

// envelope accepts any frame; pointers tell absent fields from zero values.
type envelope struct {
	Type    MessageType `json:"type"`
	FromRow *int        `json:"fromRow"`
	FromCol *int        `json:"fromCol"`
	ToRow   *int        `json:"toRow"`
	ToCol   *int        `json:"toCol"`
	Text    *string     `json:"text"`
	Action  *Action     `json:"action"`
}

// Encode renders m as a single JSON object terminated by '\n'.
func Encode(m Message) ([]byte, error) {
	var frame any
	switch m.Type {
	case TypeMove:
		if !inBoard(m.Move.FromRow, m.Move.FromCol, m.Move.ToRow, m.Move.ToCol) {
			return nil, fmt.Errorf("%w: move coordinates out of range", ErrMalformedMessage)
		}
		frame = moveFrame{Type: TypeMove, FromRow: m.Move.FromRow, FromCol: m.Move.FromCol, ToRow: m.Move.ToRow, ToCol: m.Move.ToCol}
	case TypeChat:
		if len(m.Text) > MaxChatBytes {
			return nil, fmt.Errorf("%w: %w: %d bytes", ErrMalformedMessage, ErrChatTooLong, len(m.Text))
		}
		frame = chatFrame{Type: TypeChat, Text: m.Text}
	case TypeGameAction:
		if !m.Action.Valid() {
			return nil, fmt.Errorf("%w: unknown action %q", ErrMalformedMessage, m.Action)
		}
		frame = actionFrame{Type: TypeGameAction, Action: m.Action}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, m.Type)
	}
	raw, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", m.Type, err)
	}
	return append(raw, '\n'), nil
}

// Decode parses one line. Any failure wraps ErrMalformedMessage.
func Decode(line []byte) (Message, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Message{}, fmt.Errorf("%w: empty line", ErrMalformedMessage)
	}
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	switch env.Type {
	case TypeMove:
		if env.FromRow == nil || env.FromCol == nil || env.ToRow == nil || env.ToCol == nil {
			return Message{}, fmt.Errorf("%w: move missing coordinates", ErrMalformedMessage)
		}
		if !inBoard(*env.FromRow, *env.FromCol, *env.ToRow, *env.ToCol) {
			return Message{}, fmt.Errorf("%w: move coordinates out of range", ErrMalformedMessage)
		}
		return NewMove(*env.FromRow, *env.FromCol, *env.ToRow, *env.ToCol), nil
	case TypeChat:
		if env.Text == nil {
			return Message{}, fmt.Errorf("%w: chat without text", ErrMalformedMessage)
		}
		return NewChat(*env.Text), nil
	case TypeGameAction:
		if env.Action == nil || !env.Action.Valid() {
			return Message{}, fmt.Errorf("%w: bad game action", ErrMalformedMessage)
		}
		return NewAction(*env.Action), nil
	}
	return Message{}, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, env.Type)
}

func inBoard(vals ...int) bool {
	for _, v := range vals {
		if v < 0 || v > 7 {
			return false
		}
	}
	return true
}
