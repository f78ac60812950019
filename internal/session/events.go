package session

import "github.com/park285/cheese-peerchess/internal/chess"

type EventKind uint8

const (
	EventMove EventKind = iota + 1
	EventOutcome
	EventChat
	EventDrawOffered
	EventDrawRejected
	EventDesync
	EventConnectionLost
)

func (k EventKind) String() string {
	switch k {
	case EventMove:
		return "move"
	case EventOutcome:
		return "outcome"
	case EventChat:
		return "chat"
	case EventDrawOffered:
		return "draw_offered"
	case EventDrawRejected:
		return "draw_rejected"
	case EventDesync:
		return "desync"
	case EventConnectionLost:
		return "connection_lost"
	}
	return "unknown"
}

// Event is what the session tells its UI collaborator. Listeners run on the
// goroutine that caused the change, after the session lock is released.
type Event struct {
	Kind    EventKind
	Move    chess.Move
	Side    chess.Color
	Remote  bool
	Outcome Outcome
	Text    string
	Err     error
}

type Listener func(Event)

func emit(listeners []Listener, events ...Event) {
	for _, ev := range events {
		for _, l := range listeners {
			l(ev)
		}
	}
}
