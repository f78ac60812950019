package session

import (
	"github.com/park285/cheese-peerchess/internal/chess"
	"github.com/park285/cheese-peerchess/internal/domain"
)

type Status uint8

const (
	StatusInProgress Status = iota
	StatusCheck
	StatusCheckmate
	StatusStalemate
	StatusKingCaptured
	StatusResigned
	StatusDrawAgreed
)

var statusNames = [...]string{"in_progress", "check", "checkmate", "stalemate", "king_captured", "resigned", "draw_agreed"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// Outcome is the current game state. Side is the checked color for
// StatusCheck and the winner for decisive endings; it is unused otherwise.
type Outcome struct {
	Status Status
	Side   chess.Color
}

func (o Outcome) Terminal() bool {
	return o.Status != StatusInProgress && o.Status != StatusCheck
}

func (o Outcome) Winner() (chess.Color, bool) {
	switch o.Status {
	case StatusCheckmate, StatusKingCaptured, StatusResigned:
		return o.Side, true
	}
	return chess.White, false
}

// Result returns white, black or draw for terminal outcomes and "" otherwise.
func (o Outcome) Result() string {
	if !o.Terminal() {
		return ""
	}
	if w, ok := o.Winner(); ok {
		if w == chess.White {
			return domain.ResultWhite
		}
		return domain.ResultBlack
	}
	return domain.ResultDraw
}

func (o Outcome) String() string {
	switch o.Status {
	case StatusCheck, StatusCheckmate, StatusKingCaptured, StatusResigned:
		return o.Status.String() + "(" + o.Side.String() + ")"
	}
	return o.Status.String()
}
