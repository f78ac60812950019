package chess

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOutOfRange    = errors.New("square out of range")
	ErrInvalidSquare = errors.New("invalid square notation")
	ErrNoPiece       = errors.New("no piece on source square")
)

type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

// ParseColor accepts white/black and their one-letter forms.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	}
	return White, fmt.Errorf("unknown color: %q", s)
}

type PieceType uint8

const (
	NoPieceType PieceType = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

var pieceTypeNames = [...]string{"", "king", "queen", "rook", "bishop", "knight", "pawn"}

func (t PieceType) String() string {
	if int(t) < len(pieceTypeNames) {
		return pieceTypeNames[t]
	}
	return "unknown"
}

// Value is a rough material weight used by move pickers.
func (t PieceType) Value() int {
	switch t {
	case Pawn:
		return 1
	case Knight, Bishop:
		return 3
	case Rook:
		return 5
	case Queen:
		return 9
	case King:
		return 100
	}
	return 0
}

const pieceLetters = " kqrbnp"

// Piece is an immutable value; the zero value is an empty square.
type Piece struct {
	Type  PieceType
	Color Color
}

func (p Piece) Empty() bool { return p.Type == NoPieceType }

// Symbol returns the FEN letter, uppercase for white.
func (p Piece) Symbol() byte {
	if p.Empty() {
		return '.'
	}
	ch := pieceLetters[p.Type]
	if p.Color == White {
		return ch - 'a' + 'A'
	}
	return ch
}

func (p Piece) String() string {
	if p.Empty() {
		return "empty"
	}
	return p.Color.String() + " " + p.Type.String()
}

func pieceFromSymbol(ch byte) (Piece, bool) {
	color := Black
	if ch >= 'A' && ch <= 'Z' {
		color = White
		ch = ch - 'A' + 'a'
	}
	idx := strings.IndexByte(pieceLetters, ch)
	if idx <= 0 {
		return Piece{}, false
	}
	return Piece{Type: PieceType(idx), Color: color}, true
}

// Square addresses a board cell. Row 0 is rank 8, col 0 is file a.
type Square struct {
	Row int
	Col int
}

func (s Square) Valid() bool { return s.Row >= 0 && s.Row < 8 && s.Col >= 0 && s.Col < 8 }

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + s.Col), byte('0' + 8 - s.Row)})
}

func ParseSquare(s string) (Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return Square{}, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	return Square{Row: 8 - int(s[1]-'0'), Col: int(s[0] - 'a')}, nil
}

func backRank(c Color) int {
	if c == White {
		return 7
	}
	return 0
}

func promotionRow(c Color) int {
	if c == White {
		return 0
	}
	return 7
}

func pawnDirection(c Color) int {
	if c == White {
		return -1
	}
	return 1
}

func pawnStartRow(c Color) int {
	if c == White {
		return 6
	}
	return 1
}
