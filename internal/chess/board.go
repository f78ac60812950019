package chess

import (
	"fmt"
	"strings"
)

type CastlingRights uint8

const (
	WhiteKingSide CastlingRights = 1 << iota
	WhiteQueenSide
	BlackKingSide
	BlackQueenSide

	NoCastling  CastlingRights = 0
	AllCastling                = WhiteKingSide | WhiteQueenSide | BlackKingSide | BlackQueenSide
)

func (c CastlingRights) Has(r CastlingRights) bool { return c&r == r }

func kingSideRight(c Color) CastlingRights {
	if c == White {
		return WhiteKingSide
	}
	return BlackKingSide
}

func queenSideRight(c Color) CastlingRights {
	if c == White {
		return WhiteQueenSide
	}
	return BlackQueenSide
}

// Board stores piece placement plus the castling rights and en-passant
// target left behind by the last move. It performs no legality checks.
type Board struct {
	cells    [8][8]Piece
	castling CastlingRights
	epTarget Square
	hasEP    bool
}

var backRankOrder = [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// NewBoard returns the standard starting position.
func NewBoard() *Board {
	b := &Board{castling: AllCastling}
	for col, t := range backRankOrder {
		b.cells[0][col] = Piece{Type: t, Color: Black}
		b.cells[1][col] = Piece{Type: Pawn, Color: Black}
		b.cells[6][col] = Piece{Type: Pawn, Color: White}
		b.cells[7][col] = Piece{Type: t, Color: White}
	}
	return b
}

// EmptyBoard returns a board with no pieces and no castling rights.
func EmptyBoard() *Board { return &Board{} }

func (b *Board) Clone() *Board {
	dup := *b
	return &dup
}

// PieceAt returns the piece on (row, col); an empty square yields the zero Piece.
func (b *Board) PieceAt(row, col int) (Piece, error) {
	sq := Square{Row: row, Col: col}
	if !sq.Valid() {
		return Piece{}, fmt.Errorf("%w: row=%d col=%d", ErrOutOfRange, row, col)
	}
	return b.cells[row][col], nil
}

// At is the unchecked counterpart of PieceAt for callers holding a valid Square.
func (b *Board) At(sq Square) Piece {
	if !sq.Valid() {
		return Piece{}
	}
	return b.cells[sq.Row][sq.Col]
}

// Place puts p on sq, replacing any occupant. Used for setting up positions.
func (b *Board) Place(sq Square, p Piece) error {
	if !sq.Valid() {
		return fmt.Errorf("%w: %d,%d", ErrOutOfRange, sq.Row, sq.Col)
	}
	b.cells[sq.Row][sq.Col] = p
	return nil
}

func (b *Board) Remove(sq Square) error { return b.Place(sq, Piece{}) }

func (b *Board) CastlingRights() CastlingRights { return b.castling }

func (b *Board) SetCastlingRights(c CastlingRights) { b.castling = c }

// EnPassantTarget reports the square a pawn skipped on the previous double step.
func (b *Board) EnPassantTarget() (Square, bool) { return b.epTarget, b.hasEP }

func (b *Board) SetEnPassantTarget(sq Square, ok bool) {
	b.epTarget, b.hasEP = sq, ok && sq.Valid()
}

// PlacedPiece pairs a piece with its square for full-board iteration.
type PlacedPiece struct {
	Square Square
	Piece  Piece
}

// Pieces lists occupied squares in row-major order.
func (b *Board) Pieces() []PlacedPiece {
	out := make([]PlacedPiece, 0, 32)
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			if p := b.cells[row][col]; !p.Empty() {
				out = append(out, PlacedPiece{Square: Square{Row: row, Col: col}, Piece: p})
			}
		}
	}
	return out
}

func (b *Board) KingSquare(c Color) (Square, bool) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			p := b.cells[row][col]
			if p.Type == King && p.Color == c {
				return Square{Row: row, Col: col}, true
			}
		}
	}
	return Square{}, false
}

// MovePiece relocates the piece on m.From to m.To and applies the side
// effects encoded in the move flags. The caller must have validated m.
func (b *Board) MovePiece(m Move) {
	if !m.From.Valid() || !m.To.Valid() {
		return
	}
	p := b.cells[m.From.Row][m.From.Col]
	if p.Empty() {
		return
	}
	b.cells[m.From.Row][m.From.Col] = Piece{}

	if m.EnPassant {
		b.cells[m.From.Row][m.To.Col] = Piece{}
	}
	if m.Castling {
		row := m.From.Row
		rookFrom, rookTo := 0, 3
		if m.To.Col > m.From.Col {
			rookFrom, rookTo = 7, 5
		}
		b.cells[row][rookTo] = b.cells[row][rookFrom]
		b.cells[row][rookFrom] = Piece{}
	}
	if m.Promotion {
		p = Piece{Type: Queen, Color: p.Color}
	}
	b.cells[m.To.Row][m.To.Col] = p

	b.updateCastling(p, m.From, m.To)

	b.hasEP = false
	if p.Type == Pawn && abs(m.To.Row-m.From.Row) == 2 {
		b.epTarget = Square{Row: (m.From.Row + m.To.Row) / 2, Col: m.From.Col}
		b.hasEP = true
	}
}

func (b *Board) updateCastling(moved Piece, from, to Square) {
	if moved.Type == King {
		b.castling &^= kingSideRight(moved.Color) | queenSideRight(moved.Color)
	}
	for _, sq := range [2]Square{from, to} {
		switch sq {
		case Square{Row: 7, Col: 7}:
			b.castling &^= WhiteKingSide
		case Square{Row: 7, Col: 0}:
			b.castling &^= WhiteQueenSide
		case Square{Row: 0, Col: 7}:
			b.castling &^= BlackKingSide
		case Square{Row: 0, Col: 0}:
			b.castling &^= BlackQueenSide
		}
	}
}

// String renders the board as text with rank 8 on top.
func (b *Board) String() string {
	var sb strings.Builder
	for row := 0; row < 8; row++ {
		sb.WriteByte(byte('0' + 8 - row))
		sb.WriteByte(' ')
		for col := 0; col < 8; col++ {
			sb.WriteByte(b.cells[row][col].Symbol())
			if col < 7 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h")
	return sb.String()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
