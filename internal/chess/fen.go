package chess

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var ErrInvalidFEN = errors.New("invalid FEN")

// ParseFEN reads a position and the side to move. Clocks are accepted but
// not retained.
func ParseFEN(fen string) (*Board, Color, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return nil, White, fmt.Errorf("%w: need at least 4 fields, got %d", ErrInvalidFEN, len(parts))
	}
	b := EmptyBoard()
	if err := parsePlacement(b, parts[0]); err != nil {
		return nil, White, err
	}

	var turn Color
	switch parts[1] {
	case "w":
		turn = White
	case "b":
		turn = Black
	default:
		return nil, White, fmt.Errorf("%w: side to move %q", ErrInvalidFEN, parts[1])
	}

	if parts[2] != "-" {
		for _, ch := range parts[2] {
			switch ch {
			case 'K':
				b.castling |= WhiteKingSide
			case 'Q':
				b.castling |= WhiteQueenSide
			case 'k':
				b.castling |= BlackKingSide
			case 'q':
				b.castling |= BlackQueenSide
			default:
				return nil, White, fmt.Errorf("%w: castling %q", ErrInvalidFEN, parts[2])
			}
		}
	}

	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil {
			return nil, White, fmt.Errorf("%w: en passant %q", ErrInvalidFEN, parts[3])
		}
		b.SetEnPassantTarget(sq, true)
	}

	for i := 4; i < len(parts) && i < 6; i++ {
		if _, err := strconv.Atoi(parts[i]); err != nil {
			return nil, White, fmt.Errorf("%w: clock field %q", ErrInvalidFEN, parts[i])
		}
	}
	return b, turn, nil
}

func parsePlacement(b *Board, s string) error {
	ranks := strings.Split(s, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%w: expected 8 ranks, got %d", ErrInvalidFEN, len(ranks))
	}
	for row, rank := range ranks {
		col := 0
		for i := 0; i < len(rank); i++ {
			ch := rank[i]
			if ch >= '1' && ch <= '8' {
				col += int(ch - '0')
				continue
			}
			p, ok := pieceFromSymbol(ch)
			if !ok {
				return fmt.Errorf("%w: piece %q", ErrInvalidFEN, ch)
			}
			if col > 7 {
				return fmt.Errorf("%w: rank %d overflows", ErrInvalidFEN, 8-row)
			}
			b.cells[row][col] = p
			col++
		}
		if col != 8 {
			return fmt.Errorf("%w: rank %d has %d files", ErrInvalidFEN, 8-row, col)
		}
	}
	return nil
}

// FEN serialises the board with the given side to move and move number.
func (b *Board) FEN(turn Color, fullMove int) string {
	var sb strings.Builder
	for row := 0; row < 8; row++ {
		empty := 0
		for col := 0; col < 8; col++ {
			p := b.cells[row][col]
			if p.Empty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(p.Symbol())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if row < 7 {
			sb.WriteByte('/')
		}
	}

	if turn == White {
		sb.WriteString(" w ")
	} else {
		sb.WriteString(" b ")
	}

	castling := ""
	if b.castling.Has(WhiteKingSide) {
		castling += "K"
	}
	if b.castling.Has(WhiteQueenSide) {
		castling += "Q"
	}
	if b.castling.Has(BlackKingSide) {
		castling += "k"
	}
	if b.castling.Has(BlackQueenSide) {
		castling += "q"
	}
	if castling == "" {
		castling = "-"
	}
	sb.WriteString(castling)

	sb.WriteByte(' ')
	if b.hasEP {
		sb.WriteString(b.epTarget.String())
	} else {
		sb.WriteByte('-')
	}
	if fullMove < 1 {
		fullMove = 1
	}
	sb.WriteString(" 0 ")
	sb.WriteString(strconv.Itoa(fullMove))
	return sb.String()
}
