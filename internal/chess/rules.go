package chess

import (
	"fmt"
	"strings"
)

type Variant uint8

const (
	// VariantStandard filters out moves that leave the mover's king attacked.
	VariantStandard Variant = iota
	// VariantKingCapture allows self-check; games end when a king is taken.
	VariantKingCapture
)

func (v Variant) String() string {
	if v == VariantKingCapture {
		return "king-capture"
	}
	return "standard"
}

func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "full":
		return VariantStandard, nil
	case "king-capture", "kingcapture", "blitz":
		return VariantKingCapture, nil
	}
	return VariantStandard, fmt.Errorf("unknown rule variant: %q", s)
}

// Rules answers legality and end-of-game questions for a board it is handed
// per call. It holds no position state and is safe for concurrent use.
type Rules struct {
	variant Variant
}

func NewRules(v Variant) Rules { return Rules{variant: v} }

func (r Rules) Variant() Variant { return r.variant }

var (
	knightJumps = [8][2]int{{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2}, {1, -2}, {1, 2}, {2, -1}, {2, 1}}
	kingSteps   = [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
	rookRays    = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	bishopRays  = [4][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
)

// Prepare builds a full Move for from→to on b: moved piece, captured piece
// and special-move flags. It does not decide legality.
func (r Rules) Prepare(b *Board, from, to Square) (Move, error) {
	if !from.Valid() || !to.Valid() {
		return Move{}, fmt.Errorf("%w: %v -> %v", ErrOutOfRange, from, to)
	}
	p := b.At(from)
	if p.Empty() {
		return Move{}, fmt.Errorf("%w: %s", ErrNoPiece, from)
	}
	m := Move{From: from, To: to, Piece: p, Captured: b.At(to)}
	dr, dc := to.Row-from.Row, to.Col-from.Col
	switch p.Type {
	case King:
		m.Castling = dr == 0 && abs(dc) == 2
	case Pawn:
		if abs(dc) == 1 && m.Captured.Empty() {
			m.EnPassant = true
			m.Captured = b.At(Square{Row: from.Row, Col: to.Col})
		}
		m.Promotion = to.Row == promotionRow(p.Color)
	}
	return m, nil
}

// IsLegalMove reports whether m may be played by side on b. Only the
// coordinates (and the moved piece, if set) of m are consulted; flags are
// re-derived from the board.
func (r Rules) IsLegalMove(b *Board, m Move, side Color) bool {
	if !m.From.Valid() || !m.To.Valid() || m.From == m.To {
		return false
	}
	p := b.At(m.From)
	if p.Empty() || p.Color != side {
		return false
	}
	if !m.Piece.Empty() && m.Piece != p {
		return false
	}
	if target := b.At(m.To); !target.Empty() && target.Color == side {
		return false
	}
	if !r.pseudoLegal(b, p, m.From, m.To) {
		return false
	}
	if r.variant == VariantKingCapture {
		return true
	}
	full, err := r.Prepare(b, m.From, m.To)
	if err != nil {
		return false
	}
	next := b.Clone()
	next.MovePiece(full)
	return !r.IsKingInCheck(next, side)
}

func (r Rules) pseudoLegal(b *Board, p Piece, from, to Square) bool {
	dr, dc := to.Row-from.Row, to.Col-from.Col
	switch p.Type {
	case Knight:
		return (abs(dr) == 2 && abs(dc) == 1) || (abs(dr) == 1 && abs(dc) == 2)
	case Bishop:
		return abs(dr) == abs(dc) && pathClear(b, from, to)
	case Rook:
		return (dr == 0 || dc == 0) && pathClear(b, from, to)
	case Queen:
		return (dr == 0 || dc == 0 || abs(dr) == abs(dc)) && pathClear(b, from, to)
	case King:
		if abs(dr) <= 1 && abs(dc) <= 1 {
			return true
		}
		return dr == 0 && abs(dc) == 2 && r.canCastle(b, p.Color, from, dc > 0)
	case Pawn:
		return r.pawnMove(b, p.Color, from, to)
	}
	return false
}

func (r Rules) pawnMove(b *Board, c Color, from, to Square) bool {
	dir := pawnDirection(c)
	dr, dc := to.Row-from.Row, to.Col-from.Col
	target := b.At(to)
	switch {
	case dc == 0 && dr == dir:
		return target.Empty()
	case dc == 0 && dr == 2*dir:
		mid := Square{Row: from.Row + dir, Col: from.Col}
		return from.Row == pawnStartRow(c) && b.At(mid).Empty() && target.Empty()
	case abs(dc) == 1 && dr == dir:
		if !target.Empty() {
			return target.Color != c
		}
		ep, ok := b.EnPassantTarget()
		if !ok || ep != to {
			return false
		}
		passed := b.At(Square{Row: from.Row, Col: to.Col})
		return passed.Type == Pawn && passed.Color != c
	}
	return false
}

func (r Rules) canCastle(b *Board, c Color, from Square, kingSide bool) bool {
	row := backRank(c)
	if from != (Square{Row: row, Col: 4}) {
		return false
	}
	right, rookCol, step := queenSideRight(c), 0, -1
	if kingSide {
		right, rookCol, step = kingSideRight(c), 7, 1
	}
	if !b.castling.Has(right) {
		return false
	}
	if rook := b.At(Square{Row: row, Col: rookCol}); rook.Type != Rook || rook.Color != c {
		return false
	}
	for col := 4 + step; col != rookCol; col += step {
		if !b.cells[row][col].Empty() {
			return false
		}
	}
	if r.variant == VariantKingCapture {
		return true
	}
	// the king may not castle out of or through an attacked square
	enemy := c.Opponent()
	return !r.isAttacked(b, from, enemy) && !r.isAttacked(b, Square{Row: row, Col: 4 + step}, enemy)
}

func pathClear(b *Board, from, to Square) bool {
	sr, sc := sign(to.Row-from.Row), sign(to.Col-from.Col)
	row, col := from.Row+sr, from.Col+sc
	for row != to.Row || col != to.Col {
		if !b.cells[row][col].Empty() {
			return false
		}
		row += sr
		col += sc
	}
	return true
}

// IsKingInCheck reports whether any piece of the opposing color attacks the
// king of color. A missing king is never in check.
func (r Rules) IsKingInCheck(b *Board, color Color) bool {
	king, ok := b.KingSquare(color)
	if !ok {
		return false
	}
	return r.isAttacked(b, king, color.Opponent())
}

func (r Rules) isAttacked(b *Board, sq Square, by Color) bool {
	for _, j := range knightJumps {
		if p := b.At(Square{Row: sq.Row + j[0], Col: sq.Col + j[1]}); p.Type == Knight && p.Color == by {
			return true
		}
	}
	for _, s := range kingSteps {
		if p := b.At(Square{Row: sq.Row + s[0], Col: sq.Col + s[1]}); p.Type == King && p.Color == by {
			return true
		}
	}
	// pawns of `by` sit one row behind the square in their direction of travel
	pawnRow := sq.Row - pawnDirection(by)
	for _, dc := range [2]int{-1, 1} {
		if p := b.At(Square{Row: pawnRow, Col: sq.Col + dc}); p.Type == Pawn && p.Color == by {
			return true
		}
	}
	if rayAttacked(b, sq, by, rookRays[:], Rook) || rayAttacked(b, sq, by, bishopRays[:], Bishop) {
		return true
	}
	return false
}

func rayAttacked(b *Board, sq Square, by Color, rays [][2]int, slider PieceType) bool {
	for _, d := range rays {
		cur := Square{Row: sq.Row + d[0], Col: sq.Col + d[1]}
		for cur.Valid() {
			p := b.At(cur)
			if !p.Empty() {
				if p.Color == by && (p.Type == slider || p.Type == Queen) {
					return true
				}
				break
			}
			cur = Square{Row: cur.Row + d[0], Col: cur.Col + d[1]}
		}
	}
	return false
}

// LegalMoves enumerates every legal move for color, ordered by source square
// then destination square, both row-major.
func (r Rules) LegalMoves(b *Board, color Color) []Move {
	var out []Move
	r.walkMoves(b, color, func(m Move) bool {
		out = append(out, m)
		return true
	})
	return out
}

// LegalMovesFrom restricts LegalMoves to a single source square.
func (r Rules) LegalMovesFrom(b *Board, from Square) []Move {
	p := b.At(from)
	if p.Empty() {
		return nil
	}
	var out []Move
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			if m, ok := r.tryMove(b, p.Color, from, Square{Row: row, Col: col}); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

func (r Rules) walkMoves(b *Board, color Color, fn func(Move) bool) {
	for fr := 0; fr < 8; fr++ {
		for fc := 0; fc < 8; fc++ {
			p := b.cells[fr][fc]
			if p.Empty() || p.Color != color {
				continue
			}
			from := Square{Row: fr, Col: fc}
			for tr := 0; tr < 8; tr++ {
				for tc := 0; tc < 8; tc++ {
					m, ok := r.tryMove(b, color, from, Square{Row: tr, Col: tc})
					if ok && !fn(m) {
						return
					}
				}
			}
		}
	}
}

func (r Rules) tryMove(b *Board, color Color, from, to Square) (Move, bool) {
	if !r.IsLegalMove(b, Move{From: from, To: to}, color) {
		return Move{}, false
	}
	m, err := r.Prepare(b, from, to)
	return m, err == nil
}

func (r Rules) hasLegalMove(b *Board, color Color) bool {
	found := false
	r.walkMoves(b, color, func(Move) bool {
		found = true
		return false
	})
	return found
}

// IsCheckmate: color is in check and has no legal move.
func (r Rules) IsCheckmate(b *Board, color Color) bool {
	return r.IsKingInCheck(b, color) && !r.hasLegalMove(b, color)
}

// IsStalemate: color is not in check and has no legal move.
func (r Rules) IsStalemate(b *Board, color Color) bool {
	return !r.IsKingInCheck(b, color) && !r.hasLegalMove(b, color)
}

func (r Rules) HasKing(b *Board, color Color) bool {
	_, ok := b.KingSquare(color)
	return ok
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
