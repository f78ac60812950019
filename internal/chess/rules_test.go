package chess

import (
	"errors"
	"testing"
)

func mustSquare(t *testing.T, s string) Square {
	t.Helper()
	sq, err := ParseSquare(s)
	if err != nil {
		t.Fatalf("ParseSquare(%q): %v", s, err)
	}
	return sq
}

func mustFEN(t *testing.T, fen string) (*Board, Color) {
	t.Helper()
	b, turn, err := ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return b, turn
}

// play applies coordinate moves with legality checks, alternating sides from side.
func play(t *testing.T, r Rules, b *Board, side Color, moves ...string) Color {
	t.Helper()
	for _, mv := range moves {
		from, to, err := ParseCoordinate(mv)
		if err != nil {
			t.Fatalf("ParseCoordinate(%q): %v", mv, err)
		}
		m, err := r.Prepare(b, from, to)
		if err != nil {
			t.Fatalf("Prepare(%s): %v", mv, err)
		}
		if !r.IsLegalMove(b, m, side) {
			t.Fatalf("expected %s to be legal for %s\n%s", mv, side, b)
		}
		b.MovePiece(m)
		side = side.Opponent()
	}
	return side
}

func TestFoolsMate(t *testing.T) {
	r := NewRules(VariantStandard)
	b := NewBoard()
	side := play(t, r, b, White, "f2f3", "e7e5", "g2g4", "d8h4")
	if side != White {
		t.Fatalf("expected white to move, got %s", side)
	}
	if !r.IsKingInCheck(b, White) {
		t.Fatalf("white should be in check")
	}
	if !r.IsCheckmate(b, White) {
		t.Fatalf("expected checkmate after fool's mate")
	}
	if r.IsStalemate(b, White) {
		t.Fatalf("checkmate must not be stalemate")
	}
}

func TestCheckmateAndAttackerRemoved(t *testing.T) {
	r := NewRules(VariantStandard)
	b, turn := mustFEN(t, "R6k/6pp/8/8/8/8/8/K7 b - - 0 1")
	if !r.IsCheckmate(b, turn) {
		t.Fatalf("back rank mate not detected\n%s", b)
	}
	if err := b.Remove(mustSquare(t, "a8")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if r.IsCheckmate(b, turn) || r.IsStalemate(b, turn) {
		t.Fatalf("without attacker the position is neither mate nor stalemate")
	}
}

func TestStalemate(t *testing.T) {
	r := NewRules(VariantStandard)
	b, turn := mustFEN(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	if !r.IsStalemate(b, turn) {
		t.Fatalf("expected stalemate\n%s", b)
	}
	if r.IsCheckmate(b, turn) {
		t.Fatalf("stalemate reported as checkmate")
	}
	if n := len(r.LegalMoves(b, turn)); n != 0 {
		t.Fatalf("expected no legal moves, got %d", n)
	}
}

func TestCastlingKingSide(t *testing.T) {
	r := NewRules(VariantStandard)
	b, _ := mustFEN(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	m, err := r.Prepare(b, mustSquare(t, "e1"), mustSquare(t, "g1"))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !m.Castling {
		t.Fatalf("expected castling flag on e1g1")
	}
	if !r.IsLegalMove(b, m, White) {
		t.Fatalf("e1g1 should be legal")
	}
	b.MovePiece(m)
	if p := b.At(mustSquare(t, "g1")); p != (Piece{Type: King, Color: White}) {
		t.Fatalf("king not on g1: %v", p)
	}
	if p := b.At(mustSquare(t, "f1")); p != (Piece{Type: Rook, Color: White}) {
		t.Fatalf("rook not on f1: %v", p)
	}
	if !b.At(mustSquare(t, "h1")).Empty() || !b.At(mustSquare(t, "e1")).Empty() {
		t.Fatalf("origin squares not cleared\n%s", b)
	}
	if b.CastlingRights().Has(WhiteKingSide) || b.CastlingRights().Has(WhiteQueenSide) {
		t.Fatalf("white castling rights should be gone: %b", b.CastlingRights())
	}
}

func TestCastlingQueenSideMovesRook(t *testing.T) {
	r := NewRules(VariantStandard)
	b, _ := mustFEN(t, "r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 0 1")
	play(t, r, b, Black, "e8c8")
	if p := b.At(mustSquare(t, "d8")); p != (Piece{Type: Rook, Color: Black}) {
		t.Fatalf("rook not on d8: %v", p)
	}
	if p := b.At(mustSquare(t, "c8")); p != (Piece{Type: King, Color: Black}) {
		t.Fatalf("king not on c8: %v", p)
	}
}

func TestCastlingPreconditions(t *testing.T) {
	r := NewRules(VariantStandard)
	cases := []struct {
		name  string
		fen   string
		move  string
		legal bool
	}{
		{"through attacked square", "r3kr2/8/8/8/8/8/8/R3K2R w KQ - 0 1", "e1g1", false},
		{"other side still fine", "r3kr2/8/8/8/8/8/8/R3K2R w KQ - 0 1", "e1c1", true},
		{"out of check", "r3k3/8/8/8/8/8/8/R3K2r w KQ - 0 1", "e1c1", false},
		{"no rights", "r3k2r/8/8/8/8/8/8/R3K2R w - - 0 1", "e1g1", false},
		{"blocked", "r3k2r/8/8/8/8/8/8/R3KB1R w KQ - 0 1", "e1g1", false},
		{"rook missing", "r3k2r/8/8/8/8/8/8/R3K3 w KQ - 0 1", "e1g1", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, _ := mustFEN(t, tc.fen)
			from, to, err := ParseCoordinate(tc.move)
			if err != nil {
				t.Fatalf("ParseCoordinate: %v", err)
			}
			if got := r.IsLegalMove(b, Move{From: from, To: to}, White); got != tc.legal {
				t.Fatalf("IsLegalMove(%s) = %v, want %v\n%s", tc.move, got, tc.legal, b)
			}
		})
	}
}

func TestRookMoveDropsCastlingRight(t *testing.T) {
	r := NewRules(VariantStandard)
	b, _ := mustFEN(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	play(t, r, b, White, "h1h2", "a8a7", "h2h1", "a7a8")
	if r.IsLegalMove(b, Move{From: mustSquare(t, "e1"), To: mustSquare(t, "g1")}, White) {
		t.Fatalf("castling after the rook moved must be illegal")
	}
	if !r.IsLegalMove(b, Move{From: mustSquare(t, "e1"), To: mustSquare(t, "c1")}, White) {
		t.Fatalf("queen side castling should still be available")
	}
}

func TestEnPassantRemovesPassedPawn(t *testing.T) {
	r := NewRules(VariantStandard)
	b := NewBoard()
	play(t, r, b, White, "e2e4", "a7a6", "e4e5", "d7d5")

	m, err := r.Prepare(b, mustSquare(t, "e5"), mustSquare(t, "d6"))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !m.EnPassant {
		t.Fatalf("expected en passant flag")
	}
	if m.Captured != (Piece{Type: Pawn, Color: Black}) {
		t.Fatalf("captured piece = %v, want black pawn", m.Captured)
	}
	if !r.IsLegalMove(b, m, White) {
		t.Fatalf("e5d6 en passant should be legal")
	}
	b.MovePiece(m)
	if !b.At(mustSquare(t, "d5")).Empty() {
		t.Fatalf("passed pawn on d5 not removed\n%s", b)
	}
	if p := b.At(mustSquare(t, "d6")); p != (Piece{Type: Pawn, Color: White}) {
		t.Fatalf("capturing pawn not on d6: %v", p)
	}
}

func TestEnPassantOnlyImmediately(t *testing.T) {
	r := NewRules(VariantStandard)
	b := NewBoard()
	play(t, r, b, White, "e2e4", "a7a6", "e4e5", "d7d5", "h2h3", "a6a5")
	if r.IsLegalMove(b, Move{From: mustSquare(t, "e5"), To: mustSquare(t, "d6")}, White) {
		t.Fatalf("en passant must expire after one ply")
	}
}

func TestPromotionAlwaysQueen(t *testing.T) {
	r := NewRules(VariantStandard)
	b, _ := mustFEN(t, "8/4P3/8/8/8/8/k7/4K3 w - - 0 1")
	m, err := r.Prepare(b, mustSquare(t, "e7"), mustSquare(t, "e8"))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !m.Promotion || m.UCI() != "e7e8q" {
		t.Fatalf("unexpected promotion move: %+v uci=%s", m, m.UCI())
	}
	b.MovePiece(m)
	if p := b.At(mustSquare(t, "e8")); p != (Piece{Type: Queen, Color: White}) {
		t.Fatalf("promoted piece = %v", p)
	}
}

func TestSelfCheckFilteredOnlyInStandard(t *testing.T) {
	// the e2 bishop is pinned against the king by the e8 rook
	b, _ := mustFEN(t, "4r2k/8/8/8/8/8/4B3/4K3 w - - 0 1")
	pinned := Move{From: mustSquare(t, "e2"), To: mustSquare(t, "d3")}
	if NewRules(VariantStandard).IsLegalMove(b, pinned, White) {
		t.Fatalf("pinned bishop move must be illegal under standard rules")
	}
	if !NewRules(VariantKingCapture).IsLegalMove(b, pinned, White) {
		t.Fatalf("king-capture variant allows self-check")
	}
}

func TestEnumerationAgreesWithIsLegal(t *testing.T) {
	r := NewRules(VariantStandard)
	positions := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	}
	for _, fen := range positions {
		b, turn := mustFEN(t, fen)
		moves := r.LegalMoves(b, turn)
		if len(moves) == 0 {
			t.Fatalf("no moves for %s", fen)
		}
		for _, m := range moves {
			if !r.IsLegalMove(b, m, turn) {
				t.Fatalf("enumerated move %s not legal in %s", m.UCI(), fen)
			}
		}
	}
}

func TestLegalMovesOrderIsRowMajor(t *testing.T) {
	r := NewRules(VariantStandard)
	moves := r.LegalMoves(NewBoard(), White)
	if len(moves) != 20 {
		t.Fatalf("expected 20 opening moves, got %d", len(moves))
	}
	key := func(m Move) int { return ((m.From.Row*8+m.From.Col)*8+m.To.Row)*8 + m.To.Col }
	for i := 1; i < len(moves); i++ {
		if key(moves[i-1]) >= key(moves[i]) {
			t.Fatalf("moves out of order at %d: %s then %s", i, moves[i-1].UCI(), moves[i].UCI())
		}
	}
	if moves[0].UCI() != "a2a4" {
		t.Fatalf("first move = %s, want a2a4", moves[0].UCI())
	}
}

func TestPawnsAttackDiagonallyOnly(t *testing.T) {
	r := NewRules(VariantStandard)
	b, _ := mustFEN(t, "8/8/8/3k4/3P4/8/8/4K3 b - - 0 1")
	if r.IsKingInCheck(b, Black) {
		t.Fatalf("pawn directly in front must not give check")
	}
	b2, _ := mustFEN(t, "8/8/8/3k4/4P3/8/8/4K3 b - - 0 1")
	if !r.IsKingInCheck(b2, Black) {
		t.Fatalf("diagonal pawn must give check")
	}
}

func TestHasKing(t *testing.T) {
	r := NewRules(VariantKingCapture)
	b, _ := mustFEN(t, "8/8/8/8/8/8/8/4K3 w - - 0 1")
	if !r.HasKing(b, White) || r.HasKing(b, Black) {
		t.Fatalf("HasKing mismatch")
	}
	if r.IsKingInCheck(b, Black) {
		t.Fatalf("missing king must not be in check")
	}
}

func TestPieceAtOutOfRange(t *testing.T) {
	b := NewBoard()
	if _, err := b.PieceAt(8, 0); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if _, err := b.PieceAt(0, -1); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	p, err := b.PieceAt(7, 4)
	if err != nil || p != (Piece{Type: King, Color: White}) {
		t.Fatalf("PieceAt(7,4) = %v, %v", p, err)
	}
	p, err = b.PieceAt(4, 4)
	if err != nil || !p.Empty() {
		t.Fatalf("expected empty e4, got %v %v", p, err)
	}
}

func TestPrepareEmptySquare(t *testing.T) {
	r := NewRules(VariantStandard)
	if _, err := r.Prepare(NewBoard(), mustSquare(t, "e4"), mustSquare(t, "e5")); !errors.Is(err, ErrNoPiece) {
		t.Fatalf("expected ErrNoPiece, got %v", err)
	}
}
