package chess

import (
	"errors"
	"testing"
)

func TestStartFENRoundTrip(t *testing.T) {
	b := NewBoard()
	if got := b.FEN(White, 1); got != StartFEN {
		t.Fatalf("FEN = %q, want %q", got, StartFEN)
	}
	parsed, turn, err := ParseFEN(StartFEN)
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	if turn != White || *parsed != *b {
		t.Fatalf("parsed start position differs\n%s", parsed)
	}
}

func TestFENTracksEnPassantAndRights(t *testing.T) {
	r := NewRules(VariantStandard)
	b := NewBoard()
	play(t, r, b, White, "e2e4")
	if got, want := b.FEN(Black, 1), "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"; got != want {
		t.Fatalf("FEN = %q, want %q", got, want)
	}
	play(t, r, b, Black, "e7e5", "e1e2")
	if got, want := b.FEN(Black, 2), "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPPKPPP/RNBQ1BNR b kq - 0 2"; got != want {
		t.Fatalf("FEN = %q, want %q", got, want)
	}
}

func TestParseFENErrors(t *testing.T) {
	bad := []string{
		"",
		"8/8/8 w - - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",
		"rnbqkbnr/pppppppp/9/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"rnbqkbnr/ppppXppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkz - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq z9 0 1",
	}
	for _, fen := range bad {
		if _, _, err := ParseFEN(fen); !errors.Is(err, ErrInvalidFEN) {
			t.Fatalf("ParseFEN(%q): expected ErrInvalidFEN, got %v", fen, err)
		}
	}
}

func TestSquareNotation(t *testing.T) {
	sq, err := ParseSquare("e4")
	if err != nil {
		t.Fatalf("ParseSquare: %v", err)
	}
	if sq != (Square{Row: 4, Col: 4}) || sq.String() != "e4" {
		t.Fatalf("unexpected square %+v %s", sq, sq)
	}
	if a8 := (Square{Row: 0, Col: 0}); a8.String() != "a8" {
		t.Fatalf("row 0 col 0 should be a8, got %s", a8)
	}
	if _, err := ParseSquare("i9"); !errors.Is(err, ErrInvalidSquare) {
		t.Fatalf("expected ErrInvalidSquare, got %v", err)
	}
	if _, _, err := ParseCoordinate("e7e8x"); !errors.Is(err, ErrInvalidSquare) {
		t.Fatalf("expected bad suffix error, got %v", err)
	}
}
