package chess

import (
	"fmt"
	"strings"
)

// Move describes one ply. Flags are derived by Rules.Prepare; callers only
// supply the coordinates.
type Move struct {
	From     Square
	To       Square
	Piece    Piece
	Captured Piece

	Castling  bool
	EnPassant bool
	Promotion bool
}

func (m Move) IsCapture() bool { return !m.Captured.Empty() }

// UCI renders coordinate notation, e.g. e2e4 or e7e8q.
func (m Move) UCI() string {
	s := m.From.String() + m.To.String()
	if m.Promotion {
		s += "q"
	}
	return s
}

func (m Move) String() string { return m.UCI() }

// ParseCoordinate reads <file><rank><file><rank> with an optional promotion
// suffix. Only queen promotion exists, so any suffix is accepted and ignored.
func ParseCoordinate(s string) (Square, Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return Square{}, Square{}, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return Square{}, Square{}, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Square{}, Square{}, err
	}
	if len(s) == 5 && !strings.ContainsRune("qrbn", rune(s[4])) {
		return Square{}, Square{}, fmt.Errorf("%w: bad promotion suffix in %q", ErrInvalidSquare, s)
	}
	return from, to, nil
}
