package notation

import (
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
	"github.com/park285/cheese-peerchess/internal/domain"
)

// SAN replays a coordinate-notation history from the standard start and
// returns the moves in standard algebraic notation.
func SAN(movesUCI []string) ([]string, error) {
	game := nchess.NewGame()
	out := make([]string, 0, len(movesUCI))
	for i, mv := range movesUCI {
		pos := game.Position()
		move, err := nchess.UCINotation{}.Decode(pos, strings.ToLower(strings.TrimSpace(mv)))
		if err != nil {
			return out, fmt.Errorf("decode ply %d %q: %w", i+1, mv, err)
		}
		san := nchess.AlgebraicNotation{}.Encode(pos, move)
		if err := game.Move(move, nil); err != nil {
			return out, fmt.Errorf("apply ply %d %q: %w", i+1, mv, err)
		}
		out = append(out, san)
	}
	return out, nil
}

// Opening names the ECO opening the history is in, if any.
func Opening(movesUCI []string) (code, title string) {
	game := nchess.NewGame()
	for _, mv := range movesUCI {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			break
		}
	}
	book := opening.NewBookECO()
	if book == nil {
		return "", ""
	}
	if eco := book.Find(game.Moves()); eco != nil {
		return eco.Code(), eco.Title()
	}
	return "", ""
}

// PGN renders a record as a PGN game. SAN is taken from the record when
// present and replayed from the coordinate moves otherwise.
func PGN(rec domain.GameRecord) string {
	san := rec.MovesSAN
	if len(san) == 0 && len(rec.MovesUCI) > 0 {
		san, _ = SAN(rec.MovesUCI)
	}
	result := domain.PGNResult(rec.Result)

	date := rec.EndedAt
	if date.IsZero() {
		date = rec.UpdatedAt
	}
	if date.IsZero() {
		date = time.Now()
	}

	var b strings.Builder
	b.WriteString("[Event \"Peer game\"]\n")
	b.WriteString("[Site \"peerchess\"]\n")
	fmt.Fprintf(&b, "[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day())
	fmt.Fprintf(&b, "[White \"%s\"]\n", sanitize(orUnknown(rec.WhiteName)))
	fmt.Fprintf(&b, "[Black \"%s\"]\n", sanitize(orUnknown(rec.BlackName)))
	if rec.Variant != "" && rec.Variant != "standard" {
		fmt.Fprintf(&b, "[Variant \"%s\"]\n", sanitize(rec.Variant))
	}
	if strings.TrimSpace(rec.Method) != "" {
		fmt.Fprintf(&b, "[Termination \"%s\"]\n", sanitize(strings.ToLower(rec.Method)))
	}
	fmt.Fprintf(&b, "[Result \"%s\"]\n\n", result)

	for i := 0; i < len(san); i += 2 {
		fmt.Fprintf(&b, "%d. %s", i/2+1, strings.TrimSpace(san[i]))
		if i+1 < len(san) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(san[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(result)
	return b.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "?"
	}
	return s
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
