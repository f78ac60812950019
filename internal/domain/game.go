package domain

import (
	"strings"
	"time"
)

// Result tokens stored with a finished game.
const (
	ResultWhite = "white"
	ResultBlack = "black"
	ResultDraw  = "draw"
)

// GameRecord is the persisted view of one peer game. It is produced by the
// session after every ply and once more when the game ends.
type GameRecord struct {
	ID         string    `json:"id"`
	LocalColor string    `json:"localColor"`
	WhiteName  string    `json:"whiteName,omitempty"`
	BlackName  string    `json:"blackName,omitempty"`
	Variant    string    `json:"variant"`
	FEN        string    `json:"fen"`
	Turn       string    `json:"turn"`
	MovesUCI   []string  `json:"movesUci"`
	MovesSAN   []string  `json:"movesSan,omitempty"`
	Status     string    `json:"status"`
	Result     string    `json:"result,omitempty"`
	Method     string    `json:"method,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	EndedAt    time.Time `json:"endedAt,omitempty"`
}

func (g *GameRecord) Finished() bool { return !g.EndedAt.IsZero() }

func (g *GameRecord) Duration() time.Duration {
	end := g.EndedAt
	if end.IsZero() {
		end = g.UpdatedAt
	}
	d := end.Sub(g.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

// PGNResult maps the result token to the PGN result tag.
func PGNResult(result string) string {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case ResultWhite:
		return "1-0"
	case ResultBlack:
		return "0-1"
	case ResultDraw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

func (g *GameRecord) Clone() GameRecord {
	dup := *g
	dup.MovesUCI = append([]string(nil), g.MovesUCI...)
	if g.MovesSAN != nil {
		dup.MovesSAN = append([]string(nil), g.MovesSAN...)
	}
	return dup
}
