package presenter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-peerchess/internal/chess"
	"github.com/park285/cheese-peerchess/internal/domain"
	"github.com/park285/cheese-peerchess/internal/notation"
	"github.com/park285/cheese-peerchess/internal/session"
	"github.com/park285/cheese-peerchess/pkg/peerwire"
)

const capturedRecentLimit = 5

// Messages is the catalog the formatter renders through.
type Messages interface {
	Text(key string, data any) string
}

// Formatter turns session state and events into terminal text.
type Formatter struct {
	msgs  Messages
	names [2]string
	local chess.Color
}

func NewFormatter(msgs Messages) *Formatter {
	return &Formatter{msgs: msgs}
}

// WithPlayers sets the display names and which color sits at this terminal.
func (f *Formatter) WithPlayers(white, black string, local chess.Color) *Formatter {
	f.names = [2]string{white, black}
	f.local = local
	return f
}

func (f *Formatter) name(c chess.Color) string {
	if n := strings.TrimSpace(f.names[c]); n != "" {
		return n
	}
	return c.String()
}

func (f *Formatter) Help() string { return f.msgs.Text("help", nil) }

func (f *Formatter) Start(rec domain.GameRecord, local chess.Color, peer bool) string {
	if !peer {
		return f.msgs.Text("game.local", map[string]any{"ID": rec.ID, "Variant": rec.Variant})
	}
	return f.msgs.Text("game.start", map[string]any{
		"ID":       rec.ID,
		"Color":    local.String(),
		"Opponent": f.name(local.Opponent()),
		"Variant":  rec.Variant,
	})
}

// Turn tells the local player whether they are expected to move.
func (f *Formatter) Turn(turn, local chess.Color, peer bool) string {
	if !peer || turn == local {
		return f.msgs.Text("game.turn_local", map[string]any{"Color": turn.String()})
	}
	return f.msgs.Text("game.turn_remote", map[string]any{"Color": turn.String()})
}

// Board draws the position from the given side's point of view.
func (f *Formatter) Board(b *chess.Board, perspective chess.Color) string {
	var sb strings.Builder
	for i := 0; i < 8; i++ {
		row := i
		if perspective == chess.Black {
			row = 7 - i
		}
		sb.WriteByte(byte('0' + 8 - row))
		sb.WriteByte(' ')
		for j := 0; j < 8; j++ {
			col := j
			if perspective == chess.Black {
				col = 7 - j
			}
			sb.WriteByte(b.At(chess.Square{Row: row, Col: col}).Symbol())
			if j < 7 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	if perspective == chess.Black {
		sb.WriteString("  h g f e d c b a")
	} else {
		sb.WriteString("  a b c d e f g h")
	}
	return sb.String()
}

func (f *Formatter) Move(m chess.Move, side chess.Color) string {
	captured := ""
	if m.IsCapture() {
		captured = m.Captured.Type.String()
	}
	special := ""
	switch {
	case m.Castling && m.To.Col > m.From.Col:
		special = "castles kingside"
	case m.Castling:
		special = "castles queenside"
	case m.EnPassant:
		special = "en passant"
	case m.Promotion:
		special = "promotes to queen"
	}
	return f.msgs.Text("move.played", map[string]any{
		"Side":     side.String(),
		"UCI":      m.UCI(),
		"Captured": captured,
		"Special":  special,
	})
}

// Outcome returns "" while the game is simply in progress.
func (f *Formatter) Outcome(o session.Outcome) string {
	switch o.Status {
	case session.StatusCheck:
		return f.msgs.Text("outcome.check", map[string]any{"Side": o.Side.String()})
	case session.StatusCheckmate, session.StatusKingCaptured, session.StatusResigned:
		return f.msgs.Text("outcome."+o.Status.String(), map[string]any{
			"Winner": o.Side.String(),
			"Loser":  o.Side.Opponent().String(),
		})
	case session.StatusStalemate, session.StatusDrawAgreed:
		return f.msgs.Text("outcome."+o.Status.String(), nil)
	}
	return ""
}

// Event renders one session event; an empty string means nothing to show.
func (f *Formatter) Event(ev session.Event) string {
	switch ev.Kind {
	case session.EventMove:
		return f.Move(ev.Move, ev.Side)
	case session.EventOutcome:
		return f.Outcome(ev.Outcome)
	case session.EventChat:
		return f.msgs.Text("chat.remote", map[string]any{"Name": f.name(f.local.Opponent()), "Text": ev.Text})
	case session.EventDrawOffered:
		return f.msgs.Text("draw.offered", nil)
	case session.EventDrawRejected:
		return f.msgs.Text("draw.rejected", nil)
	case session.EventDesync:
		return f.msgs.Text("peer.desync", map[string]any{"Move": ev.Move.UCI()})
	case session.EventConnectionLost:
		return f.msgs.Text("peer.lost", map[string]any{"Err": errText(ev.Err)})
	}
	return ""
}

// Error maps session errors to player-facing text.
func (f *Formatter) Error(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, session.ErrProtocolDesync):
		return f.msgs.Text("error.generic", map[string]any{"Detail": err.Error()})
	case errors.Is(err, session.ErrIllegalMove):
		return f.msgs.Text("error.illegal", map[string]any{"Detail": strings.TrimPrefix(err.Error(), session.ErrIllegalMove.Error()+": ")})
	case errors.Is(err, session.ErrNotYourTurn):
		return f.msgs.Text("error.not_your_turn", nil)
	case errors.Is(err, session.ErrGameEnded):
		return f.msgs.Text("error.game_ended", nil)
	case errors.Is(err, session.ErrNoPendingDraw):
		return f.msgs.Text("error.no_draw", nil)
	case errors.Is(err, session.ErrNoPeer):
		return f.msgs.Text("error.no_peer", nil)
	case errors.Is(err, peerwire.ErrChatTooLong):
		return f.msgs.Text("error.chat_too_long", map[string]any{"Max": peerwire.MaxChatBytes})
	}
	return f.msgs.Text("error.generic", map[string]any{"Detail": err.Error()})
}

func (f *Formatter) UnknownCommand(cmd string) string {
	return f.msgs.Text("error.unknown_command", map[string]any{"Command": cmd})
}

// Status summarizes the turn, last move, opening and captured material.
func (f *Formatter) Status(rec domain.GameRecord, history []chess.Move) string {
	var lines []string
	last := "-"
	if n := len(history); n > 0 {
		last = history[n-1].UCI()
	}
	lines = append(lines, f.msgs.Text("status.line", map[string]any{
		"FullMove": len(history)/2 + 1,
		"Turn":     rec.Turn,
		"Last":     last,
	}))
	if rec.Variant == chess.VariantStandard.String() && len(rec.MovesUCI) > 0 {
		if code, title := notation.Opening(rec.MovesUCI); code != "" {
			lines = append(lines, f.msgs.Text("status.opening", map[string]any{"Code": code, "Title": title}))
		}
	}
	if text := formatCaptured(history); text != "" {
		lines = append(lines, f.msgs.Text("status.captured", map[string]any{"Text": text}))
		lines = append(lines, f.msgs.Text("status.material", map[string]any{"Text": formatMaterial(history)}))
	}
	if o := f.Outcome(outcomeOf(rec)); o != "" && rec.Finished() {
		lines = append(lines, o)
	}
	return strings.Join(lines, "\n")
}

func (f *Formatter) Moves(moves []chess.Move) string {
	if len(moves) == 0 {
		return f.msgs.Text("moves.none", nil)
	}
	tokens := make([]string, 0, len(moves))
	for _, m := range moves {
		tokens = append(tokens, m.UCI())
	}
	return f.msgs.Text("moves.list", map[string]any{"Count": len(tokens), "Moves": strings.Join(tokens, " ")})
}

func (f *Formatter) History(games []domain.GameRecord) string {
	if len(games) == 0 {
		return f.msgs.Text("history.empty", nil)
	}
	lines := []string{f.msgs.Text("history.header", nil)}
	for _, g := range games {
		lines = append(lines, f.msgs.Text("history.line", map[string]any{
			"When":   formatShortTime(g.EndedAt),
			"White":  orDash(g.WhiteName),
			"Black":  orDash(g.BlackName),
			"Result": domain.PGNResult(g.Result),
			"Method": orDash(g.Method),
			"Plies":  len(g.MovesUCI),
		}))
	}
	return strings.Join(lines, "\n")
}

// outcomeOf rebuilds an Outcome from a stored record for display.
func outcomeOf(rec domain.GameRecord) session.Outcome {
	var o session.Outcome
	for s := session.StatusInProgress; s <= session.StatusDrawAgreed; s++ {
		if s.String() == rec.Status {
			o.Status = s
		}
	}
	switch rec.Result {
	case domain.ResultWhite:
		o.Side = chess.White
	case domain.ResultBlack:
		o.Side = chess.Black
	}
	return o
}

// formatCaptured lists the most recent captures by each side.
func formatCaptured(history []chess.Move) string {
	var byWhite, byBlack []chess.PieceType
	for _, m := range history {
		if !m.IsCapture() {
			continue
		}
		if m.Piece.Color == chess.White {
			byWhite = append(byWhite, m.Captured.Type)
		} else {
			byBlack = append(byBlack, m.Captured.Type)
		}
	}
	var parts []string
	if s := formatCapturedSequence(recentPieces(byWhite, capturedRecentLimit)); s != "" {
		parts = append(parts, "white "+s)
	}
	if s := formatCapturedSequence(recentPieces(byBlack, capturedRecentLimit)); s != "" {
		parts = append(parts, "black "+s)
	}
	return strings.Join(parts, " / ")
}

func formatCapturedSequence(order []chess.PieceType) string {
	tokens := make([]string, 0, len(order))
	for _, t := range order {
		if s := capturedSymbol(t); s != "" {
			tokens = append(tokens, s)
		}
	}
	return strings.Join(tokens, " ")
}

func capturedSymbol(t chess.PieceType) string {
	switch t {
	case chess.Queen:
		return "♛"
	case chess.Rook:
		return "♜"
	case chess.Bishop:
		return "♝"
	case chess.Knight:
		return "♞"
	case chess.Pawn:
		return "♟"
	case chess.King:
		return "♚"
	}
	return ""
}

func recentPieces(order []chess.PieceType, limit int) []chess.PieceType {
	if limit <= 0 || len(order) <= limit {
		return order
	}
	return order[len(order)-limit:]
}

// formatMaterial shows who is ahead on captured material.
func formatMaterial(history []chess.Move) string {
	var white, black int
	for _, m := range history {
		if !m.IsCapture() || m.Captured.Type == chess.King {
			continue
		}
		if m.Piece.Color == chess.White {
			white += m.Captured.Type.Value()
		} else {
			black += m.Captured.Type.Value()
		}
	}
	switch {
	case white > black:
		return fmt.Sprintf("white +%d", white-black)
	case black > white:
		return fmt.Sprintf("black +%d", black-white)
	}
	return "even"
}

func formatShortTime(t time.Time) string {
	if t.IsZero() {
		return "----.--.-- --:--"
	}
	return t.Local().Format("2006.01.02 15:04")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func errText(err error) string {
	if err == nil {
		return "closed"
	}
	return err.Error()
}
