package ai

import (
	"context"
	"fmt"
	"os"
	"strings"

	chesslib "github.com/corentings/chess/v2"
	"github.com/park285/cheese-peerchess/internal/chess"
	"github.com/park285/cheese-peerchess/internal/obslog"
	"go.uber.org/zap"
)

const defaultBookMaxPly = 16

// LoadBook reads a polyglot opening book from disk.
func LoadBook(path string) (*chesslib.PolyglotBook, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("polyglot book path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open polyglot book %q: %w", path, err)
	}
	defer file.Close()

	book, err := chesslib.LoadFromReader(file)
	if err != nil {
		return nil, fmt.Errorf("load polyglot book %q: %w", path, err)
	}
	return book, nil
}

// BookPlayer answers from a polyglot book during the opening and defers to
// next once the game leaves the book.
type BookPlayer struct {
	book   *chesslib.PolyglotBook
	next   Player
	rules  chess.Rules
	maxPly int
	rand   *lockedRand
}

func NewBookPlayer(book *chesslib.PolyglotBook, next Player, rules chess.Rules, seed int64) *BookPlayer {
	return &BookPlayer{book: book, next: next, rules: rules, maxPly: defaultBookMaxPly, rand: newLockedRand(seed)}
}

func (p *BookPlayer) ChooseMove(ctx context.Context, b *chess.Board, side chess.Color, history []chess.Move) (chess.Move, error) {
	if p.book != nil && len(history) < p.maxPly {
		if coord, ok := p.lookup(historyUCI(history)); ok {
			if m, err := translate(p.rules, b, side, coord); err == nil {
				obslog.L().Debug("ai_book_move", zap.String("move", coord), zap.Int("ply", len(history)))
				return m, nil
			}
		}
	}
	return p.next.ChooseMove(ctx, b, side, history)
}

// lookup picks a book move for the position after moves, weighted by the
// entry weights.
func (p *BookPlayer) lookup(moves []string) (string, bool) {
	game := chesslib.NewGame()
	for _, mv := range moves {
		if err := game.PushNotationMove(mv, chesslib.UCINotation{}, nil); err != nil {
			return "", false
		}
	}
	hashStr, err := chesslib.NewZobristHasher().HashPosition(game.FEN())
	if err != nil {
		return "", false
	}
	entries := p.book.FindMoves(chesslib.ZobristHashToUint64(hashStr))
	if len(entries) == 0 {
		return "", false
	}

	total := 0
	for _, e := range entries {
		total += int(e.Weight)
	}
	pick := entries[0]
	if total > 0 {
		threshold := p.rand.Intn(total)
		for _, e := range entries {
			threshold -= int(e.Weight)
			if threshold < 0 {
				pick = e
				break
			}
		}
	}
	move := chesslib.DecodeMove(pick.Move).ToMove()
	return move.String(), true
}
