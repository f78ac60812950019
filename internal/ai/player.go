package ai

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/park285/cheese-peerchess/internal/chess"
)

var (
	ErrNoMoves       = errors.New("no legal moves")
	ErrRejectedMove  = errors.New("suggested move is not legal")
	ErrUnknownPlayer = errors.New("unknown ai mode")
)

// Player picks a move for side on b. history is the game so far, oldest
// first; b must be the position it leads to.
type Player interface {
	ChooseMove(ctx context.Context, b *chess.Board, side chess.Color, history []chess.Move) (chess.Move, error)
}

// lockedRand is a *rand.Rand safe for use by several goroutines.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newLockedRand(seed int64) *lockedRand {
	return &lockedRand{rng: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

// Random plays a uniformly chosen legal move.
type Random struct {
	rules chess.Rules
	rand  *lockedRand
}

func NewRandom(rules chess.Rules, seed int64) *Random {
	return &Random{rules: rules, rand: newLockedRand(seed)}
}

func (p *Random) ChooseMove(ctx context.Context, b *chess.Board, side chess.Color, _ []chess.Move) (chess.Move, error) {
	if err := ctx.Err(); err != nil {
		return chess.Move{}, err
	}
	moves := p.rules.LegalMoves(b, side)
	if len(moves) == 0 {
		return chess.Move{}, ErrNoMoves
	}
	return moves[p.rand.Intn(len(moves))], nil
}

// Greedy mates when it can, otherwise takes the most valuable piece on
// offer. Ties and quiet positions are broken at random.
type Greedy struct {
	rules chess.Rules
	rand  *lockedRand
}

func NewGreedy(rules chess.Rules, seed int64) *Greedy {
	return &Greedy{rules: rules, rand: newLockedRand(seed)}
}

func (p *Greedy) ChooseMove(ctx context.Context, b *chess.Board, side chess.Color, _ []chess.Move) (chess.Move, error) {
	if err := ctx.Err(); err != nil {
		return chess.Move{}, err
	}
	moves := p.rules.LegalMoves(b, side)
	if len(moves) == 0 {
		return chess.Move{}, ErrNoMoves
	}

	var mates []chess.Move
	for _, m := range moves {
		if m.Captured.Type == chess.King {
			return m, nil
		}
		next := b.Clone()
		next.MovePiece(m)
		if p.rules.IsCheckmate(next, side.Opponent()) {
			mates = append(mates, m)
		}
	}
	if len(mates) > 0 {
		return mates[p.rand.Intn(len(mates))], nil
	}

	best := 0
	var captures []chess.Move
	for _, m := range moves {
		v := m.Captured.Type.Value()
		switch {
		case v == 0:
		case v > best:
			best = v
			captures = append(captures[:0], m)
		case v == best:
			captures = append(captures, m)
		}
	}
	if len(captures) > 0 {
		return captures[p.rand.Intn(len(captures))], nil
	}
	return moves[p.rand.Intn(len(moves))], nil
}

// translate turns a coordinate-notation suggestion into a validated Move.
func translate(rules chess.Rules, b *chess.Board, side chess.Color, coord string) (chess.Move, error) {
	from, to, err := chess.ParseCoordinate(coord)
	if err != nil {
		return chess.Move{}, fmt.Errorf("%w: %q: %v", ErrRejectedMove, coord, err)
	}
	m, err := rules.Prepare(b, from, to)
	if err != nil {
		return chess.Move{}, fmt.Errorf("%w: %q: %v", ErrRejectedMove, coord, err)
	}
	if m.Piece.Color != side || !rules.IsLegalMove(b, m, side) {
		return chess.Move{}, fmt.Errorf("%w: %q", ErrRejectedMove, coord)
	}
	return m, nil
}

func historyUCI(history []chess.Move) []string {
	out := make([]string, 0, len(history))
	for _, m := range history {
		out = append(out, m.UCI())
	}
	return out
}
