package ai

import (
	"context"
	"fmt"

	"github.com/park285/cheese-peerchess/internal/chess"
	"github.com/park285/cheese-peerchess/internal/chess/uci"
	"github.com/park285/cheese-peerchess/internal/obslog"
	"go.uber.org/zap"
)

// Searcher is the part of uci.Session the engine player needs.
type Searcher interface {
	Search(ctx context.Context, req uci.SearchRequest) (uci.SearchResponse, error)
}

// EnginePlayer asks an external engine for the position reached from the
// standard start by the game history. Suggestions are validated against the
// local rules before use.
type EnginePlayer struct {
	engine Searcher
	rules  chess.Rules
	level  Level
	rand   *lockedRand
	logger *zap.Logger
}

func NewEnginePlayer(engine Searcher, rules chess.Rules, level Level, seed int64) (*EnginePlayer, error) {
	if err := level.Validate(); err != nil {
		return nil, err
	}
	return &EnginePlayer{
		engine: engine,
		rules:  rules,
		level:  level,
		rand:   newLockedRand(seed),
		logger: obslog.Named("ai").With(zap.String("level", level.Name)),
	}, nil
}

func (p *EnginePlayer) Level() Level { return p.level }

func (p *EnginePlayer) ChooseMove(ctx context.Context, b *chess.Board, side chess.Color, history []chess.Move) (chess.Move, error) {
	resp, err := p.engine.Search(ctx, uci.SearchRequest{
		Moves:  historyUCI(history),
		Limits: uci.Limits{MoveTimeMillis: int(p.level.MoveTime.Milliseconds())},
	})
	if err != nil {
		return chess.Move{}, fmt.Errorf("engine search: %w", err)
	}

	var suggestions []string
	if chosen, ok := selectCandidate(p.level, resp.Candidates, p.rand); ok {
		suggestions = append(suggestions, chosen.Move)
	}
	if resp.BestMove != "" {
		suggestions = append(suggestions, resp.BestMove)
	}
	if len(suggestions) == 0 {
		return chess.Move{}, uci.ErrNoBestMove
	}

	var lastErr error
	for _, s := range suggestions {
		m, err := translate(p.rules, b, side, s)
		if err == nil {
			p.logger.Debug("ai_engine_move", zap.String("move", m.UCI()), zap.String("best", resp.BestMove))
			return m, nil
		}
		p.logger.Warn("ai_engine_rejected", zap.String("move", s), zap.Error(err))
		lastErr = err
	}
	return chess.Move{}, lastErr
}
