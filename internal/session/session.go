package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/cheese-peerchess/internal/chess"
	"github.com/park285/cheese-peerchess/internal/domain"
	"github.com/park285/cheese-peerchess/internal/obslog"
	"github.com/park285/cheese-peerchess/pkg/peerwire"
	"go.uber.org/zap"
)

var (
	ErrIllegalMove    = errors.New("illegal move")
	ErrGameEnded      = errors.New("game has ended")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrProtocolDesync = errors.New("peer move rejected locally")
	ErrNoPendingDraw  = errors.New("no draw offer pending")
	ErrNoPeer         = errors.New("no peer attached")
	ErrClosed         = errors.New("session closed")
)

const defaultReportTimeout = 30 * time.Second

// Transmitter carries local actions to the peer.
type Transmitter interface {
	SendMove(m chess.Move) error
	SendChat(text string) error
	SendGameAction(a peerwire.Action) error
}

// Reporter receives the final record exactly once per finished game.
type Reporter interface {
	ReportResult(ctx context.Context, rec domain.GameRecord) error
}

type ReporterFunc func(ctx context.Context, rec domain.GameRecord) error

func (f ReporterFunc) ReportResult(ctx context.Context, rec domain.GameRecord) error {
	return f(ctx, rec)
}

// Session owns the board, side to move, move history and outcome of one
// game. All mutation happens under mu; inbound peer messages are queued and
// drained by Run so the reader goroutine never touches the board.
type Session struct {
	mu sync.Mutex

	id      string
	rules   chess.Rules
	board   *chess.Board
	turn    chess.Color
	local   chess.Color
	names   [2]string
	history []chess.Move
	outcome Outcome

	peerOfferedDraw bool
	weOfferedDraw   bool
	reported        bool
	closed          bool

	startedAt time.Time
	updatedAt time.Time
	endedAt   time.Time

	tx            Transmitter
	reporter      Reporter
	reportTimeout time.Duration
	listeners     []Listener
	logger        *zap.Logger
	now           func() time.Time

	inboxSize int
	inbox     chan peerwire.Message
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func New(opts ...Option) *Session {
	s := &Session{
		rules:         chess.NewRules(chess.VariantStandard),
		board:         chess.NewBoard(),
		turn:          chess.White,
		local:         chess.White,
		reportTimeout: defaultReportTimeout,
		now:           time.Now,
		inboxSize:     64,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if strings.TrimSpace(s.id) == "" {
		s.id = uuid.NewString()
	}
	s.inbox = make(chan peerwire.Message, s.inboxSize)
	s.logger = obslog.Or(s.logger).With(zap.String("game_id", s.id))
	s.startedAt = s.now()
	s.updatedAt = s.startedAt
	s.outcome = s.evaluate()
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) LocalColor() chess.Color { return s.local }

func (s *Session) Rules() chess.Rules { return s.rules }

// AttachTransmitter connects an outbound peer after construction, e.g. once
// the socket handshake finishes.
func (s *Session) AttachTransmitter(t Transmitter) {
	s.mu.Lock()
	s.tx = t
	s.mu.Unlock()
}

func (s *Session) AddListener(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

func (s *Session) Board() *chess.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Clone()
}

func (s *Session) Turn() chess.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turn
}

func (s *Session) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

func (s *Session) History() []chess.Move {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chess.Move(nil), s.history...)
}

func (s *Session) MovesUCI() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.movesUCILocked()
}

func (s *Session) movesUCILocked() []string {
	out := make([]string, 0, len(s.history))
	for _, m := range s.history {
		out = append(out, m.UCI())
	}
	return out
}

// LegalMoves lists the legal moves of the side to move; empty once ended.
func (s *Session) LegalMoves() []chess.Move {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome.Terminal() {
		return nil
	}
	return s.rules.LegalMoves(s.board, s.turn)
}

// LegalMovesFrom lists legal destinations for the piece on from, if it
// belongs to the side to move.
func (s *Session) LegalMovesFrom(from chess.Square) []chess.Move {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome.Terminal() || s.board.At(from).Color != s.turn {
		return nil
	}
	return s.rules.LegalMovesFrom(s.board, from)
}

func (s *Session) PeerOfferedDraw() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerOfferedDraw
}

// Apply plays a locally originated move (UI, AI or engine).
func (s *Session) Apply(m chess.Move) error {
	return s.apply(m, false)
}

// ApplyCoordinate parses coordinate notation such as e2e4 and applies it.
func (s *Session) ApplyCoordinate(uci string) error {
	from, to, err := chess.ParseCoordinate(uci)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	return s.Apply(chess.Move{From: from, To: to})
}

func (s *Session) apply(m chess.Move, fromNetwork bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.outcome.Terminal() {
		s.mu.Unlock()
		return ErrGameEnded
	}
	if s.tx != nil || fromNetwork {
		if !fromNetwork && s.turn != s.local {
			s.mu.Unlock()
			return ErrNotYourTurn
		}
		if fromNetwork && s.turn == s.local {
			s.mu.Unlock()
			return fmt.Errorf("%w: peer moved on %s's turn", ErrProtocolDesync, s.turn)
		}
	}

	full, err := s.rules.Prepare(s.board, m.From, m.To)
	if err != nil {
		s.mu.Unlock()
		return s.rejected(m, fromNetwork, err)
	}
	if !s.rules.IsLegalMove(s.board, full, s.turn) {
		s.mu.Unlock()
		return s.rejected(full, fromNetwork, nil)
	}

	s.board.MovePiece(full)
	s.history = append(s.history, full)

	var sendErr error
	if !fromNetwork && s.tx != nil {
		sendErr = s.tx.SendMove(full)
	}

	mover := s.turn
	s.turn = s.turn.Opponent()
	s.updatedAt = s.now()
	prev := s.outcome
	s.outcome = s.evaluate()
	events := []Event{{Kind: EventMove, Move: full, Side: mover, Remote: fromNetwork}}
	if s.outcome != prev {
		events = append(events, Event{Kind: EventOutcome, Outcome: s.outcome})
	}
	cur := s.outcome
	rec, finished := s.finishLocked()
	listeners := s.listeners
	s.mu.Unlock()

	s.logger.Info("session_move",
		zap.String("move", full.UCI()),
		zap.String("side", mover.String()),
		zap.Bool("remote", fromNetwork),
		zap.String("outcome", cur.String()),
	)
	if sendErr != nil {
		s.logger.Warn("session_send_move_error", zap.Error(sendErr))
		events = append(events, Event{Kind: EventConnectionLost, Err: sendErr})
	}
	emit(listeners, events...)
	if finished {
		s.report(rec)
	}
	return nil
}

func (s *Session) rejected(m chess.Move, fromNetwork bool, cause error) error {
	err := fmt.Errorf("%w: %s", ErrIllegalMove, m.UCI())
	if cause != nil {
		err = fmt.Errorf("%w: %s: %v", ErrIllegalMove, m.UCI(), cause)
	}
	if !fromNetwork {
		return err
	}
	err = fmt.Errorf("%w: %w", ErrProtocolDesync, err)
	s.logger.Warn("peer_desync", zap.String("move", m.UCI()), zap.Error(err))
	s.mu.Lock()
	listeners := s.listeners
	s.mu.Unlock()
	emit(listeners, Event{Kind: EventDesync, Move: m, Err: err, Remote: true})
	return err
}

// evaluate computes the outcome for the side to move, checking king capture
// first, then checkmate, stalemate and check.
func (s *Session) evaluate() Outcome {
	switch {
	case !s.rules.HasKing(s.board, chess.White):
		return Outcome{Status: StatusKingCaptured, Side: chess.Black}
	case !s.rules.HasKing(s.board, chess.Black):
		return Outcome{Status: StatusKingCaptured, Side: chess.White}
	case s.rules.IsCheckmate(s.board, s.turn):
		return Outcome{Status: StatusCheckmate, Side: s.turn.Opponent()}
	case s.rules.IsStalemate(s.board, s.turn):
		return Outcome{Status: StatusStalemate}
	case s.rules.IsKingInCheck(s.board, s.turn):
		return Outcome{Status: StatusCheck, Side: s.turn}
	}
	return Outcome{Status: StatusInProgress}
}

// finishLocked stamps the end of the game the first time a terminal outcome
// is observed and reports whether the caller must dispatch the result. The
// report is counted in wg here, under mu, so Close cannot miss it.
func (s *Session) finishLocked() (domain.GameRecord, bool) {
	if !s.outcome.Terminal() || s.reported {
		return domain.GameRecord{}, false
	}
	s.reported = true
	s.endedAt = s.now()
	s.updatedAt = s.endedAt
	s.weOfferedDraw, s.peerOfferedDraw = false, false
	if s.reporter == nil {
		return domain.GameRecord{}, false
	}
	s.wg.Add(1)
	return s.snapshotLocked(), true
}

// end moves the session to a terminal outcome decided outside the board
// (resignation, agreed draw).
func (s *Session) end(o Outcome, send peerwire.Action) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.outcome.Terminal() {
		s.mu.Unlock()
		return ErrGameEnded
	}
	var sendErr error
	if send != "" && s.tx != nil {
		sendErr = s.tx.SendGameAction(send)
	}
	s.outcome = o
	rec, finished := s.finishLocked()
	listeners := s.listeners
	s.mu.Unlock()

	s.logger.Info("session_outcome", zap.String("outcome", o.String()))
	events := []Event{{Kind: EventOutcome, Outcome: o}}
	if sendErr != nil {
		s.logger.Warn("session_send_action_error", zap.String("action", string(send)), zap.Error(sendErr))
		events = append(events, Event{Kind: EventConnectionLost, Err: sendErr})
	}
	emit(listeners, events...)
	if finished {
		s.report(rec)
	}
	return nil
}

// Resign ends the game in favour of the opponent. Without a peer the side
// to move resigns.
func (s *Session) Resign() error {
	s.mu.Lock()
	loser := s.local
	if s.tx == nil {
		loser = s.turn
	}
	s.mu.Unlock()
	return s.end(Outcome{Status: StatusResigned, Side: loser.Opponent()}, peerwire.ActionResign)
}

// OfferDraw sends an offer and waits passively for the peer's answer.
func (s *Session) OfferDraw() error {
	return s.sendAction(peerwire.ActionOfferDraw, func() error {
		s.weOfferedDraw = true
		return nil
	})
}

func (s *Session) AcceptDraw() error {
	s.mu.Lock()
	pending := s.peerOfferedDraw
	s.mu.Unlock()
	if !pending {
		return ErrNoPendingDraw
	}
	return s.end(Outcome{Status: StatusDrawAgreed}, peerwire.ActionAcceptDraw)
}

func (s *Session) RejectDraw() error {
	return s.sendAction(peerwire.ActionRejectDraw, func() error {
		if !s.peerOfferedDraw {
			return ErrNoPendingDraw
		}
		s.peerOfferedDraw = false
		return nil
	})
}

func (s *Session) sendAction(a peerwire.Action, mutate func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome.Terminal() {
		return ErrGameEnded
	}
	if s.tx == nil {
		return ErrNoPeer
	}
	if err := mutate(); err != nil {
		return err
	}
	if err := s.tx.SendGameAction(a); err != nil {
		return fmt.Errorf("send %s: %w", a, err)
	}
	s.logger.Info("session_action_sent", zap.String("action", string(a)))
	return nil
}

// SendChat forwards a chat line to the peer; blank text is ignored and text
// over peerwire.MaxChatBytes is refused.
func (s *Session) SendChat(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) > peerwire.MaxChatBytes {
		return fmt.Errorf("%w: %d bytes", peerwire.ErrChatTooLong, len(text))
	}
	s.mu.Lock()
	tx := s.tx
	s.mu.Unlock()
	if tx == nil {
		return ErrNoPeer
	}
	return tx.SendChat(text)
}

// Snapshot returns the current record of the game.
func (s *Session) Snapshot() domain.GameRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.GameRecord {
	rec := domain.GameRecord{
		ID:         s.id,
		LocalColor: s.local.String(),
		WhiteName:  s.names[0],
		BlackName:  s.names[1],
		Variant:    s.rules.Variant().String(),
		FEN:        s.board.FEN(s.turn, len(s.history)/2+1),
		Turn:       s.turn.String(),
		MovesUCI:   s.movesUCILocked(),
		Status:     s.outcome.Status.String(),
		Result:     s.outcome.Result(),
		StartedAt:  s.startedAt,
		UpdatedAt:  s.updatedAt,
		EndedAt:    s.endedAt,
	}
	if s.outcome.Terminal() {
		rec.Method = s.outcome.Status.String()
	}
	return rec
}

// report runs the reporter for a result already counted by finishLocked.
func (s *Session) report(rec domain.GameRecord) {
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.reportTimeout)
		defer cancel()
		if err := s.reporter.ReportResult(ctx, rec); err != nil {
			s.logger.Warn("session_report_error", zap.String("result", rec.Result), zap.Error(err))
			return
		}
		s.logger.Info("session_reported", zap.String("result", rec.Result), zap.String("method", rec.Method))
	}()
}

// Close stops Run and waits for an in-flight result report. Moves and
// actions after Close fail with ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.done) })
	s.wg.Wait()
}

// Wait blocks until in-flight result reports complete.
func (s *Session) Wait() { s.wg.Wait() }
