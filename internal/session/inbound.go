package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/park285/cheese-peerchess/internal/chess"
	"github.com/park285/cheese-peerchess/pkg/peerwire"
	"go.uber.org/zap"
)

// Dispatch queues an inbound peer message for Run. It blocks while the
// inbox is full and gives up once the session is closed.
func (s *Session) Dispatch(msg peerwire.Message) {
	select {
	case s.inbox <- msg:
	case <-s.done:
	}
}

// ConnectionLost records that the peer link failed. The game is left open.
func (s *Session) ConnectionLost(err error) {
	s.logger.Warn("peer_conn_lost", zap.Error(err))
	s.mu.Lock()
	listeners := s.listeners
	s.mu.Unlock()
	emit(listeners, Event{Kind: EventConnectionLost, Err: err})
}

// Run is the single consumer of inbound messages. It returns when ctx is
// cancelled or the session is closed.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return ErrClosed
		case msg := <-s.inbox:
			if err := s.Handle(msg); err != nil {
				s.logger.Debug("session_inbound_dropped", zap.String("type", string(msg.Type)), zap.Error(err))
			}
		}
	}
}

// Handle applies one inbound message synchronously.
func (s *Session) Handle(msg peerwire.Message) error {
	switch msg.Type {
	case peerwire.TypeMove:
		m := chess.Move{
			From: chess.Square{Row: msg.Move.FromRow, Col: msg.Move.FromCol},
			To:   chess.Square{Row: msg.Move.ToRow, Col: msg.Move.ToCol},
		}
		err := s.apply(m, true)
		if errors.Is(err, ErrProtocolDesync) && !errors.Is(err, ErrIllegalMove) {
			s.logger.Warn("peer_desync", zap.String("move", m.UCI()), zap.Error(err))
			s.mu.Lock()
			listeners := s.listeners
			s.mu.Unlock()
			emit(listeners, Event{Kind: EventDesync, Move: m, Err: err, Remote: true})
		}
		return err
	case peerwire.TypeChat:
		s.mu.Lock()
		listeners := s.listeners
		s.mu.Unlock()
		emit(listeners, Event{Kind: EventChat, Text: msg.Text, Remote: true})
		return nil
	case peerwire.TypeGameAction:
		return s.handleAction(msg.Action)
	}
	return fmt.Errorf("%w: unknown type %q", peerwire.ErrMalformedMessage, msg.Type)
}

func (s *Session) handleAction(a peerwire.Action) error {
	switch a {
	case peerwire.ActionResign:
		return s.end(Outcome{Status: StatusResigned, Side: s.local}, "")
	case peerwire.ActionAcceptDraw:
		s.mu.Lock()
		offered := s.weOfferedDraw
		s.mu.Unlock()
		if !offered {
			s.logger.Info("session_draw_accept_unsolicited")
		}
		return s.end(Outcome{Status: StatusDrawAgreed}, "")
	case peerwire.ActionOfferDraw:
		return s.markDraw(EventDrawOffered, func() { s.peerOfferedDraw = true })
	case peerwire.ActionRejectDraw:
		return s.markDraw(EventDrawRejected, func() { s.weOfferedDraw = false })
	}
	return fmt.Errorf("%w: unknown action %q", peerwire.ErrMalformedMessage, a)
}

func (s *Session) markDraw(kind EventKind, mutate func()) error {
	s.mu.Lock()
	if s.outcome.Terminal() {
		s.mu.Unlock()
		return ErrGameEnded
	}
	mutate()
	listeners := s.listeners
	s.mu.Unlock()
	s.logger.Info("session_draw_event", zap.String("event", kind.String()))
	emit(listeners, Event{Kind: kind, Remote: true})
	return nil
}
