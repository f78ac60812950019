package session

import (
	"time"

	"github.com/park285/cheese-peerchess/internal/chess"
	"go.uber.org/zap"
)

type Option func(*Session)

func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithLocalColor sets the color this process plays when a peer is attached.
func WithLocalColor(c chess.Color) Option {
	return func(s *Session) { s.local = c }
}

func WithRules(r chess.Rules) Option {
	return func(s *Session) { s.rules = r }
}

func WithTransmitter(t Transmitter) Option {
	return func(s *Session) { s.tx = t }
}

func WithReporter(r Reporter) Option {
	return func(s *Session) { s.reporter = r }
}

func WithReportTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.reportTimeout = d
		}
	}
}

func WithListener(l Listener) Option {
	return func(s *Session) {
		if l != nil {
			s.listeners = append(s.listeners, l)
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func WithPlayers(white, black string) Option {
	return func(s *Session) { s.names = [2]string{white, black} }
}

// WithBoard starts from a custom position instead of the standard setup.
func WithBoard(b *chess.Board, turn chess.Color) Option {
	return func(s *Session) {
		if b != nil {
			s.board = b.Clone()
			s.turn = turn
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

func WithInboxSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.inboxSize = n
		}
	}
}
