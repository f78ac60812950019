package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/park285/cheese-peerchess/internal/app"
	"github.com/park285/cheese-peerchess/internal/chess"
	"github.com/park285/cheese-peerchess/internal/obslog"
	"github.com/park285/cheese-peerchess/internal/session"
	"go.uber.org/zap"
)

const historyLimit = 10

type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func newPrinter(w io.Writer) *printer { return &printer{w: w} }

func (p *printer) println(s string) {
	if strings.TrimSpace(s) == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, s)
}

// console maps terminal commands onto session operations.
type console struct {
	s      *session.Session
	deps   *app.Deps
	out    *printer
	peer   bool
	aiTurn chan struct{}
}

func newConsole(s *session.Session, deps *app.Deps, out *printer) *console {
	return &console{
		s:      s,
		deps:   deps,
		out:    out,
		peer:   deps.Config.Networked(),
		aiTurn: make(chan struct{}, 1),
	}
}

func (c *console) start() {
	f := c.deps.Formatter
	c.out.println(f.Start(c.s.Snapshot(), c.s.LocalColor(), c.peer))
	c.out.println(f.Board(c.s.Board(), c.s.LocalColor()))
	c.out.println(f.Turn(c.s.Turn(), c.s.LocalColor(), c.peer))
	c.wakeAI()
}

// onEvent runs on whichever goroutine changed the session.
func (c *console) onEvent(ev session.Event) {
	f := c.deps.Formatter
	c.out.println(f.Event(ev))
	if ev.Kind != session.EventMove {
		return
	}
	c.out.println(f.Board(c.s.Board(), c.s.LocalColor()))
	if o := c.s.Outcome(); o.Terminal() {
		return
	}
	c.out.println(f.Turn(c.s.Turn(), c.s.LocalColor(), c.peer))
	c.wakeAI()
}

func (c *console) aiSide() bool {
	return c.deps.Player != nil && c.s.Turn() != c.s.LocalColor() && !c.s.Outcome().Terminal()
}

func (c *console) wakeAI() {
	if !c.aiSide() {
		return
	}
	select {
	case c.aiTurn <- struct{}{}:
	default:
	}
}

// runAI plays the computer side whenever it is signalled.
func (c *console) runAI(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.aiTurn:
		}
		if !c.aiSide() {
			continue
		}
		side := c.s.Turn()
		m, err := c.deps.Player.ChooseMove(ctx, c.s.Board(), side, c.s.History())
		if err != nil {
			obslog.L().Warn("ai_choose_error", zap.Error(err))
			c.out.println(c.deps.Formatter.Error(err))
			continue
		}
		if err := c.s.Apply(m); err != nil {
			obslog.L().Warn("ai_apply_error", zap.String("move", m.UCI()), zap.Error(err))
			c.out.println(c.deps.Formatter.Error(err))
		}
	}
}

// handle executes one command line; it returns false when the user quits.
func (c *console) handle(ctx context.Context, line string) bool {
	f := c.deps.Formatter
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "quit", "exit":
		return false
	case "help", "?":
		c.out.println(f.Help())
	case "board":
		c.out.println(f.Board(c.s.Board(), c.s.LocalColor()))
	case "status":
		c.out.println(f.Status(c.s.Snapshot(), c.s.History()))
	case "moves":
		c.out.println(f.Moves(c.moves(args)))
	case "resign":
		if c.deps.Player != nil && c.s.Turn() != c.s.LocalColor() {
			c.out.println(f.Error(session.ErrNotYourTurn))
			return true
		}
		c.out.println(f.Error(c.s.Resign()))
	case "draw":
		if err := c.s.OfferDraw(); err != nil {
			c.out.println(f.Error(err))
		} else {
			c.out.println(c.deps.Messages.Text("draw.sent", nil))
		}
	case "accept":
		c.out.println(f.Error(c.s.AcceptDraw()))
	case "reject":
		c.out.println(f.Error(c.s.RejectDraw()))
	case "say":
		c.out.println(f.Error(c.s.SendChat(strings.Join(args, " "))))
	case "history":
		games, err := c.deps.Repo.Recent(ctx, historyLimit)
		if err != nil {
			c.out.println(f.Error(err))
			return true
		}
		c.out.println(f.History(games))
	default:
		if !looksLikeMove(cmd) {
			c.out.println(f.UnknownCommand(cmd))
			return true
		}
		if c.deps.Player != nil && c.s.Turn() != c.s.LocalColor() {
			c.out.println(f.Error(session.ErrNotYourTurn))
			return true
		}
		if err := c.s.ApplyCoordinate(cmd); err != nil {
			c.out.println(f.Error(err))
		}
	}
	return true
}

func (c *console) moves(args []string) []chess.Move {
	if len(args) == 0 {
		return c.s.LegalMoves()
	}
	sq, err := chess.ParseSquare(args[0])
	if err != nil {
		return nil
	}
	return c.s.LegalMovesFrom(sq)
}

func looksLikeMove(s string) bool {
	if len(s) != 4 && len(s) != 5 {
		return false
	}
	return s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8' &&
		s[2] >= 'a' && s[2] <= 'h' && s[3] >= '1' && s[3] <= '8'
}
