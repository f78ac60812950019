package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/park285/cheese-peerchess/internal/app"
	"github.com/park285/cheese-peerchess/internal/config"
	"github.com/park285/cheese-peerchess/internal/session"
)

func newTestConsole(t *testing.T, role string) (*console, *bytes.Buffer) {
	t.Helper()
	cfg := &config.AppConfig{
		Role:           role,
		Transport:      config.TransportTCP,
		PlayerColor:    "white",
		RuleVariant:    "standard",
		AIMode:         config.AIGreedy,
		AISeed:         3,
		ArchiveBackend: config.ArchiveNone,
	}
	deps, err := app.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(func() { _ = deps.Close() })
	s, _ := deps.NewSession(session.WithID("console"))
	t.Cleanup(s.Close)

	var buf bytes.Buffer
	c := newConsole(s, deps, newPrinter(&buf))
	s.AddListener(c.onEvent)
	return c, &buf
}

func TestConsoleLocalGame(t *testing.T) {
	c, buf := newTestConsole(t, config.RoleLocal)
	ctx := context.Background()
	for _, line := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		if !c.handle(ctx, line) {
			t.Fatalf("%s should not quit", line)
		}
	}
	out := buf.String()
	if !strings.Contains(out, "black played d8h4.") || !strings.Contains(out, "Checkmate. black wins.") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	buf.Reset()
	c.handle(ctx, "e2e4")
	if !strings.Contains(buf.String(), "The game is over.") {
		t.Fatalf("move after mate: %q", buf.String())
	}
	c.s.Wait()
	buf.Reset()
	c.handle(ctx, "history")
	if !strings.Contains(buf.String(), "0-1 (checkmate, 4 plies)") {
		t.Fatalf("history: %q", buf.String())
	}
}

func TestConsoleCommands(t *testing.T) {
	c, buf := newTestConsole(t, config.RoleLocal)
	ctx := context.Background()

	c.handle(ctx, "moves g1")
	if !strings.Contains(buf.String(), "Legal moves (2): g1f3 g1h3") && !strings.Contains(buf.String(), "Legal moves (2): g1h3 g1f3") {
		t.Fatalf("moves: %q", buf.String())
	}
	buf.Reset()
	c.handle(ctx, "dance")
	if !strings.Contains(buf.String(), "Unknown command dance") {
		t.Fatalf("unknown: %q", buf.String())
	}
	buf.Reset()
	c.handle(ctx, "draw")
	if !strings.Contains(buf.String(), "No opponent is connected.") {
		t.Fatalf("draw without peer: %q", buf.String())
	}
	buf.Reset()
	c.handle(ctx, "e2e5")
	if !strings.Contains(buf.String(), "Illegal move") {
		t.Fatalf("illegal: %q", buf.String())
	}
	if c.handle(ctx, "quit") {
		t.Fatalf("quit should stop the loop")
	}
}

func TestConsoleAIReplies(t *testing.T) {
	c, buf := newTestConsole(t, config.RoleAI)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.runAI(ctx)

	c.handle(ctx, "e2e4")
	deadline := time.Now().Add(2 * time.Second)
	for len(c.s.History()) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("ai did not reply; output:\n%s", buf.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if c.s.Turn() != c.s.LocalColor() {
		t.Fatalf("turn should return to the human")
	}
}

func TestLooksLikeMove(t *testing.T) {
	for s, want := range map[string]bool{"e2e4": true, "e7e8q": true, "e9e4": false, "board": false, "z2e4": false} {
		if got := looksLikeMove(s); got != want {
			t.Fatalf("looksLikeMove(%q) = %v", s, got)
		}
	}
}
