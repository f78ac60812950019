package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// TestHelperProcess is not a real test: it is re-executed as a tiny UCI
// engine by fakeEngine.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)
	mode := os.Getenv("FAKE_ENGINE_MODE")
	if mode == "mute" {
		time.Sleep(10 * time.Second)
		return
	}

	out := bufio.NewWriter(os.Stdout)
	reply := func(lines ...string) {
		for _, l := range lines {
			fmt.Fprintln(out, l)
		}
		out.Flush()
	}
	var moves []string
	skill := "?"
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "uci":
			reply("id name fake", "option name Skill Level type spin default 20 min 0 max 20", "uciok")
		case line == "isready":
			reply("readyok")
		case strings.HasPrefix(line, "setoption name Skill Level value "):
			skill = strings.TrimPrefix(line, "setoption name Skill Level value ")
		case strings.HasPrefix(line, "position startpos"):
			moves = nil
			if _, rest, ok := strings.Cut(line, " moves "); ok {
				moves = strings.Fields(rest)
			}
		case strings.HasPrefix(line, "go"):
			if mode == "none" {
				reply("info depth 1 score mate 0", "bestmove (none)")
				continue
			}
			best := "e2e4"
			if len(moves)%2 == 1 {
				best = "e7e5"
			}
			reply(
				"info string skill "+skill,
				"info depth 1 score cp 12 pv "+best,
				"info depth 2 score cp 37 pv "+best+" d7d5",
				"bestmove "+best+" ponder d7d5",
			)
		case line == "quit":
			return
		}
	}
}

func fakeEngine(t *testing.T, mode string) *Session {
	t.Helper()
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess", "--")
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "FAKE_ENGINE_MODE="+mode)
	s, err := startSession(ctx, cmd, DefaultOptions())
	if err != nil {
		t.Fatalf("startSession: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBestMoveFollowsHistory(t *testing.T) {
	s := fakeEngine(t, "")
	ctx := context.Background()

	mv, err := s.BestMove(ctx, nil, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	if mv != "e2e4" {
		t.Fatalf("BestMove from start = %q", mv)
	}
	mv, err = s.BestMove(ctx, []string{"e2e4"}, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	if mv != "e7e5" {
		t.Fatalf("BestMove after e2e4 = %q", mv)
	}
}

func TestEvaluateUsesLastScore(t *testing.T) {
	s := fakeEngine(t, "")
	cp, err := s.Evaluate(context.Background(), []string{"e2e4", "e7e5"}, 2)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if cp != 37 {
		t.Fatalf("Evaluate = %d, want 37", cp)
	}
}

func TestNoBestMove(t *testing.T) {
	s := fakeEngine(t, "none")
	if _, err := s.BestMove(context.Background(), nil, 10*time.Millisecond); !errors.Is(err, ErrNoBestMove) {
		t.Fatalf("expected ErrNoBestMove, got %v", err)
	}
}

func TestHandshakeTimeout(t *testing.T) {
	cmd := exec.Command(os.Args[0], "-test.run=TestHelperProcess", "--")
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "FAKE_ENGINE_MODE=mute")
	start := time.Now()
	_, err := startSession(context.Background(), cmd, DefaultOptions())
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("handshake took %v", elapsed)
	}
}

func TestSetSkillLevelClamps(t *testing.T) {
	s := fakeEngine(t, "")
	if err := s.SetSkillLevel(42); err != nil {
		t.Fatalf("SetSkillLevel: %v", err)
	}
	if got := s.SkillLevel(); got != 20 {
		t.Fatalf("SkillLevel = %d, want 20", got)
	}
	if err := s.SetSkillLevel(-3); err != nil {
		t.Fatalf("SetSkillLevel: %v", err)
	}
	if got := s.SkillLevel(); got != 0 {
		t.Fatalf("SkillLevel = %d, want 0", got)
	}
	if err := s.NewGame(context.Background()); err != nil {
		t.Fatalf("NewGame: %v", err)
	}
}

func TestNewSessionRequiresPath(t *testing.T) {
	if _, err := NewSession(context.Background(), "  ", DefaultOptions()); err == nil {
		t.Fatalf("expected error for empty path")
	}
	opt := DefaultOptions()
	opt.SkillLevel = 21
	if _, err := NewSession(context.Background(), "/bin/true", opt); err == nil {
		t.Fatalf("expected error for skill 21")
	}
}

func TestBuildPositionCommand(t *testing.T) {
	cases := []struct {
		fen   string
		moves []string
		want  string
	}{
		{"", nil, "position startpos\n"},
		{"startpos", []string{"e2e4", "e7e5"}, "position startpos moves e2e4 e7e5\n"},
		{"8/8/8/8/8/8/8/K6k w - - 0 1", []string{"a1a2"}, "position fen 8/8/8/8/8/8/8/K6k w - - 0 1 moves a1a2\n"},
	}
	for _, tc := range cases {
		if got := buildPositionCommand(tc.fen, tc.moves); got != tc.want {
			t.Fatalf("buildPositionCommand(%q, %v) = %q, want %q", tc.fen, tc.moves, got, tc.want)
		}
	}
}

func TestBuildGoTokens(t *testing.T) {
	got, err := buildGoTokens(Limits{Depth: 10, MoveTimeMillis: 500})
	if err != nil {
		t.Fatalf("buildGoTokens: %v", err)
	}
	if diff := cmp.Diff([]string{"go", "depth", "10", "movetime", "500"}, got); diff != "" {
		t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
	}
	if _, err := buildGoTokens(Limits{}); err == nil {
		t.Fatalf("expected error without limits")
	}
}

func TestParseInfo(t *testing.T) {
	idx, cand, ok := parseInfo("info depth 12 multipv 2 score cp -41 nodes 1000 pv g1f3 d7d5")
	if !ok || idx != 2 {
		t.Fatalf("parseInfo ok=%v idx=%d", ok, idx)
	}
	want := Candidate{Move: "g1f3", EvalCP: -41, Principal: []string{"g1f3", "d7d5"}}
	if diff := cmp.Diff(want, cand); diff != "" {
		t.Fatalf("candidate mismatch (-want +got):\n%s", diff)
	}
	if _, cand, ok := parseInfo("info depth 3 score mate -2 pv h7h6"); !ok || cand.EvalCP != -30000 {
		t.Fatalf("mate score not saturated: %+v", cand)
	}
	if _, _, ok := parseInfo("info string hello"); ok {
		t.Fatalf("info without pv should not parse")
	}
}
