package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-peerchess/internal/chess/uci"
)

func main() {
	path := strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	if path == "" {
		log.Fatal("STOCKFISH_PATH is required")
	}
	skill := uci.DefaultSkillLevel
	if v := strings.TrimSpace(os.Getenv("ENGINE_SKILL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			skill = n
		}
	}
	moves := strings.Fields(os.Getenv("ENGINE_MOVES"))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	opt := uci.DefaultOptions()
	opt.SkillLevel = skill
	started := time.Now()
	engine, err := uci.NewSession(ctx, path, opt)
	if err != nil {
		log.Fatalf("handshake error: %v", err)
	}
	defer engine.Close()
	log.Printf("handshake ok in %s (skill=%d)", time.Since(started).Round(time.Millisecond), engine.SkillLevel())

	best, err := engine.BestMove(ctx, moves, uci.DefaultMoveTime)
	if err != nil {
		log.Printf("bestmove error: %v", err)
	} else {
		fmt.Printf("bestmove after [%s]: %s\n", strings.Join(moves, " "), best)
	}

	cp, err := engine.Evaluate(ctx, moves, uci.DefaultEvalDepth)
	if err != nil {
		log.Printf("evaluate error: %v", err)
		return
	}
	fmt.Printf("eval depth %d: %+d cp\n", uci.DefaultEvalDepth, cp)
}
