package main

import (
	"bufio"
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/park285/cheese-peerchess/internal/app"
	appcfg "github.com/park285/cheese-peerchess/internal/config"
	"github.com/park285/cheese-peerchess/internal/obslog"
	"github.com/park285/cheese-peerchess/internal/peer"
	"github.com/park285/cheese-peerchess/internal/session"
	"go.uber.org/zap"
)

func main() {
	logReady := true
	if err := obslog.InitFromEnv(); err != nil {
		log.Printf("logger init error: %v", err)
		logReady = false
	}
	defer obslog.Sync()
	fatal := func(event string, err error) {
		reportStartupError(logReady, event, err)
		os.Exit(1)
	}

	cfg, err := appcfg.Load()
	if err != nil {
		fatal("config_error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.New(ctx, cfg, obslog.L())
	if err != nil {
		fatal("init_error", err)
	}
	defer deps.Close()

	out := newPrinter(os.Stdout)
	msgs := deps.Messages

	var conn *peer.Conn
	if cfg.Networked() {
		conn, err = deps.Connect(ctx, func(addr string) {
			out.println(msgs.Text("peer.waiting", map[string]any{"Addr": addr}))
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			deps.Close()
			fatal("connect_error", err)
		}
		out.println(msgs.Text("peer.connected", map[string]any{"Addr": conn.RemoteAddr()}))
	}

	var opts []session.Option
	if conn != nil {
		opts = append(opts, session.WithTransmitter(conn))
	}
	s, rec := deps.NewSession(opts...)

	c := newConsole(s, deps, out)
	s.AddListener(c.onEvent)

	loopCtx, cancel := context.WithCancel(ctx)
	var loops sync.WaitGroup
	if conn != nil {
		loops.Add(2)
		go func() {
			defer loops.Done()
			if err := s.Run(loopCtx); err != nil && !errors.Is(err, session.ErrClosed) && !errors.Is(err, context.Canceled) {
				obslog.L().Warn("session_run_error", zap.Error(err))
			}
		}()
		go func() {
			defer loops.Done()
			_ = conn.Serve(loopCtx, s)
		}()
	}
	if deps.Player != nil {
		loops.Add(1)
		go func() {
			defer loops.Done()
			c.runAI(loopCtx)
		}()
	}

	// Inbound traffic stops before the session closes, so a late resign or
	// accept_draw is either reported or rejected, never cut off.
	defer func() {
		cancel()
		if conn != nil {
			_ = conn.Close()
		}
		loops.Wait()
		s.Close()
		if rec != nil {
			rec.Close()
		}
	}()

	c.start()
	lines := readLines(ctx, bufio.NewScanner(os.Stdin))
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok || !c.handle(ctx, line) {
				return
			}
		}
	}
}

// reportStartupError sends a startup failure to the zap log, or to the
// standard logger when zap could not be built.
func reportStartupError(logReady bool, event string, err error) {
	if !logReady {
		log.Printf("%s: %v", event, err)
		return
	}
	obslog.L().Error(event, zap.Error(err))
	obslog.Sync()
}

// readLines feeds stdin lines to a channel so the main loop can also watch ctx.
func readLines(ctx context.Context, sc *bufio.Scanner) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
