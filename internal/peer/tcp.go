package peer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/park285/cheese-peerchess/internal/obslog"
	"go.uber.org/zap"
)

const dialTimeout = 10 * time.Second

// Acceptor hands out the single inbound peer of a hosted game.
type Acceptor interface {
	Accept(ctx context.Context) (*Conn, error)
	Addr() net.Addr
	Close() error
}

// Listener accepts peers over plain TCP.
type Listener struct {
	ln   net.Listener
	opts []Option
}

func Listen(ctx context.Context, addr string, opts ...Option) (*Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	obslog.L().Info("peer_listening", zap.String("transport", "tcp"), zap.String("addr", ln.Addr().String()))
	return &Listener{ln: ln, opts: opts}, nil
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Accept waits for one peer. Cancelling ctx closes the listener.
func (l *Listener) Accept(ctx context.Context) (*Conn, error) {
	stop := context.AfterFunc(ctx, func() { _ = l.ln.Close() })
	defer stop()
	raw, err := l.ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("accept: %w", err)
	}
	obslog.L().Info("peer_accepted", zap.String("remote", raw.RemoteAddr().String()))
	return NewConn(raw, l.opts...), nil
}

func (l *Listener) Close() error { return l.ln.Close() }

// Dial connects to a hosting peer over TCP.
func Dial(ctx context.Context, addr string, opts ...Option) (*Conn, error) {
	d := net.Dialer{Timeout: dialTimeout}
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	obslog.L().Info("peer_connected", zap.String("transport", "tcp"), zap.String("remote", raw.RemoteAddr().String()))
	return NewConn(raw, opts...), nil
}
