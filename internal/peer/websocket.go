package peer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/park285/cheese-peerchess/internal/obslog"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const DefaultWebSocketPath = "/peer"

// wsReadLimit sits above the line limit so an overlong frame reaches Serve
// and is skipped there instead of failing the websocket.
const wsReadLimit = 1 << 20

// DialWebSocket connects to a hosting peer over WebSocket. Each frame is
// carried as one text message; the line protocol is unchanged.
func DialWebSocket(ctx context.Context, url string, opts ...Option) (*Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	wc, _, err := websocket.Dial(dialCtx, url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	wc.SetReadLimit(wsReadLimit)
	obslog.L().Info("peer_connected", zap.String("transport", "ws"), zap.String("url", url))
	return NewConn(websocket.NetConn(context.Background(), wc, websocket.MessageText), opts...), nil
}

// NewRouter serves the peer upgrade on path plus a health probe. onConn runs
// on the handler goroutine, which then stays alive until the Conn is closed.
// onConn returning false rejects the peer.
func NewRouter(path string, onConn func(*Conn) bool, opts ...Option) http.Handler {
	if path == "" {
		path = DefaultWebSocketPath
	}
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get(path, func(w http.ResponseWriter, req *http.Request) {
		wc, err := websocket.Accept(w, req, &websocket.AcceptOptions{
			CompressionMode: websocket.CompressionNoContextTakeover,
		})
		if err != nil {
			obslog.L().Warn("peer_ws_accept_error", zap.Error(err))
			return
		}
		wc.SetReadLimit(wsReadLimit)
		c := NewConn(websocket.NetConn(req.Context(), wc, websocket.MessageText), opts...)
		c.remote = req.RemoteAddr
		if !onConn(c) {
			_ = wc.Close(websocket.StatusTryAgainLater, "game already has a peer")
			return
		}
		<-c.Done()
	})
	return r
}

// WSListener accepts a single peer over WebSocket.
type WSListener struct {
	ln    net.Listener
	srv   *http.Server
	conns chan *Conn
}

func ListenWebSocket(ctx context.Context, addr, path string, opts ...Option) (*WSListener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	l := &WSListener{ln: ln, conns: make(chan *Conn, 1)}
	var taken atomic.Bool
	l.srv = &http.Server{
		Handler: NewRouter(path, func(c *Conn) bool {
			if taken.Swap(true) {
				return false
			}
			l.conns <- c
			return true
		}, opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Warn("peer_ws_server_error", zap.Error(err))
		}
	}()
	obslog.L().Info("peer_listening", zap.String("transport", "ws"), zap.String("addr", ln.Addr().String()), zap.String("path", path))
	return l, nil
}

func (l *WSListener) Addr() net.Addr { return l.ln.Addr() }

func (l *WSListener) Accept(ctx context.Context) (*Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case c := <-l.conns:
		obslog.L().Info("peer_accepted", zap.String("remote", c.RemoteAddr()))
		return c, nil
	}
}

func (l *WSListener) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return l.srv.Shutdown(ctx)
}
