package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/park285/cheese-peerchess/internal/config"
	"github.com/park285/cheese-peerchess/internal/obslog"
	"github.com/park285/cheese-peerchess/internal/peer"
)

// Connect opens the peer link for the host and join roles. Hosts call
// onListen with the bound address before blocking in Accept.
func (d *Deps) Connect(ctx context.Context, onListen func(addr string)) (*peer.Conn, error) {
	cfg := d.Config
	opts := []peer.Option{peer.WithLogger(obslog.Named("peer"))}

	switch cfg.Role {
	case config.RoleHost:
		acc, err := d.listen(ctx, opts)
		if err != nil {
			return nil, err
		}
		if onListen != nil {
			onListen(acc.Addr().String())
		}
		conn, err := acc.Accept(ctx)
		if err != nil {
			_ = acc.Close()
			return nil, err
		}
		if cfg.Transport == config.TransportWS {
			// The HTTP server owns the upgraded connection; keep it until exit.
			d.closers = append(d.closers, acc.Close)
		} else {
			_ = acc.Close()
		}
		return conn, nil
	case config.RoleJoin:
		if cfg.Transport == config.TransportWS {
			return peer.DialWebSocket(ctx, websocketURL(cfg.PeerAddr, cfg.WSPath), opts...)
		}
		return peer.Dial(ctx, cfg.PeerAddr, opts...)
	}
	return nil, fmt.Errorf("role %q has no peer", cfg.Role)
}

func (d *Deps) listen(ctx context.Context, opts []peer.Option) (peer.Acceptor, error) {
	if d.Config.Transport == config.TransportWS {
		return peer.ListenWebSocket(ctx, d.Config.ListenAddr, d.Config.WSPath, opts...)
	}
	return peer.Listen(ctx, d.Config.ListenAddr, opts...)
}

// websocketURL accepts either a full ws:// URL or host:port.
func websocketURL(addr, path string) string {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return addr
	}
	if path == "" {
		path = peer.DefaultWebSocketPath
	}
	return "ws://" + addr + path
}
