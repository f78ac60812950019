package peer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/park285/cheese-peerchess/internal/chess"
	"github.com/park285/cheese-peerchess/internal/obslog"
	"github.com/park285/cheese-peerchess/pkg/peerwire"
	"go.uber.org/zap"
)

var (
	ErrConnectionLost = errors.New("peer connection lost")
	ErrClosed         = errors.New("peer connection closed")
	ErrLineTooLong    = errors.New("peer line too long")
)

// Dispatcher consumes decoded inbound messages. *session.Session satisfies it.
type Dispatcher interface {
	Dispatch(msg peerwire.Message)
	ConnectionLost(err error)
}

type Option func(*Conn)

func WithLogger(l *zap.Logger) Option {
	return func(c *Conn) { c.logger = l }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *Conn) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithMaxLineBytes bounds a single inbound line; longer lines are discarded.
func WithMaxLineBytes(n int) Option {
	return func(c *Conn) {
		if n > 0 {
			c.maxLine = n
		}
	}
}

// Conn is one peer link carrying newline-delimited JSON frames. Writes are
// serialized; reads happen only inside Serve.
type Conn struct {
	raw    net.Conn
	remote string

	wmu          sync.Mutex
	w            *bufio.Writer
	writeTimeout time.Duration
	maxLine      int

	logger    *zap.Logger
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func NewConn(raw net.Conn, opts ...Option) *Conn {
	c := &Conn{
		raw:          raw,
		w:            bufio.NewWriter(raw),
		writeTimeout: 5 * time.Second,
		maxLine:      64 * 1024,
		done:         make(chan struct{}),
	}
	if addr := raw.RemoteAddr(); addr != nil {
		c.remote = addr.String()
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = obslog.Or(c.logger).With(zap.String("remote", c.remote))
	return c
}

func (c *Conn) RemoteAddr() string { return c.remote }

func (c *Conn) SendMove(m chess.Move) error {
	return c.Send(peerwire.NewMove(m.From.Row, m.From.Col, m.To.Row, m.To.Col))
}

func (c *Conn) SendChat(text string) error {
	return c.Send(peerwire.NewChat(text))
}

func (c *Conn) SendGameAction(a peerwire.Action) error {
	return c.Send(peerwire.NewAction(a))
}

// Send writes one frame followed by a newline and flushes it.
func (c *Conn) Send(msg peerwire.Message) error {
	line, err := peerwire.Encode(msg)
	if err != nil {
		return err
	}
	if c.isClosed() {
		return ErrClosed
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if _, err := c.w.Write(line); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	c.logger.Debug("peer_sent", zap.String("type", string(msg.Type)))
	return nil
}

// Serve reads frames until the stream ends, handing each decoded message to
// d. Malformed and overlong lines are logged and skipped. When the remote
// side goes away d.ConnectionLost is called once and the wrapped
// ErrConnectionLost returned. A local Close or ctx cancellation ends Serve
// without notifying d.
func (c *Conn) Serve(ctx context.Context, d Dispatcher) error {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	r := bufio.NewReaderSize(c.raw, 4096)
	var cause error
	for {
		line, overlong, err := c.readLine(r)
		if overlong {
			c.logger.Warn("peer_malformed", zap.Int("limit", c.maxLine), zap.Error(ErrLineTooLong))
		} else {
			c.dispatchLine(line, d)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				cause = err
			}
			break
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.isClosed() {
		return ErrClosed
	}
	if cause == nil {
		cause = io.EOF
	}
	lost := fmt.Errorf("%w: %w", ErrConnectionLost, cause)
	_ = c.Close()
	c.logger.Warn("peer_stream_ended", zap.Error(cause))
	d.ConnectionLost(lost)
	return lost
}

func (c *Conn) dispatchLine(line []byte, d Dispatcher) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	msg, err := peerwire.Decode(line)
	if err != nil {
		c.logger.Warn("peer_malformed", zap.Int("bytes", len(line)), zap.Error(err))
		return
	}
	d.Dispatch(msg)
}

// readLine returns the next line, terminator included. A line longer than
// maxLine is consumed up to its newline and reported as overlong with no
// data. err is set when the stream ends; line may still hold a final
// unterminated line.
func (c *Conn) readLine(r *bufio.Reader) (line []byte, overlong bool, err error) {
	for {
		chunk, rerr := r.ReadSlice('\n')
		if !overlong {
			if len(line)+len(bytes.TrimRight(chunk, "\r\n")) > c.maxLine {
				overlong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(rerr, bufio.ErrBufferFull) {
			continue
		}
		return line, overlong, rerr
	}
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.closeErr = c.raw.Close()
	})
	return c.closeErr
}

// Done is closed once Close has been called.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
