// Package transport delivers encoded frames to the outside world.
//
// Every delivery strategy implements ports.Sink: a TCP server that waits for
// exactly one client, a UDP client that opens a fresh socket for every pass,
// a WebSocket server for SignalK consumers and a serial port writer.
// Failures that end a session wrap domain.ErrTransport.
package transport

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/bft-labs/vdrplayer/internal/domain"
)

// DefaultWriteTimeout bounds a single blocking write to a peer.
const DefaultWriteTimeout = 10 * time.Second

// Observer is told about peer connections and frames lost in transit.
type Observer interface {
	ClientConnected(connected bool)
	RowDropped()
}

type options struct {
	writeTimeout time.Duration
	observer     Observer
	opener       PortOpener
}

// Option configures a transport.
type Option func(*options)

// WithWriteTimeout bounds each write. Zero disables the deadline.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) { o.writeTimeout = d }
}

// WithObserver registers an observer for connections and drops.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithPortOpener replaces the function that opens serial devices.
func WithPortOpener(open PortOpener) Option {
	return func(o *options) { o.opener = open }
}

func buildOptions(opts []Option) options {
	o := options{
		writeTimeout: DefaultWriteTimeout,
		opener:       OpenSerialPort,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}
	return o
}

type nopObserver struct{}

func (nopObserver) ClientConnected(bool) {}
func (nopObserver) RowDropped()          {}

// transportError wraps err as a session-ending failure of component.operation.
func transportError(component, operation string, err error) error {
	return domain.WrapFatal(fmt.Errorf("%w: %v", domain.ErrTransport, err), component, operation)
}

// listenWithReuse enables SO_REUSEADDR so a replay can rebind right after
// the previous one exited.
func listenWithReuse(ctx context.Context, addr string) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			controlErr := c.Control(func(fd uintptr) {
				sockErr = setReuseAddr(fd)
			})
			if controlErr != nil {
				return controlErr
			}
			return sockErr
		},
	}
	return lc.Listen(ctx, "tcp", addr)
}

// acceptContext accepts one connection, giving up when ctx is done.
func acceptContext(ctx context.Context, ln net.Listener) (net.Conn, error) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = ln.Close()
		case <-stop:
		}
	}()

	conn, err := ln.Accept()
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return conn, err
}
