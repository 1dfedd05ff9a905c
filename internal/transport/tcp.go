package transport

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/bft-labs/vdrplayer/pkg/log"
)

// TCPServer listens on one address and streams every pass to the first
// client that connects.
type TCPServer struct {
	addr   string
	opts   options
	logger log.Logger

	ln   net.Listener
	conn net.Conn
}

// NewTCPServer creates a server for addr ("host:port").
func NewTCPServer(addr string, logger log.Logger, opts ...Option) *TCPServer {
	return &TCPServer{
		addr:   addr,
		opts:   buildOptions(opts),
		logger: logger,
	}
}

// Listen binds the listener without waiting for a client.
func (s *TCPServer) Listen(ctx context.Context) error {
	if s.ln != nil {
		return nil
	}
	ln, err := listenWithReuse(ctx, s.addr)
	if err != nil {
		return transportError("tcp", "listen", err)
	}
	s.ln = ln
	s.logger.Info("Awaiting client connection", log.String("addr", ln.Addr().String()))
	return nil
}

// Open binds the listener if needed and blocks until a client connects.
func (s *TCPServer) Open(ctx context.Context) error {
	if err := s.Listen(ctx); err != nil {
		return err
	}
	ln := s.ln

	conn, err := acceptContext(ctx, ln)
	if err != nil {
		_ = ln.Close()
		if ctx.Err() != nil {
			return err
		}
		return transportError("tcp", "accept", err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAlive(true)
		_ = tc.SetKeepAlivePeriod(2 * time.Minute)
	}
	s.conn = conn
	s.opts.observer.ClientConnected(true)
	s.logger.Info("Connected", log.String("peer", conn.RemoteAddr().String()))
	return nil
}

// Addr returns the bound listener address.
func (s *TCPServer) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Send writes frame to the client. Any write failure ends the session.
func (s *TCPServer) Send(ctx context.Context, frame []byte) error {
	if s.conn == nil {
		return transportError("tcp", "send", errors.New("no client connected"))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.opts.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.writeTimeout))
	}
	if _, err := s.conn.Write(frame); err != nil {
		return transportError("tcp", "send", err)
	}
	return nil
}

// Close shuts the client connection down and closes the listener.
func (s *TCPServer) Close() error {
	var errs []error
	if s.conn != nil {
		s.logger.Info("Closing connection", log.String("peer", s.conn.RemoteAddr().String()))
		if tc, ok := s.conn.(*net.TCPConn); ok {
			_ = tc.CloseWrite()
		}
		if err := s.conn.Close(); err != nil {
			errs = append(errs, err)
		}
		s.conn = nil
		s.opts.observer.ClientConnected(false)
	}
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
		s.ln = nil
	}
	return errors.Join(errs...)
}
