package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bft-labs/vdrplayer/internal/domain"
	"github.com/bft-labs/vdrplayer/pkg/log"
)

// closeGrace is how long Close waits for the peer to answer the close frame.
const closeGrace = time.Second

// SignalKServer is a WebSocket endpoint serving a single client. Any request
// path is accepted. Once a client has connected every further upgrade is
// refused with 503.
type SignalKServer struct {
	addr        string
	messageType int
	opts        options
	logger      log.Logger
	upgrader    websocket.Upgrader

	server    *http.Server
	ln        net.Listener
	serveErr  chan error
	connected chan *websocket.Conn

	mu       sync.Mutex
	claimed  bool
	conn     *websocket.Conn
	peerGone chan struct{}
}

// NewSignalKServer creates a server for addr. SignalK frames are sent as
// text messages, every other kind as binary messages.
func NewSignalKServer(addr string, kind domain.MessageKind, logger log.Logger, opts ...Option) *SignalKServer {
	messageType := websocket.BinaryMessage
	if kind == domain.KindSignalK {
		messageType = websocket.TextMessage
	}
	return &SignalKServer{
		addr:        addr,
		messageType: messageType,
		opts:        buildOptions(opts),
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		serveErr:  make(chan error, 1),
		connected: make(chan *websocket.Conn, 1),
		peerGone:  make(chan struct{}),
	}
}

// Listen starts the HTTP server without waiting for a client.
func (s *SignalKServer) Listen(ctx context.Context) error {
	if s.server != nil {
		return nil
	}
	ln, err := listenWithReuse(ctx, s.addr)
	if err != nil {
		return transportError("signalk", "listen", err)
	}
	s.ln = ln
	s.server = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.serveErr <- err
		}
	}(s.server)
	s.logger.Info("Awaiting client connection", log.String("addr", "ws://"+ln.Addr().String()))
	return nil
}

// Open starts the HTTP server if needed and blocks until the first client
// has completed the WebSocket handshake.
func (s *SignalKServer) Open(ctx context.Context) error {
	if err := s.Listen(ctx); err != nil {
		return err
	}

	select {
	case conn := <-s.connected:
		s.logger.Info("Connected", log.String("peer", conn.RemoteAddr().String()))
		return nil
	case err := <-s.serveErr:
		return transportError("signalk", "serve", err)
	case <-ctx.Done():
		_ = s.shutdown()
		return ctx.Err()
	}
}

// Addr returns the bound listener address.
func (s *SignalKServer) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ServeHTTP upgrades the first request and refuses the rest.
func (s *SignalKServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.claimed {
		s.mu.Unlock()
		s.logger.Warn("refusing second client", log.String("peer", r.RemoteAddr))
		http.Error(w, "replay already has a client", http.StatusServiceUnavailable)
		return
	}
	s.claimed = true
	s.mu.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the request.
		s.logger.Warn("websocket upgrade failed", log.String("peer", r.RemoteAddr), log.Err(err))
		s.mu.Lock()
		s.claimed = false
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.opts.observer.ClientConnected(true)

	go s.readPump(conn)
	s.connected <- conn
}

// readPump drains incoming messages so control frames are handled, and
// reports the peer going away.
func (s *SignalKServer) readPump(conn *websocket.Conn) {
	defer close(s.peerGone)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read ended", log.Err(err))
			}
			return
		}
	}
}

// Send writes frame as one WebSocket message.
func (s *SignalKServer) Send(ctx context.Context, frame []byte) error {
	conn := s.client()
	if conn == nil {
		return transportError("signalk", "send", errors.New("no client connected"))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-s.peerGone:
		return transportError("signalk", "send", errors.New("peer closed the connection"))
	default:
	}
	if s.opts.writeTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.opts.writeTimeout))
	}
	if err := conn.WriteMessage(s.messageType, frame); err != nil {
		return transportError("signalk", "send", err)
	}
	return nil
}

// Close sends a close frame to the client, closes the connection and stops
// the HTTP server.
func (s *SignalKServer) Close() error {
	var errs []error
	if conn := s.client(); conn != nil {
		s.logger.Info("Closing connection", log.String("peer", conn.RemoteAddr().String()))
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replay finished")
		if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace)); err == nil {
			select {
			case <-s.peerGone:
			case <-time.After(closeGrace):
			}
		}
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		s.opts.observer.ClientConnected(false)
	}
	if err := s.shutdown(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *SignalKServer) client() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func (s *SignalKServer) shutdown() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	s.server = nil
	return err
}
