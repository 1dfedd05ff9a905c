package transport

import (
	"context"
	"errors"
	"net"

	"github.com/bft-labs/vdrplayer/pkg/log"
)

// UDPClient sends one datagram per frame to a fixed destination. Every pass
// uses a new socket. Lost datagrams are logged and never retried.
type UDPClient struct {
	addr   string
	opts   options
	logger log.Logger

	raddr *net.UDPAddr
	conn  *net.UDPConn
}

// NewUDPClient creates a client sending to addr ("host:port").
func NewUDPClient(addr string, logger log.Logger, opts ...Option) *UDPClient {
	return &UDPClient{
		addr:   addr,
		opts:   buildOptions(opts),
		logger: logger,
	}
}

// Open resolves the destination.
func (c *UDPClient) Open(ctx context.Context) error {
	raddr, err := net.ResolveUDPAddr("udp", c.addr)
	if err != nil {
		return transportError("udp", "resolve", err)
	}
	c.raddr = raddr
	c.logger.Info("Sending datagrams", log.String("destination", raddr.String()))
	return nil
}

// BeginPass opens the socket for one pass.
func (c *UDPClient) BeginPass(ctx context.Context) error {
	if c.raddr == nil {
		return transportError("udp", "begin_pass", errors.New("destination not resolved"))
	}
	conn, err := net.DialUDP("udp", nil, c.raddr)
	if err != nil {
		return transportError("udp", "dial", err)
	}
	c.conn = conn
	return nil
}

// Send writes one datagram. Send failures drop the frame.
func (c *UDPClient) Send(ctx context.Context, frame []byte) error {
	if c.conn == nil {
		return transportError("udp", "send", errors.New("send outside a pass"))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.conn.Write(frame); err != nil {
		c.logger.Warn("datagram dropped", log.String("destination", c.raddr.String()), log.Err(err))
		c.opts.observer.RowDropped()
	}
	return nil
}

// EndPass closes the socket of the current pass.
func (c *UDPClient) EndPass() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Close releases a socket left open by an aborted pass.
func (c *UDPClient) Close() error {
	return c.EndPass()
}
