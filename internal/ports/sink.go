package ports

import "context"

// Sink delivers encoded frames to a network peer or device.
type Sink interface {
	// Open blocks until the peer is ready to receive (a TCP client accepted,
	// a WebSocket handshake completed, a device opened).
	Open(ctx context.Context) error

	// Send delivers one encoded frame. An error wrapping
	// domain.ErrTransport ends the session.
	Send(ctx context.Context, frame []byte) error

	// Close releases the connection and any listener.
	Close() error
}

// PassSink is implemented by sinks that set up a fresh channel for every
// repeat pass.
type PassSink interface {
	Sink
	BeginPass(ctx context.Context) error
	EndPass() error
}

// Progress observes how many rows a pass has delivered.
type Progress interface {
	Report(rows int)
	Finish(rows int)
}
