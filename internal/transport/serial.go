package transport

import (
	"context"
	"errors"
	"io"

	"go.bug.st/serial"

	"github.com/bft-labs/vdrplayer/pkg/log"
)

// DefaultBaudRate is the NMEA 0183 standard rate.
const DefaultBaudRate = 4800

// Port is the part of a serial port the writer needs.
type Port interface {
	io.Writer
	io.Closer
}

// PortOpener opens a serial device.
type PortOpener func(device string, mode *serial.Mode) (Port, error)

// OpenSerialPort opens a real serial device.
func OpenSerialPort(device string, mode *serial.Mode) (Port, error) {
	return serial.Open(device, mode)
}

// SerialMode returns 8N1 at baud, the framing NMEA talkers use.
func SerialMode(baud int) *serial.Mode {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// SerialWriter writes frames to a serial device, as a VDR feeding a
// chart plotter would.
type SerialWriter struct {
	device string
	baud   int
	opts   options
	logger log.Logger

	port Port
}

// NewSerialWriter creates a writer for device at baud.
func NewSerialWriter(device string, baud int, logger log.Logger, opts ...Option) *SerialWriter {
	return &SerialWriter{
		device: device,
		baud:   baud,
		opts:   buildOptions(opts),
		logger: logger,
	}
}

// Open opens the device.
func (w *SerialWriter) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mode := SerialMode(w.baud)
	port, err := w.opts.opener(w.device, mode)
	if err != nil {
		return transportError("serial", "open", err)
	}
	w.port = port
	w.opts.observer.ClientConnected(true)
	w.logger.Info("Opened serial device", log.String("device", w.device), log.Int("baud", mode.BaudRate))
	return nil
}

// Send writes frame to the device.
func (w *SerialWriter) Send(ctx context.Context, frame []byte) error {
	if w.port == nil {
		return transportError("serial", "send", errors.New("device not open"))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := w.port.Write(frame); err != nil {
		return transportError("serial", "send", err)
	}
	return nil
}

// Close waits for pending output when the port supports it, then closes it.
func (w *SerialWriter) Close() error {
	if w.port == nil {
		return nil
	}
	if d, ok := w.port.(interface{ Drain() error }); ok {
		if err := d.Drain(); err != nil {
			w.logger.Warn("drain serial device", log.String("device", w.device), log.Err(err))
		}
	}
	w.logger.Info("Closing connection", log.String("device", w.device))
	err := w.port.Close()
	w.port = nil
	w.opts.observer.ClientConnected(false)
	return err
}
