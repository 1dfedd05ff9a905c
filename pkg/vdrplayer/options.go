package vdrplayer

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/vdrplayer/internal/transport"
	"github.com/bft-labs/vdrplayer/pkg/log"
)

// SerialPort is the part of a serial port a replay writes to.
type SerialPort = transport.Port

// SerialOpener opens a serial device.
type SerialOpener = transport.PortOpener

// Option configures optional behavior of a Replay.
type Option func(*options)

type options struct {
	logger         log.Logger
	eventHandler   EventHandler
	registry       *prometheus.Registry
	progressOutput io.Writer
	sleeper        func(ctx context.Context, d time.Duration) error
	serialOpener   SerialOpener
	writeTimeout   time.Duration
}

func defaultOptions() options {
	return options{
		logger:         log.NewNoopLogger(),
		progressOutput: os.Stdout,
		writeTimeout:   transport.DefaultWriteTimeout,
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for replay events.
// Events are called synchronously from the replay goroutine.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithMetricsRegistry records replay counters in reg. When Config.MetricsAddr
// is set, reg is also the one served over HTTP.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithProgressOutput sets where "Processed n/total" lines go. Default stdout.
func WithProgressOutput(w io.Writer) Option {
	return func(o *options) {
		o.progressOutput = w
	}
}

// WithSleeper replaces the function that waits between rows.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) {
		o.sleeper = sleep
	}
}

// WithSerialOpener replaces the function that opens the serial device.
func WithSerialOpener(open SerialOpener) Option {
	return func(o *options) {
		o.serialOpener = open
	}
}

// WithWriteTimeout bounds each blocking write to the consumer.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		o.writeTimeout = d
	}
}
