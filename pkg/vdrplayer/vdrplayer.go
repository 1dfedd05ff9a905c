package vdrplayer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/vdrplayer/internal/app"
	"github.com/bft-labs/vdrplayer/internal/cliconfig"
	"github.com/bft-labs/vdrplayer/internal/domain"
	"github.com/bft-labs/vdrplayer/internal/logsource"
	"github.com/bft-labs/vdrplayer/internal/metrics"
	"github.com/bft-labs/vdrplayer/internal/pacer"
	"github.com/bft-labs/vdrplayer/internal/ports"
	"github.com/bft-labs/vdrplayer/internal/progress"
	"github.com/bft-labs/vdrplayer/internal/transport"
	"github.com/bft-labs/vdrplayer/pkg/log"
)

// ShutdownTimeout bounds how long Stop waits for the replay goroutine.
const ShutdownTimeout = 10 * time.Second

// Config holds the configuration of a replay.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = cliconfig.Config

// DefaultConfig returns a Config with default values: role tcp, NMEA 0183
// messages, port 2947 on localhost, one pass over monitor.csv at recorded speed.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// Replay plays one log file onto one transport, Count times.
type Replay struct {
	config    Config
	opts      options
	lifecycle *app.Lifecycle
	emitter   *eventEmitterWrapper
	logger    log.Logger
	session   string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// New creates a replay in StateIdle. It validates cfg (filling in derived
// defaults) and fails on an invalid configuration.
func New(cfg Config, opts ...Option) (*Replay, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNoopLogger()
	}
	if o.registry == nil && cfg.MetricsAddr != "" {
		o.registry = prometheus.NewRegistry()
	}

	var recorder *metrics.Recorder
	if o.registry != nil {
		rec, err := metrics.NewRecorder(o.registry)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		recorder = rec
	}

	session := uuid.NewString()
	logger := o.logger.With(log.String("session", session))
	emitter := &eventEmitterWrapper{handler: o.eventHandler, recorder: recorder}

	return &Replay{
		config:    cfg,
		opts:      o,
		lifecycle: app.NewLifecycle(logger, emitter),
		emitter:   emitter,
		logger:    logger,
		session:   session,
	}, nil
}

// Config returns the validated configuration.
func (r *Replay) Config() Config {
	return r.config
}

// Session returns the id attached to every log line of this replay.
func (r *Replay) Session() string {
	return r.session
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (r *Replay) Status() State {
	return convertState(r.lifecycle.State())
}

// Run starts the replay and blocks until it ends.
func (r *Replay) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	return r.Wait()
}

// Start begins the replay in the background and returns immediately.
// A replay can be started once.
func (r *Replay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done != nil || !r.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.lifecycle.SetCancel(cancel)
	done := make(chan struct{})
	r.done = done

	go func() {
		defer close(done)
		defer cancel()

		err := r.run(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("replay failed", log.Err(err))
		}
		r.err = err
	}()
	return nil
}

// Wait blocks until the replay ends and returns its error.
func (r *Replay) Wait() error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()

	if done == nil {
		return domain.ErrNotRunning
	}
	<-done
	return r.err
}

// Stop cancels the replay and waits up to ShutdownTimeout for it to close
// its transport. A replay that ends because of Stop returns nil.
func (r *Replay) Stop() error {
	r.mu.Lock()
	done, cancel := r.done, r.cancel
	r.mu.Unlock()

	if done == nil {
		return domain.ErrNotRunning
	}
	cancel()

	select {
	case <-done:
	case <-time.After(ShutdownTimeout):
		return domain.ErrShutdownTimeout
	}
	if errors.Is(r.err, context.Canceled) {
		return nil
	}
	return r.err
}

// run wires the log, the stream, the sink and the pass loop together.
func (r *Replay) run(ctx context.Context) error {
	cfg := r.config

	if cfg.Wait {
		if err := logsource.WaitForFile(ctx, cfg.LogFile, r.logger); err != nil {
			return r.setupFailed(fmt.Errorf("wait for log: %w", err))
		}
	}

	reader, err := logsource.Open(cfg.LogFile, r.logger)
	if err != nil {
		return r.setupFailed(err)
	}
	defer reader.Close()

	total, err := reader.CountRows()
	if err != nil {
		return r.setupFailed(fmt.Errorf("count rows: %w", err))
	}

	kind, err := domain.ParseMessageKind(cfg.Messages)
	if err != nil {
		return r.setupFailed(err)
	}
	role, err := domain.ParseRole(cfg.Role)
	if err != nil {
		return r.setupFailed(err)
	}

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, r.opts.registry, r.logger)
		if err := srv.Start(); err != nil {
			return r.setupFailed(err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				r.logger.Warn("metrics server shutdown", log.Err(err))
			}
		}()
	}

	streamOpts := []pacer.Option{
		pacer.WithSpeed(cfg.Speed),
		pacer.WithSkipObserver(r.emitter),
	}
	if r.opts.sleeper != nil {
		streamOpts = append(streamOpts, pacer.WithSleeper(r.opts.sleeper))
	}
	stream := pacer.New(reader, kind.Tag(), r.logger, streamOpts...)

	player, err := app.NewPlayer(
		app.PlayerConfig{Kind: kind, Count: cfg.Count, LogName: reader.Name()},
		reader,
		stream,
		r.newSink(role, kind),
		progress.New(r.opts.progressOutput, total, cfg.Quiet),
		r.lifecycle,
		r.logger,
		r.emitter,
	)
	if err != nil {
		return r.setupFailed(err)
	}

	r.logger.Debug("replay configured",
		log.String("role", string(role)),
		log.String("messages", string(kind)),
		log.Int("rows", total),
		log.Int("count", cfg.Count),
	)
	return player.Run(ctx)
}

// newSink builds the transport for role.
func (r *Replay) newSink(role domain.Role, kind domain.MessageKind) ports.Sink {
	cfg := r.config
	opts := []transport.Option{
		transport.WithObserver(r.emitter),
		transport.WithWriteTimeout(r.opts.writeTimeout),
	}
	if r.opts.serialOpener != nil {
		opts = append(opts, transport.WithPortOpener(r.opts.serialOpener))
	}

	switch role {
	case domain.RoleUDP:
		return transport.NewUDPClient(hostPort(cfg.Destination, cfg.Port), r.logger, opts...)
	case domain.RoleSignalK:
		return transport.NewSignalKServer(hostPort(cfg.Interface, cfg.Port), kind, r.logger, opts...)
	case domain.RoleSerial:
		return transport.NewSerialWriter(cfg.Device, cfg.Baud, r.logger, opts...)
	default:
		return transport.NewTCPServer(hostPort(cfg.Interface, cfg.Port), r.logger, opts...)
	}
}

// setupFailed records a failure that happened before the transport opened.
func (r *Replay) setupFailed(err error) error {
	r.lifecycle.Fail(err.Error())
	return err
}

func hostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
