package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bft-labs/vdrplayer/internal/domain"
	"github.com/bft-labs/vdrplayer/internal/encoder"
	"github.com/bft-labs/vdrplayer/internal/ports"
	"github.com/bft-labs/vdrplayer/pkg/log"
)

// Skip reasons raised by the pass loop, in addition to the stream's.
const (
	SkipEncode = "encode"
	SkipEmpty  = "empty"
)

// PlayerConfig contains configuration for the pass loop.
type PlayerConfig struct {
	Kind    domain.MessageKind
	Count   int
	LogName string
}

// Stream is a paced row stream whose clock can be reset between passes.
type Stream interface {
	Next(ctx context.Context) (domain.Row, error)
	Reset()
}

// PlayEventEmitter is told about rows and passes as they go by.
type PlayEventEmitter interface {
	RowSent(kind string, bytes int)
	RowSkipped(reason string)
	PassCompleted()
}

// Player replays a log onto a sink: it waits for the peer, then runs Count
// passes over the log, each one rewound and with a fresh pacing clock.
type Player struct {
	config    PlayerConfig
	source    ports.Rewinder
	stream    Stream
	encode    encoder.Func
	sink      ports.Sink
	progress  ports.Progress
	lifecycle *Lifecycle
	logger    log.Logger
	emitter   PlayEventEmitter
}

// NewPlayer creates a player. It fails when config.Kind has no encoder.
func NewPlayer(
	config PlayerConfig,
	source ports.Rewinder,
	stream Stream,
	sink ports.Sink,
	progress ports.Progress,
	lifecycle *Lifecycle,
	logger log.Logger,
	emitter PlayEventEmitter,
) (*Player, error) {
	encode, err := encoder.Lookup(config.Kind)
	if err != nil {
		return nil, err
	}
	if config.Count < 1 {
		return nil, fmt.Errorf("%w: count must be at least 1, got %d", domain.ErrInvalidConfig, config.Count)
	}
	if emitter == nil {
		emitter = nopEmitter{}
	}
	return &Player{
		config:    config,
		source:    source,
		stream:    stream,
		encode:    encode,
		sink:      sink,
		progress:  progress,
		lifecycle: lifecycle,
		logger:    logger,
		emitter:   emitter,
	}, nil
}

// Run opens the sink, plays every pass and closes the sink.
// Row errors are logged and skipped; transport errors end the run.
func (p *Player) Run(ctx context.Context) error {
	if err := p.lifecycle.TransitionTo(StateListening, "opening transport"); err != nil {
		return err
	}

	if err := p.sink.Open(ctx); err != nil {
		return p.abort(ctx, err)
	}
	if err := p.lifecycle.TransitionTo(StateServing, "peer ready"); err != nil {
		return p.abort(ctx, err)
	}

	for pass := 1; pass <= p.config.Count; pass++ {
		if err := p.playPass(ctx, pass); err != nil {
			return p.abort(ctx, err)
		}
	}

	if err := p.lifecycle.TransitionTo(StateClosing, "all passes sent"); err != nil {
		return err
	}
	if err := p.sink.Close(); err != nil {
		p.lifecycle.Fail(err.Error())
		return domain.WrapFatal(fmt.Errorf("%w: %v", domain.ErrTransport, err), "player", "close")
	}
	return p.lifecycle.TransitionTo(StateStopped, "replay finished")
}

// abort closes the sink after a failed or canceled run.
func (p *Player) abort(ctx context.Context, err error) error {
	// A failure racing with cancellation counts as the cancellation.
	if ctx.Err() != nil {
		_ = p.lifecycle.TransitionTo(StateClosing, "canceled")
		if cerr := p.sink.Close(); cerr != nil {
			p.logger.Debug("close transport", log.Err(cerr))
		}
		_ = p.lifecycle.TransitionTo(StateStopped, "canceled")
		return ctx.Err()
	}

	p.lifecycle.Fail(err.Error())
	if cerr := p.sink.Close(); cerr != nil {
		p.logger.Warn("close transport", log.Err(cerr))
	}
	return err
}

// playPass streams the whole log once.
func (p *Player) playPass(ctx context.Context, pass int) error {
	p.logger.Info("Playing file",
		log.String("file", p.config.LogName),
		log.String("pass", fmt.Sprintf("%d/%d", pass, p.config.Count)),
	)

	if err := p.source.Rewind(); err != nil {
		return fmt.Errorf("rewind log: %w", err)
	}
	p.stream.Reset()

	if ps, ok := p.sink.(ports.PassSink); ok {
		if err := ps.BeginPass(ctx); err != nil {
			return err
		}
		defer func() {
			if err := ps.EndPass(); err != nil {
				p.logger.Warn("end pass", log.Int("pass", pass), log.Err(err))
			}
		}()
	}

	rows := 0
	for {
		row, err := p.stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		rows++

		if err := p.send(ctx, row); err != nil {
			return err
		}
		p.progress.Report(rows)
	}

	p.progress.Finish(rows)
	p.emitter.PassCompleted()
	return nil
}

// send encodes row and hands it to the sink. Encoding failures skip the row.
func (p *Player) send(ctx context.Context, row domain.Row) error {
	frame, err := p.encode(row)
	if err != nil {
		if domain.IsRowError(err) {
			p.logger.Warn("bad row", log.Int("line", row.Line()), log.Err(err))
			p.emitter.RowSkipped(SkipEncode)
			return nil
		}
		return err
	}
	if len(frame) == 0 {
		p.logger.Debug("empty frame", log.Int("line", row.Line()))
		p.emitter.RowSkipped(SkipEmpty)
		return nil
	}

	if err := p.sink.Send(ctx, frame); err != nil {
		return err
	}
	p.emitter.RowSent(string(p.config.Kind), len(frame))
	p.logger.Debug("sent row", log.Int("line", row.Line()), log.Int("bytes", len(frame)))
	return nil
}

type nopEmitter struct{}

func (nopEmitter) RowSent(string, int) {}
func (nopEmitter) RowSkipped(string)   {}
func (nopEmitter) PassCompleted()      {}
