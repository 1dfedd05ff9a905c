// Package pacer turns a row source into a paced stream that reproduces the
// timing of the capture.
package pacer

import (
	"context"
	"strings"
	"time"

	"github.com/bft-labs/vdrplayer/internal/domain"
	"github.com/bft-labs/vdrplayer/internal/ports"
	"github.com/bft-labs/vdrplayer/pkg/log"
)

// Skip reasons reported to a SkipObserver.
const (
	SkipMalformed    = "malformed"
	SkipBadTimestamp = "bad_timestamp"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SkipObserver is told about every row the stream discards.
type SkipObserver interface {
	RowSkipped(reason string)
}

// Option configures a Stream.
type Option func(*Stream)

// WithSleeper replaces the wall-clock sleeper, mostly for tests.
func WithSleeper(s Sleeper) Option {
	return func(st *Stream) { st.sleep = s }
}

// WithSpeed divides every delay by factor. Zero disables pacing.
func WithSpeed(factor float64) Option {
	return func(st *Stream) { st.speed = factor }
}

// WithSkipObserver registers an observer for discarded rows.
func WithSkipObserver(o SkipObserver) Option {
	return func(st *Stream) { st.observer = o }
}

// Stream yields the rows of one message kind, sleeping before each row for
// the gap between its timestamp and the previous row's.
type Stream struct {
	source   ports.RowSource
	tag      string
	speed    float64
	sleep    Sleeper
	observer SkipObserver
	logger   log.Logger

	// pacing clock, in milliseconds
	last    float64
	hasLast bool
}

// New creates a stream over source that keeps rows whose protocol contains tag.
func New(source ports.RowSource, tag string, logger log.Logger, opts ...Option) *Stream {
	s := &Stream{
		source: source,
		tag:    strings.ToLower(tag),
		speed:  1,
		sleep:  Sleep,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next returns the next matching row after the pacing delay. Malformed rows
// and rows with a bad timestamp are logged and skipped. io.EOF ends the pass.
func (s *Stream) Next(ctx context.Context) (domain.Row, error) {
	for {
		row, err := s.source.Next(ctx)
		if err != nil {
			if domain.IsRowError(err) {
				s.skip(SkipMalformed, "bad row", log.Err(err))
				continue
			}
			return domain.Row{}, err
		}

		hasTime := row.Has(domain.ColumnReceivedAt)
		if !hasTime && !row.Has(domain.ColumnProtocol) {
			s.skip(SkipMalformed, "bad row", log.Int("line", row.Line()), log.String("row", row.String()))
			continue
		}
		// Rows of other kinds, or without a protocol, are never reported.
		if !strings.Contains(row.Protocol(), s.tag) {
			continue
		}
		if !hasTime {
			s.skip(SkipMalformed, "bad row", log.Int("line", row.Line()), log.String("row", row.String()))
			continue
		}

		ts, err := row.ReceivedAt()
		if err != nil {
			raw, _ := row.Get(domain.ColumnReceivedAt)
			s.skip(SkipBadTimestamp, "bad timestamp", log.Int("line", row.Line()), log.String("received_at", raw))
			continue
		}

		if s.hasLast {
			if d := s.delay(ts - s.last); d > 0 {
				if err := s.sleep(ctx, d); err != nil {
					return domain.Row{}, err
				}
			}
		}
		s.last = ts
		s.hasLast = true
		return row, nil
	}
}

// Reset clears the pacing clock so the next row is returned without delay.
// It does not touch the underlying source.
func (s *Stream) Reset() {
	s.last = 0
	s.hasLast = false
}

func (s *Stream) delay(deltaMillis float64) time.Duration {
	if deltaMillis <= 0 || s.speed <= 0 {
		return 0
	}
	return time.Duration(deltaMillis / s.speed * float64(time.Millisecond))
}

func (s *Stream) skip(reason, msg string, fields ...log.Field) {
	s.logger.Warn(msg, fields...)
	if s.observer != nil {
		s.observer.RowSkipped(reason)
	}
}

// Sleep waits for d on a timer and returns early with ctx.Err() when ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
