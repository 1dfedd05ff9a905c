package vdrplayer

import (
	"sync"

	"github.com/bft-labs/vdrplayer/internal/app"
	"github.com/bft-labs/vdrplayer/internal/metrics"
)

// State is the lifecycle state of a replay.
type State int

const (
	// StateIdle is a replay that has not started.
	StateIdle State = iota
	// StateListening waits for the consumer.
	StateListening
	// StateServing sends rows.
	StateServing
	// StateClosing closes the transport after the last pass.
	StateClosing
	// StateStopped is a replay that ended normally or was canceled.
	StateStopped
	// StateFailed is a replay that ended on an error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateListening:
		return "Listening"
	case StateServing:
		return "Serving"
	case StateClosing:
		return "Closing"
	case StateStopped:
		return "Stopped"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Done reports whether the replay has ended.
func (s State) Done() bool {
	return s == StateStopped || s == StateFailed
}

// StateChangeEvent describes a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// RowSentEvent describes a row handed to the transport.
type RowSentEvent struct {
	Kind  string
	Bytes int
}

// RowSkippedEvent describes a row that was not sent.
// Reason is "malformed", "bad_timestamp", "encode", "empty" or, for UDP
// datagrams that failed to send, "dropped".
type RowSkippedEvent struct {
	Reason string
}

// PassCompletedEvent is emitted after the last row of a pass.
type PassCompletedEvent struct {
	Pass int
}

// EventHandler receives replay events.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnRowSent(RowSentEvent)
	OnRowSkipped(RowSkippedEvent)
	OnPassCompleted(PassCompletedEvent)
}

// BaseEventHandler implements EventHandler with no-ops.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)     {}
func (BaseEventHandler) OnRowSent(RowSentEvent)             {}
func (BaseEventHandler) OnRowSkipped(RowSkippedEvent)       {}
func (BaseEventHandler) OnPassCompleted(PassCompletedEvent) {}

// eventEmitterWrapper fans internal notifications out to the metrics
// recorder and the user's handler. It serves the lifecycle, the pass loop,
// the stream and the transport.
type eventEmitterWrapper struct {
	handler  EventHandler
	recorder *metrics.Recorder

	mu     sync.Mutex
	passes int
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) RowSent(kind string, bytes int) {
	e.recorder.RowSent(kind, bytes)
	if e.handler != nil {
		e.handler.OnRowSent(RowSentEvent{Kind: kind, Bytes: bytes})
	}
}

func (e *eventEmitterWrapper) RowSkipped(reason string) {
	e.recorder.RowSkipped(reason)
	if e.handler != nil {
		e.handler.OnRowSkipped(RowSkippedEvent{Reason: reason})
	}
}

func (e *eventEmitterWrapper) PassCompleted() {
	e.recorder.PassCompleted()
	e.mu.Lock()
	e.passes++
	pass := e.passes
	e.mu.Unlock()
	if e.handler != nil {
		e.handler.OnPassCompleted(PassCompletedEvent{Pass: pass})
	}
}

func (e *eventEmitterWrapper) ClientConnected(connected bool) {
	e.recorder.ClientConnected(connected)
}

func (e *eventEmitterWrapper) RowDropped() {
	e.recorder.RowDropped()
	if e.handler != nil {
		e.handler.OnRowSkipped(RowSkippedEvent{Reason: "dropped"})
	}
}

func convertState(s app.State) State {
	switch s {
	case app.StateIdle:
		return StateIdle
	case app.StateListening:
		return StateListening
	case app.StateServing:
		return StateServing
	case app.StateClosing:
		return StateClosing
	case app.StateStopped:
		return StateStopped
	case app.StateFailed:
		return StateFailed
	default:
		return StateIdle
	}
}
