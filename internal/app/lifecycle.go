package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/bft-labs/vdrplayer/internal/domain"
	"github.com/bft-labs/vdrplayer/pkg/log"
)

// State represents the lifecycle state of a replay session.
type State int

const (
	StateIdle State = iota
	StateListening
	StateServing
	StateClosing
	StateStopped
	StateFailed
)

// String returns a human-readable representation of the state.
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

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateFailed
}

// next lists the legal targets of every state. Failed is reachable from any
// non-terminal state.
var next = map[State][]State{
	StateIdle:      {StateListening},
	StateListening: {StateServing, StateClosing},
	StateServing:   {StateClosing},
	StateClosing:   {StateStopped},
}

// Lifecycle manages the state machine of a replay session.
type Lifecycle struct {
	mu           sync.RWMutex
	state        State
	cancel       context.CancelFunc
	logger       log.Logger
	eventEmitter EventEmitter
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// NewLifecycle creates a lifecycle in StateIdle.
func NewLifecycle(logger log.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{
		state:        StateIdle,
		logger:       logger,
		eventEmitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo attempts to transition to a new state.
// Returns an error wrapping domain.ErrInvalidTransition if it is not allowed.
func (l *Lifecycle) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state
	if !allowed(oldState, newState) {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, oldState, newState)
	}
	l.state = newState
	l.mu.Unlock()

	// Emit event outside of lock
	if l.eventEmitter != nil {
		l.eventEmitter.OnStateChange(oldState, newState, reason)
	}

	l.logger.Debug("state transition",
		log.String("from", oldState.String()),
		log.String("to", newState.String()),
		log.String("reason", reason),
	)
	return nil
}

// Fail moves a non-terminal session to StateFailed. It is a no-op once the
// session has ended.
func (l *Lifecycle) Fail(reason string) {
	_ = l.TransitionTo(StateFailed, reason)
}

func allowed(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanStart returns true if a session can be started.
func (l *Lifecycle) CanStart() bool {
	return l.State() == StateIdle
}

// CanStop returns true while a session is in progress.
func (l *Lifecycle) CanStop() bool {
	return !l.State().Terminal()
}

// SetCancel stores the cancel function of the running session.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel stops the running session.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
