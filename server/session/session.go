package session

import "sync/atomic"

// State is a session lifecycle stage.
type State int32

const (
	StateUninitialized State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Session binds an id to one Adapter.
type Session struct {
	ID      string
	adapter *Adapter
	state   atomic.Int32
}

// State returns the current lifecycle stage.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Adapter returns the session channel adapter.
func (s *Session) Adapter() *Adapter {
	return s.adapter
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
}
